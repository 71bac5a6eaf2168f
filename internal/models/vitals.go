package models

import "time"

// HeartbeatInterval 单次心跳间期（IBI）样本
//
// 由传感器采集端产生（MQTT 主题 pulse/{device_id}/ibi），
// 仅由 IntervalBuffer 消费，入队后不可变。
type HeartbeatInterval struct {
	Timestamp       time.Time `json:"timestamp"`        // 采样时间
	IntervalSeconds float64   `json:"interval_seconds"` // 相邻两次心跳的间隔（秒）
	Confidence      float64   `json:"confidence"`       // 传感器置信度 [0,1]
}

// HRVPattern 心率变异性节律模式（按相干性得分阈值全序排列）
type HRVPattern string

const (
	PatternIncoherent    HRVPattern = "incoherent"     // [0, 0.3)
	PatternTransitional  HRVPattern = "transitional"   // [0.3, 0.6)
	PatternCoherent      HRVPattern = "coherent"       // [0.6, 0.85)
	PatternSuperCoherent HRVPattern = "super_coherent" // [0.85, 1.0]
)

// FrequencyModifier 返回该节律模式的固定频率修正值
//
// 修正值是经验常量（非推导值），用于生物频率的叠加计算
func (p HRVPattern) FrequencyModifier() float64 {
	switch p {
	case PatternIncoherent:
		return -100
	case PatternTransitional:
		return 0
	case PatternCoherent:
		return 100
	case PatternSuperCoherent:
		return 200
	default:
		return 0
	}
}

// CoherenceResult 一次频谱分析周期的相干性结果
//
// 每个分析周期重新计算，新结果整体替换旧结果（单写者最新值单元）
type CoherenceResult struct {
	Score               float64    `json:"score"`                 // 相干性得分 [0,1]
	DominantFrequencyHz float64    `json:"dominant_frequency_hz"` // 相干频段内峰值频率（Hz）
	PowerRatio          float64    `json:"power_ratio"`           // 峰值功率 / 总功率
	Pattern             HRVPattern `json:"pattern"`               // 节律模式分类
	Timestamp           time.Time  `json:"timestamp"`             // 分析时间
}

// BreathingPattern 呼吸模式分类
type BreathingPattern string

const (
	BreathingShallow  BreathingPattern = "shallow"  // 其他
	BreathingNormal   BreathingPattern = "normal"   // [12, 18)
	BreathingDeep     BreathingPattern = "deep"     // [8, 12)
	BreathingResonant BreathingPattern = "resonant" // [4, 8)
)

// FrequencyBoost 返回该呼吸模式的固定频率加成值
func (p BreathingPattern) FrequencyBoost() float64 {
	switch p {
	case BreathingShallow:
		return -20
	case BreathingNormal:
		return 0
	case BreathingDeep:
		return 30
	case BreathingResonant:
		return 50
	default:
		return 0
	}
}

// BreathingResult 呼吸估计结果
type BreathingResult struct {
	RateBreathsPerMin float64          `json:"rate_breaths_per_min"` // 估计呼吸率（次/分钟）
	Depth             float64          `json:"depth"`                // 呼吸深度 [0,1]（无深度传感器时为占位常量）
	Coherence         float64          `json:"coherence"`            // 呼吸规律性得分 [0,1]（与 HRV 相干性无关）
	Pattern           BreathingPattern `json:"pattern"`              // 呼吸模式分类
	Degraded          bool             `json:"degraded"`             // 主频不在呼吸频段内时为降级估计
	Timestamp         time.Time        `json:"timestamp"`            // 估计时间
}

package models

import "time"

// FusionWeights 频率融合权重（四个非负系数）
//
// 各系数不要求自身归一，但融合前必须先归一化（除以总和）；
// 总和 ≤ 0 时保持原值作为恒等降级（见 fusion.NormalizeWeights）
type FusionWeights struct {
	Numerology    float64 `json:"w_numerology"`    // 符号基准值权重
	Biometric     float64 `json:"w_biometric"`     // 生物频率权重
	Environmental float64 `json:"w_environmental"` // 环境修正值权重
	Pattern       float64 `json:"w_pattern"`       // 模式加成权重
}

// Sum 返回四个权重的总和
func (w FusionWeights) Sum() float64 {
	return w.Numerology + w.Biometric + w.Environmental + w.Pattern
}

// FusedState 融合输出快照（每周期整体替换，不做原地修改，不保留历史）
type FusedState struct {
	SymbolicValue         int       `json:"symbolic_value"`         // 符号基准值（1-9 或主数）
	BiometricFrequency    float64   `json:"biometric_frequency"`    // 生物频率值
	EnvironmentalModifier float64   `json:"environmental_modifier"` // 环境修正值（≥0）
	PatternBonus          float64   `json:"pattern_bonus"`          // 模式加成值
	FusedValue            float64   `json:"fused_value"`            // 加权融合结果（不截断）
	Confidence            float64   `json:"confidence"`             // 置信度 [0,1]（仅作参考元数据）
	CycleSeq              uint64    `json:"cycle_seq"`              // 单调周期计数（用于排序保证）
	Timestamp             time.Time `json:"timestamp"`              // 融合时间
}

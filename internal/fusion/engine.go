package fusion

import (
	"go.uber.org/zap"

	"wisefido-coherence/internal/models"
)

const (
	// DefaultBiometricFrequency 无信号时的生物频率基准值
	// 心率抬升查询超时且无相干性结果时回退到该值
	DefaultBiometricFrequency = 250.0

	// symbolicScale 符号基准值进入融合前的固定放大系数
	symbolicScale = 100.0

	// 置信度构成：基础值加三项独立加成，最终截断到 [0,1]
	confidenceBase          = 0.5
	confidenceBiometricGain = 0.2
	confidenceEnvGain       = 0.15
	confidenceCalibGain     = 0.15
)

// Engine 频率融合引擎
//
// 每个监测会话构造一个实例并显式注入，不使用共享单例
type Engine struct {
	logger *zap.Logger
}

// NewEngine 创建融合引擎
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Fuse 加权融合四路输入为单一输出值
//
// fused = symbolic×100×wN + biometric×wB + environmental×wE + bonus×wP
// 权重先归一化（总和 ≤ 0 时恒等降级）。本层不截断融合值：
// 下游分区查找需要看到真实计算值，显示层截断由调用方自理
func (e *Engine) Fuse(symbolicValue int, biometricFrequency, environmentalModifier, patternBonus float64, weights models.FusionWeights) float64 {
	w := NormalizeWeights(weights)

	return float64(symbolicValue)*symbolicScale*w.Numerology +
		biometricFrequency*w.Biometric +
		environmentalModifier*w.Environmental +
		patternBonus*w.Pattern
}

// Confidence 计算融合输出的参考置信度
//
// 仅作元数据，从不阻断输出：基础 0.5，生物频率偏离无信号默认值 +0.2，
// 环境修正非零 +0.15，校准完成 +0.15，截断到 [0,1]
func (e *Engine) Confidence(biometricFrequency, environmentalModifier float64, calibrated bool) float64 {
	confidence := confidenceBase

	if biometricFrequency != DefaultBiometricFrequency {
		confidence += confidenceBiometricGain
	}
	if environmentalModifier != 0 {
		confidence += confidenceEnvGain
	}
	if calibrated {
		confidence += confidenceCalibGain
	}

	return clamp(confidence, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

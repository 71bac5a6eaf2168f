// Package fusion 提供多源频率加权融合
//
// 把符号基准值、生物频率、环境修正值和模式加成按权重合成单一输出值。
// 本包全部是确定性纯函数，不做任何 I/O，不持有可变状态。
package fusion

import "wisefido-coherence/internal/models"

// 默认融合权重（校准未完成时使用）
const (
	defaultNumerologyWeight    = 0.4
	defaultBiometricWeight     = 0.3
	defaultEnvironmentalWeight = 0.2
	defaultPatternWeight       = 0.1
)

// DefaultWeights 返回默认融合权重
func DefaultWeights() models.FusionWeights {
	return models.FusionWeights{
		Numerology:    defaultNumerologyWeight,
		Biometric:     defaultBiometricWeight,
		Environmental: defaultEnvironmentalWeight,
		Pattern:       defaultPatternWeight,
	}
}

// NormalizeWeights 归一化权重（每个系数除以总和，归一后和为 1）
//
// 总和 ≤ 0 时原样返回，作为恒等降级（不报错，融合结果为 0）
func NormalizeWeights(w models.FusionWeights) models.FusionWeights {
	sum := w.Sum()
	if sum <= 0 {
		return w
	}
	return models.FusionWeights{
		Numerology:    w.Numerology / sum,
		Biometric:     w.Biometric / sum,
		Environmental: w.Environmental / sum,
		Pattern:       w.Pattern / sum,
	}
}

package analyzer

import (
	"time"

	"wisefido-coherence/internal/models"
)

const (
	// RSABandLowHz / RSABandHighHz 呼吸性窦性心律不齐（RSA）频段
	// 主频落在该频段内才能直接推导呼吸率
	RSABandLowHz  = 0.15
	RSABandHighHz = 0.4

	// FallbackBreathingRate 主频不在 RSA 频段时的固定降级呼吸率（次/分钟）
	FallbackBreathingRate = 12.0

	// placeholderDepth 呼吸深度占位常量（当前没有深度传感器）
	placeholderDepth = 0.5
)

// EstimateBreathing 从主频推导呼吸估计
//
// rate = dominant_frequency × 60，仅当主频在 RSA 频段 [0.15, 0.4] Hz 内；
// 否则使用固定降级值并标记 Degraded。纯函数，对任意输入有定义
func EstimateBreathing(dominantFrequencyHz float64, now time.Time) models.BreathingResult {
	rate := FallbackBreathingRate
	degraded := true

	if dominantFrequencyHz >= RSABandLowHz && dominantFrequencyHz <= RSABandHighHz {
		rate = dominantFrequencyHz * 60
		degraded = false
	}

	return models.BreathingResult{
		RateBreathsPerMin: rate,
		Depth:             placeholderDepth,
		Coherence:         breathingRegularity(rate),
		Pattern:           ClassifyBreathing(rate),
		Degraded:          degraded,
		Timestamp:         now,
	}
}

// ClassifyBreathing 把呼吸率分类为呼吸模式（左闭右开区间）
//
// [4,8)→resonant [8,12)→deep [12,18)→normal 其他→shallow
func ClassifyBreathing(rate float64) models.BreathingPattern {
	switch {
	case rate >= 4 && rate < 8:
		return models.BreathingResonant
	case rate >= 8 && rate < 12:
		return models.BreathingDeep
	case rate >= 12 && rate < 18:
		return models.BreathingNormal
	default:
		return models.BreathingShallow
	}
}

// breathingRegularity 呼吸规律性阶梯得分
//
// 与 HRV 相干性得分无关的独立评分：
// [4,7]→0.9 [8,12]→0.7 [12,16]→0.5 其他→0.3
func breathingRegularity(rate float64) float64 {
	switch {
	case rate >= 4 && rate <= 7:
		return 0.9
	case rate >= 8 && rate <= 12:
		return 0.7
	case rate > 12 && rate <= 16:
		return 0.5
	default:
		return 0.3
	}
}

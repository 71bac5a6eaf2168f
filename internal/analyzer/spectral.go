// Package analyzer 提供心跳间期序列的频谱相干性分析
//
// 分析管线（每周期执行一次）：
// 1. 间期序列转为毫秒实值序列
// 2. 零填充到不小于输入长度的最小 2 的幂
// 3. 正向实数 FFT（gonum/dsp/fourier）
// 4. 幅度平方功率谱（长度 = 填充长度/2）
// 5. 采样率 = 1/平均间期，频率分辨率 = 采样率/填充长度
// 6. 在相干频段 [0.04, 0.26] Hz 内定位峰值功率 bin
// 7. 功率占比 = 峰值功率/总功率，相干性得分 = clamp(占比×10, 0, 1)
//
// 所有除法都有守护：退化输入（零总功率、零平均间期、空频段）
// 返回得分为 0 的结果，绝不产生 NaN/Inf 或除零。
package analyzer

import (
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/dsp/fourier"

	"wisefido-coherence/internal/models"
)

// ErrInsufficientData 样本数不足，跳过本周期分析（保留上一次结果）
var ErrInsufficientData = errors.New("insufficient samples for spectral analysis")

const (
	// MinSampleCount 频谱分析所需的最小样本数
	MinSampleCount = 30

	// CoherenceBandLowHz / CoherenceBandHighHz 相干频段边界
	// 峰值功率只在该频段内搜索
	CoherenceBandLowHz  = 0.04
	CoherenceBandHighHz = 0.26

	// coherenceScale 功率占比到 [0,1] 得分的经验缩放系数
	// 来自行为校准，不是推导值，调参时只改这里
	coherenceScale = 10.0
)

// SpectralAnalyzer 频谱相干性分析器
//
// 无内部状态，对同一输入产生确定性输出；
// 每个监测会话构造一个实例并显式注入（不使用共享单例）
type SpectralAnalyzer struct {
	logger *zap.Logger
}

// NewSpectralAnalyzer 创建频谱分析器
func NewSpectralAnalyzer(logger *zap.Logger) *SpectralAnalyzer {
	return &SpectralAnalyzer{logger: logger}
}

// Analyze 对间期快照做一次频谱相干性分析
//
// 样本数 < MinSampleCount 时返回 ErrInsufficientData，调用方保留旧结果；
// 数值退化时返回得分为 0 的结果而不是错误
func (a *SpectralAnalyzer) Analyze(samples []models.HeartbeatInterval, now time.Time) (*models.CoherenceResult, error) {
	if len(samples) < MinSampleCount {
		return nil, ErrInsufficientData
	}

	// 1. 间期转毫秒实值序列，同时累计平均间期
	series := make([]float64, len(samples))
	var sumSeconds float64
	for i, s := range samples {
		series[i] = s.IntervalSeconds * 1000
		sumSeconds += s.IntervalSeconds
	}

	meanSeconds := sumSeconds / float64(len(samples))
	if meanSeconds <= 0 || math.IsNaN(meanSeconds) || math.IsInf(meanSeconds, 0) {
		a.logger.Warn("Degenerate interval data, zero mean interval",
			zap.Int("sample_count", len(samples)),
		)
		return a.zeroResult(now), nil
	}

	// 2. 零填充到 2 的幂
	padded := nextPowerOfTwo(len(series))
	if padded > len(series) {
		series = append(series, make([]float64, padded-len(series))...)
	}

	// 3-4. 正向实数 FFT，幅度平方功率谱（取前 padded/2 个 bin）
	fft := fourier.NewFFT(padded)
	coeffs := fft.Coefficients(nil, series)

	spectrum := make([]float64, padded/2)
	var totalPower float64
	for k := range spectrum {
		re := real(coeffs[k])
		im := imag(coeffs[k])
		p := re*re + im*im
		if math.IsNaN(p) || math.IsInf(p, 0) {
			p = 0
		}
		spectrum[k] = p
		totalPower += p
	}

	// 5. 采样率与频率分辨率
	samplingRate := 1.0 / meanSeconds
	resolution := samplingRate / float64(padded)

	// 6. 相干频段内峰值搜索（bin 0 是直流分量，不参与）
	// 并列峰值取最低索引 bin，保证确定性
	peakBin := -1
	peakPower := 0.0
	for k := 1; k < len(spectrum); k++ {
		freq := float64(k) * resolution
		if freq < CoherenceBandLowHz {
			continue
		}
		if freq > CoherenceBandHighHz {
			break
		}
		if peakBin < 0 || spectrum[k] > peakPower {
			peakBin = k
			peakPower = spectrum[k]
		}
	}

	if peakBin < 0 {
		// 相干频段内没有任何 bin（分辨率过粗），按退化处理
		a.logger.Warn("Coherence band contains no spectrum bins",
			zap.Float64("resolution_hz", resolution),
		)
		return a.zeroResult(now), nil
	}

	dominantFrequency := float64(peakBin) * resolution

	// 7. 功率占比与相干性得分
	var powerRatio float64
	if totalPower > 0 {
		powerRatio = peakPower / totalPower
	}

	score := clamp(powerRatio*coherenceScale, 0, 1)

	return &models.CoherenceResult{
		Score:               score,
		DominantFrequencyHz: dominantFrequency,
		PowerRatio:          powerRatio,
		Pattern:             ClassifyHRV(score),
		Timestamp:           now,
	}, nil
}

// zeroResult 退化输入对应的零得分结果
func (a *SpectralAnalyzer) zeroResult(now time.Time) *models.CoherenceResult {
	return &models.CoherenceResult{
		Score:               0,
		DominantFrequencyHz: 0,
		PowerRatio:          0,
		Pattern:             models.PatternIncoherent,
		Timestamp:           now,
	}
}

// nextPowerOfTwo 返回不小于 n 的最小 2 的幂
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
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

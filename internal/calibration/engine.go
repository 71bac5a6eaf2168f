// Package calibration 实现个性化融合权重的校准状态机
//
// 状态机：Idle → Start → Active → (elapsed_days ≥ 14) → Complete
// Complete 对当前窗口是终态，再次 Start 创建全新窗口。
// 线性状态机，无重试无回滚：稀疏或畸形样本只是凑不够多数阈值，
// 对应维度保持默认权重。
package calibration

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-coherence/internal/fusion"
	"wisefido-coherence/internal/models"
)

// ErrCalibrationActive 已有进行中的校准窗口
var ErrCalibrationActive = errors.New("calibration window already active")

// ErrCalibrationNotActive 没有进行中的校准窗口
var ErrCalibrationNotActive = errors.New("no active calibration window")

// State 校准状态
type State string

const (
	StateIdle     State = "idle"
	StateActive   State = "active"
	StateComplete State = "complete"
)

const (
	// WindowDays 校准窗口长度（天）
	WindowDays = 14

	// 多数阈值启发式的固定参数：
	// - 过半样本满足 符号值 ≥ 6 且自报正向 → 提升符号权重
	// - 过半样本的生物频率 ≥ 阈值 → 提升生物权重
	symbolicMajorityValue       = 6
	biometricMajorityThreshold  = 300.0
	raisedNumerologyWeight      = 0.5
	raisedBiometricWeight       = 0.4
)

// Engine 校准引擎
//
// 每个监测会话构造一个实例并显式注入；
// 时钟通过 now 字段注入，测试中可替换
type Engine struct {
	mu      sync.Mutex
	state   State
	window  *models.CalibrationWindow
	weights models.FusionWeights
	history []*models.CalibrationWindow
	now     func() time.Time
	logger  *zap.Logger
}

// NewEngine 创建校准引擎（初始 Idle，权重为默认值）
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		state:   StateIdle,
		weights: fusion.DefaultWeights(),
		now:     time.Now,
		logger:  logger,
	}
}

// Start 开始一个新的校准窗口
//
// Idle 或 Complete 状态下创建全新窗口；已有进行中窗口时报错
func (e *Engine) Start(userID string) (*models.CalibrationWindow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateActive {
		return nil, ErrCalibrationActive
	}

	e.window = &models.CalibrationWindow{
		WindowID:  uuid.NewString(),
		UserID:    userID,
		StartDate: e.now(),
		Samples:   []models.CalibrationSample{},
	}
	e.state = StateActive

	e.logger.Info("Calibration window started",
		zap.String("user_id", userID),
		zap.String("window_id", e.window.WindowID),
	)

	return e.window, nil
}

// Record 追加一个校准样本并推进窗口
//
// 每个分析周期调用一次；elapsed_days 重新计算（单调不减）。
// 窗口满 14 天时完成：计算个性化权重（恰好一次），窗口转为只读历史，
// 返回 completed = true
func (e *Engine) Record(symbolicValue int, biometricFrequency float64, selfReport *bool, activityLevel string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateActive {
		return false, ErrCalibrationNotActive
	}

	now := e.now()
	e.window.Samples = append(e.window.Samples, models.CalibrationSample{
		Timestamp:          now,
		SymbolicValue:      symbolicValue,
		BiometricFrequency: biometricFrequency,
		SelfReport:         selfReport,
		ActivityLevel:      activityLevel,
	})

	elapsed := int(now.Sub(e.window.StartDate).Hours() / 24)
	if elapsed > e.window.ElapsedDays {
		e.window.ElapsedDays = elapsed
	}

	if e.window.ElapsedDays < WindowDays {
		return false, nil
	}

	// 窗口完成：权重计算消费且仅消费一次
	e.weights = computeWeights(e.window.Samples)
	e.window.Completed = true
	e.state = StateComplete
	e.history = append(e.history, e.window)

	e.logger.Info("Calibration window complete",
		zap.String("window_id", e.window.WindowID),
		zap.Int("sample_count", len(e.window.Samples)),
		zap.Float64("w_numerology", e.weights.Numerology),
		zap.Float64("w_biometric", e.weights.Biometric),
	)

	return true, nil
}

// Weights 返回当前权重和校准是否已完成
//
// 校准未完成时返回默认权重
func (e *Engine) Weights() (models.FusionWeights, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.weights, e.state == StateComplete
}

// RestoreWeights 恢复历史个性化权重（服务启动时从持久层加载）
func (e *Engine) RestoreWeights(w models.FusionWeights) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weights = w
	e.state = StateComplete
}

// State 返回当前状态
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Window 返回当前窗口（进行中或最近完成的）
func (e *Engine) Window() *models.CalibrationWindow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window
}

// computeWeights 从累积样本计算个性化权重
//
// 两个互相独立的多数阈值启发式；凑不够多数的维度保持默认值
func computeWeights(samples []models.CalibrationSample) models.FusionWeights {
	weights := fusion.DefaultWeights()
	if len(samples) == 0 {
		return weights
	}

	symbolicHits := 0
	biometricHits := 0
	for _, s := range samples {
		if s.SymbolicValue >= symbolicMajorityValue && s.SelfReport != nil && *s.SelfReport {
			symbolicHits++
		}
		if s.BiometricFrequency >= biometricMajorityThreshold {
			biometricHits++
		}
	}

	if symbolicHits*2 > len(samples) {
		weights.Numerology = raisedNumerologyWeight
	}
	if biometricHits*2 > len(samples) {
		weights.Biometric = raisedBiometricWeight
	}

	return weights
}

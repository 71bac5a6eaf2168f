package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"wisefido-coherence/internal/analyzer"
	"wisefido-coherence/internal/buffer"
	"wisefido-coherence/internal/calibration"
	"wisefido-coherence/internal/config"
	"wisefido-coherence/internal/consumer"
	"wisefido-coherence/internal/fusion"
	"wisefido-coherence/internal/models"
)

const (
	// defaultSymbolicValue 符号基准值缓存缺失时的降级值
	defaultSymbolicValue = 1

	// defaultElevation 心率抬升查询失败时的降级基线
	defaultElevation = 250.0
)

// elevationQuerier 心率抬升查询接口（由 SensorConsumer 实现）
type elevationQuerier interface {
	QueryElevation(ctx context.Context, deviceID string) (float64, error)
}

// stateCache 最新值缓存接口（由 CacheManager 实现）
type stateCache interface {
	UpdateFusedState(ctx context.Context, userID string, state *models.FusedState) error
	UpdateCoherenceResult(ctx context.Context, userID string, result *models.CoherenceResult) error
	UpdateBreathingResult(ctx context.Context, userID string, result *models.BreathingResult) error
	PublishFusedStream(ctx context.Context, state *models.FusedState) (string, error)
	GetSymbolicValue(ctx context.Context, userID string) (int, error)
	GetEnvironmentalModifier(ctx context.Context, userID string) (float64, error)
	SetEnvironmentalModifier(ctx context.Context, userID string, modifier float64) error
}

// environmentFetcher 环境修正值查询接口（由 EnvironmentProvider 实现）
type environmentFetcher interface {
	FetchModifier(ctx context.Context, userID string) (float64, error)
}

// calibrationStore 校准持久化接口（由 CalibrationRepository 实现）
type calibrationStore interface {
	SaveSample(windowID, userID string, sample *models.CalibrationSample) error
	SaveWeights(windowID, userID string, weights *models.FusionWeights) error
}

// Monitor 周期分析驱动器
//
// 每个周期从缓冲区取快照，依次执行频谱分析、呼吸估计、生物频率合成和
// 加权融合，最后写入缓存、输出流和校准引擎。
//
// 并发模型：单驱动 goroutine 驱动所有分析周期；
// 上一周期未结束时新 tick 直接丢弃（不排队、不并行），
// 周期计数单调递增保证输出可排序
type Monitor struct {
	config      *config.Config
	logger      *zap.Logger
	intervals   *buffer.IntervalBuffer
	analyzer    *analyzer.SpectralAnalyzer
	fusionEng   *fusion.Engine
	calibration *calibration.Engine

	elevation elevationQuerier
	cache     stateCache
	env       environmentFetcher
	store     calibrationStore

	inFlight int32
	cycleSeq uint64

	mu            sync.RWMutex
	lastCoherence *models.CoherenceResult
	lastBreathing *models.BreathingResult
	lastFused     *models.FusedState

	now func() time.Time
}

// NewMonitor 创建周期分析驱动器
func NewMonitor(
	cfg *config.Config,
	intervals *buffer.IntervalBuffer,
	spectral *analyzer.SpectralAnalyzer,
	fusionEng *fusion.Engine,
	calib *calibration.Engine,
	elevation elevationQuerier,
	cache stateCache,
	env environmentFetcher,
	store calibrationStore,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		config:      cfg,
		logger:      logger,
		intervals:   intervals,
		analyzer:    spectral,
		fusionEng:   fusionEng,
		calibration: calib,
		elevation:   elevation,
		cache:       cache,
		env:         env,
		store:       store,
		now:         time.Now,
	}
}

// Run 启动周期分析循环（阻塞直到 ctx 取消）
func (m *Monitor) Run(ctx context.Context) error {
	interval := time.Duration(m.config.Coherence.CycleIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("Starting analysis cycle loop",
		zap.Duration("interval", interval),
		zap.String("user_id", m.config.Coherence.UserID),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Analysis cycle loop stopped")
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick 执行一个分析周期，上一周期未结束时丢弃本次 tick
func (m *Monitor) tick(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&m.inFlight, 0, 1) {
		m.logger.Warn("Previous cycle still running, tick dropped",
			zap.Uint64("cycle_seq", atomic.LoadUint64(&m.cycleSeq)),
		)
		return
	}
	defer atomic.StoreInt32(&m.inFlight, 0)

	seq := atomic.AddUint64(&m.cycleSeq, 1)
	if err := m.runCycle(ctx, seq); err != nil {
		m.logger.Error("Analysis cycle failed",
			zap.Uint64("cycle_seq", seq),
			zap.Error(err),
		)
	}
}

// runCycle 一个完整的分析 + 融合周期
func (m *Monitor) runCycle(ctx context.Context, seq uint64) error {
	now := m.now()
	userID := m.config.Coherence.UserID

	// 1. 频谱分析：样本不足时保留上一周期结果（不清零）
	coherence := m.analyzeCoherence(now)

	// 2. 呼吸估计
	breathing := analyzer.EstimateBreathing(coherence.DominantFrequencyHz, now)

	// 3. 生物频率 = 心率抬升基线 + 节律修正 + 呼吸加成
	elevation := m.queryElevation(ctx)
	biometricFrequency := elevation +
		coherence.Pattern.FrequencyModifier() +
		breathing.Pattern.FrequencyBoost()

	// 4. 符号基准值（缓存缺失时降级为 1），折叠后计算模式加成
	symbolicValue := m.symbolicValue(ctx, userID)
	patternBonus := fusion.PatternBonus(symbolicValue)

	// 5. 环境修正值（提供方 → 缓存 → 0）
	envModifier := m.environmentalModifier(ctx, userID)

	// 6. 加权融合
	weights, calibrated := m.calibration.Weights()
	fusedValue := m.fusionEng.Fuse(symbolicValue, biometricFrequency, envModifier, patternBonus, weights)
	confidence := m.fusionEng.Confidence(biometricFrequency, envModifier, calibrated)

	state := &models.FusedState{
		SymbolicValue:         symbolicValue,
		BiometricFrequency:    biometricFrequency,
		EnvironmentalModifier: envModifier,
		PatternBonus:          patternBonus,
		FusedValue:            fusedValue,
		Confidence:            confidence,
		CycleSeq:              seq,
		Timestamp:             now,
	}

	m.mu.Lock()
	m.lastCoherence = coherence
	m.lastBreathing = &breathing
	m.lastFused = state
	m.mu.Unlock()

	// 7. 输出：缓存快照 + 输出流（缓存失败不阻断周期）
	if err := m.cache.UpdateCoherenceResult(ctx, userID, coherence); err != nil {
		m.logger.Error("Failed to cache coherence result", zap.Error(err))
	}
	if err := m.cache.UpdateBreathingResult(ctx, userID, &breathing); err != nil {
		m.logger.Error("Failed to cache breathing result", zap.Error(err))
	}
	if err := m.cache.UpdateFusedState(ctx, userID, state); err != nil {
		m.logger.Error("Failed to cache fused state", zap.Error(err))
	}
	if _, err := m.cache.PublishFusedStream(ctx, state); err != nil {
		m.logger.Error("Failed to publish fused state to stream", zap.Error(err))
	}

	// 8. 校准窗口推进（未开窗时跳过）
	m.recordCalibration(symbolicValue, biometricFrequency, now)

	m.logger.Debug("Analysis cycle complete",
		zap.Uint64("cycle_seq", seq),
		zap.Float64("coherence_score", coherence.Score),
		zap.Float64("fused_value", fusedValue),
	)

	return nil
}

// analyzeCoherence 频谱分析，样本不足时退回上一周期结果
func (m *Monitor) analyzeCoherence(now time.Time) *models.CoherenceResult {
	samples := m.intervals.Snapshot()

	result, err := m.analyzer.Analyze(samples, now)
	if err != nil {
		if !errors.Is(err, analyzer.ErrInsufficientData) {
			m.logger.Error("Spectral analysis failed", zap.Error(err))
		}

		m.mu.RLock()
		last := m.lastCoherence
		m.mu.RUnlock()

		if last != nil {
			return last
		}

		// 冷启动：还没有任何分析结果
		return &models.CoherenceResult{
			Pattern:   models.PatternIncoherent,
			Timestamp: now,
		}
	}

	return result
}

// queryElevation 查询心率抬升基线，超时或失败时使用降级基线
func (m *Monitor) queryElevation(ctx context.Context) float64 {
	queryCtx, cancel := context.WithTimeout(ctx,
		time.Duration(m.config.Coherence.ElevationTimeoutSeconds)*time.Second)
	defer cancel()

	elevation, err := m.elevation.QueryElevation(queryCtx, m.config.Coherence.DeviceID)
	if err != nil {
		if !errors.Is(err, consumer.ErrElevationTimeout) {
			m.logger.Warn("Elevation query failed, using default baseline", zap.Error(err))
		}
		return defaultElevation
	}

	return elevation
}

// symbolicValue 从缓存读取符号基准值并折叠
func (m *Monitor) symbolicValue(ctx context.Context, userID string) int {
	value, err := m.cache.GetSymbolicValue(ctx, userID)
	if err != nil {
		if !errors.Is(err, consumer.ErrCacheMiss) {
			m.logger.Warn("Failed to read symbolic value", zap.Error(err))
		}
		value = defaultSymbolicValue
	}

	return fusion.ReduceSymbolic(value)
}

// environmentalModifier 获取环境修正值
//
// 优先查询 HTTP 提供方并回写缓存；提供方禁用或失败时退回缓存值；
// 两者都不可用时使用 0（无环境影响）
func (m *Monitor) environmentalModifier(ctx context.Context, userID string) float64 {
	modifier, err := m.env.FetchModifier(ctx, userID)
	if err == nil {
		if cacheErr := m.cache.SetEnvironmentalModifier(ctx, userID, modifier); cacheErr != nil {
			m.logger.Warn("Failed to cache environmental modifier", zap.Error(cacheErr))
		}
		return modifier
	}

	cached, cacheErr := m.cache.GetEnvironmentalModifier(ctx, userID)
	if cacheErr == nil {
		return cached
	}

	return 0
}

// recordCalibration 把本周期观察喂给校准引擎并持久化
func (m *Monitor) recordCalibration(symbolicValue int, biometricFrequency float64, now time.Time) {
	completed, err := m.calibration.Record(symbolicValue, biometricFrequency, nil, "rest")
	if err != nil {
		// 未开窗是常态，不记日志
		return
	}

	window := m.calibration.Window()
	if window == nil {
		return
	}

	if m.store != nil {
		sample := &models.CalibrationSample{
			Timestamp:          now,
			SymbolicValue:      symbolicValue,
			BiometricFrequency: biometricFrequency,
			ActivityLevel:      "rest",
		}
		if err := m.store.SaveSample(window.WindowID, window.UserID, sample); err != nil {
			m.logger.Error("Failed to persist calibration sample", zap.Error(err))
		}
	}

	if completed {
		weights, _ := m.calibration.Weights()
		m.logger.Info("Calibration complete, personalized weights active",
			zap.String("window_id", window.WindowID),
		)
		if m.store != nil {
			if err := m.store.SaveWeights(window.WindowID, window.UserID, &weights); err != nil {
				m.logger.Error("Failed to persist calibration weights", zap.Error(err))
			}
		}
	}
}

// StartCalibration 为监测对象开启一个校准窗口
func (m *Monitor) StartCalibration() (*models.CalibrationWindow, error) {
	return m.calibration.Start(m.config.Coherence.UserID)
}

// LatestFusedState 返回最近一次融合结果（还没有周期完成时返回 nil）
func (m *Monitor) LatestFusedState() *models.FusedState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastFused
}

// LatestCoherence 返回最近一次相干性分析结果
func (m *Monitor) LatestCoherence() *models.CoherenceResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCoherence
}

// LatestBreathing 返回最近一次呼吸估计结果
func (m *Monitor) LatestBreathing() *models.BreathingResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastBreathing
}

// Reset 清空间期缓冲区（监测停止时调用，样本不跨会话保留）
func (m *Monitor) Reset() {
	m.intervals.Reset()
}

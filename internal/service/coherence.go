package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"wisefido-coherence/internal/analyzer"
	"wisefido-coherence/internal/buffer"
	"wisefido-coherence/internal/calibration"
	"wisefido-coherence/internal/config"
	"wisefido-coherence/internal/consumer"
	"wisefido-coherence/internal/database"
	"wisefido-coherence/internal/fusion"
	"wisefido-coherence/internal/mqtt"
	"wisefido-coherence/internal/provider"
	rediscommon "wisefido-coherence/internal/redis"
	"wisefido-coherence/internal/repository"
)

// CoherenceService 相干性融合服务
type CoherenceService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *mqtt.Client
	consumer    *consumer.SensorConsumer
	monitor     *Monitor

	cancelMonitor context.CancelFunc
	monitorDone   chan struct{}
}

// NewCoherenceService 创建相干性融合服务
func NewCoherenceService(cfg *config.Config, logger *zap.Logger) (*CoherenceService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 初始化Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT
	mqttClient, err := mqtt.NewClient(&cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	// 创建Repository
	calibrationRepo := repository.NewCalibrationRepository(db, logger)

	// 创建分析和融合组件
	intervals := buffer.NewIntervalBuffer(buffer.DefaultCapacity)
	spectral := analyzer.NewSpectralAnalyzer(logger)
	fusionEngine := fusion.NewEngine(logger)
	calibrationEngine := calibration.NewEngine(logger)

	// 恢复已持久化的个性化权重（没有历史时使用默认权重）
	if weights, err := calibrationRepo.GetLatestWeights(cfg.Coherence.UserID); err == nil {
		calibrationEngine.RestoreWeights(*weights)
		logger.Info("Restored personalized fusion weights",
			zap.String("user_id", cfg.Coherence.UserID),
		)
	}

	// 创建CacheManager
	cacheManager := consumer.NewCacheManager(cfg, redisClient, logger)

	// 创建传感器消费者
	sensorConsumer := consumer.NewSensorConsumer(cfg, mqttClient, intervals, logger)

	// 创建环境修正值提供方
	envProvider := provider.NewEnvironmentProvider(cfg, logger)

	// 创建周期分析驱动器
	monitor := NewMonitor(
		cfg,
		intervals,
		spectral,
		fusionEngine,
		calibrationEngine,
		sensorConsumer,
		cacheManager,
		envProvider,
		calibrationRepo,
		logger,
	)

	return &CoherenceService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		consumer:    sensorConsumer,
		monitor:     monitor,
	}, nil
}

// Start 启动服务
func (s *CoherenceService) Start(ctx context.Context) error {
	s.logger.Info("Starting coherence fusion service components")

	// 启动传感器消费者（订阅 IBI 和心率抬升主题）
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sensor consumer: %w", err)
	}

	// 启动周期分析循环
	monitorCtx, cancel := context.WithCancel(ctx)
	s.cancelMonitor = cancel
	s.monitorDone = make(chan struct{})

	go func() {
		defer close(s.monitorDone)
		if err := s.monitor.Run(monitorCtx); err != nil {
			s.logger.Error("Analysis cycle loop exited with error", zap.Error(err))
		}
	}()

	s.logger.Info("Coherence fusion service started successfully")
	return nil
}

// Stop 停止服务
func (s *CoherenceService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping coherence fusion service")

	// 停止分析循环
	if s.cancelMonitor != nil {
		s.cancelMonitor()
		select {
		case <-s.monitorDone:
		case <-ctx.Done():
			s.logger.Warn("Timed out waiting for analysis loop to stop")
		}
	}

	// 停止传感器消费者，丢弃缓冲区样本（不跨会话保留）
	if err := s.consumer.Stop(ctx); err != nil {
		s.logger.Error("Error stopping sensor consumer", zap.Error(err))
	}
	s.monitor.Reset()

	// 断开MQTT
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭Redis
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing Redis client", zap.Error(err))
		}
	}

	// 关闭数据库
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
	}

	s.logger.Info("Coherence fusion service stopped")
	return nil
}

// Monitor 返回周期分析驱动器（用于查询最新融合结果和开启校准窗口）
func (s *CoherenceService) Monitor() *Monitor {
	return s.monitor
}

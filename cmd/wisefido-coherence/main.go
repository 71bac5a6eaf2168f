package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wisefido-coherence/internal/config"
	logcommon "wisefido-coherence/internal/logger"
	"wisefido-coherence/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	logger, err := logcommon.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting wisefido-coherence service",
		zap.String("version", "1.0.0"),
		zap.String("mqtt_broker", cfg.MQTT.Broker),
		zap.String("user_id", cfg.Coherence.UserID),
	)

	// 创建服务
	coherenceService, err := service.NewCoherenceService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create coherence service", zap.Error(err))
	}

	// 启动服务
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := coherenceService.Start(ctx); err != nil {
		logger.Fatal("Failed to start coherence service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	if err := coherenceService.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Service stopped")
}

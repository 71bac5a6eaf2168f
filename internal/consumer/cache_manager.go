package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"wisefido-coherence/internal/config"
	"wisefido-coherence/internal/models"
	rediscommon "wisefido-coherence/internal/redis"
)

// ErrCacheMiss 表示缓存键不存在（调用方使用文档化的默认值）
var ErrCacheMiss = errors.New("cache miss")

// CacheManager Redis 缓存管理器
//
// 写出方向：每个分析周期的三个只读快照（融合状态、相干性、呼吸），
// 单键最新值语义，新结果整体替换旧结果；融合状态同时追加到输出流。
// 读入方向：协作方写入的符号基准值和环境修正值。
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// UpdateFusedState 更新融合状态快照
func (c *CacheManager) UpdateFusedState(ctx context.Context, userID string, state *models.FusedState) error {
	return c.setJSON(ctx, c.key(userID, c.config.Coherence.Cache.FusedSuffix), state)
}

// UpdateCoherenceResult 更新相干性结果快照
func (c *CacheManager) UpdateCoherenceResult(ctx context.Context, userID string, result *models.CoherenceResult) error {
	return c.setJSON(ctx, c.key(userID, c.config.Coherence.Cache.CoherenceSuffix), result)
}

// UpdateBreathingResult 更新呼吸结果快照
func (c *CacheManager) UpdateBreathingResult(ctx context.Context, userID string, result *models.BreathingResult) error {
	return c.setJSON(ctx, c.key(userID, c.config.Coherence.Cache.BreathingSuffix), result)
}

// PublishFusedStream 把融合状态追加到输出流（供下游聚合服务消费）
func (c *CacheManager) PublishFusedStream(ctx context.Context, state *models.FusedState) (string, error) {
	id, err := rediscommon.PublishJSONToStream(ctx, c.redisClient, c.config.Coherence.Stream.Fused, state)
	if err != nil {
		return "", fmt.Errorf("failed to publish to stream: %w", err)
	}
	return id, nil
}

// GetSymbolicValue 读取符号基准值（符号值协作方写入）
//
// 键不存在时返回 ErrCacheMiss，调用方使用默认值
func (c *CacheManager) GetSymbolicValue(ctx context.Context, userID string) (int, error) {
	val, err := c.redisClient.Get(ctx, c.key(userID, c.config.Coherence.Cache.SymbolicSuffix)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("failed to get symbolic value: %w", err)
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid symbolic value %q: %w", val, err)
	}
	return parsed, nil
}

// GetEnvironmentalModifier 读取环境修正值（环境协作方写入）
//
// 键不存在时返回 ErrCacheMiss，调用方使用默认值
func (c *CacheManager) GetEnvironmentalModifier(ctx context.Context, userID string) (float64, error) {
	val, err := c.redisClient.Get(ctx, c.key(userID, c.config.Coherence.Cache.EnvSuffix)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("failed to get environmental modifier: %w", err)
	}

	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid environmental modifier %q: %w", val, err)
	}
	return parsed, nil
}

// SetEnvironmentalModifier 写入环境修正值（HTTP 提供方拉取成功后回填缓存）
func (c *CacheManager) SetEnvironmentalModifier(ctx context.Context, userID string, modifier float64) error {
	key := c.key(userID, c.config.Coherence.Cache.EnvSuffix)
	ttl := time.Duration(c.config.Coherence.Cache.TTL) * time.Second

	if err := c.redisClient.Set(ctx, key, strconv.FormatFloat(modifier, 'f', -1, 64), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set environmental modifier: %w", err)
	}
	return nil
}

// key 构建缓存键
func (c *CacheManager) key(userID, suffix string) string {
	return c.config.Coherence.Cache.KeyPrefix + userID + suffix
}

// setJSON 序列化并写入快照键（带 TTL）
func (c *CacheManager) setJSON(ctx context.Context, key string, value interface{}) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	ttl := time.Duration(c.config.Coherence.Cache.TTL) * time.Second
	if err := c.redisClient.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	c.logger.Debug("Updated snapshot cache",
		zap.String("key", key),
	)
	return nil
}

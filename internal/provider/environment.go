// Package provider 提供环境修正值的外部拉取
//
// 环境协作方是一个 HTTP 端点（配置 ENVIRONMENT_ENDPOINT）。
// 拉取失败时调用方回退到 Redis 缓存值，再回退到默认值 0，
// 分析周期从不因为环境数据不可用而阻塞或失败。
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"wisefido-coherence/internal/config"
)

// ErrProviderDisabled 未配置环境端点
var ErrProviderDisabled = errors.New("environment provider disabled")

// modifierResponse 环境端点响应
type modifierResponse struct {
	Modifier float64 `json:"modifier"`
}

// EnvironmentProvider 环境修正值 HTTP 客户端
type EnvironmentProvider struct {
	httpClient *resty.Client
	endpoint   string
	logger     *zap.Logger
}

// NewEnvironmentProvider 创建环境提供方客户端
func NewEnvironmentProvider(cfg *config.Config, logger *zap.Logger) *EnvironmentProvider {
	timeout := time.Duration(cfg.Coherence.Environment.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &EnvironmentProvider{
		httpClient: client,
		endpoint:   cfg.Coherence.Environment.Endpoint,
		logger:     logger,
	}
}

// FetchModifier 拉取当前环境修正值
//
// 融合前必须非负：负值在这里截断到 0
func (p *EnvironmentProvider) FetchModifier(ctx context.Context, userID string) (float64, error) {
	if p.endpoint == "" {
		return 0, ErrProviderDisabled
	}

	var response modifierResponse
	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		SetResult(&response).
		Get(p.endpoint)

	if err != nil {
		return 0, fmt.Errorf("failed to call environment provider: %w", err)
	}

	if resp.IsError() {
		return 0, fmt.Errorf("environment provider returned status %d", resp.StatusCode())
	}

	modifier := response.Modifier
	if modifier < 0 {
		p.logger.Warn("Clamping negative environmental modifier",
			zap.Float64("modifier", modifier),
		)
		modifier = 0
	}

	return modifier, nil
}

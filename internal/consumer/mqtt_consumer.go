package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wisefido-coherence/internal/buffer"
	"wisefido-coherence/internal/config"
	"wisefido-coherence/internal/models"
	mqttcommon "wisefido-coherence/internal/mqtt"
)

// ErrElevationTimeout 心率抬升查询超时（调用方使用降级基准值）
var ErrElevationTimeout = errors.New("elevation query timed out")

// ibiMessage 传感器端上报的心跳间期消息
// 主题格式: pulse/{device_id}/ibi
type ibiMessage struct {
	Timestamp       int64   `json:"timestamp"`
	IntervalSeconds float64 `json:"interval_seconds"`
	Confidence      float64 `json:"confidence"`
}

// elevationQuery 心率抬升查询请求
type elevationQuery struct {
	RequestID string `json:"request_id"`
	DeviceID  string `json:"device_id"`
}

// elevationReport 心率抬升查询响应
type elevationReport struct {
	RequestID string  `json:"request_id"`
	Elevation float64 `json:"elevation"`
}

// publishFunc 消息发布函数（测试中可替换）
type publishFunc func(topic string, qos byte, retained bool, payload []byte) error

// SensorConsumer 脉搏传感器 MQTT 消费者
//
// 两条链路：
// - IBI 数据流：异步到达的心跳间期样本写入 IntervalBuffer
// - 心率抬升查询：请求/响应式异步调用，带超时（默认 2 秒）
type SensorConsumer struct {
	config     *config.Config
	mqttClient *mqttcommon.Client
	buffer     *buffer.IntervalBuffer
	logger     *zap.Logger
	publish    publishFunc

	mu      sync.Mutex
	pending map[string]chan float64 // request_id → 响应通道
}

// NewSensorConsumer 创建传感器消费者
func NewSensorConsumer(
	cfg *config.Config,
	mqttClient *mqttcommon.Client,
	buf *buffer.IntervalBuffer,
	logger *zap.Logger,
) *SensorConsumer {
	c := &SensorConsumer{
		config:     cfg,
		mqttClient: mqttClient,
		buffer:     buf,
		logger:     logger,
		pending:    make(map[string]chan float64),
	}
	if mqttClient != nil {
		c.publish = mqttClient.Publish
	}
	return c
}

// Start 启动消费者（订阅 IBI 数据主题和抬升响应主题）
func (c *SensorConsumer) Start(ctx context.Context) error {
	qos := c.config.MQTT.QoS

	if err := c.mqttClient.Subscribe(c.config.Coherence.Topics.IBI, qos, c.handleIBIMessage); err != nil {
		return fmt.Errorf("failed to subscribe to IBI topic: %w", err)
	}

	if err := c.mqttClient.Subscribe(c.config.Coherence.Topics.ElevationReport, qos, c.handleElevationReport); err != nil {
		return fmt.Errorf("failed to subscribe to elevation report topic: %w", err)
	}

	c.logger.Info("Sensor consumer started",
		zap.String("ibi_topic", c.config.Coherence.Topics.IBI),
		zap.String("elevation_topic", c.config.Coherence.Topics.ElevationReport),
	)

	return nil
}

// Stop 停止消费者
func (c *SensorConsumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(
		c.config.Coherence.Topics.IBI,
		c.config.Coherence.Topics.ElevationReport,
	); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("Sensor consumer stopped")
	return nil
}

// handleIBIMessage 处理心跳间期消息，写入缓冲区
func (c *SensorConsumer) handleIBIMessage(topic string, payload []byte) error {
	// 主题格式: pulse/{device_id}/ibi
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	deviceID := parts[1]

	var msg ibiMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		c.logger.Error("Failed to unmarshal IBI message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	// 非正间期是传感器噪声，丢弃
	if msg.IntervalSeconds <= 0 {
		c.logger.Debug("Dropping non-positive interval",
			zap.String("device_id", deviceID),
			zap.Float64("interval_seconds", msg.IntervalSeconds),
		)
		return nil
	}

	confidence := msg.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	c.buffer.Push(models.HeartbeatInterval{
		Timestamp:       time.Unix(msg.Timestamp, 0),
		IntervalSeconds: msg.IntervalSeconds,
		Confidence:      confidence,
	})

	c.logger.Debug("Pushed IBI sample",
		zap.String("device_id", deviceID),
		zap.Float64("interval_seconds", msg.IntervalSeconds),
	)

	return nil
}

// handleElevationReport 处理心率抬升响应，路由给等待中的查询
func (c *SensorConsumer) handleElevationReport(topic string, payload []byte) error {
	var report elevationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return fmt.Errorf("failed to unmarshal elevation report: %w", err)
	}

	c.mu.Lock()
	ch, ok := c.pending[report.RequestID]
	c.mu.Unlock()

	if !ok {
		// 超时后到达的迟到响应，丢弃
		c.logger.Debug("Dropping elevation report with no pending query",
			zap.String("request_id", report.RequestID),
		)
		return nil
	}

	select {
	case ch <- report.Elevation:
	default:
	}
	return nil
}

// QueryElevation 查询心率抬升标量（异步请求/响应）
//
// 超时（配置 COHERENCE_ELEVATION_TIMEOUT，默认 2 秒）返回
// ErrElevationTimeout，调用方使用降级基准值而不是无限阻塞分析周期
func (c *SensorConsumer) QueryElevation(ctx context.Context, deviceID string) (float64, error) {
	requestID := uuid.NewString()
	ch := make(chan float64, 1)

	c.mu.Lock()
	c.pending[requestID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, requestID)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(elevationQuery{RequestID: requestID, DeviceID: deviceID})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal elevation query: %w", err)
	}

	topic := fmt.Sprintf(c.config.Coherence.Topics.ElevationQuery, deviceID)
	if err := c.publish(topic, c.config.MQTT.QoS, false, payload); err != nil {
		return 0, fmt.Errorf("failed to publish elevation query: %w", err)
	}

	timeout := time.Duration(c.config.Coherence.ElevationTimeoutSeconds) * time.Second

	select {
	case elevation := <-ch:
		return elevation, nil
	case <-time.After(timeout):
		return 0, ErrElevationTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wisefido-coherence/internal/buffer"
	"wisefido-coherence/internal/config"
)

func newTestConsumer(t *testing.T) (*SensorConsumer, *buffer.IntervalBuffer) {
	t.Helper()

	cfg := &config.Config{}
	cfg.MQTT.QoS = 1
	cfg.Coherence.Topics.IBI = "pulse/+/ibi"
	cfg.Coherence.Topics.ElevationQuery = "pulse/%s/elevation/query"
	cfg.Coherence.Topics.ElevationReport = "pulse/+/elevation/report"
	cfg.Coherence.ElevationTimeoutSeconds = 1

	buf := buffer.NewIntervalBuffer(buffer.DefaultCapacity)
	c := NewSensorConsumer(cfg, nil, buf, zap.NewNop())
	return c, buf
}

func TestHandleIBIMessage_PushesToBuffer(t *testing.T) {
	c, buf := newTestConsumer(t)

	payload, _ := json.Marshal(ibiMessage{
		Timestamp:       1700000000,
		IntervalSeconds: 0.82,
		Confidence:      0.95,
	})

	err := c.handleIBIMessage("pulse/pulse-001/ibi", payload)
	require.NoError(t, err)

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, 0.82, snapshot[0].IntervalSeconds)
	assert.Equal(t, 0.95, snapshot[0].Confidence)
	assert.Equal(t, time.Unix(1700000000, 0), snapshot[0].Timestamp)
}

func TestHandleIBIMessage_DropsNonPositiveInterval(t *testing.T) {
	c, buf := newTestConsumer(t)

	payload, _ := json.Marshal(ibiMessage{Timestamp: 1700000000, IntervalSeconds: 0})

	err := c.handleIBIMessage("pulse/pulse-001/ibi", payload)
	require.NoError(t, err)
	assert.Equal(t, 0, buf.Len())
}

func TestHandleIBIMessage_ClampsConfidence(t *testing.T) {
	c, buf := newTestConsumer(t)

	payload, _ := json.Marshal(ibiMessage{Timestamp: 1, IntervalSeconds: 0.8, Confidence: 1.7})
	require.NoError(t, c.handleIBIMessage("pulse/pulse-001/ibi", payload))

	payload, _ = json.Marshal(ibiMessage{Timestamp: 2, IntervalSeconds: 0.8, Confidence: -0.3})
	require.NoError(t, c.handleIBIMessage("pulse/pulse-001/ibi", payload))

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, 1.0, snapshot[0].Confidence)
	assert.Equal(t, 0.0, snapshot[1].Confidence)
}

func TestHandleIBIMessage_InvalidTopic(t *testing.T) {
	c, _ := newTestConsumer(t)

	err := c.handleIBIMessage("bad-topic", []byte("{}"))

	assert.Error(t, err)
}

func TestHandleIBIMessage_InvalidPayload(t *testing.T) {
	c, buf := newTestConsumer(t)

	err := c.handleIBIMessage("pulse/pulse-001/ibi", []byte("not json"))

	assert.Error(t, err)
	assert.Equal(t, 0, buf.Len())
}

func TestQueryElevation_ReceivesReport(t *testing.T) {
	c, _ := newTestConsumer(t)

	// 替换发布函数：收到查询后立刻模拟传感器响应
	c.publish = func(topic string, qos byte, retained bool, payload []byte) error {
		var query elevationQuery
		require.NoError(t, json.Unmarshal(payload, &query))
		assert.Equal(t, "pulse/pulse-001/elevation/query", topic)

		report, _ := json.Marshal(elevationReport{
			RequestID: query.RequestID,
			Elevation: 12.5,
		})
		go c.handleElevationReport("pulse/pulse-001/elevation/report", report)
		return nil
	}

	elevation, err := c.QueryElevation(context.Background(), "pulse-001")
	require.NoError(t, err)
	assert.Equal(t, 12.5, elevation)
}

func TestQueryElevation_Timeout(t *testing.T) {
	c, _ := newTestConsumer(t)

	// 发布成功但没有任何响应到达
	c.publish = func(topic string, qos byte, retained bool, payload []byte) error {
		return nil
	}

	_, err := c.QueryElevation(context.Background(), "pulse-001")

	assert.ErrorIs(t, err, ErrElevationTimeout)
}

func TestQueryElevation_ContextCancelled(t *testing.T) {
	c, _ := newTestConsumer(t)
	c.publish = func(topic string, qos byte, retained bool, payload []byte) error {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.QueryElevation(ctx, "pulse-001")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleElevationReport_LateReportDropped(t *testing.T) {
	c, _ := newTestConsumer(t)

	// 没有等待中的查询：迟到响应被静默丢弃
	report, _ := json.Marshal(elevationReport{RequestID: "stale", Elevation: 3})

	err := c.handleElevationReport("pulse/pulse-001/elevation/report", report)

	assert.NoError(t, err)
}

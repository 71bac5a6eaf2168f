package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-coherence/internal/models"
)

func makeSample(seq int) models.HeartbeatInterval {
	return models.HeartbeatInterval{
		Timestamp:       time.Unix(int64(seq), 0),
		IntervalSeconds: 0.8,
		Confidence:      1.0,
	}
}

func TestIntervalBuffer_PushAndLen(t *testing.T) {
	buf := NewIntervalBuffer(10)

	for i := 0; i < 5; i++ {
		buf.Push(makeSample(i))
	}

	assert.Equal(t, 5, buf.Len())
}

func TestIntervalBuffer_FIFOEviction(t *testing.T) {
	buf := NewIntervalBuffer(3)

	for i := 0; i < 5; i++ {
		buf.Push(makeSample(i))
	}

	// 容量 3：样本 0、1 被淘汰，保留 2、3、4
	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, time.Unix(2, 0), snapshot[0].Timestamp)
	assert.Equal(t, time.Unix(4, 0), snapshot[2].Timestamp)
}

func TestIntervalBuffer_DefaultCapacity(t *testing.T) {
	buf := NewIntervalBuffer(0)

	for i := 0; i < DefaultCapacity+10; i++ {
		buf.Push(makeSample(i))
	}

	assert.Equal(t, DefaultCapacity, buf.Len())
}

func TestIntervalBuffer_SnapshotIsIndependentCopy(t *testing.T) {
	buf := NewIntervalBuffer(10)
	buf.Push(makeSample(1))

	snapshot := buf.Snapshot()
	require.Len(t, snapshot, 1)

	// 修改快照不影响缓冲区内容
	snapshot[0].IntervalSeconds = 9.9

	again := buf.Snapshot()
	assert.Equal(t, 0.8, again[0].IntervalSeconds)
}

func TestIntervalBuffer_Reset(t *testing.T) {
	buf := NewIntervalBuffer(10)
	for i := 0; i < 5; i++ {
		buf.Push(makeSample(i))
	}

	buf.Reset()

	assert.Equal(t, 0, buf.Len())
	assert.Empty(t, buf.Snapshot())
}

func TestIntervalBuffer_ConcurrentPushSnapshot(t *testing.T) {
	buf := NewIntervalBuffer(DefaultCapacity)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			buf.Push(makeSample(i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			snapshot := buf.Snapshot()
			assert.LessOrEqual(t, len(snapshot), DefaultCapacity)
		}
	}()

	wg.Wait()
	assert.Equal(t, DefaultCapacity, buf.Len())
}

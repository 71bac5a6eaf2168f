// Package buffer 提供心跳间期样本的有界滑动窗口存储
//
// IntervalBuffer 是分析管线中唯一的共享可变资源：
// - 写入端：MQTT 传感器消费者（异步到达）
// - 读取端：周期性分析循环（只读快照）
// 两者通过单一互斥锁串行化，频谱分析始终在私有副本上无锁运行。
package buffer

import (
	"sync"

	"wisefido-coherence/internal/models"
)

// DefaultCapacity 缓冲区默认容量（样本数）
const DefaultCapacity = 60

// IntervalBuffer 有界 FIFO 缓冲区
//
// 容量满时静默淘汰最旧样本（有损实时缓冲，不需要背压）
type IntervalBuffer struct {
	mu       sync.Mutex
	samples  []models.HeartbeatInterval
	capacity int
}

// NewIntervalBuffer 创建缓冲区（capacity ≤ 0 时使用默认容量）
func NewIntervalBuffer(capacity int) *IntervalBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &IntervalBuffer{
		samples:  make([]models.HeartbeatInterval, 0, capacity),
		capacity: capacity,
	}
}

// Push 追加一个样本，容量满时淘汰最旧样本
//
// 始终接受写入，无错误条件
func (b *IntervalBuffer) Push(sample models.HeartbeatInterval) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) >= b.capacity {
		// FIFO 淘汰最旧样本
		copy(b.samples, b.samples[1:])
		b.samples = b.samples[:len(b.samples)-1]
	}
	b.samples = append(b.samples, sample)
}

// Snapshot 返回当前内容的独立副本（读取端与写入端互不竞争）
func (b *IntervalBuffer) Snapshot() []models.HeartbeatInterval {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]models.HeartbeatInterval, len(b.samples))
	copy(out, b.samples)
	return out
}

// Len 返回当前样本数
func (b *IntervalBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// Reset 丢弃全部样本（停止监测时调用，不做任何残余分析）
func (b *IntervalBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = b.samples[:0]
}

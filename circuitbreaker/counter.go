package circuitbreaker

import (
	"math"
	"sync/atomic"
	"time"
)

// bucketCounter 单个时间槽的统计值
// startMs 在创建后不再变化，计数字段通过原子操作累加
type bucketCounter struct {
	startMs uint64
	total   atomic.Uint64
	errors  atomic.Uint64
	slow    atomic.Uint64
	rtSumMs atomic.Uint64
}

// windowArray 一组 bucket 的持有者
// ResetMetric 通过整体替换 windowArray 实现：读写双方都先加载数组指针，
// 重置在指针交换处线性化，任何一次累加要么完整落在重置前，要么完整落在重置后
type windowArray struct {
	buckets []atomic.Pointer[bucketCounter]
}

func newWindowArray(bucketCount uint32) *windowArray {
	a := &windowArray{
		buckets: make([]atomic.Pointer[bucketCounter], bucketCount),
	}
	for i := range a.buckets {
		a.buckets[i].Store(&bucketCounter{})
	}
	return a
}

// WindowCounter 滑动窗口统计
//
// 固定统计时长被等分为若干时间槽（bucket），累加操作落入当前时间槽，
// 时间槽滑出窗口后在下一次写入时惰性轮转（读路径不做清理）。
// 聚合读取只累计仍在窗口内的时间槽，过期槽读作零。
type WindowCounter struct {
	intervalMs  uint64
	bucketLenMs uint64
	data        atomic.Pointer[windowArray]
	now         func() time.Time
}

// newWindowCounter 创建滑动窗口统计（内部函数）
// bucketCount 必须能整除 intervalMs，由 Rule.bucketCount 保证
func newWindowCounter(intervalMs, bucketCount uint32, now func() time.Time) *WindowCounter {
	c := &WindowCounter{
		intervalMs:  uint64(intervalMs),
		bucketLenMs: uint64(intervalMs) / uint64(bucketCount),
		now:         now,
	}
	c.data.Store(newWindowArray(bucketCount))
	return c
}

// currentBucket 定位当前时间槽，必要时轮转过期槽（内部函数）
func (c *WindowCounter) currentBucket(arr *windowArray, nowMs uint64) *bucketCounter {
	idx := (nowMs / c.bucketLenMs) % uint64(len(arr.buckets))
	start := nowMs - nowMs%c.bucketLenMs
	for {
		old := arr.buckets[idx].Load()
		if old != nil && old.startMs == start {
			return old
		}
		fresh := &bucketCounter{startMs: start}
		if arr.buckets[idx].CompareAndSwap(old, fresh) {
			return fresh
		}
		// CAS 失败说明有并发轮转，重读后继续
	}
}

// Add 记录一次请求完成
func (c *WindowCounter) Add(rtMs uint64, isError, isSlow bool) {
	nowMs := uint64(c.now().UnixMilli())
	arr := c.data.Load()
	b := c.currentBucket(arr, nowMs)
	b.total.Add(1)
	if isError {
		b.errors.Add(1)
	}
	if isSlow {
		b.slow.Add(1)
	}
	b.rtSumMs.Add(rtMs)
}

// WindowSnapshot 窗口聚合快照
type WindowSnapshot struct {
	// Total 窗口内总请求数
	Total uint64
	// Errors 窗口内错误数
	Errors uint64
	// Slow 窗口内慢调用数
	Slow uint64
	// RtSumMs 窗口内响应时间总和（毫秒）
	RtSumMs uint64
}

// ErrorRatio 返回窗口内错误比例，无请求时为 0
func (s WindowSnapshot) ErrorRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Total)
}

// SlowRatio 返回窗口内慢调用比例，无请求时为 0
func (s WindowSnapshot) SlowRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Slow) / float64(s.Total)
}

// Snapshot 聚合所有仍在窗口内的时间槽
func (c *WindowCounter) Snapshot() WindowSnapshot {
	nowMs := uint64(c.now().UnixMilli())
	arr := c.data.Load()

	var snap WindowSnapshot
	for i := range arr.buckets {
		b := arr.buckets[i].Load()
		if b == nil {
			continue
		}
		// 槽起始时间在未来（时钟回拨）或已滑出窗口的不计入
		if b.startMs > nowMs || nowMs-b.startMs >= c.intervalMs {
			continue
		}
		snap.Total += b.total.Load()
		snap.Errors += b.errors.Load()
		snap.Slow += b.slow.Load()
		snap.RtSumMs += b.rtSumMs.Load()
	}
	return snap
}

// Reset 原子地清空所有时间槽
//
// 通过整体替换 bucket 数组实现：与重置并发的累加要么落在旧数组
//（随旧数组一起被丢弃），要么落在新数组，不存在部分清空的中间态。
func (c *WindowCounter) Reset() {
	arr := c.data.Load()
	c.data.Store(newWindowArray(uint32(len(arr.buckets))))
}

// float64GTE 带容差的浮点 >= 比较（内部函数）
func float64GTE(a, b float64) bool {
	return a > b || math.Abs(a-b) < 1e-9
}

package circuitbreaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntryWhenCompleteBeforeExit(t *testing.T) {
	entry := NewEntry()

	calls := 0
	entry.WhenComplete(func() { calls++ })
	assert.Zero(t, calls, "回调应延迟到 Exit 执行")

	entry.Exit()
	assert.Equal(t, 1, calls)
}

func TestEntryWhenCompleteAfterExit(t *testing.T) {
	entry := NewEntry()
	entry.Exit()

	calls := 0
	entry.WhenComplete(func() { calls++ })
	assert.Equal(t, 1, calls, "调用已结束时回调应立即执行")
}

func TestEntryExitIdempotent(t *testing.T) {
	entry := NewEntry()

	calls := 0
	entry.WhenComplete(func() { calls++ })
	entry.Exit()
	entry.Exit()
	assert.Equal(t, 1, calls, "重复 Exit 不应重复触发回调")
}

func TestEntryBlocked(t *testing.T) {
	entry := NewEntry()
	assert.False(t, entry.IsBlocked())

	entry.SetBlocked()
	assert.True(t, entry.IsBlocked())
}

func TestEntryNilHook(t *testing.T) {
	entry := NewEntry()
	entry.WhenComplete(nil)
	entry.Exit() // 不应 panic
}

func TestEntryHookOrder(t *testing.T) {
	entry := NewEntry()

	var order []int
	entry.WhenComplete(func() { order = append(order, 1) })
	entry.WhenComplete(func() { order = append(order, 2) })
	entry.Exit()

	assert.Equal(t, []int{1, 2}, order)
}

func TestEntryHookCanReenter(t *testing.T) {
	entry := NewEntry()

	// 回调在锁外执行，允许回调中再操作 entry 本身
	entry.WhenComplete(func() {
		assert.False(t, entry.IsBlocked())
	})
	entry.Exit()
}

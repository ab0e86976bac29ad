package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGroup(t *testing.T, opts ...Option) (*Group, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewGroup(append(opts, WithTimeSource(clock.Now))...), clock
}

func TestGroupLoadRules(t *testing.T) {
	g, _ := newTestGroup(t)

	err := g.LoadRules([]*Rule{
		{Resource: "a", Strategy: ErrorRatio, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 0.5, MinRequestAmount: 10},
		{Resource: "b", Strategy: ErrorCount, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 5, MinRequestAmount: 3},
	})
	require.NoError(t, err)

	assert.NotNil(t, g.Breaker("a"))
	assert.NotNil(t, g.Breaker("b"))
	assert.Nil(t, g.Breaker("c"))
	assert.Len(t, g.Rules(), 2)
}

func TestGroupLoadRulesRejectsBatch(t *testing.T) {
	g, _ := newTestGroup(t)

	require.NoError(t, g.LoadRules([]*Rule{
		{Resource: "a", Strategy: ErrorRatio, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 0.5, MinRequestAmount: 10},
	}))

	// 批次里任意一条非法则整批拒绝，已生效的规则不变
	err := g.LoadRules([]*Rule{
		{Resource: "b", Strategy: ErrorRatio, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 0.5, MinRequestAmount: 10},
		{Resource: "c", Strategy: ErrorRatio, RetryTimeoutMs: 0, StatIntervalMs: 10000, Threshold: 0.5, MinRequestAmount: 10},
	})
	require.ErrorIs(t, err, ErrInvalidRule)

	assert.NotNil(t, g.Breaker("a"), "旧规则应保持生效")
	assert.Nil(t, g.Breaker("b"))
}

func TestGroupLoadRulesRejectsDuplicate(t *testing.T) {
	g, _ := newTestGroup(t)

	err := g.LoadRules([]*Rule{
		{Resource: "a", Strategy: ErrorRatio, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 0.5, MinRequestAmount: 10},
		{Resource: "a", Strategy: ErrorCount, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 5, MinRequestAmount: 3},
	})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestGroupLoadRulesNilRule(t *testing.T) {
	g, _ := newTestGroup(t)
	err := g.LoadRules([]*Rule{nil})
	assert.ErrorIs(t, err, ErrRuleNil)
}

func TestGroupStatReuseOnReload(t *testing.T) {
	g, _ := newTestGroup(t)

	rule := &Rule{Resource: "a", Strategy: ErrorRatio, RetryTimeoutMs: 1000, StatIntervalMs: 10000, StatBucketCount: 10, Threshold: 0.5, MinRequestAmount: 100}
	require.NoError(t, g.LoadRules([]*Rule{rule}))

	g.OnRequestComplete("a", 10, errCall)
	g.OnRequestComplete("a", 10, nil)
	require.Equal(t, uint64(2), g.Breaker("a").Stat().Snapshot().Total)

	// 只改阈值：窗口形状不变，统计数据应保留
	updated := *rule
	updated.Threshold = 0.8
	require.NoError(t, g.LoadRules([]*Rule{&updated}))
	assert.Equal(t, uint64(2), g.Breaker("a").Stat().Snapshot().Total)

	// 改窗口形状：统计数据重新开始
	reshaped := updated
	reshaped.StatIntervalMs = 20000
	require.NoError(t, g.LoadRules([]*Rule{&reshaped}))
	assert.Zero(t, g.Breaker("a").Stat().Snapshot().Total)
}

func TestGroupReloadResetsState(t *testing.T) {
	g, _ := newTestGroup(t)

	rule := &Rule{Resource: "a", Strategy: ErrorCount, RetryTimeoutMs: 60000, StatIntervalMs: 10000, Threshold: 1, MinRequestAmount: 1}
	require.NoError(t, g.LoadRules([]*Rule{rule}))

	require.True(t, g.TryPass("a", NewEntry()))
	g.OnRequestComplete("a", 10, errCall)
	require.Equal(t, Open, g.Breaker("a").CurrentState())

	// 热更新后状态机从 Closed 重新开始
	updated := *rule
	updated.Threshold = 2
	require.NoError(t, g.LoadRules([]*Rule{&updated}))
	assert.Equal(t, Closed, g.Breaker("a").CurrentState())
}

func TestGroupUnknownResourcePasses(t *testing.T) {
	g, _ := newTestGroup(t)

	assert.True(t, g.TryPass("nowhere", NewEntry()))
	g.OnRequestComplete("nowhere", 10, errCall) // 空操作，不应 panic
}

func TestGroupEndToEnd(t *testing.T) {
	g, clock := newTestGroup(t)

	require.NoError(t, g.LoadRules([]*Rule{
		{Resource: "a", Strategy: ErrorCount, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 2, MinRequestAmount: 2},
	}))

	for i := 0; i < 2; i++ {
		require.True(t, g.TryPass("a", NewEntry()))
		g.OnRequestComplete("a", 10, errCall)
	}
	require.Equal(t, Open, g.Breaker("a").CurrentState())
	assert.False(t, g.TryPass("a", NewEntry()))

	clock.Advance(1 * time.Second)
	entry := NewEntry()
	require.True(t, g.TryPass("a", entry))
	g.OnRequestComplete("a", 10, nil)
	entry.Exit()
	assert.Equal(t, Closed, g.Breaker("a").CurrentState())
}

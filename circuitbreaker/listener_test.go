package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingListener 记录收到的全部状态变更事件
type recordingListener struct {
	events []transitionEvent
}

type transitionEvent struct {
	prev     State
	next     State
	resource string
	snapshot any
}

func (l *recordingListener) OnTransformToClosed(prev State, rule Rule) {
	l.events = append(l.events, transitionEvent{prev: prev, next: Closed, resource: rule.Resource})
}

func (l *recordingListener) OnTransformToOpen(prev State, rule Rule, snapshot any) {
	l.events = append(l.events, transitionEvent{prev: prev, next: Open, resource: rule.Resource, snapshot: snapshot})
}

func (l *recordingListener) OnTransformToHalfOpen(prev State, rule Rule) {
	l.events = append(l.events, transitionEvent{prev: prev, next: HalfOpen, resource: rule.Resource})
}

// panicListener 每次回调都 panic
type panicListener struct{}

func (panicListener) OnTransformToClosed(State, Rule)    { panic("listener boom") }
func (panicListener) OnTransformToOpen(State, Rule, any) { panic("listener boom") }
func (panicListener) OnTransformToHalfOpen(State, Rule)  { panic("listener boom") }

func TestListenerRegistryRegister(t *testing.T) {
	registry := NewListenerRegistry()
	assert.Zero(t, registry.Len())

	registry.Register(&recordingListener{}, nil, &recordingListener{})
	assert.Equal(t, 2, registry.Len(), "nil 监听器应被忽略")
}

func TestListenerFullLifecycle(t *testing.T) {
	rule := &Rule{
		Resource:         "api",
		Strategy:         ErrorCount,
		RetryTimeoutMs:   1000,
		StatIntervalMs:   10000,
		Threshold:        2,
		MinRequestAmount: 2,
	}

	listener := &recordingListener{}
	registry := NewListenerRegistry()
	registry.Register(listener)

	brk, clock := newTestBreaker(t, rule, WithListenerRegistry(registry))

	// Closed -> Open
	for i := 0; i < 2; i++ {
		require.True(t, brk.TryPass(NewEntry()))
		brk.OnRequestComplete(10, errCall)
	}
	require.Equal(t, Open, brk.CurrentState())

	// Open -> HalfOpen -> Closed
	clock.Advance(1 * time.Second)
	entry := NewEntry()
	require.True(t, brk.TryPass(entry))
	brk.OnRequestComplete(10, nil)
	entry.Exit()
	require.Equal(t, Closed, brk.CurrentState())

	require.Len(t, listener.events, 3, "每次状态转换恰好通知一次")

	assert.Equal(t, transitionEvent{prev: Closed, next: Open, resource: "api", snapshot: uint64(2)}, listener.events[0])
	assert.Equal(t, transitionEvent{prev: Open, next: HalfOpen, resource: "api"}, listener.events[1])
	assert.Equal(t, transitionEvent{prev: HalfOpen, next: Closed, resource: "api"}, listener.events[2])
}

func TestListenerBlockedProbeSnapshot(t *testing.T) {
	rule := &Rule{
		Resource:         "api",
		Strategy:         ErrorCount,
		RetryTimeoutMs:   1000,
		StatIntervalMs:   10000,
		Threshold:        2,
		MinRequestAmount: 2,
	}

	listener := &recordingListener{}
	registry := NewListenerRegistry()
	registry.Register(listener)

	brk, clock := newTestBreaker(t, rule, WithListenerRegistry(registry))
	for i := 0; i < 2; i++ {
		require.True(t, brk.TryPass(NewEntry()))
		brk.OnRequestComplete(10, errCall)
	}

	clock.Advance(1 * time.Second)
	entry := NewEntry()
	require.True(t, brk.TryPass(entry))
	entry.SetBlocked()
	entry.Exit()
	require.Equal(t, Open, brk.CurrentState())

	last := listener.events[len(listener.events)-1]
	assert.Equal(t, HalfOpen, last.prev)
	assert.Equal(t, Open, last.next)
	assert.Equal(t, 1.0, last.snapshot, "被拦截探测的回滚使用固定快照")
}

func TestListenerPanicIsolation(t *testing.T) {
	rule := &Rule{
		Resource:         "api",
		Strategy:         ErrorCount,
		RetryTimeoutMs:   1000,
		StatIntervalMs:   10000,
		Threshold:        1,
		MinRequestAmount: 1,
	}

	after := &recordingListener{}
	registry := NewListenerRegistry()
	registry.Register(panicListener{}, after)

	brk, _ := newTestBreaker(t, rule, WithListenerRegistry(registry))

	require.True(t, brk.TryPass(NewEntry()))
	brk.OnRequestComplete(10, errCall)

	assert.Equal(t, Open, brk.CurrentState(), "监听器 panic 不应影响已提交的转换")
	assert.Len(t, after.events, 1, "后续监听器仍应收到通知")
}

func TestListenerSharedRegistry(t *testing.T) {
	registry := NewListenerRegistry()
	listener := &recordingListener{}
	registry.Register(listener)

	ruleA := &Rule{Resource: "a", Strategy: ErrorCount, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 1, MinRequestAmount: 1}
	ruleB := &Rule{Resource: "b", Strategy: ErrorCount, RetryTimeoutMs: 1000, StatIntervalMs: 10000, Threshold: 1, MinRequestAmount: 1}

	brkA, _ := newTestBreaker(t, ruleA, WithListenerRegistry(registry))
	brkB, _ := newTestBreaker(t, ruleB, WithListenerRegistry(registry))

	require.True(t, brkA.TryPass(NewEntry()))
	brkA.OnRequestComplete(10, errCall)
	require.True(t, brkB.TryPass(NewEntry()))
	brkB.OnRequestComplete(10, errCall)

	require.Len(t, listener.events, 2)
	assert.Equal(t, "a", listener.events[0].resource)
	assert.Equal(t, "b", listener.events[1].resource)
}

package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ceyewan/aegis/clog"
)

// blockedProbeSnapshot 探测请求被拦截回滚时通知监听器的固定快照值
const blockedProbeSnapshot = 1.0

// breakerBase 封装熔断器的公共字段与状态机转换操作
//
// state 的写入只发生在持有 mu 的临界区内，读取使用原子操作，
// 保证 Closed 状态下的热路径（TryPass）不会被状态锁串行化。
// nextRetryTimestampMs 独立于状态锁原子更新：过期的时间戳最多导致一次
// 多余的 retryTimeoutArrived 检查，真正的转换仍然由锁内的状态校验把关。
type breakerBase struct {
	rule *Rule
	// retryTimeoutMs 熔断后的恢复超时（毫秒）
	// Open 期间拒绝所有请求，超时后允许单个探测请求进入半开状态
	retryTimeoutMs uint32
	// nextRetryTimestampMs 下一次允许探测的时间戳（毫秒）
	nextRetryTimestampMs atomic.Uint64
	// state 熔断器状态机的当前状态
	state atomic.Int32
	mu    sync.Mutex

	registry *ListenerRegistry
	logger   clog.Logger
	now      func() time.Time
}

// newBreakerBase 构造公共字段（内部函数）
func newBreakerBase(rule *Rule, opt *options) breakerBase {
	return breakerBase{
		rule:           rule,
		retryTimeoutMs: rule.RetryTimeoutMs,
		registry:       opt.registry,
		logger:         opt.logger,
		now:            opt.now,
	}
}

// BoundRule 返回关联的熔断规则
func (b *breakerBase) BoundRule() *Rule {
	return b.rule
}

// CurrentState 返回熔断器当前状态
func (b *breakerBase) CurrentState() State {
	return State(b.state.Load())
}

// TryPass 基于状态机获取一次调用许可
//
// Closed 放行；Open 在恢复计时到期后尝试转入半开，只有赢得转换的
// 单个调用方获得探测许可；HalfOpen 期间探测槽位已被占用，一律拒绝。
func (b *breakerBase) TryPass(entry EntryContext) bool {
	switch b.CurrentState() {
	case Closed:
		return true
	case Open:
		return b.retryTimeoutArrived() && b.fromOpenToHalfOpen(entry)
	default:
		return false
	}
}

func (b *breakerBase) currentTimeMs() uint64 {
	return uint64(b.now().UnixMilli())
}

// retryTimeoutArrived 恢复计时是否已到期
func (b *breakerBase) retryTimeoutArrived() bool {
	return b.currentTimeMs() >= b.nextRetryTimestampMs.Load()
}

// updateNextRetryTimestamp 重新武装恢复计时，每次进入 Open 状态时调用
func (b *breakerBase) updateNextRetryTimestamp() {
	b.nextRetryTimestampMs.Store(b.currentTimeMs() + uint64(b.retryTimeoutMs))
}

// fromClosedToOpen 状态机从 Closed 转换到 Open
// 仅当当前调用方成功完成转换时返回 true，竞争失败方为无副作用的空操作
func (b *breakerBase) fromClosedToOpen(snapshot any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CurrentState() != Closed {
		return false
	}
	b.state.Store(int32(Open))
	b.updateNextRetryTimestamp()
	b.notifyOpen(Closed, snapshot)
	return true
}

// fromOpenToHalfOpen 状态机从 Open 转换到 HalfOpen
// 仅当当前调用方成功完成转换时返回 true；成功即意味着本次调用占用探测槽位。
//
// 转换提交后在 entry 上注册完成钩子：如果本次探测随后被其他准入规则拦截
//（即探测从未真正执行），钩子会把状态从 HalfOpen 回滚到 Open，
// 回收被浪费的探测槽位，避免熔断器卡在半开状态。
func (b *breakerBase) fromOpenToHalfOpen(entry EntryContext) bool {
	b.mu.Lock()
	if b.CurrentState() != Open {
		b.mu.Unlock()
		return false
	}
	b.state.Store(int32(HalfOpen))
	b.notifyHalfOpen(Open)
	b.mu.Unlock()

	if entry == nil {
		// 调用方违反了 EntryContext 契约：探测照常进行，但失去回滚保护
		b.logger.Error("nil entry in open to half-open transition",
			clog.String("rule", b.rule.String()))
		return true
	}

	entry.WhenComplete(func() {
		if entry.IsBlocked() {
			b.rollbackToOpen()
		}
	})
	return true
}

// rollbackToOpen 探测请求被拦截后把状态从 HalfOpen 回滚到 Open（内部函数）
// 不重新武装恢复计时，后续请求可以立即再次竞争探测槽位
func (b *breakerBase) rollbackToOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CurrentState() != HalfOpen {
		return
	}
	b.state.Store(int32(Open))
	b.notifyOpen(HalfOpen, blockedProbeSnapshot)
}

// fromHalfOpenToOpen 状态机从 HalfOpen 转换到 Open（探测失败）
// 仅当当前调用方成功完成转换时返回 true
func (b *breakerBase) fromHalfOpenToOpen(snapshot any) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CurrentState() != HalfOpen {
		return false
	}
	b.state.Store(int32(Open))
	b.updateNextRetryTimestamp()
	b.notifyOpen(HalfOpen, snapshot)
	return true
}

// fromHalfOpenToClosed 状态机从 HalfOpen 转换到 Closed（探测成功）
// 仅当当前调用方成功完成转换时返回 true。
// 调用方必须在转换成功后清空滑动窗口统计，避免熔断前的陈旧失败数据立即再次触发熔断。
func (b *breakerBase) fromHalfOpenToClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CurrentState() != HalfOpen {
		return false
	}
	b.state.Store(int32(Closed))
	b.notifyClosed(HalfOpen)
	return true
}

// notifyOpen 通知所有监听器状态转换到 Open（内部函数，调用方持有 mu）
func (b *breakerBase) notifyOpen(prev State, snapshot any) {
	for _, l := range b.registry.snapshot() {
		b.safeNotify(func() { l.OnTransformToOpen(prev, *b.rule, snapshot) })
	}
	b.logger.Info("circuit breaker state changed",
		clog.String("resource", b.rule.Resource),
		clog.String("from", prev.String()),
		clog.String("to", Open.String()),
		clog.Any("snapshot", snapshot))
}

// notifyHalfOpen 通知所有监听器状态转换到 HalfOpen（内部函数，调用方持有 mu）
func (b *breakerBase) notifyHalfOpen(prev State) {
	for _, l := range b.registry.snapshot() {
		b.safeNotify(func() { l.OnTransformToHalfOpen(prev, *b.rule) })
	}
	b.logger.Info("circuit breaker state changed",
		clog.String("resource", b.rule.Resource),
		clog.String("from", prev.String()),
		clog.String("to", HalfOpen.String()))
}

// notifyClosed 通知所有监听器状态转换到 Closed（内部函数，调用方持有 mu）
func (b *breakerBase) notifyClosed(prev State) {
	for _, l := range b.registry.snapshot() {
		b.safeNotify(func() { l.OnTransformToClosed(prev, *b.rule) })
	}
	b.logger.Info("circuit breaker state changed",
		clog.String("resource", b.rule.Resource),
		clog.String("from", prev.String()),
		clog.String("to", Closed.String()))
}

// safeNotify 隔离监听器抛出的 panic（内部函数）
// 单个监听器出错不影响已提交的状态转换和其余监听器
func (b *breakerBase) safeNotify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("state change listener panicked",
				clog.String("resource", b.rule.Resource),
				clog.Any("panic", r))
		}
	}()
	fn()
}

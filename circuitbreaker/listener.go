package circuitbreaker

import "sync"

// StateChangeListener 监听熔断器状态变更事件
//
// 三个回调分别对应转换到三种目标状态，prev 为转换前的状态。
// rule 参数是熔断器规则的副本，监听器对它的任何修改都不会影响熔断器本身。
//
// 回调在状态转换的临界区内同步执行，必须快速返回且不得调用熔断器的
// 转换操作，否则会造成死锁。回调抛出的 panic 会被隔离并记录日志，
// 不会影响已提交的状态转换和其余监听器。
type StateChangeListener interface {
	// OnTransformToClosed 状态转换到 Closed 时触发（探测成功恢复）
	OnTransformToClosed(prev State, rule Rule)

	// OnTransformToOpen 状态转换到 Open 时触发
	// snapshot 为触发熔断时观测到的指标值（错误数、错误比例或慢调用比例）
	OnTransformToOpen(prev State, rule Rule, snapshot any)

	// OnTransformToHalfOpen 状态转换到 HalfOpen 时触发（开始探测）
	OnTransformToHalfOpen(prev State, rule Rule)
}

// ListenerRegistry 状态变更监听器注册表
//
// 由宿主应用显式创建并通过 WithListenerRegistry 传入熔断器，
// 多个熔断器可以共享同一个注册表。注册表只支持追加，不支持移除；
// 监听器按注册顺序依次收到通知。
//
// 注册应当在流量开始之前的初始化阶段完成。
type ListenerRegistry struct {
	mu        sync.RWMutex
	listeners []StateChangeListener
}

// NewListenerRegistry 创建一个空的监听器注册表
func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{}
}

// Register 追加一个或多个监听器
func (r *ListenerRegistry) Register(listeners ...StateChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range listeners {
		if l != nil {
			r.listeners = append(r.listeners, l)
		}
	}
}

// Len 返回已注册的监听器数量
func (r *ListenerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// snapshot 返回当前监听器列表的副本（内部使用）
// 通知过程在副本上迭代，期间的并发注册不影响本次通知
func (r *ListenerRegistry) snapshot() []StateChangeListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StateChangeListener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

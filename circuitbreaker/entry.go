package circuitbreaker

import "sync"

// Entry 是 EntryContext 的内置实现
//
// 外部准入框架如果有自己的调用上下文，只需实现 EntryContext 接口；
// 包内的 gRPC 拦截器和 Gin 中间件使用 Entry 追踪每次调用的生命周期。
type Entry struct {
	mu      sync.Mutex
	blocked bool
	done    bool
	hooks   []func()
}

// NewEntry 创建一个新的调用上下文
func NewEntry() *Entry {
	return &Entry{}
}

// SetBlocked 标记该调用被准入框架拦截
func (e *Entry) SetBlocked() {
	e.mu.Lock()
	e.blocked = true
	e.mu.Unlock()
}

// IsBlocked 返回该调用是否被拦截
func (e *Entry) IsBlocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blocked
}

// WhenComplete 注册一次性完成回调
//
// 回调保证恰好执行一次：调用已结束时立即执行，否则在 Exit 时执行。
func (e *Entry) WhenComplete(hook func()) {
	if hook == nil {
		return
	}
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		hook()
		return
	}
	e.hooks = append(e.hooks, hook)
	e.mu.Unlock()
}

// Exit 结束调用生命周期，触发所有完成回调
//
// 幂等：重复调用只有第一次生效。回调在锁外执行，允许回调中操作熔断器。
func (e *Entry) Exit() {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	e.done = true
	hooks := e.hooks
	e.hooks = nil
	e.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// Package circuitbreaker 提供了熔断器组件，专注于下游资源的故障隔离与自动恢复。
//
// circuitbreaker 是 Aegis 治理层的核心组件，它提供了：
// - 基于滑动窗口统计的原生熔断器状态机实现
// - 三种熔断策略：慢调用比例、错误比例、错误计数
// - 资源级粒度的熔断管理（按资源名独立熔断）
// - 自动故障隔离和自动恢复（通过半开状态单探测请求）
// - 状态变更监听器，便于接入日志与指标系统
// - gRPC 客户端拦截器与 Gin 中间件无侵入集成
//
// 熔断器状态机：
//
//	                             依据规则触发熔断
//	        +------------------------------------------------------+
//	        |                                                      v
//	+----------------+          +----------------+    探测     +----------------+
//	|                |          |                |<------------|                |
//	|                | 探测成功  |                |             |                |
//	|     Closed     |<---------|    HalfOpen    |             |      Open      |
//	|                |          |                |   探测失败   |                |
//	|                |          |                +------------>|                |
//	+----------------+          +----------------+             +----------------+
//
// ## 基本使用
//
//	brk, _ := circuitbreaker.New(&circuitbreaker.Rule{
//		Resource:         "api",
//		Strategy:         circuitbreaker.ErrorRatio,
//		RetryTimeoutMs:   3000,
//		StatIntervalMs:   10000,
//		StatBucketCount:  10,
//		Threshold:        0.5,
//		MinRequestAmount: 10,
//	}, circuitbreaker.WithLogger(logger))
//
//	entry := circuitbreaker.NewEntry()
//	if brk.TryPass(entry) {
//		err := doCall()
//		brk.OnRequestComplete(latencyMs, err)
//	}
//	entry.Exit()
//
// ## 规则组管理
//
//	group := circuitbreaker.NewGroup(circuitbreaker.WithLogger(logger))
//	_ = group.LoadRules(rules)
//	conn, _ := grpc.NewClient(
//		"localhost:9001",
//		grpc.WithUnaryInterceptor(group.UnaryClientInterceptor()),
//	)
package circuitbreaker

import (
	"github.com/ceyewan/aegis/clog"
)

// State 熔断器状态
type State int32

const (
	// Closed 闭合状态（正常），流量放行，统计持续累积
	Closed State = iota
	// HalfOpen 半开状态（探测恢复），仅允许单个探测请求
	HalfOpen
	// Open 打开状态（熔断中），恢复计时结束前拒绝所有请求
	Open
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half_open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

// Strategy 熔断策略
//
// 策略决定何时从 Closed 切换到 Open：
//   - SlowRequestRatio: 窗口内慢调用比例达到阈值
//   - ErrorRatio: 窗口内错误比例达到阈值
//   - ErrorCount: 窗口内错误数达到阈值
//
// 其他取值视为自定义策略，需要通过 WithBreakerFactory 注册工厂函数。
type Strategy string

const (
	// SlowRequestRatio 慢调用比例策略
	SlowRequestRatio Strategy = "SlowRequestRatio"
	// ErrorRatio 错误比例策略
	ErrorRatio Strategy = "ErrorRatio"
	// ErrorCount 错误计数策略
	ErrorCount Strategy = "ErrorCount"
)

// EntryContext 外部准入框架的调用上下文
//
// 熔断器依赖该接口获知探测请求的最终去向：
// 如果赢得半开探测的请求随后被其他准入规则拦截（即探测从未真正执行），
// 熔断器需要借助完成回调把状态从 HalfOpen 回滚到 Open。
type EntryContext interface {
	// IsBlocked 返回该调用是否被准入框架拦截
	IsBlocked() bool

	// WhenComplete 注册一次性完成回调，在调用生命周期结束时恰好执行一次。
	// 回调必须快速返回，且不得阻塞调用方。
	WhenComplete(hook func())
}

// CircuitBreaker 熔断器核心接口
//
// 同一资源的所有调用方共享一个实例，所有方法都是并发安全的。
type CircuitBreaker interface {
	// BoundRule 返回关联的熔断规则。规则构造后不可变。
	BoundRule() *Rule

	// Stat 返回关联的滑动窗口统计
	Stat() *WindowCounter

	// TryPass 获取一次调用许可
	// 仅当返回 true 时，调用方才可以执行受保护的调用，
	// 并必须在调用结束后上报 OnRequestComplete。
	TryPass(entry EntryContext) bool

	// CurrentState 返回熔断器当前状态
	CurrentState() State

	// OnRequestComplete 上报一次已放行调用的完成结果，
	// 并驱动熔断器的状态转换。rtMs 为响应时间（毫秒），err 为调用错误（可为 nil）。
	OnRequestComplete(rtMs uint64, err error)

	// ResetMetric 清空滑动窗口统计
	ResetMetric()
}

// BreakerFactory 自定义策略的熔断器工厂函数类型
type BreakerFactory func(rule *Rule) (CircuitBreaker, error)

// New 创建熔断器实例
// 这是标准的工厂函数，支持在不依赖规则组的情况下独立实例化
//
// 参数:
//   - rule: 熔断规则，构造后不可变
//   - opts: 可选参数 (Logger, ListenerRegistry, Meter, TimeSource)
func New(rule *Rule, opts ...Option) (CircuitBreaker, error) {
	if rule == nil {
		return nil, ErrRuleNil
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	opt := newOptions(opts...)

	opt.logger.Info("creating circuit breaker",
		clog.String("resource", rule.Resource),
		clog.String("strategy", string(rule.Strategy)),
		clog.Uint64("retry_timeout_ms", uint64(rule.RetryTimeoutMs)),
		clog.Uint64("stat_interval_ms", uint64(rule.StatIntervalMs)),
		clog.Float64("threshold", rule.Threshold),
		clog.Uint64("min_request_amount", rule.MinRequestAmount))

	return newBreaker(rule, opt, nil)
}

// newBreaker 按策略分发构造（内部函数）
// reuseStat 不为 nil 时复用已有的滑动窗口（规则热更新且窗口形状不变时）
func newBreaker(rule *Rule, opt *options, reuseStat *WindowCounter) (CircuitBreaker, error) {
	switch rule.Strategy {
	case SlowRequestRatio:
		return newSlowRequestBreaker(rule, opt, reuseStat), nil
	case ErrorRatio:
		return newErrorRatioBreaker(rule, opt, reuseStat), nil
	case ErrorCount:
		return newErrorCountBreaker(rule, opt, reuseStat), nil
	default:
		if factory, ok := opt.factories[rule.Strategy]; ok {
			return factory(rule)
		}
		return nil, ErrUnsupportedStrategy
	}
}

package circuitbreaker

import (
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger    clog.Logger
	registry  *ListenerRegistry
	meter     metrics.Meter
	now       func() time.Time
	factories map[Strategy]BreakerFactory
}

// newOptions 应用选项并填充默认值（内部函数）
func newOptions(opts ...Option) *options {
	o := &options{
		logger:   clog.Discard(),
		registry: NewListenerRegistry(),
		meter:    metrics.Noop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "circuitbreaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("circuitbreaker")
		}
	}
}

// WithListenerRegistry 设置状态变更监听器注册表
//
// 注册表由宿主应用显式创建并持有，多个熔断器可以共享同一个注册表。
// 未设置时每个熔断器使用独立的空注册表。
func WithListenerRegistry(registry *ListenerRegistry) Option {
	return func(o *options) {
		if registry != nil {
			o.registry = registry
		}
	}
}

// WithMeter 设置指标收集器
// 拦截器和中间件会通过它记录请求数、拒绝数和耗时
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithTimeSource 设置时间源，主要用于测试
func WithTimeSource(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBreakerFactory 为自定义策略注册熔断器工厂函数
//
// 使用示例:
//
//	group := circuitbreaker.NewGroup(
//		circuitbreaker.WithBreakerFactory("MyStrategy", newMyBreaker),
//	)
func WithBreakerFactory(strategy Strategy, factory BreakerFactory) Option {
	return func(o *options) {
		if o.factories == nil {
			o.factories = make(map[Strategy]BreakerFactory)
		}
		o.factories[strategy] = factory
	}
}

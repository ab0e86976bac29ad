package circuitbreaker

import (
	"context"

	"github.com/ceyewan/aegis/metrics"
)

// Metrics 指标常量定义
const (
	// MetricRequestsTotal 经过熔断器的请求总数 (Counter)
	MetricRequestsTotal = "circuitbreaker_requests_total"

	// MetricRejectsTotal 被熔断拒绝的请求数 (Counter)
	MetricRejectsTotal = "circuitbreaker_rejects_total"

	// MetricStateChanges 状态变更次数 (Counter)
	MetricStateChanges = "circuitbreaker_state_changes_total"

	// MetricState 熔断器当前状态 (Gauge, 0=closed 1=half_open 2=open)
	MetricState = "circuitbreaker_state"

	// MetricRequestDuration 请求耗时 (Histogram)
	MetricRequestDuration = "circuitbreaker_request_duration_seconds"

	// LabelResource 资源名标签
	LabelResource = "resource"

	// LabelMethod 方法标签
	LabelMethod = "method"

	// LabelResult 结果标签 (success/failure)
	LabelResult = "result"

	// LabelFromState 源状态标签
	LabelFromState = "from_state"

	// LabelToState 目标状态标签
	LabelToState = "to_state"
)

// MeterListener 把状态变更事件转换为指标的监听器
//
// 记录两类指标：状态变更计数（带 from/to 维度）和资源当前状态 Gauge。
// 注册到 ListenerRegistry 后即可工作：
//
//	registry := circuitbreaker.NewListenerRegistry()
//	registry.Register(circuitbreaker.NewMeterListener(meter))
type MeterListener struct {
	meter metrics.Meter
}

var _ StateChangeListener = (*MeterListener)(nil)

// NewMeterListener 创建指标监听器，meter 为 nil 时使用空实现
func NewMeterListener(meter metrics.Meter) *MeterListener {
	if meter == nil {
		meter = metrics.Noop()
	}
	return &MeterListener{meter: meter}
}

// OnTransformToClosed 实现 StateChangeListener
func (m *MeterListener) OnTransformToClosed(prev State, rule Rule) {
	m.record(prev, Closed, rule)
}

// OnTransformToOpen 实现 StateChangeListener
// snapshot 仅用于日志与告警，维度太高，不进指标标签
func (m *MeterListener) OnTransformToOpen(prev State, rule Rule, snapshot any) {
	m.record(prev, Open, rule)
}

// OnTransformToHalfOpen 实现 StateChangeListener
func (m *MeterListener) OnTransformToHalfOpen(prev State, rule Rule) {
	m.record(prev, HalfOpen, rule)
}

func (m *MeterListener) record(prev, next State, rule Rule) {
	ctx := context.Background()
	if counter, err := m.meter.Counter(MetricStateChanges, "Circuit breaker state changes"); err == nil && counter != nil {
		counter.Inc(ctx,
			metrics.L(LabelResource, rule.Resource),
			metrics.L(LabelFromState, prev.String()),
			metrics.L(LabelToState, next.String()))
	}
	if gauge, err := m.meter.Gauge(MetricState, "Circuit breaker current state"); err == nil && gauge != nil {
		gauge.Set(ctx, float64(next), metrics.L(LabelResource, rule.Resource))
	}
}

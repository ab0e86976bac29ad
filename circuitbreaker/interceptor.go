package circuitbreaker

import (
	"context"
	"time"

	"github.com/ceyewan/aegis/metrics"
	"google.golang.org/grpc"
)

// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器
// 为每个 gRPC 调用提供熔断保护，资源名由 KeyFunc 决定（默认服务级别）
//
// 使用示例:
//
//	group := circuitbreaker.NewGroup(circuitbreaker.WithLogger(logger))
//	_ = group.LoadRules(rules)
//	conn, _ := grpc.NewClient(
//		"localhost:9001",
//		grpc.WithUnaryInterceptor(group.UnaryClientInterceptor()),
//	)
func (g *Group) UnaryClientInterceptor(opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	cfg := newInterceptorConfig(opts...)
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		resource := cfg.keyFunc(ctx, method, cc)

		entry := NewEntry()
		defer entry.Exit()

		if !g.TryPass(resource, entry) {
			g.recordReject(ctx, resource, method)
			return ErrOpenState
		}

		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, callOpts...)
		elapsed := time.Since(start)

		g.OnRequestComplete(resource, uint64(elapsed.Milliseconds()), err)
		g.recordRequest(ctx, resource, method, elapsed, err)
		return err
	}
}

// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器
//
// 熔断判定只覆盖流的建立阶段：建流失败计为一次错误，
// 建流成功即上报成功，流上后续的收发错误不再计入熔断统计。
func (g *Group) StreamClientInterceptor(opts ...InterceptorOption) grpc.StreamClientInterceptor {
	cfg := newInterceptorConfig(opts...)
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		resource := cfg.keyFunc(ctx, method, cc)

		entry := NewEntry()
		defer entry.Exit()

		if !g.TryPass(resource, entry) {
			g.recordReject(ctx, resource, method)
			return nil, ErrOpenState
		}

		start := time.Now()
		stream, err := streamer(ctx, desc, cc, method, callOpts...)
		elapsed := time.Since(start)

		g.OnRequestComplete(resource, uint64(elapsed.Milliseconds()), err)
		g.recordRequest(ctx, resource, method, elapsed, err)
		return stream, err
	}
}

// recordRequest 记录一次已放行调用的指标（内部函数）
func (g *Group) recordRequest(ctx context.Context, resource, method string, elapsed time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	if counter, e := g.opt.meter.Counter(MetricRequestsTotal, "Total requests through circuit breaker"); e == nil && counter != nil {
		counter.Inc(ctx,
			metrics.L(LabelResource, resource),
			metrics.L(LabelMethod, method),
			metrics.L(LabelResult, result))
	}
	if hist, e := g.opt.meter.Histogram(MetricRequestDuration, "Request duration", metrics.WithUnit("s")); e == nil && hist != nil {
		hist.Record(ctx, elapsed.Seconds(),
			metrics.L(LabelResource, resource),
			metrics.L(LabelMethod, method))
	}
}

// recordReject 记录一次被熔断拒绝的调用（内部函数）
func (g *Group) recordReject(ctx context.Context, resource, method string) {
	if counter, e := g.opt.meter.Counter(MetricRejectsTotal, "Requests rejected by circuit breaker"); e == nil && counter != nil {
		counter.Inc(ctx,
			metrics.L(LabelResource, resource),
			metrics.L(LabelMethod, method))
	}
}

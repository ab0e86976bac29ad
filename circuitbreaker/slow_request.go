package circuitbreaker

// slowRequestBreaker 慢调用比例策略熔断器
//
// 响应时间超过 MaxAllowedRtMs 的请求计为慢调用，窗口内慢调用比例达到
// Threshold 且总请求数达到 MinRequestAmount 时熔断。错误与否不影响判定。
type slowRequestBreaker struct {
	breakerBase
	maxAllowedRtMs uint64
	stat           *WindowCounter
}

var _ CircuitBreaker = (*slowRequestBreaker)(nil)

func newSlowRequestBreaker(rule *Rule, opt *options, reuseStat *WindowCounter) *slowRequestBreaker {
	stat := reuseStat
	if stat == nil {
		stat = newWindowCounter(rule.StatIntervalMs, rule.bucketCount(), opt.now)
	}
	return &slowRequestBreaker{
		breakerBase:    newBreakerBase(rule, opt),
		maxAllowedRtMs: rule.MaxAllowedRtMs,
		stat:           stat,
	}
}

// Stat 返回关联的滑动窗口统计
func (b *slowRequestBreaker) Stat() *WindowCounter {
	return b.stat
}

// ResetMetric 清空滑动窗口统计
func (b *slowRequestBreaker) ResetMetric() {
	b.stat.Reset()
}

// OnRequestComplete 上报一次已放行调用的完成结果
// 半开状态下探测请求只要不超时即视为成功，err 不参与慢调用判定
func (b *slowRequestBreaker) OnRequestComplete(rtMs uint64, err error) {
	isSlow := rtMs > b.maxAllowedRtMs
	b.stat.Add(rtMs, err != nil, isSlow)

	switch b.CurrentState() {
	case Open:
		return
	case HalfOpen:
		if isSlow {
			b.fromHalfOpenToOpen(1.0)
		} else if b.fromHalfOpenToClosed() {
			b.ResetMetric()
		}
		return
	}

	snap := b.stat.Snapshot()
	if snap.Total < b.rule.MinRequestAmount {
		return
	}
	if ratio := snap.SlowRatio(); float64GTE(ratio, b.rule.Threshold) {
		b.fromClosedToOpen(ratio)
	}
}

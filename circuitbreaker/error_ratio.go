package circuitbreaker

// errorRatioBreaker 错误比例策略熔断器
//
// 窗口内错误比例达到 Threshold 且总请求数达到 MinRequestAmount 时熔断。
type errorRatioBreaker struct {
	breakerBase
	stat *WindowCounter
}

var _ CircuitBreaker = (*errorRatioBreaker)(nil)

func newErrorRatioBreaker(rule *Rule, opt *options, reuseStat *WindowCounter) *errorRatioBreaker {
	stat := reuseStat
	if stat == nil {
		stat = newWindowCounter(rule.StatIntervalMs, rule.bucketCount(), opt.now)
	}
	return &errorRatioBreaker{
		breakerBase: newBreakerBase(rule, opt),
		stat:        stat,
	}
}

// Stat 返回关联的滑动窗口统计
func (b *errorRatioBreaker) Stat() *WindowCounter {
	return b.stat
}

// ResetMetric 清空滑动窗口统计
func (b *errorRatioBreaker) ResetMetric() {
	b.stat.Reset()
}

// OnRequestComplete 上报一次已放行调用的完成结果
func (b *errorRatioBreaker) OnRequestComplete(rtMs uint64, err error) {
	isError := err != nil
	b.stat.Add(rtMs, isError, false)

	switch b.CurrentState() {
	case Open:
		return
	case HalfOpen:
		if isError {
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
	if ratio := snap.ErrorRatio(); float64GTE(ratio, b.rule.Threshold) {
		b.fromClosedToOpen(ratio)
	}
}

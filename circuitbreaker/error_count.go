package circuitbreaker

// errorCountBreaker 错误计数策略熔断器
//
// 窗口内错误数达到 Threshold 且总请求数达到 MinRequestAmount 时熔断。
type errorCountBreaker struct {
	breakerBase
	stat *WindowCounter
}

var _ CircuitBreaker = (*errorCountBreaker)(nil)

func newErrorCountBreaker(rule *Rule, opt *options, reuseStat *WindowCounter) *errorCountBreaker {
	stat := reuseStat
	if stat == nil {
		stat = newWindowCounter(rule.StatIntervalMs, rule.bucketCount(), opt.now)
	}
	return &errorCountBreaker{
		breakerBase: newBreakerBase(rule, opt),
		stat:        stat,
	}
}

// Stat 返回关联的滑动窗口统计
func (b *errorCountBreaker) Stat() *WindowCounter {
	return b.stat
}

// ResetMetric 清空滑动窗口统计
func (b *errorCountBreaker) ResetMetric() {
	b.stat.Reset()
}

// OnRequestComplete 上报一次已放行调用的完成结果
//
// 先累加统计再驱动状态机：半开状态下本次上报即探测结果，
// 成功则恢复闭合并清空统计，失败则重新熔断；闭合状态下检查熔断条件。
func (b *errorCountBreaker) OnRequestComplete(rtMs uint64, err error) {
	isError := err != nil
	b.stat.Add(rtMs, isError, false)

	switch b.CurrentState() {
	case Open:
		// 状态转换期间的迟到上报，只计入统计
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
	if float64(snap.Errors) >= b.rule.Threshold {
		b.fromClosedToOpen(snap.Errors)
	}
}

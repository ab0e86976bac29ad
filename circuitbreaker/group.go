package circuitbreaker

import (
	"sync"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/xerrors"
)

// Group 按资源名管理一组熔断器
//
// 每个资源对应一个熔断器实例，规则通过 LoadRules 整体加载与热更新。
// 未配置规则的资源不受熔断保护，调用一律放行。
type Group struct {
	opt *options

	mu       sync.RWMutex
	breakers map[string]CircuitBreaker
}

// NewGroup 创建一个空的熔断器规则组
//
// 参数:
//   - opts: 可选参数 (Logger, ListenerRegistry, Meter, TimeSource, BreakerFactory)
func NewGroup(opts ...Option) *Group {
	return &Group{
		opt:      newOptions(opts...),
		breakers: make(map[string]CircuitBreaker),
	}
}

// LoadRules 整体加载熔断规则，替换规则组中现有的全部规则
//
// 加载是先验证后生效的：任意一条规则非法（或资源名重复）则整批拒绝，
// 已生效的规则保持不变。对同一资源，若新旧规则的策略与窗口形状一致，
// 新熔断器会复用旧窗口的统计数据，避免热更新导致保护真空期；
// 状态机总是从 Closed 重新开始。
func (g *Group) LoadRules(rules []*Rule) error {
	seen := make(map[string]struct{}, len(rules))
	for _, rule := range rules {
		if rule == nil {
			return ErrRuleNil
		}
		if err := rule.Validate(); err != nil {
			return err
		}
		if _, dup := seen[rule.Resource]; dup {
			return xerrors.Wrapf(ErrInvalidRule, "duplicate rule for resource %q", rule.Resource)
		}
		seen[rule.Resource] = struct{}{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	fresh := make(map[string]CircuitBreaker, len(rules))
	for _, rule := range rules {
		var reuseStat *WindowCounter
		if old, ok := g.breakers[rule.Resource]; ok && old.BoundRule().isStatReusable(rule) {
			reuseStat = old.Stat()
		}
		brk, err := newBreaker(rule, g.opt, reuseStat)
		if err != nil {
			return xerrors.Wrapf(err, "rule for resource %q", rule.Resource)
		}
		fresh[rule.Resource] = brk
	}
	g.breakers = fresh

	g.opt.logger.Info("circuit breaker rules loaded",
		clog.Int("count", len(fresh)))
	return nil
}

// Breaker 返回指定资源的熔断器，未配置规则时返回 nil
func (g *Group) Breaker(resource string) CircuitBreaker {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.breakers[resource]
}

// Rules 返回规则组当前生效的全部规则
func (g *Group) Rules() []*Rule {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Rule, 0, len(g.breakers))
	for _, brk := range g.breakers {
		out = append(out, brk.BoundRule())
	}
	return out
}

// TryPass 获取指定资源的一次调用许可
// 资源未配置规则时直接放行
func (g *Group) TryPass(resource string, entry EntryContext) bool {
	brk := g.Breaker(resource)
	if brk == nil {
		return true
	}
	return brk.TryPass(entry)
}

// OnRequestComplete 上报指定资源一次已放行调用的完成结果
// 资源未配置规则时为空操作
func (g *Group) OnRequestComplete(resource string, rtMs uint64, err error) {
	if brk := g.Breaker(resource); brk != nil {
		brk.OnRequestComplete(rtMs, err)
	}
}

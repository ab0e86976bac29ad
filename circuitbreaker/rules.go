package circuitbreaker

import (
	"context"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/config"
	"github.com/ceyewan/aegis/xerrors"
)

// DefaultRulesKey 配置文件中熔断规则的默认 key
const DefaultRulesKey = "circuitbreaker.rules"

// LoadRulesFromConfig 从配置加载器读取指定 key 下的规则并加载到规则组
//
// 对应的配置形如：
//
//	circuitbreaker:
//	  rules:
//	    - resource: "order-service"
//	      strategy: "ErrorRatio"
//	      retry_timeout_ms: 3000
//	      stat_interval_ms: 10000
//	      threshold: 0.5
//	      min_request_amount: 10
func (g *Group) LoadRulesFromConfig(loader config.Loader, key string) error {
	if key == "" {
		key = DefaultRulesKey
	}
	var rules []*Rule
	if err := loader.UnmarshalKey(key, &rules); err != nil {
		return xerrors.Wrapf(err, "unmarshal circuit breaker rules at %q", key)
	}
	return g.LoadRules(rules)
}

// WatchRules 监听配置变化并热更新规则组，直到 ctx 取消
//
// 先做一次初始加载，随后每次配置变更都重新读取并整体替换规则。
// 非法的新规则整批拒绝并记录日志，已生效的规则保持不变，监听继续。
func (g *Group) WatchRules(ctx context.Context, loader config.Loader, key string) error {
	if key == "" {
		key = DefaultRulesKey
	}
	if err := g.LoadRulesFromConfig(loader, key); err != nil {
		return err
	}

	ch, err := loader.Watch(ctx, key)
	if err != nil {
		return xerrors.Wrapf(err, "watch circuit breaker rules at %q", key)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				if err := g.LoadRulesFromConfig(loader, key); err != nil {
					g.opt.logger.Error("reload circuit breaker rules failed",
						clog.String("key", key),
						clog.Error(err))
				}
			}
		}
	}()
	return nil
}

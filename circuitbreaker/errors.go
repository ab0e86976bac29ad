package circuitbreaker

import "github.com/ceyewan/aegis/xerrors"

// 错误定义
var (
	// ErrRuleNil 规则为空
	ErrRuleNil = xerrors.New("circuitbreaker: rule is nil")

	// ErrResourceEmpty 资源名为空
	ErrResourceEmpty = xerrors.New("circuitbreaker: resource is empty")

	// ErrInvalidRule 规则字段非法
	ErrInvalidRule = xerrors.New("circuitbreaker: invalid rule")

	// ErrUnsupportedStrategy 未知的熔断策略且未注册工厂函数
	ErrUnsupportedStrategy = xerrors.New("circuitbreaker: unsupported strategy")

	// ErrOpenState 熔断器处于打开状态，请求被拒绝
	ErrOpenState = xerrors.New("circuitbreaker: circuit breaker is open")

	// errServerFailure 中间件将 5xx 响应计为错误时使用（内部）
	errServerFailure = xerrors.New("circuitbreaker: server returned 5xx")
)

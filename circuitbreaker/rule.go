package circuitbreaker

import (
	"fmt"

	"github.com/ceyewan/aegis/xerrors"
)

// Rule 熔断规则
//
// 描述一个受保护资源的熔断策略与阈值。规则一旦用于构造熔断器即视为不可变；
// 规则更新通过整体替换熔断器实例完成，而不是就地修改字段。
//
// 典型配置示例（YAML）：
//
//	circuitbreaker:
//	  rules:
//	    - resource: "order-service"
//	      strategy: "ErrorRatio"
//	      retry_timeout_ms: 3000
//	      stat_interval_ms: 10000
//	      stat_bucket_count: 10
//	      threshold: 0.5
//	      min_request_amount: 10
type Rule struct {
	// Resource 受保护资源的唯一标识（服务名、方法名、后端地址等）
	Resource string `json:"resource" yaml:"resource" mapstructure:"resource"`

	// Strategy 熔断策略
	Strategy Strategy `json:"strategy" yaml:"strategy" mapstructure:"strategy"`

	// RetryTimeoutMs 熔断后的恢复超时（毫秒）
	// Open 状态期间拒绝所有请求，超时后允许单个探测请求进入半开状态
	RetryTimeoutMs uint32 `json:"retry_timeout_ms" yaml:"retry_timeout_ms" mapstructure:"retry_timeout_ms"`

	// StatIntervalMs 滑动窗口的统计时长（毫秒）
	StatIntervalMs uint32 `json:"stat_interval_ms" yaml:"stat_interval_ms" mapstructure:"stat_interval_ms"`

	// StatBucketCount 滑动窗口的 bucket 数量
	// 必须能整除 StatIntervalMs，否则退化为单 bucket（默认：1）
	StatBucketCount uint32 `json:"stat_bucket_count" yaml:"stat_bucket_count" mapstructure:"stat_bucket_count"`

	// Threshold 触发熔断的阈值
	// 比例类策略（SlowRequestRatio、ErrorRatio）为 (0, 1] 区间的比例，
	// ErrorCount 策略为窗口内错误数
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// MinRequestAmount 触发熔断的最小请求数
	// 窗口内请求数少于此值时不会触发熔断（静默期）
	MinRequestAmount uint64 `json:"min_request_amount" yaml:"min_request_amount" mapstructure:"min_request_amount"`

	// MaxAllowedRtMs 慢调用判定阈值（毫秒），仅 SlowRequestRatio 策略使用
	// 响应时间超过此值的请求计为慢调用
	MaxAllowedRtMs uint64 `json:"max_allowed_rt_ms" yaml:"max_allowed_rt_ms" mapstructure:"max_allowed_rt_ms"`
}

// String 返回规则的可读表示
func (r *Rule) String() string {
	return fmt.Sprintf(
		"Rule{resource=%s, strategy=%s, retryTimeoutMs=%d, statIntervalMs=%d, statBucketCount=%d, threshold=%v, minRequestAmount=%d, maxAllowedRtMs=%d}",
		r.Resource, r.Strategy, r.RetryTimeoutMs, r.StatIntervalMs, r.StatBucketCount,
		r.Threshold, r.MinRequestAmount, r.MaxAllowedRtMs)
}

// Validate 验证规则的有效性
func (r *Rule) Validate() error {
	if r.Resource == "" {
		return ErrResourceEmpty
	}
	if r.Strategy == "" {
		return xerrors.Wrapf(ErrInvalidRule, "rule %q: strategy is empty", r.Resource)
	}
	if r.RetryTimeoutMs == 0 {
		return xerrors.Wrapf(ErrInvalidRule, "rule %q: retry_timeout_ms must be positive", r.Resource)
	}
	if r.StatIntervalMs == 0 {
		return xerrors.Wrapf(ErrInvalidRule, "rule %q: stat_interval_ms must be positive", r.Resource)
	}
	if r.MinRequestAmount == 0 {
		return xerrors.Wrapf(ErrInvalidRule, "rule %q: min_request_amount must be positive", r.Resource)
	}

	switch r.Strategy {
	case SlowRequestRatio, ErrorRatio:
		if r.Threshold <= 0 || r.Threshold > 1 {
			return xerrors.Wrapf(ErrInvalidRule, "rule %q: ratio threshold must be in (0, 1], got %v", r.Resource, r.Threshold)
		}
	case ErrorCount:
		if r.Threshold < 1 {
			return xerrors.Wrapf(ErrInvalidRule, "rule %q: count threshold must be >= 1, got %v", r.Resource, r.Threshold)
		}
	}
	return nil
}

// bucketCount 返回实际使用的 bucket 数量
// 配置为 0 或无法整除统计时长时退化为单 bucket
func (r *Rule) bucketCount() uint32 {
	if r.StatBucketCount == 0 {
		return 1
	}
	if r.StatIntervalMs%r.StatBucketCount != 0 {
		return 1
	}
	return r.StatBucketCount
}

// isStatReusable 判断规则更新后能否复用已有的滑动窗口统计
// 策略与窗口形状完全一致时复用，避免热更新丢失统计数据
func (r *Rule) isStatReusable(newRule *Rule) bool {
	return r.Strategy == newRule.Strategy &&
		r.StatIntervalMs == newRule.StatIntervalMs &&
		r.bucketCount() == newRule.bucketCount()
}

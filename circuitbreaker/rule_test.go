package circuitbreaker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() *Rule {
	return &Rule{
		Resource:         "order-service",
		Strategy:         ErrorRatio,
		RetryTimeoutMs:   3000,
		StatIntervalMs:   10000,
		StatBucketCount:  10,
		Threshold:        0.5,
		MinRequestAmount: 10,
	}
}

func TestRuleValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validRule().Validate())
	})

	t.Run("empty resource", func(t *testing.T) {
		r := validRule()
		r.Resource = ""
		assert.ErrorIs(t, r.Validate(), ErrResourceEmpty)
	})

	t.Run("empty strategy", func(t *testing.T) {
		r := validRule()
		r.Strategy = ""
		assert.ErrorIs(t, r.Validate(), ErrInvalidRule)
	})

	t.Run("zero retry timeout", func(t *testing.T) {
		r := validRule()
		r.RetryTimeoutMs = 0
		assert.ErrorIs(t, r.Validate(), ErrInvalidRule)
	})

	t.Run("zero stat interval", func(t *testing.T) {
		r := validRule()
		r.StatIntervalMs = 0
		assert.ErrorIs(t, r.Validate(), ErrInvalidRule)
	})

	t.Run("zero min request amount", func(t *testing.T) {
		r := validRule()
		r.MinRequestAmount = 0
		assert.ErrorIs(t, r.Validate(), ErrInvalidRule)
	})

	t.Run("ratio threshold out of range", func(t *testing.T) {
		for _, threshold := range []float64{0, -0.1, 1.01} {
			r := validRule()
			r.Threshold = threshold
			assert.ErrorIs(t, r.Validate(), ErrInvalidRule, "threshold=%v", threshold)
		}
	})

	t.Run("ratio threshold boundary one is valid", func(t *testing.T) {
		r := validRule()
		r.Threshold = 1
		assert.NoError(t, r.Validate())
	})

	t.Run("count threshold below one", func(t *testing.T) {
		r := validRule()
		r.Strategy = ErrorCount
		r.Threshold = 0.5
		assert.ErrorIs(t, r.Validate(), ErrInvalidRule)
	})

	t.Run("count threshold valid", func(t *testing.T) {
		r := validRule()
		r.Strategy = ErrorCount
		r.Threshold = 5
		assert.NoError(t, r.Validate())
	})

	t.Run("custom strategy skips threshold range check", func(t *testing.T) {
		r := validRule()
		r.Strategy = "MyStrategy"
		r.Threshold = 42
		assert.NoError(t, r.Validate())
	})
}

func TestRuleBucketCount(t *testing.T) {
	r := validRule()
	assert.Equal(t, uint32(10), r.bucketCount())

	// 0 退化为单 bucket
	r.StatBucketCount = 0
	assert.Equal(t, uint32(1), r.bucketCount())

	// 无法整除统计时长退化为单 bucket
	r.StatBucketCount = 3
	assert.Equal(t, uint32(1), r.bucketCount())
}

func TestRuleIsStatReusable(t *testing.T) {
	r := validRule()

	same := *r
	same.Threshold = 0.8
	same.RetryTimeoutMs = 5000
	assert.True(t, r.isStatReusable(&same), "只改阈值和恢复超时应复用窗口")

	diffStrategy := *r
	diffStrategy.Strategy = ErrorCount
	assert.False(t, r.isStatReusable(&diffStrategy))

	diffInterval := *r
	diffInterval.StatIntervalMs = 20000
	assert.False(t, r.isStatReusable(&diffInterval))

	diffBuckets := *r
	diffBuckets.StatBucketCount = 5
	assert.False(t, r.isStatReusable(&diffBuckets))
}

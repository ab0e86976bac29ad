package circuitbreaker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ceyewan/aegis/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesYAML = `circuitbreaker:
  rules:
    - resource: "order-service"
      strategy: "ErrorRatio"
      retry_timeout_ms: 3000
      stat_interval_ms: 10000
      stat_bucket_count: 10
      threshold: 0.5
      min_request_amount: 10
    - resource: "payment-service"
      strategy: "SlowRequestRatio"
      retry_timeout_ms: 5000
      stat_interval_ms: 10000
      threshold: 0.8
      min_request_amount: 20
      max_allowed_rt_ms: 300
`

func writeRulesFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newRulesLoader(t *testing.T, dir string) config.Loader {
	t.Helper()
	loader, err := config.Load(context.Background(),
		config.WithConfigName("rules"),
		config.WithConfigPaths(dir))
	require.NoError(t, err)
	return loader
}

func TestLoadRulesFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeRulesFile(t, dir, rulesYAML)
	loader := newRulesLoader(t, dir)

	g := NewGroup()
	require.NoError(t, g.LoadRulesFromConfig(loader, ""))

	brk := g.Breaker("order-service")
	require.NotNil(t, brk)
	assert.Equal(t, ErrorRatio, brk.BoundRule().Strategy)
	assert.Equal(t, 0.5, brk.BoundRule().Threshold)

	slow := g.Breaker("payment-service")
	require.NotNil(t, slow)
	assert.Equal(t, SlowRequestRatio, slow.BoundRule().Strategy)
	assert.Equal(t, uint64(300), slow.BoundRule().MaxAllowedRtMs)
}

func TestLoadRulesFromConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	writeRulesFile(t, dir, `circuitbreaker:
  rules:
    - resource: "bad"
      strategy: "ErrorRatio"
      retry_timeout_ms: 0
      stat_interval_ms: 10000
      threshold: 0.5
      min_request_amount: 10
`)
	loader := newRulesLoader(t, dir)

	g := NewGroup()
	assert.ErrorIs(t, g.LoadRulesFromConfig(loader, ""), ErrInvalidRule)
}

func TestWatchRulesHotReload(t *testing.T) {
	dir := t.TempDir()
	path := writeRulesFile(t, dir, rulesYAML)
	loader := newRulesLoader(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := NewGroup()
	require.NoError(t, g.WatchRules(ctx, loader, ""))
	require.NotNil(t, g.Breaker("order-service"))

	// 改写配置文件，新增一个资源
	updated := rulesYAML + `    - resource: "search-service"
      strategy: "ErrorCount"
      retry_timeout_ms: 3000
      stat_interval_ms: 10000
      threshold: 5
      min_request_amount: 3
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		return g.Breaker("search-service") != nil
	}, 3*time.Second, 50*time.Millisecond, "配置变更后应热加载新规则")
	assert.NotNil(t, g.Breaker("order-service"))
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
env: test
gateway:
  apiKey: key
  apiSecret: secret
  rateLimitPerSec: 5
  rateBurst: 10
resolver:
  attempts: 10
  delayMs: 100
log:
  level: info
  outputs: [stdout]
  format: json
metrics:
  enabled: true
  addr: ":9100"
symbols:
  - BTC_JPY
currencies:
  - JPY
  - BTC
anchor: JPY
bars:
  - symbol: BTC_JPY
    spec: 1-MINUTE
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, []string{"BTC_JPY"}, cfg.Symbols)
	assert.Equal(t, 10, cfg.Resolver.Attempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Resolver.Delay())
	assert.Equal(t, "JPY", cfg.Anchor)
	require.Len(t, cfg.Bars, 1)
	assert.Equal(t, "1-MINUTE", cfg.Bars[0].Spec)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	base, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	cfg := base
	cfg.Env = ""
	assert.Error(t, Validate(cfg))

	cfg = base
	cfg.Gateway.APIKey = ""
	assert.Error(t, Validate(cfg))

	cfg = base
	cfg.Symbols = nil
	assert.Error(t, Validate(cfg))

	cfg = base
	cfg.Metrics.Addr = ""
	assert.Error(t, Validate(cfg), "metrics 开启时必须有地址")

	cfg = base
	cfg.Bars = []BarSubConfig{{Symbol: "BTC_JPY", Spec: "3-MINUTE"}}
	assert.Error(t, Validate(cfg), "不在交易所开放档位内的规格应当拒绝")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("GMO_API_KEY", "env-key")
	t.Setenv("GMO_API_SECRET", "env-secret")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Gateway.APIKey)
	assert.Equal(t, "env-secret", cfg.Gateway.APISecret)
}

func TestGatewayTimeoutDefault(t *testing.T) {
	g := GatewayConfig{}
	assert.Equal(t, 10*time.Second, g.Timeout())
	g.TimeoutMs = 2500
	assert.Equal(t, 2500*time.Millisecond, g.Timeout())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, validYAML)

	updates := make(chan AppConfig, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() {
		w := Watcher{Path: path, Cooldown: time.Millisecond}
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case updates <- cfg:
			default:
			}
		})
	}()

	// 等监听就绪后改写文件
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0644))

	select {
	case cfg := <-updates:
		assert.Equal(t, "test", cfg.Env)
	case <-time.After(3 * time.Second):
		t.Fatal("配置变更未触发回调")
	}
}

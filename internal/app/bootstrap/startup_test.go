package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/loanadmin/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func validAppConfig() AppConfig {
	return AppConfig{
		APIBaseURL:         "http://backend.test",
		APITimeout:         5 * time.Second,
		SessionKey:         "0123456789abcdef0123456789abcdef-strong",
		SessionName:        "loanadmin-session",
		SessionMaxAge:      time.Hour,
		Debounce:           100 * time.Millisecond,
		DefaultPageSize:    10,
		BoardIdleTTL:       time.Minute,
		BoardSweepInterval: time.Minute,
		LoginRateLimit:     10,
		MutationRateLimit:  60,
	}
}

func TestValidateConfig(t *testing.T) {
	dev := &config.CoreConfig{Env: "dev"}
	prod := &config.CoreConfig{Env: "prod"}

	cases := []struct {
		name    string
		core    *config.CoreConfig
		mutate  func(*AppConfig)
		wantErr string
	}{
		{name: "valid", core: prod, mutate: func(*AppConfig) {}},
		{name: "relative base url", core: dev, mutate: func(c *AppConfig) { c.APIBaseURL = "/api" }, wantErr: "api_base_url"},
		{name: "ftp base url", core: dev, mutate: func(c *AppConfig) { c.APIBaseURL = "ftp://backend" }, wantErr: "api_base_url"},
		{name: "dev key allowed in dev", core: dev, mutate: func(c *AppConfig) { c.SessionKey = devSessionKey }},
		{name: "dev key refused in prod", core: prod, mutate: func(c *AppConfig) { c.SessionKey = devSessionKey }, wantErr: "session_key"},
		{name: "short key refused in prod", core: prod, mutate: func(c *AppConfig) { c.SessionKey = "short" }, wantErr: "at least 32"},
		{name: "bad csrf key", core: dev, mutate: func(c *AppConfig) { c.CSRFKey = "short" }, wantErr: "csrf_key"},
		{name: "page size not offered", core: dev, mutate: func(c *AppConfig) { c.DefaultPageSize = 7 }, wantErr: "default_page_size"},
		{name: "negative limit", core: dev, mutate: func(c *AppConfig) { c.LoginRateLimit = -1 }, wantErr: "rate limits"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validAppConfig()
			tc.mutate(&cfg)
			err := ValidateConfig(tc.core, cfg, testLogger())
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCSRFKey(t *testing.T) {
	cfg := validAppConfig()
	derived := csrfKey(cfg)
	assert.Len(t, derived, 32)
	assert.NotEqual(t, []byte(cfg.SessionKey[:32]), derived)

	cfg.CSRFKey = "abcdefghijklmnopqrstuvwxyz012345"
	assert.Equal(t, []byte(cfg.CSRFKey), csrfKey(cfg))
}

func TestConnectDB_WithoutRedis(t *testing.T) {
	deps, err := ConnectDB(context.Background(), &config.CoreConfig{Env: "dev"}, validAppConfig(), testLogger())
	require.NoError(t, err)

	assert.NotNil(t, deps.API)
	assert.Nil(t, deps.Redis)
	assert.Nil(t, deps.Categories)
	assert.NotNil(t, deps.Boards)
	assert.NotNil(t, deps.Metrics)
	assert.Equal(t, "http://backend.test", deps.API.BaseURL())

	require.NoError(t, Shutdown(context.Background(), nil, validAppConfig(), deps, testLogger()))
}

func TestConnectDB_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := validAppConfig()
	cfg.RedisAddr = mr.Addr()

	deps, err := ConnectDB(context.Background(), &config.CoreConfig{Env: "dev"}, cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, deps.Redis)
	require.NotNil(t, deps.Categories)

	require.NoError(t, Shutdown(context.Background(), nil, cfg, deps, testLogger()))
}

func TestConnectDB_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := validAppConfig()
	cfg.RedisAddr = mr.Addr()
	mr.Close()

	_, err := ConnectDB(context.Background(), &config.CoreConfig{Env: "dev"}, cfg, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis")
}

func TestStartupStartsSweeperAndConfiguresTimeouts(t *testing.T) {
	t.Cleanup(timeouts.Reset)
	cfg := validAppConfig()
	cfg.APITimeout = 3 * time.Second

	deps, err := ConnectDB(context.Background(), &config.CoreConfig{Env: "dev"}, cfg, testLogger())
	require.NoError(t, err)

	require.NoError(t, Startup(context.Background(), &config.CoreConfig{Env: "dev"}, cfg, deps, testLogger()))
	assert.Equal(t, 3*time.Second, timeouts.Lookup())

	// Shutdown stops the sweeper Startup started.
	require.NoError(t, Shutdown(context.Background(), nil, cfg, deps, testLogger()))
}

// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/paging"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// devSessionKey is the default key. It is refused in production.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for the loan admin.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: api_base_url, session_name, etc.
//   - Environment variables: LOANADMIN_API_BASE_URL, LOANADMIN_SESSION_NAME, etc.
//   - Command-line flags: --api_base_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "api_base_url", Default: "http://localhost:8000", Desc: "Base URL of the backend REST API"},
	{Name: "api_timeout", Default: "15s", Desc: "Per-request timeout for backend list fetches"},
	{Name: "auth_login_path", Default: "/api/v1/login", Desc: "Backend login endpoint"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "loanadmin-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "12h", Desc: "Session cookie lifetime"},
	{Name: "csrf_key", Default: "", Desc: "32-byte CSRF key (derived from session_key when blank)"},

	{Name: "debounce", Default: "500ms", Desc: "Delay before an edited filter triggers a fetch"},
	{Name: "default_page_size", Default: paging.DefaultPageSize, Desc: "Rows per page until the operator picks a size"},
	{Name: "board_idle_ttl", Default: "30m", Desc: "Close a session's dashboard state after this long unused"},
	{Name: "board_sweep_interval", Default: "1m", Desc: "How often idle dashboard state is swept"},

	{Name: "redis_addr", Default: "", Desc: "Redis address for the category cache (blank disables it)"},
	{Name: "category_cache_ttl", Default: "5m", Desc: "How long cached product categories stay fresh"},

	{Name: "login_rate_limit", Default: 10, Desc: "Sign-in attempts per minute per IP and per login (0 disables)"},
	{Name: "mutation_rate_limit", Default: 60, Desc: "Row actions per minute per session (0 disables)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, LOANADMIN_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "LOANADMIN", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		APIBaseURL:    appValues.String("api_base_url"),
		APITimeout:    appValues.Duration("api_timeout", 15*time.Second),
		AuthLoginPath: appValues.String("auth_login_path"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 12*time.Hour),
		CSRFKey:       appValues.String("csrf_key"),

		Debounce:           appValues.Duration("debounce", 500*time.Millisecond),
		DefaultPageSize:    appValues.Int("default_page_size"),
		BoardIdleTTL:       appValues.Duration("board_idle_ttl", 30*time.Minute),
		BoardSweepInterval: appValues.Duration("board_sweep_interval", time.Minute),

		RedisAddr:        appValues.String("redis_addr"),
		CategoryCacheTTL: appValues.Duration("category_cache_ttl", 5*time.Minute),

		LoginRateLimit:    appValues.Int("login_rate_limit"),
		MutationRateLimit: appValues.Int("mutation_rate_limit"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	u, err := url.Parse(appCfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		logger.Error("invalid api_base_url", zap.String("api_base_url", appCfg.APIBaseURL))
		return fmt.Errorf("api_base_url %q must be an absolute http(s) URL", appCfg.APIBaseURL)
	}

	if coreCfg != nil && coreCfg.Env == "prod" {
		if appCfg.SessionKey == devSessionKey {
			return fmt.Errorf("session_key must be set in production")
		}
		if len(appCfg.SessionKey) < 32 {
			return fmt.Errorf("session_key must be at least 32 characters in production")
		}
	}

	if appCfg.CSRFKey != "" && len(appCfg.CSRFKey) != 32 {
		return fmt.Errorf("csrf_key must be exactly 32 bytes, got %d", len(appCfg.CSRFKey))
	}

	if !paging.ValidPageSize(appCfg.DefaultPageSize) {
		return fmt.Errorf("default_page_size %d is not one of %v", appCfg.DefaultPageSize, paging.PageSizes)
	}

	if appCfg.LoginRateLimit < 0 || appCfg.MutationRateLimit < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	return nil
}

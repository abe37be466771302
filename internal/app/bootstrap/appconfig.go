// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (LOANADMIN_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers ports, TLS, logging and request limits; everything about the
// backend API, sessions and the dashboard lives here.
type AppConfig struct {
	// Backend REST API
	APIBaseURL    string        // e.g. https://api.example.com
	APITimeout    time.Duration // per-request timeout for list fetches
	AuthLoginPath string        // login endpoint, default /api/v1/login

	// Session management configuration
	SessionKey    string        // Secret key for signing and encrypting session cookies
	SessionName   string        // Cookie name for sessions (default: loanadmin-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// CSRF protection
	CSRFKey string // 32-byte key; derived from SessionKey when empty

	// Dashboard behavior
	Debounce           time.Duration // filter edits settle for this long before a fetch
	DefaultPageSize    int
	BoardIdleTTL       time.Duration // boards unused this long are closed
	BoardSweepInterval time.Duration

	// Category cache (optional)
	RedisAddr        string
	CategoryCacheTTL time.Duration

	// Rate limits, requests per minute; 0 disables
	LoginRateLimit    int
	MutationRateLimit int
}

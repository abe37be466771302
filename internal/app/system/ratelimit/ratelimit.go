// internal/app/system/ratelimit/ratelimit.go
//
// Package ratelimit holds the dashboard's request limits, built on
// go-chi/httprate: a per-IP limit on the sign-in form, a per-account limit
// on sign-in attempts, and a per-session limit on row actions.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/auth"
	"github.com/go-chi/httprate"
)

// TooManyMessage is the body of a limited response.
const TooManyMessage = "Too many requests. Please wait a minute and try again."

// passthrough is the middleware of a disabled limit.
func passthrough(next http.Handler) http.Handler { return next }

// tooMany answers a limited request. HTMX callers get plain text they can
// show in a notice.
func tooMany(w http.ResponseWriter, r *http.Request) {
	http.Error(w, TooManyMessage, http.StatusTooManyRequests)
}

// ByIP limits each client IP to n requests per window. n <= 0 disables it.
func ByIP(n int, window time.Duration) func(http.Handler) http.Handler {
	if n <= 0 {
		return passthrough
	}
	return httprate.Limit(n, window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(tooMany),
	)
}

// BySession limits each signed-in session to n requests per window,
// falling back to the client IP for anonymous requests. n <= 0 disables it.
func BySession(n int, window time.Duration) func(http.Handler) http.Handler {
	if n <= 0 {
		return passthrough
	}
	return httprate.Limit(n, window,
		httprate.WithKeyFuncs(SessionKey),
		httprate.WithLimitHandler(tooMany),
	)
}

// SessionKey keys a request by a digest of its bearer token, so the token
// itself never lands in the limiter's memory.
func SessionKey(r *http.Request) (string, error) {
	if u, ok := auth.CurrentUser(r); ok && u.Token != "" {
		sum := sha256.Sum256([]byte(u.Token))
		return "s:" + hex.EncodeToString(sum[:8]), nil
	}
	return httprate.KeyByRealIP(r)
}

// LoginLimiter limits sign-in attempts per account, so a distributed
// attack on one login is slowed even when each IP stays under ByIP.
type LoginLimiter struct {
	rl *httprate.RateLimiter
}

// NewLoginLimiter allows n attempts per login per window. n <= 0 returns
// nil, which allows everything.
func NewLoginLimiter(n int, window time.Duration) *LoginLimiter {
	if n <= 0 {
		return nil
	}
	return &LoginLimiter{rl: httprate.NewRateLimiter(n, window)}
}

// Allow counts an attempt for login and reports whether it may proceed.
// It sets the X-RateLimit headers on w but writes no body.
func (l *LoginLimiter) Allow(w http.ResponseWriter, r *http.Request, login string) bool {
	if l == nil {
		return true
	}
	key := strings.ToLower(strings.TrimSpace(login))
	if key == "" {
		return true
	}
	return !l.rl.OnLimit(w, r, "login:"+key)
}

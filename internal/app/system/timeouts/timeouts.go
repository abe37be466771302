// Package timeouts holds the deadlines handlers put on backend calls.
//
// List fetches carry their own per-request timeout (api_timeout); these
// values cover the calls a handler makes directly:
//   - Ping: health checks against the backend and Redis
//   - Lookup: login and category lookups
//   - Mutation: approve, eligibility and apply-for-loan submits
//
// Configure is called once at startup from the loaded config.
package timeouts

import (
	"sync"
	"time"
)

// Defaults used until Configure is called.
const (
	DefaultPing     = 2 * time.Second
	DefaultLookup   = 10 * time.Second
	DefaultMutation = 20 * time.Second
)

var (
	mu       sync.RWMutex
	ping     = DefaultPing
	lookup   = DefaultLookup
	mutation = DefaultMutation
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Lookup returns the timeout for login and category lookups.
func Lookup() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return lookup
}

// Mutation returns the timeout for mutating backend calls.
func Mutation() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return mutation
}

// Config holds timeout values. Zero values keep the current setting.
type Config struct {
	Ping     time.Duration
	Lookup   time.Duration
	Mutation time.Duration
}

// Configure sets timeout values; zero fields are ignored.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Lookup > 0 {
		lookup = cfg.Lookup
	}
	if cfg.Mutation > 0 {
		mutation = cfg.Mutation
	}
}

// Reset restores the defaults. Useful for testing.
func Reset() {
	Configure(Config{Ping: DefaultPing, Lookup: DefaultLookup, Mutation: DefaultMutation})
}

// Current returns the active configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Lookup: lookup, Mutation: mutation}
}

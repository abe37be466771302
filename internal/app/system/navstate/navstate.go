// internal/app/system/navstate/navstate.go
//
// Package navstate holds the sidebar route map and the per-link loading
// flags shown while a navigation is in progress.
package navstate

import (
	"strings"
	"sync"
)

// Route is one sidebar entry.
type Route struct {
	Key   string
	Path  string
	Base  string // where the page's endpoints are mounted, when not Path
	Label string
	Icon  string
}

// Keys of the dashboard pages.
const (
	Loans     = "loans"
	LoanUsers = "loan_users"
	Products  = "products"
	Users     = "users"
)

// Routes is the sidebar in display order.
var Routes = []Route{
	{Key: Loans, Path: "/", Base: "/loans", Label: "Loans", Icon: "banknotes"},
	{Key: LoanUsers, Path: "/loan-users", Label: "Loan Users", Icon: "user-check"},
	{Key: Products, Path: "/products", Label: "Products", Icon: "cube"},
	{Key: Users, Path: "/users", Label: "Users", Icon: "users"},
}

// Lookup returns the route for key.
func Lookup(key string) (Route, bool) {
	for _, rt := range Routes {
		if rt.Key == key {
			return rt, true
		}
	}
	return Route{}, false
}

// ForPath returns the route a request path belongs to. "/" matches only
// itself; a route also matches its Base and the sub-paths of either.
func ForPath(path string) (Route, bool) {
	for _, rt := range Routes {
		if rt.Path == "/" {
			if path == "/" {
				return rt, true
			}
		} else if under(path, rt.Path) {
			return rt, true
		}
		if rt.Base != "" && under(path, rt.Base) {
			return rt, true
		}
	}
	return Route{}, false
}

func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Link is a sidebar entry ready for a template.
type Link struct {
	Route
	Href    string
	Current bool // rendered disabled
	Loading bool
}

// Flags is safe for concurrent use. The zero value is ready.
type Flags struct {
	mu      sync.Mutex
	loading map[string]bool
}

// Click marks key as loading unless it is the route for currentPath or is
// unknown. It reports whether a navigation should happen.
func (f *Flags) Click(key, currentPath string) (Route, bool) {
	rt, ok := Lookup(key)
	if !ok {
		return Route{}, false
	}
	if cur, ok := ForPath(currentPath); ok && cur.Key == key {
		return rt, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading == nil {
		f.loading = map[string]bool{}
	}
	f.loading[key] = true
	return rt, true
}

// Loading reports whether key is loading.
func (f *Flags) Loading(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading[key]
}

// Reset clears every flag. Called when a page has finished loading.
func (f *Flags) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = nil
}

// Links builds the sidebar for currentPath.
func (f *Flags) Links(currentPath string) []Link {
	cur, _ := ForPath(currentPath)

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Link, 0, len(Routes))
	for _, rt := range Routes {
		l := Link{Route: rt, Href: "/go/" + rt.Key, Loading: f.loading[rt.Key]}
		if rt.Key == cur.Key {
			l.Current = true
			l.Href = rt.Path
		}
		out = append(out, l)
	}
	return out
}

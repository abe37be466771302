package testutil

import (
	"context"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/boards"
	"github.com/dalemusser/loanadmin/internal/app/system/navstate"
)

// Call is one request the fake backend received.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values // multipart or url-encoded body fields
	Auth   string
}

// Backend is a fake of the platform REST API. Routes answer with fixed
// bodies or custom handlers; every request is recorded.
type Backend struct {
	t   *testing.T
	srv *httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []Call
}

// NewBackend starts a fake backend that is closed with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{t: t, routes: map[string]http.HandlerFunc{}}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

// URL is the backend's base URL.
func (b *Backend) URL() string { return b.srv.URL }

// Handle routes "METHOD /path" to h.
func (b *Backend) Handle(route string, h http.HandlerFunc) {
	b.mu.Lock()
	b.routes[route] = h
	b.mu.Unlock()
}

// JSON routes "METHOD /path" to a fixed status and body.
func (b *Backend) JSON(route string, status int, body string) {
	b.Handle(route, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// Calls returns the recorded requests to path.
func (b *Backend) Calls(path string) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Call
	for _, c := range b.calls {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	call := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Auth: r.Header.Get("Authorization")}
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			call.Form = r.PostForm
		}
	} else if err := r.ParseForm(); err == nil {
		call.Form = r.PostForm
	}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	h := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// Client returns an API client pointed at the backend.
func (b *Backend) Client() *apiclient.Client {
	b.t.Helper()
	c, err := apiclient.New(apiclient.Config{BaseURL: b.srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		b.t.Fatalf("apiclient.New: %v", err)
	}
	return c
}

// NewBoard builds a board for token against the backend. It is closed
// with the test.
func (b *Backend) NewBoard(token string) *boards.Board {
	b.t.Helper()
	board := boards.New("test-board", apiclient.Session{Token: token}, boards.Options{
		Client:   b.Client(),
		Debounce: 200 * time.Millisecond,
	})
	b.t.Cleanup(board.Close)
	return board
}

// WaitIdle waits for the list behind a navstate key to finish fetching.
func WaitIdle(t *testing.T, board *boards.Board, key string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch key {
	case navstate.Loans:
		err = board.Loans.Wait(ctx)
	case navstate.LoanUsers:
		err = board.LoanUsers.Wait(ctx)
	case navstate.Products:
		err = board.Products.Wait(ctx)
	case navstate.Users:
		err = board.Users.Wait(ctx)
	}
	if err != nil {
		t.Fatalf("wait for %s: %v", key, err)
	}
}

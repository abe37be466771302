package boards

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/livepush"
	"github.com/dalemusser/loanadmin/internal/app/system/mutation"
	"github.com/dalemusser/loanadmin/internal/app/system/navstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newOptions(t *testing.T, h http.HandlerFunc) Options {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return Options{Client: client, Debounce: 20 * time.Millisecond}
}

func loansHandler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/loans":
		_, _ = w.Write([]byte(`{"data":[{"id":1,"status":"pending"}],"meta":{"current_page":1,"total":1,"last_page":1,"per_page":10,"from":1,"to":1}}`))
	case "/api/v1/categories":
		_, _ = w.Write([]byte(`{"data":[{"id":3,"name":"Phones"}]}`))
	default:
		http.NotFound(w, r)
	}
}

func TestRegistryCreateGetRemove(t *testing.T) {
	reg := NewRegistry(newOptions(t, loansHandler), time.Hour)

	b := reg.Create(apiclient.Session{Token: "tok"})
	require.NotEmpty(t, b.ID)
	got, ok := reg.Get(b.ID)
	require.True(t, ok)
	assert.Same(t, b, got)
	assert.Equal(t, 1, reg.Len())

	_, ok = reg.Get("")
	assert.False(t, ok)

	reg.Remove(b.ID)
	_, ok = reg.Get(b.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

func TestBoardFetchesWithSessionToken(t *testing.T) {
	var auth atomic.Value
	opts := newOptions(t, func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		loansHandler(w, r)
	})
	reg := NewRegistry(opts, time.Hour)
	b := reg.Create(apiclient.Session{Token: "tok-9"})
	t.Cleanup(b.Close)

	b.Start(navstate.Loans)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Loans.Wait(ctx))

	s := b.Loans.Snapshot()
	require.Len(t, s.Items, 1)
	assert.Equal(t, "pending", s.Items[0].Status)
	assert.Equal(t, "Bearer tok-9", auth.Load())
}

func TestBoardWithoutCredentialRedirects(t *testing.T) {
	var hits atomic.Int32
	opts := newOptions(t, func(w http.ResponseWriter, r *http.Request) { hits.Add(1) })
	b := New("b1", apiclient.Session{}, opts)
	t.Cleanup(b.Close)

	events, stop := b.Hub.Subscribe()
	defer stop()

	b.Start(navstate.Users)

	kind, ok := b.TakeRedirect()
	assert.True(t, ok)
	assert.Equal(t, apiclient.KindMissingCredential, kind)
	_, ok = b.TakeRedirect()
	assert.False(t, ok, "redirect is consumed")
	assert.Zero(t, hits.Load())

	_, err := b.Conn()
	assert.ErrorIs(t, err, apiclient.ErrMissingCredential)

	sawRedirect := false
	for len(events) > 0 {
		if ev := <-events; ev.Type == livepush.TypeRedirect {
			assert.Equal(t, SignOutPath, ev.Location)
			sawRedirect = true
		}
	}
	assert.True(t, sawRedirect)
}

func TestBoardCategoriesLoadOnce(t *testing.T) {
	var hits atomic.Int32
	opts := newOptions(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/categories" {
			hits.Add(1)
		}
		loansHandler(w, r)
	})
	b := New("b2", apiclient.Session{Token: "t"}, opts)
	t.Cleanup(b.Close)

	for i := 0; i < 3; i++ {
		cats, err := b.Categories(context.Background())
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, "Phones", cats[0].Name)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestSweepRemovesIdleBoards(t *testing.T) {
	clk := &clock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	opts := newOptions(t, loansHandler)
	opts.Now = clk.Now
	reg := NewRegistry(opts, 30*time.Minute)

	stale := reg.Create(apiclient.Session{Token: "a"})
	clk.Advance(20 * time.Minute)
	fresh := reg.Create(apiclient.Session{Token: "b"})
	clk.Advance(15 * time.Minute)

	n, err := reg.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := reg.Get(stale.ID)
	assert.False(t, ok)
	_, ok = reg.Get(fresh.ID)
	assert.True(t, ok)

	require.NoError(t, reg.Close(context.Background()))
	assert.Equal(t, 0, reg.Len())
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	reg := NewRegistry(newOptions(t, loansHandler), 0)
	reg.Create(apiclient.Session{Token: "a"})
	n, err := reg.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, reg.Close(context.Background()))
}

func TestPageState(t *testing.T) {
	clk := &clock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	hub := livepush.NewHub()
	events, stop := hub.Subscribe()
	defer stop()
	p := newPage(navstate.Loans, hub, clk.Now)

	p.Toggle(4, "approve")
	assert.True(t, p.Expansion().IsOpen(4, "approve"))
	ev := <-events
	assert.Equal(t, navstate.Loans, ev.List)

	p.Stage(4, "approve", map[string][]string{"loan_cap": {"500"}})
	assert.Equal(t, "500", p.Staged(4, "approve").Get("loan_cap"))
	p.ClearStaged(4, "approve")
	assert.Empty(t, p.Staged(4, "approve"))

	p.CloseSection(4, "approve")
	assert.False(t, p.Expansion().IsOpen(4, "approve"))

	p.Notify(mutation.Notice{Level: mutation.LevelError, Text: "first", Entity: 4})
	p.Notify(mutation.Notice{Level: mutation.LevelSuccess, Text: "second", Entity: 4, Expires: clk.Now().Add(5 * time.Second)})
	p.Notify(mutation.Notice{Level: mutation.LevelError, Text: "other", Entity: 5})

	n, ok := p.Notice(4)
	require.True(t, ok)
	assert.Equal(t, "second", n.Text, "newer notice replaces older for the same entity")
	assert.Len(t, p.Notices(), 2)

	clk.Advance(6 * time.Second)
	_, ok = p.Notice(4)
	assert.False(t, ok, "expired notice dropped")

	p.Dismiss(5)
	assert.Empty(t, p.Notices())
}

type fakeSessions struct {
	cred    apiclient.Session
	boardID string
	ok      bool
	stored  []string
}

func (f *fakeSessions) Credential(r *http.Request) (apiclient.Session, string, bool) {
	return f.cred, f.boardID, f.ok
}

func (f *fakeSessions) SetBoardID(w http.ResponseWriter, r *http.Request, id string) error {
	f.stored = append(f.stored, id)
	f.boardID = id
	return nil
}

func TestAttach(t *testing.T) {
	reg := NewRegistry(newOptions(t, loansHandler), time.Hour)
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	ss := &fakeSessions{cred: apiclient.Session{Token: "a"}, ok: true}

	var seen []*Board
	h := reg.Attach(ss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, ok := FromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, b)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 2)
	assert.Same(t, seen[0], seen[1], "board reused across requests")
	assert.Len(t, ss.stored, 1)

	// A new credential gets a new board.
	ss.cred = apiclient.Session{Token: "b"}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 3)
	assert.NotSame(t, seen[0], seen[2])
	assert.Equal(t, 1, reg.Len())
}

func TestAttachSignedOutPassesThrough(t *testing.T) {
	reg := NewRegistry(newOptions(t, loansHandler), time.Hour)
	called := false
	h := reg.Attach(&fakeSessions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := FromContext(r.Context())
		assert.False(t, ok)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
	assert.Zero(t, reg.Len())
}

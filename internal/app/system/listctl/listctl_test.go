package listctl

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/paging"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   int64
	Name string
}

func (r row) EntityID() int64 { return r.ID }

// backend records queries and answers them through respond.
type backend struct {
	mu      sync.Mutex
	queries []apiclient.ListQuery
	respond func(q apiclient.ListQuery) (models.Page[row], error)
}

func (b *backend) fetch(ctx context.Context, q apiclient.ListQuery) (models.Page[row], error) {
	b.mu.Lock()
	b.queries = append(b.queries, q)
	respond := b.respond
	b.mu.Unlock()
	if respond == nil {
		return pageOf(q, 3, 25), nil
	}
	return respond(q)
}

func (b *backend) calls() []apiclient.ListQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]apiclient.ListQuery, len(b.queries))
	copy(out, b.queries)
	return out
}

func pageOf(q apiclient.ListQuery, n, total int) models.Page[row] {
	items := make([]row, n)
	for i := range items {
		items[i] = row{ID: int64(q.Page*100 + i), Name: "row"}
	}
	meta := derive(total, q.PerPage, q.Page)
	return models.Page[row]{Items: items, Meta: &meta}
}

// derive builds the page descriptor a conforming backend returns for total
// results split into pages of perPage, viewed at current.
func derive(total, perPage, current int) models.PageMeta {
	last := (total + perPage - 1) / perPage
	if last < 1 {
		last = 1
	}
	meta := models.PageMeta{CurrentPage: current, Total: total, LastPage: last, PerPage: perPage}
	if total == 0 || current < 1 || current > last {
		return meta
	}
	from := (current-1)*perPage + 1
	to := min(current*perPage, total)
	meta.From, meta.To = &from, &to
	return meta
}

func newController(t *testing.T, b *backend, mut func(*Config[row])) *Controller[row] {
	t.Helper()
	cfg := Config[row]{
		Name:     "test",
		Fields:   []string{"name_search", "phone_number_search"},
		Debounce: 30 * time.Millisecond,
		Fetch:    b.fetch,
	}
	if mut != nil {
		mut(&cfg)
	}
	c := New(cfg)
	t.Cleanup(c.Close)
	return c
}

func settle(t *testing.T, c *Controller[row]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func TestStartFetchesFirstPage(t *testing.T) {
	b := &backend{}
	c := newController(t, b, nil)

	c.Start()
	c.Start()
	settle(t, c)

	calls := b.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 1, calls[0].Page)
	assert.Equal(t, paging.DefaultPageSize, calls[0].PerPage)

	s := c.Snapshot()
	assert.Len(t, s.Items, 3)
	require.NotNil(t, s.Meta)
	assert.Equal(t, 3, s.Meta.LastPage)
	assert.False(t, s.Loading)
	assert.True(t, s.Fetched)
	assert.Equal(t, uint64(1), s.Trigger)
}

func TestSetFilterDebounces(t *testing.T) {
	b := &backend{}
	c := newController(t, b, nil)
	c.Start()
	settle(t, c)
	require.True(t, c.SetPage(3))
	settle(t, c)

	for _, v := range []string{"a", "ab", "abe", "abeb"} {
		require.NoError(t, c.SetFilter("name_search", v))
	}
	assert.Len(t, b.calls(), 2, "no fetch before the window expires")

	require.Eventually(t, func() bool { return len(b.calls()) == 3 }, time.Second, 5*time.Millisecond)
	settle(t, c)
	time.Sleep(60 * time.Millisecond)
	calls := b.calls()
	require.Len(t, calls, 3, "one fetch per debounce window")

	last := calls[2]
	assert.Equal(t, 1, last.Page)
	assert.Equal(t, "abeb", last.Filters["name_search"])

	s := c.Snapshot()
	assert.Equal(t, uint64(2), s.Trigger)
	assert.Equal(t, 1, s.Page)
}

func TestSetFilterUnknownField(t *testing.T) {
	c := newController(t, &backend{}, nil)
	err := c.SetFilter("password", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestSetFilterUnchangedValueDoesNotFetch(t *testing.T) {
	b := &backend{}
	c := newController(t, b, nil)
	require.NoError(t, c.SetFilter("name_search", ""))
	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, b.calls())
}

func TestClearFiltersIsImmediate(t *testing.T) {
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) { cfg.Debounce = time.Hour })

	require.NoError(t, c.SetFilter("name_search", "abebe"))
	require.NoError(t, c.SetFilter("phone_number_search", "0911"))
	c.ClearFilters()
	settle(t, c)

	calls := b.calls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Filters)
	s := c.Snapshot()
	assert.Empty(t, s.Filters)
	assert.Equal(t, uint64(1), s.Trigger)
}

func TestClearFiltersCancelsPendingDebounce(t *testing.T) {
	b := &backend{}
	c := newController(t, b, nil)

	require.NoError(t, c.SetFilter("name_search", "x"))
	c.ClearFilters()
	settle(t, c)
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, b.calls(), 1)
}

func TestApplyKeepsFilters(t *testing.T) {
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) { cfg.Debounce = time.Hour })

	require.NoError(t, c.SetFilter("name_search", "abebe"))
	c.Apply()
	settle(t, c)

	calls := b.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "abebe", calls[0].Filters["name_search"])
}

func TestSetPage(t *testing.T) {
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) { cfg.Debounce = time.Hour })
	require.NoError(t, c.SetFilter("name_search", "x"))
	c.Apply()
	settle(t, c)

	assert.False(t, c.SetPage(1), "current page")
	assert.False(t, c.SetPage(0), "below range")
	assert.False(t, c.SetPage(4), "past last page")
	assert.Len(t, b.calls(), 1)

	assert.True(t, c.SetPage(3))
	settle(t, c)
	calls := b.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 3, calls[1].Page)
	assert.Equal(t, "x", calls[1].Filters["name_search"], "filters survive paging")
	assert.Equal(t, 3, c.Snapshot().Page)
}

func TestSetPageSize(t *testing.T) {
	b := &backend{}
	c := newController(t, b, nil)
	c.Start()
	settle(t, c)
	require.True(t, c.SetPage(2))
	settle(t, c)

	assert.ErrorIs(t, c.SetPageSize(7), ErrPageSize)
	require.NoError(t, c.SetPageSize(paging.DefaultPageSize))
	assert.Len(t, b.calls(), 2, "unchanged size does not fetch")

	require.NoError(t, c.SetPageSize(20))
	settle(t, c)
	calls := b.calls()
	require.Len(t, calls, 3)
	assert.Equal(t, 2, calls[2].Page, "page is kept")
	assert.Equal(t, 20, calls[2].PerPage)
}

func TestSetPageSizePastLastPageFollowsBackend(t *testing.T) {
	b := &backend{}
	b.respond = func(q apiclient.ListQuery) (models.Page[row], error) {
		// 25 rows; the backend reports what it would for the requested page.
		meta := derive(25, q.PerPage, q.Page)
		meta.CurrentPage = q.Page
		if q.Page > meta.LastPage {
			return models.Page[row]{Items: nil, Meta: &meta}, nil
		}
		return pageOf(q, 2, 25), nil
	}
	c := newController(t, b, nil)
	c.Start()
	settle(t, c)
	require.True(t, c.SetPage(3))
	settle(t, c)

	require.NoError(t, c.SetPageSize(50))
	require.Eventually(t, func() bool { return len(b.calls()) == 4 }, time.Second, 5*time.Millisecond)
	settle(t, c)

	calls := b.calls()
	assert.Equal(t, 3, calls[2].Page)
	assert.Equal(t, 1, calls[3].Page)
	s := c.Snapshot()
	assert.Equal(t, 1, s.Page)
	assert.Len(t, s.Items, 2)
}

func TestValidationEmptiesWithoutRedirect(t *testing.T) {
	var redirects atomic.Int32
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) {
		cfg.OnRedirect = func(apiclient.Kind) { redirects.Add(1) }
	})
	c.Start()
	settle(t, c)
	require.NotEmpty(t, c.Snapshot().Items)

	b.mu.Lock()
	b.respond = func(apiclient.ListQuery) (models.Page[row], error) {
		return models.Page[row]{}, &apiclient.Error{Kind: apiclient.KindValidationEmpty, Status: 422}
	}
	b.mu.Unlock()
	c.Refresh()
	settle(t, c)

	s := c.Snapshot()
	assert.Empty(t, s.Items)
	assert.Nil(t, s.Meta)
	assert.Equal(t, apiclient.KindValidationEmpty, s.LastKind)
	assert.Zero(t, redirects.Load())
}

func TestUnauthorizedRedirectsOnceAndKeepsList(t *testing.T) {
	var redirects atomic.Int32
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) {
		cfg.OnRedirect = func(k apiclient.Kind) {
			assert.Equal(t, apiclient.KindUnauthorized, k)
			redirects.Add(1)
		}
	})
	c.Start()
	settle(t, c)
	before := c.Snapshot()

	b.mu.Lock()
	b.respond = func(apiclient.ListQuery) (models.Page[row], error) {
		return models.Page[row]{}, &apiclient.Error{Kind: apiclient.KindUnauthorized, Status: 401}
	}
	b.mu.Unlock()
	events, stop := c.Subscribe()
	defer stop()

	require.True(t, c.SetPage(2))
	settle(t, c)

	after := c.Snapshot()
	assert.Equal(t, before.Items, after.Items)
	assert.Equal(t, before.Meta, after.Meta)
	assert.Equal(t, int32(1), redirects.Load())

	sawRedirect := false
	for len(events) > 0 {
		if ev := <-events; ev.Type == EventRedirect {
			sawRedirect = true
		}
	}
	assert.True(t, sawRedirect)
}

func TestServerErrorClearsAndRedirects(t *testing.T) {
	var redirects atomic.Int32
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) {
		cfg.OnRedirect = func(apiclient.Kind) { redirects.Add(1) }
	})
	c.Start()
	settle(t, c)

	b.mu.Lock()
	b.respond = func(apiclient.ListQuery) (models.Page[row], error) {
		return models.Page[row]{}, &apiclient.Error{Kind: apiclient.KindServerError, Status: 500}
	}
	b.mu.Unlock()
	c.Apply()
	settle(t, c)

	s := c.Snapshot()
	assert.Empty(t, s.Items)
	assert.Nil(t, s.Meta)
	assert.False(t, s.Loading)
	assert.Equal(t, int32(1), redirects.Load())
}

func TestTransportRedirectsAndKeepsList(t *testing.T) {
	var redirects atomic.Int32
	var kinds []apiclient.Kind
	var kindsMu sync.Mutex
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) {
		cfg.OnRedirect = func(k apiclient.Kind) {
			kindsMu.Lock()
			kinds = append(kinds, k)
			kindsMu.Unlock()
			redirects.Add(1)
		}
	})
	c.Start()
	settle(t, c)
	before := c.Snapshot()
	require.NotEmpty(t, before.Items)
	id := before.Items[0].ID

	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	t.Cleanup(unblock)
	b.mu.Lock()
	b.respond = func(apiclient.ListQuery) (models.Page[row], error) {
		<-release
		return models.Page[row]{}, &apiclient.Error{Kind: apiclient.KindTransport}
	}
	b.mu.Unlock()

	c.Apply()
	assert.True(t, c.Snapshot().Loading)
	require.True(t, c.Patch(id, func(r row) row { r.Name = "patched"; return r }))
	unblock()
	settle(t, c)

	after := c.Snapshot()
	assert.False(t, after.Loading)
	assert.Equal(t, before.Meta, after.Meta)
	require.Len(t, after.Items, len(before.Items))
	assert.Equal(t, "patched", after.Items[0].Name)
	for i := 1; i < len(after.Items); i++ {
		assert.Equal(t, before.Items[i], after.Items[i])
	}
	assert.Equal(t, apiclient.KindTransport, after.LastKind)

	assert.Equal(t, int32(1), redirects.Load())
	kindsMu.Lock()
	assert.Equal(t, []apiclient.Kind{apiclient.KindTransport}, kinds)
	kindsMu.Unlock()
}

func TestMissingCredentialSkipsNetwork(t *testing.T) {
	var redirects atomic.Int32
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) {
		cfg.HasCredential = func() bool { return false }
		cfg.OnRedirect = func(k apiclient.Kind) {
			assert.Equal(t, apiclient.KindMissingCredential, k)
			redirects.Add(1)
		}
	})

	c.Start()
	settle(t, c)
	assert.Empty(t, b.calls())
	assert.Equal(t, int32(1), redirects.Load())
	assert.False(t, c.Snapshot().Loading)
}

func TestStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	b := &backend{}
	b.respond = func(q apiclient.ListQuery) (models.Page[row], error) {
		if q.Filters["name_search"] == "slow" {
			<-release
			return models.Page[row]{Items: []row{{ID: 1, Name: "slow"}}, Meta: &models.PageMeta{CurrentPage: 1, LastPage: 1, Total: 1, PerPage: 10}}, nil
		}
		return models.Page[row]{Items: []row{{ID: 2, Name: "fast"}}, Meta: &models.PageMeta{CurrentPage: 1, LastPage: 1, Total: 1, PerPage: 10}}, nil
	}
	c := newController(t, b, func(cfg *Config[row]) { cfg.Debounce = time.Hour })

	require.NoError(t, c.SetFilter("name_search", "slow"))
	c.Apply()
	require.NoError(t, c.SetFilter("name_search", "fast"))
	c.Apply()

	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return len(s.Items) == 1 && s.Items[0].Name == "fast"
	}, time.Second, 5*time.Millisecond)
	assert.True(t, c.Snapshot().Loading, "slow fetch still in flight")

	close(release)
	settle(t, c)

	s := c.Snapshot()
	require.Len(t, s.Items, 1)
	assert.Equal(t, "fast", s.Items[0].Name)
	assert.False(t, s.Loading)
}

func TestPatchSurvivesEarlierFetch(t *testing.T) {
	release := make(chan struct{})
	var gate atomic.Bool
	b := &backend{}
	b.respond = func(q apiclient.ListQuery) (models.Page[row], error) {
		if gate.Load() {
			<-release
		}
		return models.Page[row]{Items: []row{{ID: 7, Name: "old"}, {ID: 8, Name: "other"}}, Meta: &models.PageMeta{CurrentPage: 1, LastPage: 1, Total: 2, PerPage: 10}}, nil
	}
	c := newController(t, b, nil)
	c.Start()
	settle(t, c)

	gate.Store(true)
	c.Refresh()
	c.Patch(7, func(r row) row { r.Name = "patched"; return r })
	close(release)
	settle(t, c)

	s := c.Snapshot()
	require.Len(t, s.Items, 2)
	assert.Equal(t, "patched", s.Items[0].Name)
	assert.Equal(t, "other", s.Items[1].Name)

	// A fetch issued after the patch is authoritative.
	gate.Store(false)
	c.Apply()
	settle(t, c)
	assert.Equal(t, "old", c.Snapshot().Items[0].Name)
}

func TestPatchIsCopyOnWrite(t *testing.T) {
	b := &backend{}
	c := newController(t, b, nil)
	c.Start()
	settle(t, c)

	before := c.Snapshot()
	id := before.Items[0].ID
	require.True(t, c.Patch(id, func(r row) row { r.Name = "changed"; return r }))
	assert.Equal(t, "row", before.Items[0].Name, "earlier snapshot unchanged")
	assert.Equal(t, "changed", c.Snapshot().Items[0].Name)
	assert.Greater(t, c.Snapshot().Version, before.Version)

	assert.False(t, c.Patch(999, func(r row) row { return r }))
}

func TestFind(t *testing.T) {
	b := &backend{}
	c := newController(t, b, nil)
	c.Start()
	settle(t, c)

	got, ok := c.Find(101)
	require.True(t, ok)
	assert.Equal(t, int64(101), got.ID)
	_, ok = c.Find(5)
	assert.False(t, ok)
}

func TestObserveCalledPerFetch(t *testing.T) {
	var seen atomic.Int32
	b := &backend{}
	c := newController(t, b, func(cfg *Config[row]) {
		cfg.Observe = func(name string, kind apiclient.Kind, _ time.Duration) {
			assert.Equal(t, "test", name)
			assert.Equal(t, apiclient.KindNone, kind)
			seen.Add(1)
		}
	})
	c.Start()
	settle(t, c)
	assert.Equal(t, int32(1), seen.Load())
}

func TestCloseEndsSubscriptions(t *testing.T) {
	c := New(Config[row]{Name: "x", Fetch: (&backend{}).fetch})
	events, _ := c.Subscribe()
	c.Close()

	_, open := <-events
	assert.False(t, open)
	c.Close()
	c.Start()
	assert.Zero(t, c.Snapshot().Version)
}

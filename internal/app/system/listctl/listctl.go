// Package listctl holds the state behind every dashboard list page:
// current page, page size, filter fields and the fetched rows.
//
// Filter edits are debounced; when the window expires the search trigger
// is bumped, the page resets to 1 and a fetch is issued. Page and page-size
// changes fetch immediately and keep the filters. Every fetch carries a
// sequence number and only the latest issued fetch may update the rows.
package listctl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/dalemusser/loanadmin/internal/app/system/paging"
	"github.com/dalemusser/loanadmin/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last filter edit.
const DefaultDebounce = 500 * time.Millisecond

// ErrUnknownField is returned by SetFilter for a field the page does not declare.
var ErrUnknownField = errors.New("listctl: unknown filter field")

// ErrPageSize is returned by SetPageSize for a size outside the allowed set.
var ErrPageSize = errors.New("listctl: page size not allowed")

// Fetcher loads one page for q.
type Fetcher[T any] func(ctx context.Context, q apiclient.ListQuery) (models.Page[T], error)

// Config parameterizes a Controller for one page.
type Config[T models.Entity] struct {
	Name      string
	Fields    []string // filter fields the page offers
	PageSizes []int    // defaults to paging.PageSizes
	PageSize  int      // initial size, defaults to paging.DefaultPageSize
	Debounce  time.Duration
	Timeout   time.Duration // per fetch
	Fetch     Fetcher[T]

	// HasCredential is checked before every fetch; when it reports false
	// the fetch is skipped and the outcome is KindMissingCredential.
	HasCredential func() bool

	// Redirect decides which outcomes call OnRedirect. Defaults to
	// apiclient.DefaultRedirectPolicy.
	Redirect   apiclient.RedirectPolicy
	OnRedirect func(kind apiclient.Kind)

	// Observe, when set, is called after every completed fetch.
	Observe func(name string, kind apiclient.Kind, elapsed time.Duration)

	Logger *zap.Logger
}

// Filters maps filter field names to their current values.
type Filters map[string]string

// Get returns the value of field, or "".
func (f Filters) Get(field string) string { return f[field] }

func (f Filters) clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Snapshot is an immutable view of a controller's state.
type Snapshot[T any] struct {
	Items    []T
	Meta     *models.PageMeta
	Page     int
	PageSize int
	Filters  Filters
	Trigger  uint64 // bumped once per debounced or explicit search
	Loading  bool
	Fetched  bool // a result (possibly empty) has been applied
	LastKind apiclient.Kind
	Version  uint64
}

// EventType tells subscribers what happened.
type EventType int

const (
	// EventChanged: the snapshot changed.
	EventChanged EventType = iota
	// EventRedirect: a fetch outcome calls for the login page.
	EventRedirect
)

// Event is delivered to subscribers.
type Event struct {
	Type    EventType
	Kind    apiclient.Kind
	Version uint64
}

// overlay is a local patch that must survive a fetch issued before it.
type overlay[T any] struct {
	upTo uint64 // latest sequence number issued when the patch was made
	fn   func(T) T
}

// Controller is safe for concurrent use.
type Controller[T models.Entity] struct {
	cfg    Config[T]
	log    *zap.Logger
	fields map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	items       []T
	meta        *models.PageMeta
	page        int
	size        int
	filters     Filters
	trigger     uint64
	issued      uint64
	inflight    int
	idle        chan struct{}
	fetched     bool
	lastKind    apiclient.Kind
	version     uint64
	started     bool
	closed      bool
	debounce    *time.Timer
	debounceGen uint64
	overlays    map[int64][]overlay[T]
	subs        map[int]chan Event
	nextSub     int
}

// New builds a Controller. It does not fetch until Start is called.
func New[T models.Entity](cfg Config[T]) *Controller[T] {
	if len(cfg.PageSizes) == 0 {
		cfg.PageSizes = paging.PageSizes
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = paging.DefaultPageSize
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Redirect == nil {
		cfg.Redirect = apiclient.DefaultRedirectPolicy
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	idle := make(chan struct{})
	close(idle)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller[T]{
		cfg:      cfg,
		log:      log.With(zap.String("list", cfg.Name)),
		fields:   make(map[string]bool, len(cfg.Fields)),
		ctx:      ctx,
		cancel:   cancel,
		page:     1,
		size:     cfg.PageSize,
		filters:  Filters{},
		idle:     idle,
		overlays: map[int64][]overlay[T]{},
		subs:     map[int]chan Event{},
	}
	for _, f := range cfg.Fields {
		c.fields[f] = true
	}
	return c
}

// Name returns the configured page name.
func (c *Controller[T]) Name() string { return c.cfg.Name }

// Fields returns the declared filter fields.
func (c *Controller[T]) Fields() []string { return c.cfg.Fields }

// PageSizes returns the allowed page sizes.
func (c *Controller[T]) PageSizes() []int { return c.cfg.PageSizes }

// Start issues the initial search. Later calls do nothing.
func (c *Controller[T]) Start() {
	c.with(func() apiclient.Kind {
		if c.started {
			return apiclient.KindNone
		}
		c.started = true
		return c.triggerLocked()
	})
}

// SetFilter records a filter edit and (re)starts the debounce window.
// An unchanged value does not restart it.
func (c *Controller[T]) SetFilter(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fields[field] {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if c.filters[field] == value {
		return nil
	}
	if value == "" {
		delete(c.filters, field)
	} else {
		c.filters[field] = value
	}
	c.armDebounceLocked()
	return nil
}

// ClearFilters empties every filter and searches immediately, cancelling
// any pending debounce.
func (c *Controller[T]) ClearFilters() {
	c.with(func() apiclient.Kind {
		c.disarmDebounceLocked()
		c.filters = Filters{}
		return c.triggerLocked()
	})
}

// Apply searches immediately with the current filters ("Apply Filters").
func (c *Controller[T]) Apply() {
	c.with(func() apiclient.Kind {
		c.disarmDebounceLocked()
		return c.triggerLocked()
	})
}

// SetPage moves to page n. Selecting the current page or a page outside
// [1, last_page] does nothing and returns false.
func (c *Controller[T]) SetPage(n int) bool {
	accepted := false
	c.with(func() apiclient.Kind {
		last := 1
		if c.meta != nil {
			last = c.meta.LastPage
		}
		if !paging.Accept(n, c.page, last) {
			return apiclient.KindNone
		}
		accepted = true
		c.page = n
		return c.issueLocked()
	})
	return accepted
}

// SetPageSize changes the page size and refetches the current page
// without touching the filters.
func (c *Controller[T]) SetPageSize(n int) error {
	allowed := false
	for _, s := range c.cfg.PageSizes {
		if s == n {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %d", ErrPageSize, n)
	}

	c.with(func() apiclient.Kind {
		if n == c.size {
			return apiclient.KindNone
		}
		c.size = n
		return c.issueLocked()
	})
	return nil
}

// Refresh drops the visible rows and refetches the current page.
func (c *Controller[T]) Refresh() {
	c.with(func() apiclient.Kind {
		c.items = nil
		c.meta = nil
		c.bumpLocked()
		return c.issueLocked()
	})
}

// Patch replaces the row with the given id by fn(row). If a fetch issued
// before the patch is still running, the patch is re-applied to its result.
// It reports whether the row was found.
func (c *Controller[T]) Patch(id int64, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	next, found := patchRows(c.items, id, fn)
	if !found {
		return false
	}
	c.items = next
	if c.inflight > 0 {
		c.overlays[id] = append(c.overlays[id], overlay[T]{upTo: c.issued, fn: fn})
	}
	c.bumpLocked()
	return true
}

// Snapshot returns the current state. Items are never mutated in place,
// so the slice may be shared.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[T]{
		Items:    c.items,
		Meta:     c.meta,
		Page:     c.page,
		PageSize: c.size,
		Filters:  c.filters.clone(),
		Trigger:  c.trigger,
		Loading:  c.inflight > 0,
		Fetched:  c.fetched,
		LastKind: c.lastKind,
		Version:  c.version,
	}
}

// Find returns the row with the given id from the current rows.
func (c *Controller[T]) Find(id int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Wait blocks until no fetch is in flight or ctx is done.
func (c *Controller[T]) Wait(ctx context.Context) error {
	c.mu.Lock()
	ch := c.idle
	c.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel of events and a function that ends the
// subscription. Delivery is best effort: a slow subscriber misses events
// but can always re-read the Snapshot.
func (c *Controller[T]) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, 8)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops the debounce timer, cancels in-flight fetches and ends all
// subscriptions. It waits for fetch goroutines to return.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.disarmDebounceLocked()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

/*─────────────────────────────────────────────────────────────────────────────*
| internals                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// with runs fn under the lock and reports a redirect outcome afterwards,
// outside the lock, so OnRedirect may call back into the controller.
func (c *Controller[T]) with(fn func() apiclient.Kind) {
	c.mu.Lock()
	kind := fn()
	c.mu.Unlock()
	c.redirect(kind)
}

func (c *Controller[T]) redirect(kind apiclient.Kind) {
	if kind == apiclient.KindNone || c.cfg.OnRedirect == nil {
		return
	}
	c.cfg.OnRedirect(kind)
}

func (c *Controller[T]) armDebounceLocked() {
	if c.closed {
		return
	}
	c.disarmDebounceLocked()
	gen := c.debounceGen
	c.debounce = time.AfterFunc(c.cfg.Debounce, func() {
		c.with(func() apiclient.Kind {
			// A Stop that lost the race leaves an outdated generation.
			if c.closed || gen != c.debounceGen {
				return apiclient.KindNone
			}
			c.debounce = nil
			return c.triggerLocked()
		})
	})
}

func (c *Controller[T]) disarmDebounceLocked() {
	c.debounceGen++
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

// triggerLocked bumps the search trigger and fetches page 1.
func (c *Controller[T]) triggerLocked() apiclient.Kind {
	c.trigger++
	c.page = 1
	return c.issueLocked()
}

// issueLocked starts a fetch for the current page. It returns a redirect
// kind when the fetch could not be issued for lack of a credential.
func (c *Controller[T]) issueLocked() apiclient.Kind {
	if c.closed {
		return apiclient.KindNone
	}
	if c.cfg.HasCredential != nil && !c.cfg.HasCredential() {
		c.lastKind = apiclient.KindMissingCredential
		c.bumpLocked()
		c.emitLocked(Event{Type: EventRedirect, Kind: apiclient.KindMissingCredential, Version: c.version})
		return apiclient.KindMissingCredential
	}

	c.issued++
	seq := c.issued
	q := apiclient.ListQuery{Page: c.page, PerPage: c.size, Filters: c.filters.clone()}

	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.bumpLocked()

	c.wg.Add(1)
	go c.run(seq, q)
	return apiclient.KindNone
}

func (c *Controller[T]) run(seq uint64, q apiclient.ListQuery) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	page, err := c.cfg.Fetch(ctx, q)
	elapsed := time.Since(start)

	if c.cfg.Observe != nil {
		c.cfg.Observe(c.cfg.Name, apiclient.KindOf(err), elapsed)
	}
	c.with(func() apiclient.Kind {
		return c.finishLocked(seq, q, page, err)
	})

	// Released last so Wait returns only after any redirect callback ran.
	c.mu.Lock()
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
		if !c.closed {
			c.bumpLocked()
		}
	}
	c.mu.Unlock()
}

// finishLocked applies a completed fetch.
func (c *Controller[T]) finishLocked(seq uint64, q apiclient.ListQuery, page models.Page[T], err error) apiclient.Kind {
	if c.closed {
		return apiclient.KindNone
	}

	if seq != c.issued {
		c.log.Debug("discarding stale list response",
			zap.Uint64("seq", seq), zap.Uint64("latest", c.issued))
		c.bumpLocked()
		return apiclient.KindNone
	}

	kind := apiclient.KindOf(err)
	c.lastKind = kind

	switch kind {
	case apiclient.KindNone:
		c.items = c.applyOverlaysLocked(seq, page.Items)
		c.meta = page.Meta
		c.fetched = true
	case apiclient.KindValidationEmpty:
		c.items = nil
		c.meta = nil
		c.fetched = true
		c.overlays = map[int64][]overlay[T]{}
	case apiclient.KindServerError:
		c.items = nil
		c.meta = nil
		c.overlays = map[int64][]overlay[T]{}
		c.log.Warn("list fetch failed", zap.Error(err))
	default:
		c.log.Warn("list fetch failed", zap.Stringer("kind", kind), zap.Error(err))
	}
	c.bumpLocked()

	// A page-size change can leave the page past the end; follow the
	// backend's last page instead of showing an empty list.
	if kind == apiclient.KindNone && page.Meta != nil && page.Meta.Total > 0 &&
		page.Meta.LastPage >= 1 && q.Page > page.Meta.LastPage {
		c.page = page.Meta.LastPage
		return c.issueLocked()
	}

	if c.cfg.Redirect(kind) {
		c.emitLocked(Event{Type: EventRedirect, Kind: kind, Version: c.version})
		return kind
	}
	return apiclient.KindNone
}

// applyOverlaysLocked re-applies patches made while this fetch was in
// flight. Overlays are consumed by the first applied result.
func (c *Controller[T]) applyOverlaysLocked(seq uint64, items []T) []T {
	if len(c.overlays) == 0 {
		return items
	}
	for id, list := range c.overlays {
		for _, o := range list {
			if seq <= o.upTo {
				items, _ = patchRows(items, id, o.fn)
			}
		}
	}
	c.overlays = map[int64][]overlay[T]{}
	return items
}

func (c *Controller[T]) bumpLocked() {
	c.version++
	c.emitLocked(Event{Type: EventChanged, Version: c.version})
}

func (c *Controller[T]) emitLocked(ev Event) {
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// patchRows returns a copy of items with the row matching id replaced.
func patchRows[T models.Entity](items []T, id int64, fn func(T) T) ([]T, bool) {
	for i, it := range items {
		if it.EntityID() != id {
			continue
		}
		next := make([]T, len(items))
		copy(next, items)
		next[i] = fn(it)
		return next, true
	}
	return items, false
}

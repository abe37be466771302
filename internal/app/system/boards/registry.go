// internal/app/system/boards/registry.go
package boards

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/apiclient"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// closeConcurrency bounds how many boards close at once.
const closeConcurrency = 8

// Registry holds the live boards.
type Registry struct {
	opts Options
	ttl  time.Duration
	log  *zap.Logger
	now  func() time.Time

	mu     sync.Mutex
	boards map[string]*Board
}

// NewRegistry returns an empty Registry. Boards unused for ttl are removed
// by Sweep; ttl <= 0 disables sweeping.
func NewRegistry(opts Options, ttl time.Duration) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{
		opts:   opts,
		ttl:    ttl,
		log:    opts.Logger,
		now:    opts.Now,
		boards: map[string]*Board{},
	}
}

// Create makes a board for sess under a fresh id.
func (r *Registry) Create(sess apiclient.Session) *Board {
	b := New(uuid.NewString(), sess, r.opts)

	r.mu.Lock()
	r.boards[b.ID] = b
	n := len(r.boards)
	r.mu.Unlock()

	r.opts.Metrics.SetActiveBoards(n)
	r.log.Debug("board created", zap.String("board", b.ID))
	return b
}

// Get returns the board for id and marks it used.
func (r *Registry) Get(id string) (*Board, bool) {
	if id == "" {
		return nil, false
	}
	r.mu.Lock()
	b, ok := r.boards[id]
	r.mu.Unlock()
	if ok {
		b.Touch()
	}
	return b, ok
}

// Remove closes and forgets the board for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	b, ok := r.boards[id]
	delete(r.boards, id)
	n := len(r.boards)
	r.mu.Unlock()

	if ok {
		b.Close()
		r.opts.Metrics.SetActiveBoards(n)
	}
}

// Len returns the number of boards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.boards)
}

// Sweep closes boards idle for longer than the ttl and returns how many
// were removed.
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	if r.ttl <= 0 {
		return 0, nil
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var idle []*Board
	for id, b := range r.boards {
		if b.IdleSince().Before(cutoff) {
			idle = append(idle, b)
			delete(r.boards, id)
		}
	}
	n := len(r.boards)
	r.mu.Unlock()

	if len(idle) == 0 {
		return 0, nil
	}
	r.opts.Metrics.SetActiveBoards(n)
	return len(idle), closeAll(ctx, idle)
}

// Close closes every board.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	all := make([]*Board, 0, len(r.boards))
	for id, b := range r.boards {
		all = append(all, b)
		delete(r.boards, id)
	}
	r.mu.Unlock()

	r.opts.Metrics.SetActiveBoards(0)
	return closeAll(ctx, all)
}

// closeAll closes boards concurrently. It returns ctx's error when the
// context ends first; the closes still run to completion in the background.
func closeAll(ctx context.Context, boards []*Board) error {
	var g errgroup.Group
	g.SetLimit(closeConcurrency)
	done := make(chan error, 1)
	go func() {
		for _, b := range boards {
			g.Go(func() error {
				b.Close()
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

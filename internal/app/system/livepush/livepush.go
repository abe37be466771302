// internal/app/system/livepush/livepush.go
//
// Package livepush tells open dashboard tabs when their page changed. A Hub
// fans events out to subscribers; Serve streams one subscription over a
// websocket as JSON text frames.
package livepush

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types.
const (
	TypeChanged  = "changed"
	TypeRedirect = "redirect"
)

// Event is one message to the browser.
type Event struct {
	Type     string `json:"type"`
	List     string `json:"list,omitempty"`
	Location string `json:"location,omitempty"`
	Version  uint64 `json:"version,omitempty"`
}

// Hub is a best-effort broadcaster. A subscriber that falls behind misses
// events; the browser re-reads the page state on every event anyway.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: map[int]chan Event{}}
}

// Publish delivers ev to every subscriber without blocking.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Options tune Serve.
type Options struct {
	// List, when set, drops changed events for other lists.
	List         string
	PingInterval time.Duration
	WriteTimeout time.Duration
	OnOpen       func()
	OnClose      func()
	Logger       *zap.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Serve upgrades the request and streams events from h until the client
// goes away, the hub closes or ctx is done.
func Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, h *Hub, opts Options) error {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		return err
	}
	defer conn.Close()

	if opts.OnOpen != nil {
		opts.OnOpen()
	}
	if opts.OnClose != nil {
		defer opts.OnClose()
	}

	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	// The browser never sends anything we use; reading detects close
	// frames and keeps pong handling alive.
	gone := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(2 * opts.PingInterval))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(2 * opts.PingInterval))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(opts.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-gone:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if opts.List != "" && ev.Type == TypeChanged && ev.List != "" && ev.List != opts.List {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					log.Debug("live write failed", zap.Error(err))
				}
				return nil
			}
		case <-ping.C:
			deadline := time.Now().Add(opts.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return nil
			}
		}
	}
}

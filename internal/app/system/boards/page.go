// internal/app/system/boards/page.go
package boards

import (
	"net/url"
	"sync"
	"time"

	"github.com/dalemusser/loanadmin/internal/app/system/expansion"
	"github.com/dalemusser/loanadmin/internal/app/system/livepush"
	"github.com/dalemusser/loanadmin/internal/app/system/mutation"
	"github.com/dalemusser/loanadmin/internal/app/system/pending"
)

// Page is the UI state of one dashboard page beside its list: open detail
// sections, pending mutations, staged form input and notices. It satisfies
// mutation.Host.
type Page struct {
	Name    string
	Pending pending.Flags

	hub *livepush.Hub
	now func() time.Time

	mu      sync.Mutex
	open    expansion.State
	staged  map[int64]map[string]url.Values
	notices []mutation.Notice
	version uint64
}

func newPage(name string, hub *livepush.Hub, now func() time.Time) *Page {
	return &Page{
		Name:   name,
		hub:    hub,
		now:    now,
		staged: map[int64]map[string]url.Values{},
	}
}

// Expansion returns the current expansion state. It is immutable.
func (p *Page) Expansion() expansion.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Toggle flips a detail section for an entity.
func (p *Page) Toggle(id int64, section string) {
	p.mu.Lock()
	p.open = p.open.Toggle(id, section)
	p.mu.Unlock()
	p.changed()
}

// CloseSection closes a detail section.
func (p *Page) CloseSection(id int64, section string) {
	p.mu.Lock()
	p.open = p.open.Close(id, section)
	p.mu.Unlock()
	p.changed()
}

// Stage records the form input for an action so it survives re-renders.
func (p *Page) Stage(id int64, action string, form url.Values) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.staged[id] == nil {
		p.staged[id] = map[string]url.Values{}
	}
	cp := make(url.Values, len(form))
	for k, v := range form {
		cp[k] = append([]string(nil), v...)
	}
	p.staged[id][action] = cp
}

// Staged returns the staged input for an action, or an empty set.
func (p *Page) Staged(id int64, action string) url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.staged[id][action]; ok {
		return v
	}
	return url.Values{}
}

// ClearStaged drops the staged input for an action.
func (p *Page) ClearStaged(id int64, action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.staged[id], action)
	if len(p.staged[id]) == 0 {
		delete(p.staged, id)
	}
}

// Notify adds a notice. A notice replaces an earlier one for the same
// entity. Expiring notices trigger a refresh when they lapse.
func (p *Page) Notify(n mutation.Notice) {
	p.mu.Lock()
	kept := p.notices[:0:0]
	for _, old := range p.notices {
		if old.Entity != n.Entity {
			kept = append(kept, old)
		}
	}
	p.notices = append(kept, n)
	p.mu.Unlock()

	if !n.Expires.IsZero() {
		time.AfterFunc(time.Until(n.Expires)+10*time.Millisecond, p.changed)
	}
	p.changed()
}

// Notices returns the unexpired notices, oldest first.
func (p *Page) Notices() []mutation.Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	live := p.notices[:0:0]
	for _, n := range p.notices {
		if n.Expires.IsZero() || now.Before(n.Expires) {
			live = append(live, n)
		}
	}
	p.notices = live
	return append([]mutation.Notice(nil), live...)
}

// Notice returns the unexpired notice for an entity.
func (p *Page) Notice(id int64) (mutation.Notice, bool) {
	for _, n := range p.Notices() {
		if n.Entity == id {
			return n, true
		}
	}
	return mutation.Notice{}, false
}

// Dismiss removes the notice for an entity.
func (p *Page) Dismiss(id int64) {
	p.mu.Lock()
	kept := p.notices[:0:0]
	for _, n := range p.notices {
		if n.Entity != id {
			kept = append(kept, n)
		}
	}
	p.notices = kept
	p.mu.Unlock()
	p.changed()
}

func (p *Page) changed() {
	p.mu.Lock()
	p.version++
	v := p.version
	p.mu.Unlock()
	if p.hub != nil {
		p.hub.Publish(livepush.Event{Type: livepush.TypeChanged, List: p.Name, Version: v})
	}
}

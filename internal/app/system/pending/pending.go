// internal/app/system/pending/pending.go
//
// Package pending records which entities have a mutation in flight.
package pending

import "sync"

// Flags is safe for concurrent use. The zero value is ready.
type Flags struct {
	mu   sync.Mutex
	busy map[int64]bool
}

// Begin marks id as pending. It returns false, and changes nothing, when
// id is already pending.
func (f *Flags) Begin(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy[id] {
		return false
	}
	if f.busy == nil {
		f.busy = map[int64]bool{}
	}
	f.busy[id] = true
	return true
}

// End clears id.
func (f *Flags) End(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.busy, id)
}

// Busy reports whether id is pending.
func (f *Flags) Busy(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy[id]
}

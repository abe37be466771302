// internal/app/system/expansion/expansion.go
//
// Package expansion tracks which detail sections are open for each row of a
// list. A State is immutable: Toggle and Close return a new State that shares
// every untouched entity's set with the old one.
package expansion

// State maps an entity id to its set of open section names.
type State struct {
	open map[int64]map[string]bool
}

// IsOpen reports whether section is open for id.
func (s State) IsOpen(id int64, section string) bool {
	return s.open[id][section]
}

// Open returns a copy of the open sections for id.
func (s State) Open(id int64) map[string]bool {
	out := make(map[string]bool, len(s.open[id]))
	for k := range s.open[id] {
		out[k] = true
	}
	return out
}

// Toggle flips section for id.
func (s State) Toggle(id int64, section string) State {
	return s.with(id, section, !s.IsOpen(id, section))
}

// Close closes section for id. Closing a closed section returns s.
func (s State) Close(id int64, section string) State {
	if !s.IsOpen(id, section) {
		return s
	}
	return s.with(id, section, false)
}

// Len returns the number of entities with at least one open section.
func (s State) Len() int { return len(s.open) }

func (s State) with(id int64, section string, open bool) State {
	next := make(map[int64]map[string]bool, len(s.open)+1)
	for k, v := range s.open {
		if k != id {
			next[k] = v
		}
	}

	set := make(map[string]bool, len(s.open[id])+1)
	for k := range s.open[id] {
		set[k] = true
	}
	if open {
		set[section] = true
	} else {
		delete(set, section)
	}
	if len(set) > 0 {
		next[id] = set
	}
	return State{open: next}
}

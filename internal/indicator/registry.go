package indicator

import "sort"

// Registry maps tracked instrument identifiers to their RSI engines.
// Engines are created on first sight and live for the process lifetime.
// Only identifiers on the static allow-list ever get an entry.
type Registry struct {
	tracked map[string]struct{}
	engines map[string]*RSI
}

// NewRegistry creates a registry restricted to the given allow-list.
func NewRegistry(tracked []string) *Registry {
	set := make(map[string]struct{}, len(tracked))
	for _, id := range tracked {
		set[id] = struct{}{}
	}
	return &Registry{
		tracked: set,
		engines: make(map[string]*RSI, len(set)),
	}
}

// Tracked reports whether id is on the allow-list.
func (r *Registry) Tracked(id string) bool {
	_, ok := r.tracked[id]
	return ok
}

// GetOrCreate returns the engine for id, creating an empty one if this is
// the first trade seen for it. Returns nil for identifiers not on the
// allow-list, so untracked instruments never occupy memory.
func (r *Registry) GetOrCreate(id string) *RSI {
	if e, ok := r.engines[id]; ok {
		return e
	}
	if !r.Tracked(id) {
		return nil
	}
	e := NewRSI()
	r.engines[id] = e
	return e
}

// Lookup returns the engine for id without creating one.
func (r *Registry) Lookup(id string) (*RSI, bool) {
	e, ok := r.engines[id]
	return e, ok
}

// Len returns the number of instruments with an engine.
func (r *Registry) Len() int { return len(r.engines) }

// Instruments returns the identifiers that have an engine, sorted.
func (r *Registry) Instruments() []string {
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

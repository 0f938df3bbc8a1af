package engine

import (
	"sort"
	"sync"
)

// Registry is the registration table an engine owns: partial text and helper
// functions keyed by name. It is safe for concurrent use.
type Registry struct {
	sync.RWMutex

	partials map[string]string
	helpers  map[string]interface{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		partials: make(map[string]string),
		helpers:  make(map[string]interface{}),
	}
}

// SavePartial stores the partial text under name, replacing any previous
// value.
func (r *Registry) SavePartial(name, contents string) {
	r.Lock()
	defer r.Unlock()

	r.partials[name] = contents
}

// SaveHelper stores the helper under name, replacing any previous value.
func (r *Registry) SaveHelper(name string, fn interface{}) {
	r.Lock()
	defer r.Unlock()

	r.helpers[name] = fn
}

// Partial recalls the partial text registered under name.
func (r *Registry) Partial(name string) (string, bool) {
	r.RLock()
	defer r.RUnlock()

	p, ok := r.partials[name]
	return p, ok
}

// Helper recalls the helper registered under name.
func (r *Registry) Helper(name string) (interface{}, bool) {
	r.RLock()
	defer r.RUnlock()

	h, ok := r.helpers[name]
	return h, ok
}

// Partials returns a copy of the partial table.
func (r *Registry) Partials() map[string]string {
	r.RLock()
	defer r.RUnlock()

	m := make(map[string]string, len(r.partials))
	for k, v := range r.partials {
		m[k] = v
	}
	return m
}

// Helpers returns a copy of the helper table.
func (r *Registry) Helpers() map[string]interface{} {
	r.RLock()
	defer r.RUnlock()

	m := make(map[string]interface{}, len(r.helpers))
	for k, v := range r.helpers {
		m[k] = v
	}
	return m
}

// Names returns the sorted names of all registered partials and helpers.
func (r *Registry) Names() (partials, helpers []string) {
	r.RLock()
	defer r.RUnlock()

	for k := range r.partials {
		partials = append(partials, k)
	}
	for k := range r.helpers {
		helpers = append(helpers, k)
	}
	sort.Strings(partials)
	sort.Strings(helpers)
	return partials, helpers
}

// Reset clears all registrations.
func (r *Registry) Reset() {
	r.Lock()
	defer r.Unlock()

	for k := range r.partials {
		delete(r.partials, k)
	}
	for k := range r.helpers {
		delete(r.helpers, k)
	}
}

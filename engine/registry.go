package engine

import (
	"sort"
	"sync"
)

// Registry holds the default engine and any named instanced engines.
// Engines are independent; the registry only guards its own map, callers
// still serialize calls into each engine.
type Registry struct {
	mu        sync.RWMutex
	def       *Engine
	instances map[string]*Engine
}

// NewRegistry creates a registry around the default engine.
func NewRegistry(def *Engine) *Registry {
	return &Registry{def: def, instances: map[string]*Engine{}}
}

// Default returns the default engine.
func (r *Registry) Default() *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// Get returns the named engine, or the default engine if there is none.
func (r *Registry) Get(name string) *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.instances[name]; ok {
		return e
	}
	return r.def
}

// Add registers an instanced engine under its name, replacing and tearing
// down any engine already there.
func (r *Registry) Add(e *Engine) {
	r.mu.Lock()
	old := r.instances[e.Name]
	r.instances[e.Name] = e
	r.mu.Unlock()
	if old != nil && old != e {
		teardown(old)
	}
}

// Remove tears down and forgets the named engine. The default engine
// cannot be removed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	e, ok := r.instances[name]
	delete(r.instances, name)
	r.mu.Unlock()
	if ok {
		teardown(e)
	}
	return ok
}

// Names returns the instanced engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRound starts a new round on every engine.
func (r *Registry) NewRound() {
	r.mu.RLock()
	engines := []*Engine{r.def}
	for _, e := range r.instances {
		engines = append(engines, e)
	}
	r.mu.RUnlock()
	for _, e := range engines {
		e.NewRound()
	}
}

func teardown(e *Engine) {
	if e.Lifecycle.Teardown != nil {
		e.Lifecycle.Teardown(e)
	}
	e.logger.Debug().Msg("ruleset torn down")
}

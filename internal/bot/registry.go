package bot

import (
	"fmt"
	"slices"
	"sync"
)

// Registry holds registered modules in registration order.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
}

// NewRegistry creates a new module registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a module to the registry. Module names must be unique;
// registering a name twice panics, like database/sql drivers do.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(m.Name()) >= 0 {
		panic(fmt.Sprintf("bot: module %q registered twice", m.Name()))
	}
	r.modules = append(r.modules, m)
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(name)
	if idx < 0 {
		return nil, false
	}
	return r.modules[idx], true
}

// Modules returns a snapshot of all registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.modules)
}

func (r *Registry) indexOf(name string) int {
	return slices.IndexFunc(r.modules, func(m Module) bool {
		return m.Name() == name
	})
}

// globalRegistry collects modules that register themselves from init().
var globalRegistry = NewRegistry()

// Register adds a module to the global registry.
func Register(m Module) {
	globalRegistry.Register(m)
}

// Modules returns all modules from the global registry.
func Modules() []Module {
	return globalRegistry.Modules()
}

// ResetGlobalRegistry resets the global registry. Tests only.
func ResetGlobalRegistry() {
	globalRegistry = NewRegistry()
}

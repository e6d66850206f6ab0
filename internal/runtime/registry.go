package runtime

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps runtime names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	scripts   map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		scripts:   make(map[string]string),
	}
}

// Register adds a runtime under name together with the script file it runs
// when configuration does not name one.
func (r *Registry) Register(name, defaultScript string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("runtime name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("runtime %q: factory cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("duplicate runtime %q", name)
	}
	r.factories[name] = factory
	r.scripts[name] = defaultScript
	return nil
}

// New builds an uninitialized runtime by name.
func (r *Registry) New(name string, opts Options) (ScriptRuntime, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no runtime registered as %q (available: %v)", name, r.Names())
	}
	return factory(opts), nil
}

// DefaultScript returns the script file registered for name.
func (r *Registry) DefaultScript(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scripts[name]
}

// Names returns the registered runtime names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

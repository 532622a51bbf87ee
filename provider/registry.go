package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry holds named factories and the instances created from them.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
	instances map[string]T
}

// NewRegistry creates an empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]Factory[T]),
		instances: make(map[string]T),
	}
}

// RegisterFactory registers factory under name, replacing any previous one.
func (r *Registry[T]) RegisterFactory(name string, factory Factory[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create builds a new instance with the named factory. The instance is not cached.
func (r *Registry[T]) Create(name string, cfg map[string]any) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("provider factory %q not registered", name)
	}
	return factory(cfg)
}

// Resolve returns the cached instance for name, creating and caching it on
// first use.
func (r *Registry[T]) Resolve(name string, cfg map[string]any) (T, error) {
	if inst, ok := r.Get(name); ok {
		return inst, nil
	}
	inst, err := r.Create(name, cfg)
	if err != nil {
		return inst, err
	}
	r.Set(name, inst)
	return inst, nil
}

// Get returns a cached instance.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// Set caches instance under name.
func (r *Registry[T]) Set(name string, instance T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[name] = instance
}

// List returns the sorted names of all registered factories.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Available returns the sorted names of cached instances whose availability check passes.
func (r *Registry[T]) Available(ctx context.Context) []string {
	r.mu.RLock()
	candidates := make(map[string]T, len(r.instances))
	for name, inst := range r.instances {
		candidates[name] = inst
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(candidates))
	for name, inst := range candidates {
		if inst.IsAvailable(ctx) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

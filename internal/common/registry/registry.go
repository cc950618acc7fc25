// Package registry provides a generic, thread-safe name-to-handler registry.
//
// The router resolves plugins and argument decoders by name at request time;
// both are populated once at startup through a Registry instead of being
// discovered by reflection.
//
// Example usage:
//
//	decoders := registry.New[DecodeFunc]("decode algorithm")
//	decoders.Register("base64", decodeBase64)
//	fn, err := decoders.Get("base64")
package registry

import (
	"fmt"
	"sort"
	"sync"

	"plugin-router/internal/common/errors"
)

// Registry maps names to values of type T.
type Registry[T any] struct {
	kind    string
	entries map[string]T
	mu      sync.RWMutex
}

// New creates an empty registry. kind is used in not-found messages.
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: make(map[string]T),
	}
}

// Register adds or replaces the entry for name.
func (r *Registry[T]) Register(name string, entry T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = entry
}

// Get retrieves the entry registered under name.
// Returns a not_found AppError if nothing is registered.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	entry, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		var zero T
		return zero, errors.NotFoundError(fmt.Sprintf("%s %s", r.kind, name)).WithContext("name", name)
	}

	return entry, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if name is registered.
func (r *Registry[T]) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[name]
	return exists
}

// Count returns the number of registered entries.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

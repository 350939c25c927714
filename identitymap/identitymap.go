// Package identitymap keeps at most one live instance per identity without
// owning the instances: entries hold weak pointers and dead entries are
// purged when they are next looked at.
package identitymap

import (
	"errors"
	"fmt"
	"sync"
	"weak"
)

var (
	// ErrDuplicateInstance a different live instance is already mapped to the identity
	ErrDuplicateInstance = errors.New("duplicate instance for identity")
	// ErrNotFound no live instance is mapped to the identity
	ErrNotFound = errors.New("identity not found")
)

// Map identity => weakly held instance, safe for concurrent use
type Map[T any] struct {
	mu      sync.Mutex
	entries map[string]weak.Pointer[T]
}

// New creates an empty map
func New[T any]() *Map[T] {
	return &Map[T]{entries: map[string]weak.Pointer[T]{}}
}

// Add maps id to obj. Adding the instance already mapped is a no-op,
// adding a different instance while the mapped one is alive fails with ErrDuplicateInstance.
func (m *Map[T]) Add(id string, obj *T) error {
	if obj == nil {
		return fmt.Errorf("identity map: nil object for %q", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if wp, ok := m.entries[id]; ok {
		if existing := wp.Value(); existing != nil {
			if existing == obj {
				return nil
			}
			return fmt.Errorf("%w %q", ErrDuplicateInstance, id)
		}
	}

	m.entries[id] = weak.Make(obj)
	return nil
}

// CanAdd reports the error Add would return without mapping anything
func (m *Map[T]) CanAdd(id string, obj *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wp, ok := m.entries[id]; ok {
		if existing := wp.Value(); existing != nil && existing != obj {
			return fmt.Errorf("%w %q", ErrDuplicateInstance, id)
		}
	}
	return nil
}

// Contains reports whether a live instance is mapped to id, dead entries are removed
func (m *Map[T]) Contains(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(id) != nil
}

// Lookup returns the live instance mapped to id
func (m *Map[T]) Lookup(id string) (*T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obj := m.live(id); obj != nil {
		return obj, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
}

// Find is Lookup without the error
func (m *Map[T]) Find(id string) (*T, bool) {
	obj, err := m.Lookup(id)
	return obj, err == nil
}

func (m *Map[T]) live(id string) *T {
	wp, ok := m.entries[id]
	if !ok {
		return nil
	}

	obj := wp.Value()
	if obj == nil {
		delete(m.entries, id)
	}
	return obj
}

// Remove deletes the entry for id unconditionally
func (m *Map[T]) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
}

// RemoveObject deletes the entry for id only while it maps to obj
func (m *Map[T]) RemoveObject(id string, obj *T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wp, ok := m.entries[id]; ok && wp.Value() == obj {
		delete(m.entries, id)
		return true
	}
	return false
}

// Replace moves obj from oldID to newID, used when an object's identity changes
func (m *Map[T]) Replace(oldID, newID string, obj *T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if wp, ok := m.entries[newID]; ok && oldID != newID {
		if existing := wp.Value(); existing != nil && existing != obj {
			return fmt.Errorf("%w %q", ErrDuplicateInstance, newID)
		}
	}

	if wp, ok := m.entries[oldID]; ok && wp.Value() == obj {
		delete(m.entries, oldID)
	}
	m.entries[newID] = weak.Make(obj)
	return nil
}

// ClearAll empties the map
func (m *Map[T]) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]weak.Pointer[T]{}
}

// Len counts live entries, dead entries are removed
func (m *Map[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.entries {
		m.live(id)
	}
	return len(m.entries)
}

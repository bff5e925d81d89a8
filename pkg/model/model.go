// Package model resolves registry model identifiers to validation models.
//
// A Descriptor validates request data (path parameters, query and body merged
// into one object) before it is sent. Descriptors come from two places: Go
// types registered in a Table, usually generated structs wrapped with Struct,
// and JSON Schema artifacts compiled with Schema. A Catalog binds every model
// named by a registry to one descriptor, once, at startup.
package model

import (
	"fmt"
	"sort"
	"sync"
)

// Descriptor validates payloads for one model.
type Descriptor interface {
	Identifier() string
	Validate(payload any) error
}

// Factory creates a descriptor.
type Factory func() (Descriptor, error)

// Table maps model identifiers to factories. Register is safe for
// concurrent use but tables are normally filled from init functions.
type Table struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering an identifier twice is an error.
func (t *Table) Register(identifier string, factory Factory) error {
	if identifier == "" {
		return fmt.Errorf("model identifier is empty")
	}
	if factory == nil {
		return fmt.Errorf("model %s: nil factory", identifier)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.factories[identifier]; exists {
		return fmt.Errorf("model %s already registered", identifier)
	}
	t.factories[identifier] = factory
	return nil
}

// MustRegister is Register that panics on error, for init functions.
func (t *Table) MustRegister(identifier string, factory Factory) {
	if err := t.Register(identifier, factory); err != nil {
		panic(err)
	}
}

// Lookup returns the factory for identifier.
func (t *Table) Lookup(identifier string) (Factory, bool) {
	if t == nil {
		return nil, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	f, ok := t.factories[identifier]
	return f, ok
}

// Identifiers returns the registered identifiers, sorted.
func (t *Table) Identifiers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.factories))
	for id := range t.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Package program stores compiled modules under generated identifiers.
package program

import (
	"fmt"
	"sync"
	"time"

	"promptgate/pkg/predict"
)

// Entry is one compiled module and where it came from.
type Entry struct {
	ID            string
	SignatureName string
	Module        *predict.Module
	NumBootstraps int
	CreatedAt     time.Time
}

// Registry holds compiled modules. Identifiers are "<signature>_opt_<n>"
// with n counted per signature and never reused.
type Registry struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	counters map[string]int
	now      func() time.Time
}

// NewRegistry returns an empty registry whose counters start at zero.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[string]*Entry),
		counters: make(map[string]int),
		now:      time.Now,
	}
}

// Add allocates the next identifier for signatureName and stores a copy of
// module under it. Allocation and insertion happen under one lock.
func (r *Registry) Add(signatureName string, module *predict.Module, numBootstraps int) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.counters[signatureName]
	r.counters[signatureName] = n + 1
	id := fmt.Sprintf("%s_opt_%d", signatureName, n)

	m := module.Clone()
	m.ID = id
	m.CreatedAt = r.now()

	e := &Entry{
		ID:            id,
		SignatureName: signatureName,
		Module:        m,
		NumBootstraps: numBootstraps,
		CreatedAt:     m.CreatedAt,
	}
	r.entries[id] = e
	return e
}

// Get returns the compiled module stored under id.
func (r *Registry) Get(id string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Len reports how many compiled modules are stored.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

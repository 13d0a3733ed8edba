package ctx

import (
	"context"
	"log/slog"

	"github.com/wiseagents/hectormesh/registry"
)

// Store wraps a registry.Registry to get-or-create Context values by
// name, satisfying the lazy-or-explicit creation lifecycle of spec §3.
type Store struct {
	reg *registry.Registry
	ext registry.ExternalStore
}

// NewStore returns a Store backed by reg, with contexts kept purely
// in-memory.
func NewStore(reg *registry.Registry) *Store {
	return &Store{reg: reg}
}

// NewStoreWithExternalStore returns a Store whose contexts mirror their
// trace and participant state into ext as they're written (spec's
// use_redis seam, registry.ExternalStore) and hydrate from it on first
// creation, so a second process sharing ext observes the same state.
func NewStoreWithExternalStore(reg *registry.Registry, ext registry.ExternalStore) *Store {
	return &Store{reg: reg, ext: ext}
}

// GetOrCreate returns the Context named name, creating an empty one if it
// does not already exist. Repeated calls with the same name return the
// same *Context (spec §8's context idempotence property).
func (s *Store) GetOrCreate(name string) *Context {
	handle := s.reg.GetOrCreateContext(name, func() registry.ContextHandle {
		c := New(name)
		if s.ext != nil {
			if err := c.SetExternalStore(context.Background(), s.ext); err != nil {
				slog.Default().Error("hydrate context from external store failed", "context", name, "error", err)
			}
		}
		return c
	})
	return handle.(*Context)
}

// Get returns the Context named name, or nil if it does not exist.
func (s *Store) Get(name string) (*Context, bool) {
	handle, ok := s.reg.GetContext(name)
	if !ok {
		return nil, false
	}
	return handle.(*Context), true
}

// Remove deletes the context named name.
func (s *Store) Remove(name string) error {
	return s.reg.RemoveContext(name)
}

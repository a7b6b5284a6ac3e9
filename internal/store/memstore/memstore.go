// Package memstore is the reference in-memory authz.Store: a
// sync.RWMutex-guarded set of tuples, filtered by object first on read,
// mirroring the teacher engine's own locking convention
// (pkg/authz/engine.go's sync.RWMutex over its tuple graph).
package memstore

import (
	"context"
	"sync"

	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
)

// Store is a hash-set backend: O(1) average write/delete, O(n) scan filtered
// on object first for reads, as spec'd for the reference implementation.
type Store struct {
	mu     sync.RWMutex
	tuples map[authz.RelationTuple]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{tuples: make(map[authz.RelationTuple]struct{})}
}

// Read returns every stored tuple matching object and, when non-nil,
// relation and user.
func (s *Store) Read(_ context.Context, object authz.Object, relation *authz.Relation, user *authz.User) ([]authz.RelationTuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []authz.RelationTuple
	for t := range s.tuples {
		if t.Object != object {
			continue
		}
		if relation != nil && t.Relation != *relation {
			continue
		}
		if user != nil && t.User != *user {
			continue
		}
		matches = append(matches, t)
	}
	return matches, nil
}

// Write inserts tuple, or returns authz.ErrAlreadyExists if already present.
func (s *Store) Write(_ context.Context, tuple authz.RelationTuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tuples[tuple]; ok {
		return authz.ErrAlreadyExists
	}
	s.tuples[tuple] = struct{}{}
	return nil
}

// Delete removes tuple, or returns authz.ErrNotFound if absent.
func (s *Store) Delete(_ context.Context, tuple authz.RelationTuple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tuples[tuple]; !ok {
		return authz.ErrNotFound
	}
	delete(s.tuples, tuple)
	return nil
}

var _ authz.Store = (*Store)(nil)

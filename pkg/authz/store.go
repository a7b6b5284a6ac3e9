package authz

import (
	"context"
	"errors"
)

// ErrAlreadyExists is returned by Store.Write when the exact tuple is already present.
var ErrAlreadyExists = errors.New("tuple already exists")

// ErrNotFound is returned by Store.Delete when the exact tuple is not present.
var ErrNotFound = errors.New("tuple not found")

// Store is the pluggable tuple-storage boundary the evaluator reads from and
// the Service writes to. Implementations must honor the AlreadyExists/NotFound
// return-code contract; any other failure should be an opaque error, which the
// Service wraps as a StorageError.
//
// The evaluator issues exactly two read shapes: Read(object, &relation, nil)
// and Read(object, &relation, &user) — a production backend may index
// (namespace, object, relation) and (namespace, object, relation, user) for
// sub-linear reads.
type Store interface {
	// Read returns every stored tuple whose Object matches, and whose
	// Relation/User match when non-nil. Ordering is unspecified.
	Read(ctx context.Context, object Object, relation *Relation, user *User) ([]RelationTuple, error)
	// Write persists tuple, or returns ErrAlreadyExists if already present.
	Write(ctx context.Context, tuple RelationTuple) error
	// Delete removes tuple, or returns ErrNotFound if absent.
	Delete(ctx context.Context, tuple RelationTuple) error
}

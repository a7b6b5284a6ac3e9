package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/zanzibar/internal/store/sqlstore"
	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
)

func newSQLiteStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	db, err := sqlstore.OpenSQLite("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := sqlstore.New(context.Background(), db, sqlstore.DialectSQLite)
	require.NoError(t, err)
	return store
}

func TestSQLiteWriteReadDeleteRoundTrip(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	tuple := authz.RelationTuple{
		Object:   authz.Object{Namespace: "doc", ID: "1"},
		Relation: "viewer",
		User:     authz.UserID("bob"),
	}

	require.NoError(t, store.Write(ctx, tuple))

	got, err := store.Read(ctx, tuple.Object, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []authz.RelationTuple{tuple}, got)

	require.NoError(t, store.Delete(ctx, tuple))
	got, err = store.Read(ctx, tuple.Object, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteWriteDuplicateIsAlreadyExists(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	tuple := authz.RelationTuple{
		Object:   authz.Object{Namespace: "doc", ID: "2"},
		Relation: "viewer",
		User:     authz.UserID("bob"),
	}

	require.NoError(t, store.Write(ctx, tuple))
	assert.ErrorIs(t, store.Write(ctx, tuple), authz.ErrAlreadyExists)
}

func TestSQLiteDeleteAbsentIsNotFound(t *testing.T) {
	store := newSQLiteStore(t)
	tuple := authz.RelationTuple{
		Object:   authz.Object{Namespace: "doc", ID: "3"},
		Relation: "viewer",
		User:     authz.UserID("bob"),
	}
	assert.ErrorIs(t, store.Delete(context.Background(), tuple), authz.ErrNotFound)
}

func TestSQLiteRoundTripsUsersetUser(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	tuple := authz.RelationTuple{
		Object:   authz.Object{Namespace: "doc", ID: "4"},
		Relation: "viewer",
		User:     authz.UsersetUser(authz.Object{Namespace: "group", ID: "eng"}, "member"),
	}

	require.NoError(t, store.Write(ctx, tuple))
	got, err := store.Read(ctx, tuple.Object, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, tuple.User, got[0].User)
}

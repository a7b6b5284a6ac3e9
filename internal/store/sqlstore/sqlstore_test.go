package sqlstore_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/zanzibar/internal/store/sqlstore"
	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
)

func newMockStore(t *testing.T) (*sqlstore.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS relation_tuples")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := sqlstore.New(context.Background(), db, sqlstore.DialectPostgres)
	require.NoError(t, err)
	return store, mock
}

func sampleTuple() authz.RelationTuple {
	return authz.RelationTuple{
		Object:   authz.Object{Namespace: "doc", ID: "1"},
		Relation: "viewer",
		User:     authz.UserID("bob"),
	}
}

func TestWriteTranslatesUniqueViolationToAlreadyExists(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO relation_tuples")).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "relation_tuples_unique"`))

	err := store.Write(context.Background(), sampleTuple())
	assert.ErrorIs(t, err, authz.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteWrapsOtherDriverErrors(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO relation_tuples")).
		WillReturnError(errors.New("connection reset by peer"))

	err := store.Write(context.Background(), sampleTuple())
	require.Error(t, err)
	assert.NotErrorIs(t, err, authz.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteZeroRowsAffectedIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM relation_tuples")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), sampleTuple())
	assert.ErrorIs(t, err, authz.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOneRowAffectedSucceeds(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM relation_tuples")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete(context.Background(), sampleTuple())
	assert.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadScansRows(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{
		"namespace", "object_id", "relation", "user_is_userset", "user_id", "user_namespace", "user_object_id", "user_relation",
	}).AddRow("doc", "1", "viewer", 0, "bob", "", "", "")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT namespace, object_id, relation, user_is_userset, user_id, user_namespace, user_object_id, user_relation")).
		WillReturnRows(rows)

	got, err := store.Read(context.Background(), authz.Object{Namespace: "doc", ID: "1"}, nil, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].User.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

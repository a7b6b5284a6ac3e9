// Package sqlstore implements authz.Store on top of database/sql, usable
// with any driver that accepts one of the two placeholder dialects below.
// It is wired to lib/pq (Postgres) and modernc.org/sqlite (embeddable,
// pure-Go) in cmd/zanzibar, grounded on the teacher's
// pkg/store/receipt_store_sqlite.go migrate-then-query shape.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/Mindburn-Labs/zanzibar/pkg/authz"
)

// Dialect selects the placeholder syntax and any dialect-specific SQL the
// Store emits. Both dialects share one schema and one query shape.
type Dialect int

const (
	// DialectSQLite speaks "?" placeholders (modernc.org/sqlite, lib/pq's
	// cousin drivers that don't support numbered params).
	DialectSQLite Dialect = iota
	// DialectPostgres speaks "$1", "$2", ... placeholders (lib/pq).
	DialectPostgres
)

const schema = `
CREATE TABLE IF NOT EXISTS relation_tuples (
	namespace        TEXT NOT NULL,
	object_id        TEXT NOT NULL,
	relation         TEXT NOT NULL,
	user_is_userset  INTEGER NOT NULL,
	user_id          TEXT NOT NULL,
	user_namespace   TEXT NOT NULL,
	user_object_id   TEXT NOT NULL,
	user_relation    TEXT NOT NULL,
	UNIQUE(namespace, object_id, relation, user_is_userset, user_id, user_namespace, user_object_id, user_relation)
)`

// Store is a database/sql-backed authz.Store. A unique index on the full
// tuple shape turns duplicate inserts into authz.ErrAlreadyExists and a
// zero-rows-affected delete into authz.ErrNotFound.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db as a Store, creating the relation_tuples table if absent.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

// placeholder returns the i-th (1-based) bind placeholder for s's dialect.
func (s *Store) placeholder(i int) string {
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Read returns every stored tuple matching object and, when non-nil,
// relation and user.
func (s *Store) Read(ctx context.Context, object authz.Object, relation *authz.Relation, user *authz.User) ([]authz.RelationTuple, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT namespace, object_id, relation, user_is_userset, user_id, user_namespace, user_object_id, user_relation
		FROM relation_tuples WHERE namespace = ` + s.placeholder(1) + ` AND object_id = ` + s.placeholder(2))
	args := []any{object.Namespace, object.ID}

	n := 2
	if relation != nil {
		n++
		query.WriteString(fmt.Sprintf(" AND relation = %s", s.placeholder(n)))
		args = append(args, string(*relation))
	}
	if user != nil {
		n++
		query.WriteString(fmt.Sprintf(" AND user_is_userset = %s", s.placeholder(n)))
		args = append(args, boolToInt(user.IsUserset))
		n++
		query.WriteString(fmt.Sprintf(" AND user_id = %s", s.placeholder(n)))
		args = append(args, user.ID)
		n++
		query.WriteString(fmt.Sprintf(" AND user_namespace = %s", s.placeholder(n)))
		args = append(args, user.Object.Namespace)
		n++
		query.WriteString(fmt.Sprintf(" AND user_object_id = %s", s.placeholder(n)))
		args = append(args, user.Object.ID)
		n++
		query.WriteString(fmt.Sprintf(" AND user_relation = %s", s.placeholder(n)))
		args = append(args, string(user.Relation))
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: read: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tuples []authz.RelationTuple
	for rows.Next() {
		t, err := scanTuple(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}
		tuples = append(tuples, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: read rows: %w", err)
	}
	return tuples, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTuple(row rowScanner) (authz.RelationTuple, error) {
	var (
		namespace, objectID, relation       string
		userIsUserset                       int
		userID, userNamespace, userObjectID string
		userRelation                        string
	)
	if err := row.Scan(&namespace, &objectID, &relation, &userIsUserset, &userID, &userNamespace, &userObjectID, &userRelation); err != nil {
		return authz.RelationTuple{}, err
	}

	user := authz.UserID(userID)
	if userIsUserset == 1 {
		user = authz.UsersetUser(authz.Object{Namespace: userNamespace, ID: userObjectID}, authz.Relation(userRelation))
	}

	return authz.RelationTuple{
		Object:   authz.Object{Namespace: namespace, ID: objectID},
		Relation: authz.Relation(relation),
		User:     user,
	}, nil
}

// Write inserts tuple, or returns authz.ErrAlreadyExists on a unique
// constraint violation.
func (s *Store) Write(ctx context.Context, tuple authz.RelationTuple) error {
	query := fmt.Sprintf(`INSERT INTO relation_tuples
		(namespace, object_id, relation, user_is_userset, user_id, user_namespace, user_object_id, user_relation)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
		s.placeholder(5), s.placeholder(6), s.placeholder(7), s.placeholder(8))

	_, err := s.db.ExecContext(ctx, query,
		tuple.Object.Namespace, tuple.Object.ID, string(tuple.Relation),
		boolToInt(tuple.User.IsUserset), tuple.User.ID,
		tuple.User.Object.Namespace, tuple.User.Object.ID, string(tuple.User.Relation),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return authz.ErrAlreadyExists
		}
		return fmt.Errorf("sqlstore: write: %w", err)
	}
	return nil
}

// Delete removes tuple, or returns authz.ErrNotFound if no row matched.
func (s *Store) Delete(ctx context.Context, tuple authz.RelationTuple) error {
	query := fmt.Sprintf(`DELETE FROM relation_tuples
		WHERE namespace = %s AND object_id = %s AND relation = %s
		AND user_is_userset = %s AND user_id = %s
		AND user_namespace = %s AND user_object_id = %s AND user_relation = %s`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
		s.placeholder(5), s.placeholder(6), s.placeholder(7), s.placeholder(8))

	res, err := s.db.ExecContext(ctx, query,
		tuple.Object.Namespace, tuple.Object.ID, string(tuple.Relation),
		boolToInt(tuple.User.IsUserset), tuple.User.ID,
		tuple.User.Object.Namespace, tuple.User.Object.ID, string(tuple.User.Relation),
	)
	if err != nil {
		return fmt.Errorf("sqlstore: delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	if affected == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// isUniqueViolation recognizes the unique-constraint error text both
// lib/pq and modernc.org/sqlite surface, without importing either driver
// package here (sqlstore stays driver-agnostic; only cmd/zanzibar imports
// the drivers themselves).
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

var _ authz.Store = (*Store)(nil)

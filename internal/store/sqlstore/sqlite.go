package sqlstore

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens a pure-Go, cgo-free SQLite database at path (use
// "file::memory:?cache=shared" for an ephemeral dev/test database) suitable
// for passing to New with DialectSQLite.
func OpenSQLite(path string) (*sql.DB, error) {
	return sql.Open("sqlite", path)
}

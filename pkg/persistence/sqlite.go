// Package persistence provides the best-effort storage sinks for evolution
// runs: a versioned expert store, a local embedding store, and a decision
// log, all backed by SQLite.
package persistence

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/foxruv/iris-go/pkg/errors"
)

// openDB opens a SQLite database in WAL mode. Use ":memory:" for an
// in-memory database.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailed, "failed to open SQLite database"),
			errors.Fields{"path": path},
		)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to enable WAL mode")
	}

	return db, nil
}

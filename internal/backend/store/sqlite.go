package store

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// NewSQLiteStore opens a SQLite backed store. ":memory:" keeps the rows for the
// lifetime of the store.
func NewSQLiteStore(connectionString string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	return newSQLStore(db, questionMark, "sqlite://"+connectionString), nil
}

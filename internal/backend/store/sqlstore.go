package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jo-hoe/qrsheet/internal/backend/model"
)

const createTableStatement = `CREATE TABLE IF NOT EXISTS store_rows (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	c1 TEXT, c2 TEXT, c3 TEXT, c4 TEXT, c5 TEXT, c6 TEXT, c7 TEXT
)`

const valueColumns = "c1, c2, c3, c4, c5, c6, c7"

// placeholderFunc renders the n-th (1-based) bind parameter of a dialect.
type placeholderFunc func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// SQLStore keeps rows in the store_rows table, ordered by position.
type SQLStore struct {
	db          *sql.DB
	placeholder placeholderFunc
	url         string
}

func newSQLStore(db *sql.DB, placeholder placeholderFunc, url string) *SQLStore {
	return &SQLStore{db: db, placeholder: placeholder, url: url}
}

// Open creates the table if needed.
func (s *SQLStore) Open(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableStatement); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (s *SQLStore) ReadAll(ctx context.Context) ([]model.StoreRow, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+valueColumns+" FROM store_rows ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []model.StoreRow
	for rows.Next() {
		values := make([]sql.NullString, model.ColumnCount)
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(model.StoreRow, len(values))
		for i, v := range values {
			row[i] = v.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return out, nil
}

// WriteFromTop replaces the first len(rows) rows.
func (s *SQLStore) WriteFromTop(ctx context.Context, rows [][]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		query := "DELETE FROM store_rows WHERE position < " + s.placeholder(1)
		if _, err := tx.ExecContext(ctx, query, len(rows)); err != nil {
			return fmt.Errorf("failed to clear rows: %w", err)
		}
		return s.insert(ctx, tx, 0, rows)
	})
}

func (s *SQLStore) Append(ctx context.Context, rows [][]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var last int
		err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(position), -1) FROM store_rows").Scan(&last)
		if err != nil {
			return fmt.Errorf("failed to find last row: %w", err)
		}
		return s.insert(ctx, tx, last+1, rows)
	})
}

func (s *SQLStore) URL() string {
	return s.url
}

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) insert(ctx context.Context, tx *sql.Tx, start int, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	placeholders := make([]string, 2+model.ColumnCount)
	for i := range placeholders {
		placeholders[i] = s.placeholder(i + 1)
	}
	query := fmt.Sprintf("INSERT INTO store_rows (id, position, %s) VALUES (%s)",
		valueColumns, strings.Join(placeholders, ", "))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, values := range rows {
		args := []any{newRowID(), start + i}
		for _, v := range fitRow(values) {
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", start+i, err)
		}
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

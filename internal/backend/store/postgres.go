package store

import (
	"database/sql"
	"net/url"
	"regexp"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var dsnPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// NewPostgresStore opens a PostgreSQL backed store through pgx.
func NewPostgresStore(connectionString string) (*SQLStore, error) {
	db, err := sql.Open("pgx", connectionString)
	if err != nil {
		return nil, err
	}
	return newSQLStore(db, dollar, redactConnectionString(connectionString)), nil
}

// redactConnectionString hides the password of a URL or key/value connection string.
func redactConnectionString(connectionString string) string {
	if u, err := url.Parse(connectionString); err == nil && u.Scheme != "" && u.User != nil {
		return u.Redacted()
	}
	return dsnPassword.ReplaceAllString(connectionString, "${1}xxxxx")
}

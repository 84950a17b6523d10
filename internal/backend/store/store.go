// Package store persists normalized rows in a tabular store addressed by position.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/qrsheet/internal/backend/model"
)

// Store types accepted by NewStore.
const (
	TypeSheets   = "sheets"
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Store is a worksheet-like sink: an ordered list of rows that can be read in full,
// written starting at the first row, or appended to.
type Store interface {
	// Open prepares the store, creating it when it does not exist yet.
	Open(ctx context.Context) error
	ReadAll(ctx context.Context) ([]model.StoreRow, error)
	// WriteFromTop writes rows starting at the first row of the store.
	WriteFromTop(ctx context.Context, rows [][]string) error
	Append(ctx context.Context, rows [][]string) error
	// URL identifies the store for humans. Secrets are never part of it.
	URL() string
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	Type             string `yaml:"type"`
	SpreadsheetName  string `yaml:"spreadsheetName"`
	WorksheetName    string `yaml:"worksheetName"`
	CredentialsFile  string `yaml:"credentialsFile"`
	ShareWithAnyone  bool   `yaml:"shareWithAnyone"`
	ConnectionString string `yaml:"connectionString"`
}

// SupportedTypes lists the store types NewStore can build.
func SupportedTypes() []string {
	return []string{TypeSheets, TypeSQLite, TypePostgres}
}

func NewStore(ctx context.Context, config Config) (store Store, err error) {
	switch config.Type {
	case TypeSheets:
		store, err = NewSheetsStore(ctx, config)
	case TypeSQLite:
		store, err = NewSQLiteStore(config.ConnectionString)
	case TypePostgres:
		store, err = NewPostgresStore(config.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", config.Type, err)
	}

	slog.Info("Store: created", "type", config.Type, "url", store.URL())
	return store, nil
}

// fitRow pads or cuts values to the store width.
func fitRow(values []string) []string {
	row := make([]string, model.ColumnCount)
	copy(row, values)
	return row
}

// Package store persists scan snapshots. The file driver keeps a single JSON
// document on disk; the postgres driver keeps one JSONB row per scan.
package store

//go:generate mockgen -destination=mocks/mock_result_store.go -package=mocks github.com/anstrom/netenum/internal/store ResultStore

import (
	"context"
	"fmt"
	"io"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/db"
	"github.com/anstrom/netenum/internal/scanning"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// ResultStore saves and loads the latest scan snapshot.
type ResultStore interface {
	// Persist writes the full snapshot. Failures carry CodePersistenceFailed.
	Persist(ctx context.Context, scan *scanning.Scan) error
	// Load returns the latest snapshot, or an error with CodeNotFound.
	Load(ctx context.Context) (*scanning.Scan, error)
	// Open returns the latest snapshot as a JSON document.
	Open(ctx context.Context) (io.ReadCloser, error)
}

var (
	_ ResultStore = (*FileStore)(nil)
	_ ResultStore = (*PostgresStore)(nil)
)

// New builds the store selected by cfg.Driver. The returned close function
// releases the database connection, if any.
func New(ctx context.Context, cfg config.StorageConfig) (ResultStore, func() error, error) {
	switch cfg.Driver {
	case "", DriverFile:
		return NewFileStore(cfg.Path), func() error { return nil }, nil
	case DriverPostgres:
		database, err := db.ConnectAndMigrate(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(database), database.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

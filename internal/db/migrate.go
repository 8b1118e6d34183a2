package db

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/anstrom/netenum/internal/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		applied_at TIMESTAMPTZ DEFAULT NOW(),
		checksum VARCHAR(64) NOT NULL
	)`

// appliedMigration is a row of schema_migrations.
type appliedMigration struct {
	Name     string `db:"name"`
	Checksum string `db:"checksum"`
}

// script is an embedded migration that has not been recorded yet.
type script struct {
	name string
	sql  string
}

func (s script) checksum() string {
	sum := sha256.Sum256([]byte(s.sql))
	return hex.EncodeToString(sum[:])
}

// Migrator applies the embedded snapshot schema. Each migration runs in its
// own transaction together with its schema_migrations row.
type Migrator struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewMigrator(db *sqlx.DB) *Migrator {
	return &Migrator{db: db, logger: logging.Default().WithComponent("migrate")}
}

// migrationNames lists the embedded migration files in apply order.
func migrationNames() ([]string, error) {
	files, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

func (m *Migrator) pending(ctx context.Context) ([]script, error) {
	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	var rows []appliedMigration
	if err := m.db.SelectContext(ctx, &rows, `SELECT name, checksum FROM schema_migrations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]string, len(rows))
	for _, r := range rows {
		applied[r.Name] = r.Checksum
	}

	files, err := migrationNames()
	if err != nil {
		return nil, err
	}

	var todo []script
	for _, file := range files {
		content, err := migrationFiles.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		s := script{name: strings.TrimSuffix(path.Base(file), ".sql"), sql: string(content)}

		sum, done := applied[s.name]
		if !done {
			todo = append(todo, s)
			continue
		}
		if sum != s.checksum() {
			m.logger.Warn("Applied migration differs from embedded copy", "name", s.name)
		}
	}
	return todo, nil
}

func (m *Migrator) apply(ctx context.Context, s script) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", s.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.sql); err != nil {
		return fmt.Errorf("apply %s: %w", s.name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name, checksum) VALUES ($1, $2)`,
		s.name, s.checksum()); err != nil {
		return fmt.Errorf("record %s: %w", s.name, err)
	}
	return tx.Commit()
}

// Up applies every migration not yet recorded in schema_migrations.
func (m *Migrator) Up(ctx context.Context) error {
	todo, err := m.pending(ctx)
	if err != nil {
		return err
	}
	for _, s := range todo {
		if err := m.apply(ctx, s); err != nil {
			return err
		}
		m.logger.Info("Applied migration", "name", s.name)
	}
	return nil
}

// ConnectAndMigrate opens the snapshot database and brings its schema up to date.
func ConnectAndMigrate(ctx context.Context, config *Config) (*DB, error) {
	database, err := Connect(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := NewMigrator(database.DB).Up(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return database, nil
}

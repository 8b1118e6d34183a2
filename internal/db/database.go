// Package db provides PostgreSQL connectivity for netenum.
// It owns connection setup, pool tuning, schema migrations and the
// sanitisation of driver errors before they reach logs or API clients.
package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/logging"
)

const (
	defaultPostgresPort    = 5432
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5
	defaultConnMaxIdleTime = 5
)

// DB wraps sqlx.DB with additional functionality.
type DB struct {
	*sqlx.DB
}

// Config holds database configuration.
type Config struct {
	Host            string        `yaml:"host" json:"host"`
	Port            int           `yaml:"port" json:"port"`
	Database        string        `yaml:"database" json:"database"`
	Username        string        `yaml:"username" json:"username"`
	Password        string        `yaml:"password" json:"password"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time"`
}

// DefaultConfig returns the default database configuration.
// Database name, username, and password must be explicitly configured.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            defaultPostgresPort,
		SSLMode:         "disable",
		MaxOpenConns:    defaultMaxOpenConns,
		MaxIdleConns:    defaultMaxIdleConns,
		ConnMaxLifetime: defaultConnMaxLifetime * time.Minute,
		ConnMaxIdleTime: defaultConnMaxIdleTime * time.Minute,
	}
}

// DSN renders the key=value connection string understood by lib/pq.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// Connect establishes a connection to PostgreSQL.
// Returned errors never include the DSN.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", config.DSN())
	if err != nil {
		return nil, errors.WrapStorageError(errors.CodePersistenceFailed, "Failed to connect to database", "connect", err)
	}

	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(config.MaxIdleConns)
	conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.WrapStorageError(errors.CodePersistenceFailed, "Failed to verify database connection", "ping", err)
	}

	logging.Info("Connected to database", "host", config.Host, "port", config.Port, "database", config.Database)
	return &DB{DB: conn}, nil
}

// Wrap adapts an existing sqlx handle, mainly for tests driven by sqlmock.
func Wrap(conn *sqlx.DB) *DB {
	return &DB{DB: conn}
}

// SanitizeError converts raw driver errors into storage errors that are safe
// to surface. The original error is kept as the cause for internal logging.
func SanitizeError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NewStorageError(errors.CodeNotFound, "No scan results found", operation)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case "57014": // query_canceled
			return errors.WrapStorageError(errors.CodeCanceled, "Database operation was canceled", operation, err)
		case "08000", "08003", "08006", "57P01":
			return errors.WrapStorageError(errors.CodePersistenceFailed, "Database connection error", operation, err)
		}
	}

	return errors.WrapStorageError(errors.CodePersistenceFailed,
		fmt.Sprintf("Database operation failed: %s", operation), operation, err)
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

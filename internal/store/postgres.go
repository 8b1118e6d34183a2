package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/netenum/internal/db"
	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/scanning"
)

const (
	upsertSnapshotQuery = `
		INSERT INTO scan_snapshots (id, network, started_at, ended_at, host_count, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			ended_at = EXCLUDED.ended_at,
			host_count = EXCLUDED.host_count,
			snapshot = EXCLUDED.snapshot,
			updated_at = NOW()`

	latestSnapshotQuery = `
		SELECT snapshot FROM scan_snapshots
		ORDER BY updated_at DESC
		LIMIT 1`
)

// PostgresStore keeps one JSONB snapshot row per scan and serves the most
// recently updated one.
type PostgresStore struct {
	db *db.DB
}

// NewPostgresStore creates a store on an already migrated database.
func NewPostgresStore(database *db.DB) *PostgresStore {
	return &PostgresStore{db: database}
}

// Persist implements ResultStore.
func (s *PostgresStore) Persist(ctx context.Context, scan *scanning.Scan) error {
	id, err := uuid.Parse(scan.ID)
	if err != nil {
		return errors.WrapStorageError(errors.CodePersistenceFailed, "Scan has no valid id", "persist snapshot", err)
	}

	data, err := json.Marshal(scan)
	if err != nil {
		return errors.ErrPersistence("encode snapshot", err)
	}

	var endedAt *time.Time
	if scan.End != nil {
		t := fromUnixSeconds(*scan.End)
		endedAt = &t
	}

	_, err = s.db.ExecContext(ctx, upsertSnapshotQuery,
		id, scan.Network, fromUnixSeconds(scan.Start), endedAt, len(scan.Hosts), data)
	if err != nil {
		return db.SanitizeError("persist snapshot", err)
	}
	return nil
}

// Load implements ResultStore.
func (s *PostgresStore) Load(ctx context.Context) (*scanning.Scan, error) {
	data, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}

	var scan scanning.Scan
	if err := json.Unmarshal(data, &scan); err != nil {
		return nil, errors.WrapStorageError(errors.CodePersistenceFailed, "Snapshot is not valid JSON", "load", err)
	}
	return &scan, nil
}

// Open implements ResultStore. The stored document is re-indented to match
// the file driver's layout.
func (s *PostgresStore) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "    "); err != nil {
		return nil, errors.WrapStorageError(errors.CodePersistenceFailed, "Snapshot is not valid JSON", "open", err)
	}
	return io.NopCloser(&buf), nil
}

func (s *PostgresStore) latest(ctx context.Context) ([]byte, error) {
	var data []byte
	if err := s.db.GetContext(ctx, &data, latestSnapshotQuery); err != nil {
		return nil, db.SanitizeError("load snapshot", err)
	}
	return data, nil
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second))).UTC()
}

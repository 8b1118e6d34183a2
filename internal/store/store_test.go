package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/netenum/internal/config"
	"github.com/anstrom/netenum/internal/db"
	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/scanning"
)

const testScanID = "6f1c2a0e-3b7d-4c55-9a3e-0d2b8f6a1e42"

func sampleScan() *scanning.Scan {
	scan := scanning.NewScan(testScanID, "192.168.1.0/24", time.Unix(1700000000, 0))
	scan.AddHost(&scanning.Host{
		IP:       "192.168.1.1",
		Hostname: scanning.StringPtr("router"),
		OpenPorts: []scanning.Port{
			{Port: 80, State: "open", Service: "http", Version: scanning.StringPtr("nginx 1.24")},
		},
	})
	return scan
}

func TestFileStorePersistAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan_results.json")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Persist(ctx, sampleScan()))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.0/24", loaded.Network)
	require.Len(t, loaded.Hosts, 1)
	assert.Equal(t, "nginx 1.24", *loaded.Hosts[0].OpenPorts[0].Version)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n    \"id\""), "snapshot is indented with four spaces")
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "scan_results.json"))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Persist(context.Background(), sampleScan()))
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "scan_results.json", entries[0].Name())
}

func TestFileStoreMissingSnapshot(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	_, err := s.Load(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	_, err = s.Open(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestFileStoreCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan_results.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodePersistenceFailed))
}

func TestFileStorePersistFailure(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "missing-dir", "scan_results.json"))

	err := s.Persist(context.Background(), sampleScan())
	assert.True(t, errors.IsCode(err, errors.CodePersistenceFailed))
}

func TestFileStoreOpenReturnsRawDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan_results.json")
	s := NewFileStore(path)
	require.NoError(t, s.Persist(context.Background(), sampleScan()))

	rc, err := s.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	want, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func newMockPostgresStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgresStore(db.Wrap(sqlx.NewDb(mockDB, "postgres"))), mock
}

func TestPostgresStorePersist(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	scan := sampleScan()

	mock.ExpectExec("INSERT INTO scan_snapshots").
		WithArgs(sqlmock.AnyArg(), "192.168.1.0/24", time.Unix(1700000000, 0).UTC(), nil, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Persist(context.Background(), scan))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePersistRejectsMissingID(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	scan := sampleScan()
	scan.ID = ""

	err := s.Persist(context.Background(), scan)
	assert.True(t, errors.IsCode(err, errors.CodePersistenceFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePersistError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec("INSERT INTO scan_snapshots").WillReturnError(sql.ErrConnDone)

	err := s.Persist(context.Background(), sampleScan())
	assert.True(t, errors.IsCode(err, errors.CodePersistenceFailed))
}

func TestPostgresStoreLoad(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	data, err := json.Marshal(sampleScan())
	require.NoError(t, err)
	mock.ExpectQuery("SELECT snapshot FROM scan_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot"}).AddRow(data))

	scan, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testScanID, scan.ID)
	assert.Len(t, scan.Hosts, 1)
}

func TestPostgresStoreLoadEmpty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT snapshot FROM scan_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot"}))

	_, err := s.Load(context.Background())
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestPostgresStoreOpenIndents(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery("SELECT snapshot FROM scan_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"snapshot"}).AddRow([]byte(`{"network":"10.0.0.0/30"}`)))

	rc, err := s.Open(context.Background())
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"network\": \"10.0.0.0/30\"\n}", string(got))
}

func TestNewSelectsDriver(t *testing.T) {
	s, closeFn, err := New(context.Background(), config.StorageConfig{Driver: DriverFile, Path: "x.json"})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.NoError(t, closeFn())

	_, _, err = New(context.Background(), config.StorageConfig{Driver: "s3"})
	assert.Error(t, err)
}

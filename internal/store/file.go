package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/scanning"
)

const snapshotFilePerm = 0o644

// FileStore keeps the latest snapshot in a single JSON file. Writes go to a
// temp file in the same directory which is then renamed over the target,
// so readers only ever see a complete document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Persist implements ResultStore.
func (s *FileStore) Persist(_ context.Context, scan *scanning.Scan) error {
	data, err := json.MarshalIndent(scan, "", "    ")
	if err != nil {
		return errors.ErrPersistence("encode snapshot", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.path, data); err != nil {
		return errors.ErrPersistence("write snapshot", err)
	}
	return nil
}

// Load implements ResultStore.
func (s *FileStore) Load(_ context.Context) (*scanning.Scan, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ErrNoSnapshot()
		}
		return nil, errors.WrapStorageError(errors.CodePersistenceFailed, "Failed to read snapshot", "load", err)
	}

	var scan scanning.Scan
	if err := json.Unmarshal(data, &scan); err != nil {
		return nil, errors.WrapStorageError(errors.CodePersistenceFailed, "Snapshot is not valid JSON", "load", err)
	}
	return &scan, nil
}

// Open implements ResultStore. The file is returned as written.
func (s *FileStore) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ErrNoSnapshot()
		}
		return nil, errors.WrapStorageError(errors.CodePersistenceFailed, "Failed to open snapshot", "open", err)
	}
	return f, nil
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), snapshotFilePerm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

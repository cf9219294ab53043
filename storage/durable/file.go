package durable

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/c360/boundcache/errors"
)

const snapshotExt = ".snapshot"

// FileStore keeps one file per namespace in a directory. Writes go to a
// temporary file that is renamed over the target, so readers see either the
// previous record or the new one.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "FileStore", "NewFileStore", "dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapFatal(err, "FileStore", "NewFileStore", "create directory")
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the directory holding the snapshot files.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(namespace string) string {
	return filepath.Join(s.dir, EncodeKey(namespace)+snapshotExt)
}

// Read returns the record for namespace.
func (s *FileStore) Read(ctx context.Context, namespace string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(namespace))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, notFound("FileStore", "Read", namespace)
		}
		return nil, errors.WrapTransient(err, "FileStore", "Read", "read snapshot")
	}
	return data, nil
}

// Write atomically replaces the record for namespace.
func (s *FileStore) Write(ctx context.Context, namespace string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := s.path(namespace)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return errors.WrapTransient(err, "FileStore", "Write", "create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapTransient(err, "FileStore", "Write", "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.WrapTransient(err, "FileStore", "Write", "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapTransient(err, "FileStore", "Write", "close temp file")
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return errors.WrapTransient(err, "FileStore", "Write", "rename snapshot")
	}
	return nil
}

// Delete removes the record for namespace, if any.
func (s *FileStore) Delete(ctx context.Context, namespace string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.path(namespace)); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.WrapTransient(err, "FileStore", "Delete", "remove snapshot")
	}
	return nil
}

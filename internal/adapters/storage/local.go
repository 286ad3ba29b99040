// Package storage provides the archive storage adapters behind the
// download stage.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/gmalt/hgt/internal/domain"
	"github.com/gmalt/hgt/internal/ports/output"
)

// LocalStorage implements ObjectStorage for archives already on disk.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a local storage adapter rooted at basePath.
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{basePath: basePath}
}

// Download copies an archive into dest. Copying a file onto itself is
// a no-op, so a working folder can double as its own mirror.
func (s *LocalStorage) Download(ctx context.Context, obj output.StorageObject, dest string) error {
	srcPath := filepath.Join(s.basePath, obj.Key)
	if srcPath == dest {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}

	src, err := os.Open(srcPath) //#nosec G304 -- path rooted at the configured base
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.StorageError{Operation: "download", Key: obj.Key, Err: domain.ErrObjectNotFound}
		}
		return &domain.StorageError{Operation: "download", Key: obj.Key, Err: err}
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(dest) //#nosec G304 -- dest is a controlled local path
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	_, err = io.Copy(dst, src)
	return err
}

// Exists checks if an archive exists under the base path.
func (s *LocalStorage) Exists(ctx context.Context, obj output.StorageObject) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, obj.Key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &domain.StorageError{Operation: "exists", Key: obj.Key, Err: err}
}

// FullPath returns the full path for a key.
func (s *LocalStorage) FullPath(key string) string {
	return filepath.Join(s.basePath, key)
}

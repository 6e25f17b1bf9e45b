package roadmap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists roadmap blobs as plain files. Writes go through a
// temporary file and rename so a crash mid-write never corrupts an existing
// roadmap.
type FileStore struct{}

// NewFileStore creates a FileStore.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Save writes data to path atomically, creating parent directories as needed.
//
// Postcondition: On success the file at path contains exactly data; on error
// any previous file at path is untouched.
func (fs *FileStore) Save(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating roadmap directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp roadmap file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing roadmap %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing roadmap %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing roadmap %s: %w", path, err)
	}
	return nil
}

// Load reads the blob at path.
func (fs *FileStore) Load(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roadmap %s: %w", path, err)
	}
	return data, nil
}

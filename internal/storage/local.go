package storage

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes uploads to a directory on disk. Storage names combine a
// millisecond timestamp with a random suffix plus the original extension, so
// concurrent uploads of identically named files never collide.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

var _ BlobStore = (*LocalStore)(nil)

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, r io.Reader, originalName, contentType string) (SavedObject, error) {
	name := storageName(originalName)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return SavedObject{}, fmt.Errorf("create %s: %w", name, err)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return SavedObject{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return SavedObject{}, fmt.Errorf("close %s: %w", name, err)
	}

	return SavedObject{Name: name, Path: path, Size: written}, nil
}

func storageName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d-%d%s", time.Now().UnixMilli(), rand.Int64N(1_000_000_000), ext)
}

package storage

import (
	"context"
	"io"
)

// SavedObject describes one persisted file. Size is the byte count actually
// written, which the ingestion pipeline records on the upload record.
type SavedObject struct {
	Name string // server-assigned storage name, unique
	Path string // where the bytes live (filesystem path or object URL)
	Size int64
}

// BlobStore persists raw upload bytes. Objects are written once at ingestion
// and never mutated afterwards.
type BlobStore interface {
	Save(ctx context.Context, r io.Reader, originalName, contentType string) (SavedObject, error)
}

// Package storage abstracts where generated files live: the local
// filesystem or an S3-compatible bucket (AWS S3, MinIO, R2).
//
//	m, _ := storage.FromEnv(ctx)
//	err := m.Default().Put(ctx, "exports/catalog-20261019.csv", data, "text/csv")
//	url := m.Default().URL("exports/catalog-20261019.csv")
package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: file not found")

// FileInfo describes a stored file.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Disk is a storage driver. Paths use forward slashes and are relative to
// the disk root.
type Disk interface {
	Put(ctx context.Context, path string, content []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// List returns the files under prefix, recursively, sorted by path.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
	URL(path string) string
}

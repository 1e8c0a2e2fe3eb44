// Package blob stores inspection documents (lab certificates, photos of
// sampling points) behind a small S3-like interface so the local
// filesystem, S3/MinIO, and an in-memory test backend are interchangeable.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local directory (default, dev)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// ErrNotFound is returned by Get when no blob exists at the key.
var ErrNotFound = errors.New("blob: not found")

// Info describes a stored blob.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the document storage contract. Keys are slash-separated paths
// owned by the caller; this layer applies no access control.
type Store interface {
	// Put stores a blob at key, overwriting any previous contents.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	// Get returns the blob's metadata and contents. ErrNotFound if missing.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Delete removes a blob. Returns (false, nil) when the key was absent.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key ascending.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver reports which backend is in use.
	Driver() Driver
}

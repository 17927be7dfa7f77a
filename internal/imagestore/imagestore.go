// Package imagestore persists uploaded product images so they can be shown
// again after the upload request has finished.
package imagestore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned by Get and Delete for an unknown storage key.
	ErrNotFound = errors.New("image not found")
	// ErrInvalidKey is returned for a content hash or storage key the store
	// could not have produced.
	ErrInvalidKey = errors.New("invalid image key")
)

// ImageStore keeps images addressed by the hex SHA-256 of their bytes. Saving
// the same content twice yields the same storage key and one stored copy.
type ImageStore interface {
	Save(ctx context.Context, contentHash, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

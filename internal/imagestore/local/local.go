// Package local stores images on the filesystem, one file per distinct
// content, named "<sha256>.<ext>".
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/ingredia/internal/imagestore"
)

const hashLen = 64

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes r under a key derived from contentHash. If that key already
// exists the reader is not consumed and the existing file is kept. Writes go
// to a temp file that is renamed into place, so readers never observe a
// partial image.
func (s *Store) Save(ctx context.Context, contentHash, mimeType string, r io.Reader) (string, error) {
	if !validHash(contentHash) {
		return "", fmt.Errorf("%w: content hash %q", imagestore.ErrInvalidKey, contentHash)
	}
	key := contentHash + extFor(mimeType)
	dst := filepath.Join(s.dir, key)

	if _, err := os.Stat(dst); err == nil {
		return key, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to stat image: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	discard := func() {
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Error("failed to remove temp image", "path", tmpName, "error", err)
		}
	}

	if _, err := io.Copy(tmp, r); err != nil {
		if cerr := tmp.Close(); cerr != nil {
			slog.Error("failed to close temp image after write error", "error", cerr)
		}
		discard()
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		discard()
		return "", fmt.Errorf("failed to close image: %w", err)
	}
	// Concurrent saves of the same content rename identical bytes onto the
	// same name; whichever lands last wins and the result is the same.
	if err := os.Rename(tmpName, dst); err != nil {
		discard()
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return key, nil
}

func (s *Store) Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error) {
	mimeType, err := parseKey(storageKey)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filepath.Join(s.dir, storageKey))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", imagestore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	return f, mimeType, nil
}

func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if _, err := parseKey(storageKey); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, storageKey)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return imagestore.ErrNotFound
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// parseKey accepts only names Save produces and returns the MIME type the
// extension stands for. A valid key has no separators, so it cannot leave dir.
func parseKey(storageKey string) (string, error) {
	hash, ext, ok := strings.Cut(storageKey, ".")
	if !ok || !validHash(hash) {
		return "", fmt.Errorf("%w: %q", imagestore.ErrInvalidKey, storageKey)
	}
	switch ext {
	case "jpg":
		return "image/jpeg", nil
	case "png":
		return "image/png", nil
	default:
		return "", fmt.Errorf("%w: %q", imagestore.ErrInvalidKey, storageKey)
	}
}

func validHash(h string) bool {
	if len(h) != hashLen {
		return false
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func extFor(mimeType string) string {
	if mimeType == "image/png" {
		return ".png"
	}
	return ".jpg"
}

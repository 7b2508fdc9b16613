// Package imagestore keeps uploaded and generated images as content-addressed
// files on disk. The reference handed out for an image is derived from its
// SHA-256 hash, so byte-identical uploads always resolve to the same reference
// and survive restarts.
package imagestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Ref identifies a stored image. The value is "<sha256 hex><ext>".
type Ref string

// refPattern guards against path traversal through handler-supplied IDs.
var refPattern = regexp.MustCompile(`^[0-9a-f]{64}\.(jpg|png|webp|bin)$`)

// ErrNotFound is returned when a reference does not resolve to a stored image.
var ErrNotFound = errors.New("image not found")

// Hash returns the content hash part of the reference.
func (r Ref) Hash() string {
	if i := strings.IndexByte(string(r), '.'); i > 0 {
		return string(r)[:i]
	}
	return string(r)
}

// Valid reports whether the reference has the expected shape.
func (r Ref) Valid() bool {
	return refPattern.MatchString(string(r))
}

// ContentType returns the MIME type implied by the reference extension.
func (r Ref) ContentType() string {
	switch filepath.Ext(string(r)) {
	case ".jpg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Store is a directory of content-addressed image files.
type Store struct {
	dir string
}

// New creates the backing directory if needed and returns a store.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("image store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create image store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// extensionFor sniffs the image format from the first bytes.
func extensionFor(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}

// Put stores the image and returns its reference. Storing the same bytes
// twice is a no-op that returns the same reference.
func (s *Store) Put(data []byte) (Ref, error) {
	if len(data) == 0 {
		return "", errors.New("empty image data")
	}

	sum := sha256.Sum256(data)
	ref := Ref(hex.EncodeToString(sum[:]) + extensionFor(data))

	path := filepath.Join(s.dir, string(ref))
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	// Write through a temp file so readers never observe a partial image.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store image: %w", err)
	}

	return ref, nil
}

// Get reads the image bytes for a reference.
func (s *Store) Get(ref Ref) ([]byte, error) {
	if !ref.Valid() {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, string(ref)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// Path returns the on-disk path for a reference without checking existence.
func (s *Store) Path(ref Ref) string {
	return filepath.Join(s.dir, string(ref))
}

// Delete removes a stored image. Deleting a missing image is not an error.
func (s *Store) Delete(ref Ref) error {
	if !ref.Valid() {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, string(ref)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

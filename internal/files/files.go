// Package files stores uploaded attachments on local disk. Files are
// written once and only ever served back statically.
package files

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/finledger/backend/internal/apperr"
)

// MaxUploadBytes caps a single uploaded file.
const MaxUploadBytes = 10 << 20

// Store writes uploads under a single directory.
type Store struct {
	dir string
}

// NewStore ensures the upload directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string { return s.dir }

// Save writes the content under a uuid-prefixed name and returns the public
// path it will be served from. Content past the size cap rejects the whole
// upload; nothing partial is ever left behind.
func (s *Store) Save(src io.Reader, originalName string) (string, error) {
	name := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeName(originalName))
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	// Read one byte past the cap so an oversized source is detectable
	// rather than silently cut off at the limit.
	written, err := io.Copy(dst, io.LimitReader(src, MaxUploadBytes+1))
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if written > MaxUploadBytes {
		os.Remove(path)
		return "", apperr.Newf(apperr.InvalidInput, "file exceeds the %d byte limit", MaxUploadBytes)
	}
	return "/uploads/" + name, nil
}

// sanitizeName strips path components and characters that have no business
// in a served file name.
func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "file"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}

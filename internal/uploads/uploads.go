// Package uploads stores clothing photos on disk under generated names.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"atelier/internal/config"
	"atelier/internal/textutil"
)

var (
	// ErrExtension is returned for files whose extension is not allowed.
	ErrExtension = errors.New("uploads: file type not allowed")
	// ErrTooLarge is returned when an upload exceeds the configured size.
	ErrTooLarge = errors.New("uploads: file too large")
	// ErrInvalidName is returned for stored names that could escape the upload directory.
	ErrInvalidName = errors.New("uploads: invalid file name")
	// ErrEmpty is returned when the upload carries no bytes.
	ErrEmpty = errors.New("uploads: empty file")
)

// Store writes uploads into a single directory.
type Store struct {
	dir      string
	maxBytes int64
	allowed  map[string]struct{}
}

// New builds a Store rooted at dir using the configured limits.
func New(dir string, cfg config.Uploads) *Store {
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			allowed[ext] = struct{}{}
		}
	}
	return &Store{dir: dir, maxBytes: cfg.MaxBytes, allowed: allowed}
}

// Dir returns the upload directory.
func (s *Store) Dir() string { return s.dir }

// MaxBytes returns the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Allowed reports whether filename has a permitted extension.
func (s *Store) Allowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(strings.TrimSpace(filename)), "."))
	if ext == "" {
		return false
	}
	_, ok := s.allowed[ext]
	return ok
}

// Extensions returns the permitted extensions, sorted.
func (s *Store) Extensions() []string {
	return slices.Sorted(maps.Keys(s.allowed))
}

// Save copies r into a new file named <uuid><ext> and returns that name.
// Partially written files are removed on failure.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	if !s.Allowed(originalName) {
		return "", fmt.Errorf("%w: %q", ErrExtension, filepath.Ext(originalName))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(s.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	reader := r
	if s.maxBytes > 0 {
		reader = io.LimitReader(r, s.maxBytes+1)
	}
	written, copyErr := io.Copy(file, reader)
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("write upload: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close upload: %w", closeErr)
	case s.maxBytes > 0 && written > s.maxBytes:
		err = fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	case written == 0:
		err = ErrEmpty
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return name, nil
}

// Path resolves a stored name to its location on disk.
func (s *Store) Path(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." ||
		strings.ContainsAny(trimmed, `/\`) || textutil.SanitizeFileName(trimmed) != trimmed {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, trimmed), nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DocumentSpool holds downloaded documents for the lifetime of one request
type DocumentSpool interface {
	Create(ext string) (*os.File, error)
	Remove(path string) error
	Dir() string
}

// Spool implements DocumentSpool using the local file system
type Spool struct {
	baseDir string
}

// NewSpool creates the spool directory if needed. An empty dir uses the OS temp dir.
func NewSpool(baseDir string) (*Spool, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "docqa")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &Spool{baseDir: baseDir}, nil
}

// Create opens a new uniquely named file with the given extension
func (s *Spool) Create(ext string) (*os.File, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(s.baseDir, uuid.New().String()+safeExt(ext))

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}
	return f, nil
}

// Remove deletes a spooled file. Missing files are not an error.
func (s *Spool) Remove(path string) error {
	if filepath.Dir(path) != filepath.Clean(s.baseDir) {
		return fmt.Errorf("refusing to remove %s outside spool %s", path, s.baseDir)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove spool file: %w", err)
	}
	return nil
}

func (s *Spool) Dir() string {
	return s.baseDir
}

// safeExt keeps alphanumeric extension characters only
func safeExt(ext string) string {
	if ext == "" {
		return ""
	}
	var b strings.Builder
	b.WriteByte('.')
	for _, r := range strings.ToLower(ext[1:]) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 || b.Len() > 10 {
		return ""
	}
	return b.String()
}

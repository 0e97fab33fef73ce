// Package uploads writes product images to a local directory served under /uploads.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PublicPrefix is the URL prefix stored files are served from.
const PublicPrefix = "/uploads/"

var (
	ErrTooLarge = errors.New("uploads: file exceeds the size limit")
	ErrEmpty    = errors.New("uploads: file is empty")
)

// Store saves uploaded files under dir.
type Store struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewStore returns a Store writing into dir. maxBytes <= 0 disables the limit.
func NewStore(dir string, maxBytes int64, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, maxBytes: maxBytes, logger: logger}
}

// Dir is the directory files are written to.
func (s *Store) Dir() string { return s.dir }

// MaxBytes is the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save writes r as <base>-<random hex><ext> and returns its public path.
// A partially written file is removed on failure.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("uploads: failed to create directory %s: %w", s.dir, err)
	}

	name := GenerateName(originalName)
	fullPath := filepath.Join(s.dir, name)

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("uploads: failed to create %s: %w", name, err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("uploads: failed to write %s: %w", name, copyErr)
	case closeErr != nil:
		err = fmt.Errorf("uploads: failed to close %s: %w", name, closeErr)
	case s.maxBytes > 0 && n > s.maxBytes:
		err = ErrTooLarge
	case n == 0:
		err = ErrEmpty
	}
	if err != nil {
		if rmErr := os.Remove(fullPath); rmErr != nil {
			s.logger.Warn("Failed to remove partial upload", zap.String("path", fullPath), zap.Error(rmErr))
		}
		return "", err
	}

	s.logger.Info("Stored upload", zap.String("file", name), zap.Int64("bytes", n))
	return PublicPrefix + name, nil
}

// GenerateName keeps the original base name and extension around a random suffix.
func GenerateName(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "image"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return stem + "-" + suffix + sanitizeExt(ext)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
	}
	return b.String()
}

func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	clean := sanitize(strings.TrimPrefix(ext, "."))
	if clean == "" {
		return ""
	}
	return "." + clean
}

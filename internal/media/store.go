// Package media stores issue and work-progress attachments on local
// disk and hands back the URLs the records carry.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists an uploaded file and returns its public URL
type Store interface {
	// Save writes the content of r under a sanitized version of name
	// and returns the URL to reference it by.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// LocalStore implements Store on the local filesystem. Files land
// under baseDir and are served under urlPrefix; uploads larger than
// maxSize are rejected.
type LocalStore struct {
	baseDir   string
	urlPrefix string
	maxSize   int64
	logger    *zap.Logger
}

// NewLocalStore creates a local media store rooted at baseDir
func NewLocalStore(baseDir, urlPrefix string, maxSize int64, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{
		baseDir:   baseDir,
		urlPrefix: strings.TrimSuffix(urlPrefix, "/"),
		maxSize:   maxSize,
		logger:    logger,
	}, nil
}

// Save writes the upload to disk. The stored filename is prefixed with
// a fresh id so two uploads of the same name never collide.
func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := sanitizeName(name)
	if clean == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	stored := uuid.NewString() + "_" + clean

	fullPath := filepath.Join(s.baseDir, stored)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	f, err := os.Create(fullPath)
	if err != nil {
		s.logger.Error("Failed to create media file",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	// One byte past the cap distinguishes "exactly at" from "over"
	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(fullPath)
		return "", fmt.Errorf("file %q exceeds the %d byte limit", name, s.maxSize)
	}

	s.logger.Debug("Media file saved",
		zap.String("name", stored),
		zap.Int64("size", written))

	return s.urlPrefix + "/" + stored, nil
}

// validatePath checks that the path stays within baseDir
func (s *LocalStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes media directory: %s", fullPath)
	}
	return nil
}

// sanitizeName strips directories and any character outside a safe set
func sanitizeName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

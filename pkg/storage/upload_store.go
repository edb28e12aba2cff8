package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// UploadStore saves uploaded files to disk under a base directory that is
// served statically. Files are renamed to a generated unique identifier plus
// the original extension so client-supplied names never reach the filesystem.
type UploadStore struct {
	basePath string
}

// NewUploadStore creates the base directory if missing.
func NewUploadStore(basePath string) (*UploadStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("upload base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &UploadStore{basePath: basePath}, nil
}

// Dir returns the base directory, for static file serving.
func (s *UploadStore) Dir() string {
	return s.basePath
}

// Save writes the uploaded content under a generated name and returns that name.
func (s *UploadStore) Save(originalName string, r io.Reader) (string, error) {
	name := uuid.NewString() + safeExt(originalName)
	target := filepath.Join(s.basePath, name)

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return name, nil
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if ext == "." || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}

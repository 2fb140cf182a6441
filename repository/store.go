// Package repository stores dumped configuration documents, either in a
// plain directory or in a git repository that records one commit per dump.
package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/declarr/declarr/faults"
)

// Store persists one dumped document under a file name and returns the full
// path written.
type Store interface {
	Write(name string, data []byte) (string, error)
}

// FilesystemStore writes dumps into a directory.
type FilesystemStore struct {
	baseDir string
}

func NewFilesystemStore(baseDir string) (*FilesystemStore, error) {
	dir, err := resolveBaseDir(baseDir)
	if err != nil {
		return nil, err
	}
	return &FilesystemStore{baseDir: dir}, nil
}

func (s *FilesystemStore) Write(name string, data []byte) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", faults.NewTypedError(faults.InternalError, "failed to create dump directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", faults.NewTypedError(faults.InternalError, fmt.Sprintf("failed to write dump %q", path), err)
	}
	return path, nil
}

func (s *FilesystemStore) resolve(name string) (string, error) {
	cleaned, err := cleanDumpName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

func resolveBaseDir(baseDir string) (string, error) {
	trimmed := strings.TrimSpace(baseDir)
	if trimmed == "" {
		return "", faults.NewTypedError(faults.ValidationError, "dump base-dir is required", nil)
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("invalid dump base-dir %q", baseDir), err)
	}
	return abs, nil
}

// cleanDumpName confines dump files to the store directory.
func cleanDumpName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", faults.NewTypedError(faults.ValidationError, "dump name is required", nil)
	}
	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("dump name %q escapes the store directory", name), nil)
	}
	return cleaned, nil
}

package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider reads one secret per file from a directory, the layout
// Kubernetes uses for mounted secrets. Files must not be readable by group
// or others.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider rooted at dir. dir must exist.
func NewFileProvider(dir string) (*FileProvider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets dir %q is not a directory", dir)
	}
	return &FileProvider{dir: dir}, nil
}

// Lookup implements Provider. Surrounding whitespace is trimmed.
func (p *FileProvider) Lookup(_ context.Context, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid secret name %q", name)
	}
	path := filepath.Join(p.dir, name)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: no file %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret %q is not a regular file", name)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		return "", fmt.Errorf("insecure permissions on secret %q: %o (expected 0600 or 0400)", name, perm)
	}

	// #nosec G304 - name is a single path element inside dir.
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Name implements Provider.
func (p *FileProvider) Name() string { return "file" }

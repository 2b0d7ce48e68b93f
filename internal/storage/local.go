package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes assets under a public directory served by the API.
// References are URL paths rooted at urlPrefix.
type LocalStorage struct {
	rootDir   string
	urlPrefix string
}

func NewLocalStorage(rootDir, urlPrefix string) *LocalStorage {
	if urlPrefix == "" {
		urlPrefix = "/"
	}
	return &LocalStorage{
		rootDir:   rootDir,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
	}
}

func (s *LocalStorage) Save(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean, err := CleanPath(name)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.rootDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move asset into place: %w", err)
	}

	return strings.TrimSuffix(s.urlPrefix, "/") + "/" + clean, nil
}

func (s *LocalStorage) EnsureDirectories() error {
	if err := os.MkdirAll(s.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}
	return nil
}

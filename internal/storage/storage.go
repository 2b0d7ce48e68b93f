// Package storage persists generated assets and returns the reference a
// client uses to fetch them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var ErrInvalidPath = errors.New("invalid asset path")

// AssetStore writes an asset at a relative, slash-separated path, replacing
// any previous content, and returns its public reference.
type AssetStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// CleanPath validates an asset path and returns it in canonical form.
func CleanPath(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return clean, nil
}

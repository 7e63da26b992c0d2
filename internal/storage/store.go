// Package storage keeps documents and images under relative paths such as
// "examination_documents/Cruz, Juan D..docx".
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound    = errors.New("stored file not found")
	ErrExists      = errors.New("stored file already exists")
	ErrInvalidPath = errors.New("invalid storage path")
)

// Store is the file backend for generated and uploaded artifacts.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) error
	// Create writes name only when nothing is stored there yet and
	// returns ErrExists otherwise.
	Create(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// Clean normalises name and rejects absolute or escaping paths.
func Clean(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return cleaned, nil
}

// SanitizeName strips characters that cannot appear in a file name.
func SanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "\x00", "", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	out := strings.TrimSpace(replacer.Replace(name))
	if out == "" || out == "." || out == ".." {
		return "unnamed"
	}
	return out
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps files below a root directory.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FileStore{root: abs}, nil
}

func (s *FileStore) resolve(name string) (string, error) {
	cleaned, err := Clean(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// Put writes to a temp file in the target directory and renames it into place.
func (s *FileStore) Put(ctx context.Context, name string, r io.Reader) error {
	target, tmp, err := s.stage(ctx, name, r)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	return os.Rename(tmp, target)
}

// Create hard-links the staged file into place, which fails atomically when
// the target already exists.
func (s *FileStore) Create(ctx context.Context, name string, r io.Reader) error {
	target, tmp, err := s.stage(ctx, name, r)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	err = os.Link(tmp, target)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	return err
}

// stage copies r into a temp file next to name's target.
func (s *FileStore) stage(ctx context.Context, name string, r io.Reader) (target, tmpName string, err error) {
	target, err = s.resolve(name)
	if err != nil {
		return "", "", err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmp.Name())
		return "", "", err
	}
	return target, tmp.Name(), nil
}

func (s *FileStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	target, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	target, err := s.resolve(name)
	if err != nil {
		return err
	}
	err = os.Remove(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	target, err := s.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe in-memory Store for tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, name string, r io.Reader) error {
	cleaned, err := Clean(name)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	s.mu.Lock()
	s.files[cleaned] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Create(_ context.Context, name string, r io.Reader) error {
	cleaned, err := Clean(name)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[cleaned]; ok {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	s.files[cleaned] = data
	return nil
}

func (s *MemoryStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	cleaned, err := Clean(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.files[cleaned]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, name string) error {
	cleaned, err := Clean(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.files, cleaned)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, name string) (bool, error) {
	cleaned, err := Clean(name)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	_, ok := s.files[cleaned]
	s.mu.RUnlock()
	return ok, nil
}

// Names lists stored paths in sorted order.
func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.files))
	for name := range s.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bytes returns a copy of a stored file.
func (s *MemoryStore) Bytes(name string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

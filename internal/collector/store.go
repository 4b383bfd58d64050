package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists collected reports newest first.
type Store interface {
	// Prepend stores reports ahead of everything already stored, keeping
	// their relative order, and returns the new total.
	Prepend(ctx context.Context, reports []json.RawMessage) (int, error)

	// List returns up to limit reports, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]json.RawMessage, error)

	// Close releases resources held by the store.
	Close() error
}

// OpenStore selects a store from target: a postgres:// or postgresql:// DSN
// opens a PostgresStore, anything else is a JSON file path.
func OpenStore(ctx context.Context, target string) (Store, error) {
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return NewPostgresStore(ctx, target)
	}
	return NewFileStore(target)
}

// FileStore keeps every report in a single JSON array on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a FileStore writing to path. The parent directory is
// created if needed; the file itself is created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Prepend implements Store.
func (s *FileStore) Prepend(_ context.Context, reports []json.RawMessage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := append(append([]json.RawMessage{}, reports...), s.read()...)
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode reports: %w", err)
	}

	// Readers never observe a partially written array.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".reports-*.json")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("failed to write reports: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to write reports: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return 0, fmt.Errorf("failed to replace store file: %w", err)
	}
	return len(merged), nil
}

// List implements Store.
func (s *FileStore) List(_ context.Context, limit int) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.read()
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// read loads the stored array. A missing or corrupt file reads as empty.
func (s *FileStore) read() []json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var existing []json.RawMessage
	if err := json.Unmarshal(data, &existing); err != nil {
		return nil
	}
	return existing
}

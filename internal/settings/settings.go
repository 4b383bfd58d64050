// Package settings persists user-adjustable classification thresholds.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/forest"
)

// Key is the storage key holding the thresholds.
const Key = "phish_settings"

// Storage is the key-value persistence settings are kept in.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// Store reads and writes thresholds.
type Store struct {
	storage  Storage
	defaults forest.Thresholds
	logger   *slog.Logger
}

// New creates a Store. defaults is returned whenever nothing valid is stored.
func New(storage Storage, defaults forest.Thresholds, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{storage: storage, defaults: defaults, logger: logger}
}

// Thresholds returns the stored thresholds, falling back to the defaults
// when none are stored or the stored value is unusable.
func (s *Store) Thresholds(ctx context.Context) (forest.Thresholds, error) {
	raw, err := s.storage.Get(ctx, Key)
	if errors.Is(err, database.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return forest.Thresholds{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var t forest.Thresholds
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		s.logger.Warn("stored settings are corrupt, using defaults", "error", err)
		return s.defaults, nil
	}
	if err := t.Validate(); err != nil {
		s.logger.Warn("stored thresholds are invalid, using defaults", "block", t.Block, "warn", t.Warn)
		return s.defaults, nil
	}
	return t, nil
}

// SetThresholds validates and stores t.
func (s *Store) SetThresholds(ctx context.Context, t forest.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.storage.Put(ctx, Key, string(data)); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// Reset restores the defaults.
func (s *Store) Reset(ctx context.Context) error {
	return s.SetThresholds(ctx, s.defaults)
}

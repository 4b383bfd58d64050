package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/model"
)

// Key is the storage key holding the queued reports.
const Key = "phish_reports"

// ErrNoEndpoint is returned by UploadAndPurge when no collector URL is given.
var ErrNoEndpoint = errors.New("no collector endpoint provided")

// Storage is the key-value persistence the queue runs on.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Update(ctx context.Context, key string, fn database.UpdateFunc) error
}

// Uploader sends reports to a collector.
type Uploader interface {
	Upload(ctx context.Context, endpoint string, reports []model.Report) (int, error)
}

// Queue is the local report queue.
type Queue struct {
	storage  Storage
	uploader Uploader
	logger   *slog.Logger
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used for storage warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// New creates a Queue.
func New(storage Storage, uploader Uploader, opts ...Option) *Queue {
	q := &Queue{
		storage:  storage,
		uploader: uploader,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Append places r at the front of the queue.
func (q *Queue) Append(ctx context.Context, r model.Report) error {
	err := q.storage.Update(ctx, Key, func(current string, found bool) (string, error) {
		reports := q.decode(current, found)
		reports = append([]model.Report{r}, reports...)
		return encode(reports)
	})
	if err != nil {
		return fmt.Errorf("failed to append report: %w", err)
	}
	return nil
}

// List returns the queued reports, newest first. Absent or corrupt storage
// reads as an empty queue.
func (q *Queue) List(ctx context.Context) ([]model.Report, error) {
	current, err := q.storage.Get(ctx, Key)
	if errors.Is(err, database.ErrNotFound) {
		return []model.Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}
	return q.decode(current, true), nil
}

// Clear empties the queue.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.storage.Put(ctx, Key, "[]"); err != nil {
		return fmt.Errorf("failed to clear reports: %w", err)
	}
	return nil
}

// UploadAndPurge sends the queued reports to endpoint in one request and, on
// success, removes them from the queue. It returns the number of reports sent.
//
// A blank endpoint fails with ErrNoEndpoint before storage is read. An empty
// queue returns 0 without contacting the collector. When the upload fails the
// queue is left untouched and the uploader's error is returned.
func (q *Queue) UploadAndPurge(ctx context.Context, endpoint string) (int, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return 0, ErrNoEndpoint
	}

	snapshot, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(snapshot) == 0 {
		return 0, nil
	}

	if _, err := q.uploader.Upload(ctx, endpoint, snapshot); err != nil {
		return 0, err
	}

	sent := make(map[string]struct{}, len(snapshot))
	for _, r := range snapshot {
		sent[r.ID] = struct{}{}
	}
	err = q.storage.Update(ctx, Key, func(current string, found bool) (string, error) {
		reports := q.decode(current, found)
		kept := reports[:0]
		for _, r := range reports {
			if _, ok := sent[r.ID]; !ok {
				kept = append(kept, r)
			}
		}
		return encode(kept)
	})
	if err != nil {
		// The collector has the reports; a later upload may send them again.
		return len(snapshot), fmt.Errorf("uploaded %d reports but failed to purge them: %w", len(snapshot), err)
	}

	q.logger.Info("uploaded reports", "count", len(snapshot))
	return len(snapshot), nil
}

// decode parses the stored array. Entries that do not parse are skipped, and
// a value that is not an array reads as empty.
func (q *Queue) decode(current string, found bool) []model.Report {
	if !found || current == "" {
		return []model.Report{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(current), &raw); err != nil {
		q.logger.Warn("stored reports are corrupt, treating queue as empty", "error", err)
		return []model.Report{}
	}

	reports := make([]model.Report, 0, len(raw))
	for i, item := range raw {
		var r model.Report
		if err := json.Unmarshal(item, &r); err != nil {
			q.logger.Warn("skipping corrupt report", "index", i, "error", err)
			continue
		}
		reports = append(reports, r)
	}
	return reports
}

func encode(reports []model.Report) (string, error) {
	data, err := json.Marshal(reports)
	if err != nil {
		return "", fmt.Errorf("failed to encode reports: %w", err)
	}
	return string(data), nil
}

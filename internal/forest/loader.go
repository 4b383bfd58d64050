package forest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

type loadState int

const (
	stateUnloaded loadState = iota
	stateLoading
	stateLoaded
)

// pendingLoad is shared by every caller waiting on the same in-flight load.
// model and err are written once before done is closed.
type pendingLoad struct {
	done  chan struct{}
	model *Model
	err   error
}

// Loader fetches a model at most once per successful load and caches it.
type Loader struct {
	source   Source
	logger   *slog.Logger
	timeout  time.Duration
	maxDepth int

	mu      sync.Mutex
	state   loadState
	pending *pendingLoad
	model   *Model
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger used to report load progress.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithLoadTimeout bounds a single fetch-and-decode attempt.
// Zero means no timeout.
func WithLoadTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.timeout = d
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) LoaderOption {
	return func(l *Loader) {
		if depth > 0 {
			l.maxDepth = depth
		}
	}
}

// NewLoader creates a Loader in the unloaded state.
func NewLoader(source Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		source:   source,
		logger:   slog.New(slog.DiscardHandler),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the cached model, loading it first if necessary.
//
// Callers arriving while a load is in flight wait for that load instead of
// starting their own. The fetch itself is detached from the cancellation of
// the caller that started it; ctx only bounds how long each caller waits.
// On failure the loader returns to the unloaded state and the error is a
// *LoadError.
func (l *Loader) Load(ctx context.Context) (*Model, error) {
	l.mu.Lock()
	switch l.state {
	case stateLoaded:
		m := l.model
		l.mu.Unlock()
		return m, nil
	case stateLoading:
		p := l.pending
		l.mu.Unlock()
		return wait(ctx, p)
	default:
		p := &pendingLoad{done: make(chan struct{})}
		l.pending = p
		l.state = stateLoading
		l.mu.Unlock()

		go l.run(context.WithoutCancel(ctx), p)
		return wait(ctx, p)
	}
}

// Model returns the cached model, or nil if no load has completed.
func (l *Loader) Model() *Model {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model
}

func (l *Loader) run(ctx context.Context, p *pendingLoad) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	m, err := l.fetch(ctx)

	l.mu.Lock()
	if err != nil {
		l.state = stateUnloaded
		p.err = &LoadError{Source: l.source.String(), Err: err}
		l.logger.Warn("model load failed", "source", l.source.String(), "error", err)
	} else {
		l.state = stateLoaded
		l.model = m
		p.model = m
		l.logger.Info("model loaded",
			"source", l.source.String(),
			"trees", len(m.Trees),
			"features", len(m.FeatureNames),
			"duration", time.Since(start))
	}
	l.pending = nil
	close(p.done)
	l.mu.Unlock()
}

func (l *Loader) fetch(ctx context.Context) (*Model, error) {
	rc, err := l.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	m, err := DecodeWithDepth(io.LimitReader(rc, MaxArtifactSize), l.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return m, nil
}

func wait(ctx context.Context, p *pendingLoad) (*Model, error) {
	select {
	case <-p.done:
		return p.model, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nao1215/phishscan/internal/config"
	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/forest"
	"github.com/nao1215/phishscan/internal/indicator"
	"github.com/nao1215/phishscan/internal/page"
	"github.com/nao1215/phishscan/internal/pipeline"
	"github.com/nao1215/phishscan/internal/queue"
	"github.com/nao1215/phishscan/internal/settings"
	"github.com/nao1215/phishscan/internal/tor"
)

// engine owns everything a classification needs: the database, the report
// queue, the model loader and, when Tor is used, the embedded daemon.
type engine struct {
	db       *database.DB
	queue    *queue.Queue
	loader   *forest.Loader
	batch    *pipeline.BatchProcessor
	embedded *tor.EmbeddedTor
	logger   *slog.Logger
}

// newEngine wires the classification pipeline from cfg. Progress messages
// about Tor startup go to status. Close must be called when done.
func newEngine(ctx context.Context, cfg *config.Config, status io.Writer, logger *slog.Logger) (_ *engine, err error) {
	db, err := openDB(cfg, logger)
	if err != nil {
		return nil, err
	}
	e := &engine{
		db:     db,
		queue:  newQueue(db, cfg, logger),
		logger: logger,
	}
	defer func() {
		if err != nil {
			_ = e.Close() //nolint:errcheck // Best effort cleanup
		}
	}()

	var fetcher pipeline.PageFetcher
	if cfg.Fetch {
		client, err := e.httpClient(ctx, cfg, status)
		if err != nil {
			return nil, err
		}
		fetcher = page.NewFetcher(client,
			page.WithUserAgent(cfg.UserAgent),
			page.WithMaxBodySize(cfg.MaxBodySize),
			page.WithTor(cfg.UseTor),
			page.WithLogger(logger),
		)
	}

	e.loader = forest.NewLoader(modelSource(cfg),
		forest.WithLoaderLogger(logger),
		forest.WithLoadTimeout(cfg.ModelTimeout),
	)
	thresholds := settings.New(db, cfg.Thresholds, logger)
	inspector := indicator.New(indicator.WithLogger(logger))

	factory := func() *pipeline.Pipeline {
		p := pipeline.New(pipeline.WithLogger(logger))
		if fetcher != nil {
			p.AddSteps(
				pipeline.NewFetchStep(fetcher, logger),
				pipeline.NewIndicatorStep(inspector, logger),
			)
		}
		p.AddSteps(
			pipeline.NewExtractStep(logger),
			pipeline.NewClassifyStep(e.loader, thresholds),
			pipeline.NewReportStep(e.queue, logger),
			pipeline.NewHistoryStep(db),
		)
		return p
	}

	e.batch = pipeline.NewBatchProcessor(factory,
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.BatchSize),
	)
	return e, nil
}

// httpClient returns the client pages are fetched with: direct, through an
// external Tor proxy, or through an embedded Tor daemon.
func (e *engine) httpClient(ctx context.Context, cfg *config.Config, status io.Writer) (*http.Client, error) {
	if !cfg.UseTor {
		return &http.Client{Timeout: cfg.FetchTimeout}, nil
	}

	if cfg.EmbeddedTor {
		client, err := e.startEmbeddedTor(ctx, cfg, status)
		if err != nil {
			return nil, err
		}
		return client.NewHTTPClient(), nil
	}

	client, err := tor.NewClient(cfg.TorProxyAddress, cfg.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
		return nil, fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s)",
			st, cfg.TorProxyAddress)
	}
	e.logger.Info("Tor proxy connection verified", "address", cfg.TorProxyAddress)
	return client.NewHTTPClient(), nil
}

// startEmbeddedTor starts a private Tor daemon and returns a client that
// uses its SOCKS port. The daemon is stopped by Close.
func (e *engine) startEmbeddedTor(ctx context.Context, cfg *config.Config, status io.Writer) (*tor.Client, error) {
	fmt.Fprintln(status, "Starting embedded Tor daemon...")
	fmt.Fprintf(status, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
		tor.WithEmbeddedLogger(e.logger),
	)
	if err := embedded.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	e.embedded = embedded

	e.logger.Info("embedded Tor daemon started",
		"socksAddr", embedded.SocksAddr(),
		"controlAddr", embedded.ControlAddr(),
	)
	fmt.Fprintf(status, "SOCKS proxy: %s\n\n", embedded.SocksAddr())

	client, err := embedded.NewClient(cfg.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if st := client.CheckConnection(ctx); st != tor.ProxyStatusOK {
		return nil, fmt.Errorf("embedded Tor proxy check failed: %s", st)
	}
	return client, nil
}

// Close stops the embedded Tor daemon, if any, and closes the database.
func (e *engine) Close() error {
	if e.embedded != nil {
		e.logger.Info("stopping embedded Tor daemon...")
		if err := e.embedded.Stop(); err != nil {
			e.logger.Error("failed to stop embedded Tor", "error", err)
		}
		e.embedded = nil
	}
	return e.db.Close()
}

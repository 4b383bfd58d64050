package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/phishscan/internal/collector"
	"github.com/nao1215/phishscan/internal/config"
	"github.com/spf13/cobra"
)

// NewCollectorCmd creates the collector command.
func NewCollectorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Run the service that receives uploaded reports",
		Long: `Collector accepts report uploads on POST /report and stores them newest
first. Stored reports can be read back with GET /reports?limit=n.

The store is a JSON file by default. A postgres:// or postgresql:// DSN
stores reports in PostgreSQL instead. Each client address is rate limited.

Examples:
  # Store reports in the XDG data directory
  phishscan collector

  # Listen on port 9090 and store reports in PostgreSQL
  phishscan collector -l :9090 --store postgres://user@localhost/phish?sslmode=disable`,
		Args: cobra.NoArgs,
		RunE: runCollectorCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultCollectorAddress,
		"Address to listen on")
	cmd.Flags().StringP("store", "s", "",
		"JSON file path or PostgreSQL DSN (default: reports.json in the data directory)")
	cmd.Flags().Float64("rate", config.DefaultCollectorRateLimit,
		"Sustained uploads per second allowed per client (0 disables the limit)")
	cmd.Flags().Int("burst", config.DefaultCollectorBurst,
		"Uploads a client may send in a burst")

	return cmd
}

func runCollectorCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, func(cfg *config.Config) error {
		flags := cmd.Flags()
		if err := override(cmd, "listen", flags.GetString, &cfg.CollectorAddress); err != nil {
			return err
		}
		if err := override(cmd, "store", flags.GetString, &cfg.CollectorStore); err != nil {
			return err
		}
		if err := override(cmd, "rate", flags.GetFloat64, &cfg.CollectorRateLimit); err != nil {
			return err
		}
		return override(cmd, "burst", flags.GetInt, &cfg.CollectorBurst)
	})
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	store, err := collector.OpenStore(ctx, cfg.CollectorStore)
	if err != nil {
		return fmt.Errorf("failed to open report store: %w", err)
	}
	defer store.Close()

	srv := collector.NewServer(store,
		collector.WithServerLogger(logger),
		collector.WithRateLimit(cfg.CollectorRateLimit, cfg.CollectorBurst),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "Collector listening on %s\n", cfg.CollectorAddress)
	err = srv.ListenAndServe(ctx, cfg.CollectorAddress)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

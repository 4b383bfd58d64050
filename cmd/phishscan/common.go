package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nao1215/phishscan/internal/collector"
	"github.com/nao1215/phishscan/internal/config"
	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/forest"
	"github.com/nao1215/phishscan/internal/log"
	"github.com/nao1215/phishscan/internal/queue"
	"github.com/nao1215/phishscan/internal/report"
	"github.com/spf13/cobra"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the config path from the command or its parent.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// override copies the value of flag name into dst when the user set it.
// Flags left at their default never mask values from the config file.
func override[T any](cmd *cobra.Command, name string, get func(string) (T, error), dst *T) error {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := get(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// loadConfig builds the configuration for cmd: defaults, the config file,
// then apply, which copies command-specific flags. The result is validated.
func loadConfig(cmd *cobra.Command, apply func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(getConfigFlag(cmd))
	if err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if apply != nil {
		if err := apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the redacting logger and installs it as the default.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// openDB opens the database in the configured directory.
func openDB(cfg *config.Config, logger *slog.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())
	return db, nil
}

// newQueue creates the report queue on db, uploading with a client bounded
// by the configured upload timeout.
func newQueue(db *database.DB, cfg *config.Config, logger *slog.Logger) *queue.Queue {
	uploader := collector.NewClient(
		collector.WithHTTPClient(&http.Client{Timeout: cfg.UploadTimeout}),
		collector.WithUserAgent(config.AppName+"/"+getVersion()),
		collector.WithClientLogger(logger),
	)
	return queue.New(db, uploader, queue.WithLogger(logger))
}

// modelSource selects where the model artifact comes from.
func modelSource(cfg *config.Config) forest.Source {
	src := cfg.ModelSource
	switch {
	case src == "":
		return forest.EmbeddedSource()
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return forest.HTTPSource{URL: src, Client: &http.Client{Timeout: cfg.ModelTimeout}}
	default:
		return forest.FileSource(src)
	}
}

// addOutputFlags registers the report format flags shared by commands that
// print analyses or reports.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write output to the specified file path (creates directories if needed)")
}

// applyOutputFlags copies the flags registered by addOutputFlags.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) error {
	if err := override(cmd, "json", cmd.Flags().GetBool, &cfg.JSONReport); err != nil {
		return err
	}
	if err := override(cmd, "markdown", cmd.Flags().GetBool, &cfg.MarkdownReport); err != nil {
		return err
	}
	return override(cmd, "output", cmd.Flags().GetString, &cfg.ReportFile)
}

// withOutput opens the configured output, builds the matching writer and
// calls fn with it. A report file is created with private permissions.
func withOutput(cmd *cobra.Command, cfg *config.Config, fn func(report.Writer) error) (err error) {
	var out io.Writer = cmd.OutOrStdout()

	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close output file: %w", cerr)
			}
		}()
		out = f
	}

	return fn(newWriter(cfg, out))
}

// newWriter returns the writer selected by the output flags.
func newWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}

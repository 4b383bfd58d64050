package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/phishscan/internal/collector"
	"github.com/nao1215/phishscan/internal/config"
	"github.com/nao1215/phishscan/internal/report"
	"github.com/spf13/cobra"
)

// NewReportsCmd creates the reports command and its subcommands.
func NewReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect, clear, or upload queued phishing reports",
		Long: `Reports manages the local report queue.

A report is queued whenever a classified page scores at or above the warn
threshold. Reports stay in the queue until they are uploaded to a collector
or cleared.`,
	}

	cmd.AddCommand(newReportsListCmd())
	cmd.AddCommand(newReportsClearCmd())
	cmd.AddCommand(newReportsUploadCmd())

	return cmd
}

func newReportsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, func(cfg *config.Config) error {
				return applyOutputFlags(cmd, cfg)
			})
			if err != nil {
				return err
			}
			logger := setupLogger(cmd, cfg.Verbose)

			db, err := openDB(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			reports, err := newQueue(db, cfg, logger).List(cmd.Context())
			if err != nil {
				return err
			}
			return withOutput(cmd, cfg, func(w report.Writer) error {
				return w.WriteReports(reports)
			})
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func newReportsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard every queued report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}
			logger := setupLogger(cmd, cfg.Verbose)

			db, err := openDB(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := newQueue(db, cfg, logger).Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Report queue cleared.")
			return nil
		},
	}
}

func newReportsUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload queued reports to a collector and remove them",
		Long: `Upload sends every queued report to the collector in a single request.

On success exactly the uploaded reports are removed; reports queued while the
upload was in flight are kept. On failure nothing is removed and the command
exits with an error. Nothing is sent when the queue is empty.

Examples:
  # Upload to the collector from the config file
  phishscan reports upload

  # Upload to a specific collector
  phishscan reports upload --url https://collector.example.com/report`,
		Args: cobra.NoArgs,
		RunE: runReportsUploadCmd,
	}

	cmd.Flags().StringP("url", "u", "",
		"Collector endpoint (default: collector.url from the config file)")
	cmd.Flags().Duration("timeout", config.DefaultUploadTimeout,
		"Timeout for the upload request")

	return cmd
}

func runReportsUploadCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, func(cfg *config.Config) error {
		if err := override(cmd, "url", cmd.Flags().GetString, &cfg.CollectorURL); err != nil {
			return err
		}
		return override(cmd, "timeout", cmd.Flags().GetDuration, &cfg.UploadTimeout)
	})
	if err != nil {
		return err
	}
	if cfg.CollectorURL == "" {
		return errors.New("no collector endpoint (use --url or set collector.url in the config file)")
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := newQueue(db, cfg, logger).UploadAndPurge(ctx, cfg.CollectorURL)
	if err != nil {
		var uploadErr *collector.UploadError
		if errors.As(err, &uploadErr) {
			return fmt.Errorf("upload failed, reports kept in the queue: %w", err)
		}
		return err
	}

	if n == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reports to upload.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d report(s) to %s\n", n, cfg.CollectorURL)
	return nil
}

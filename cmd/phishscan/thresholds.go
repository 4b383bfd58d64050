package main

import (
	"fmt"
	"io"

	"github.com/nao1215/phishscan/internal/forest"
	"github.com/nao1215/phishscan/internal/settings"
	"github.com/spf13/cobra"
)

// NewThresholdsCmd creates the thresholds command and its subcommands.
func NewThresholdsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Show or change the Unsafe and Suspicious thresholds",
		Long: `Thresholds are percentages of trees voting "phishing".

A page scoring at or above block is Unsafe; at or above warn it is
Suspicious and a report is queued. Stored thresholds take precedence over
the thresholds section of the config file.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the thresholds in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSettings(cmd, func(s *settings.Store) error {
				t, err := s.Thresholds(cmd.Context())
				if err != nil {
					return err
				}
				printThresholds(cmd.OutOrStdout(), t)
				return nil
			})
		},
	})

	set := &cobra.Command{
		Use:   "set",
		Short: "Store new thresholds",
		Args:  cobra.NoArgs,
		RunE:  runThresholdsSetCmd,
	}
	set.Flags().Int("block", 0, "Percent at or above which a page is Unsafe")
	set.Flags().Int("warn", 0, "Percent at or above which a page is Suspicious")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the thresholds from the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSettings(cmd, func(s *settings.Store) error {
				if err := s.Reset(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Thresholds reset.")
				return nil
			})
		},
	})

	return cmd
}

// runThresholdsSetCmd updates the flags that were given and keeps the
// current value of the others.
func runThresholdsSetCmd(cmd *cobra.Command, _ []string) error {
	return withSettings(cmd, func(s *settings.Store) error {
		t, err := s.Thresholds(cmd.Context())
		if err != nil {
			return err
		}
		if err := override(cmd, "block", cmd.Flags().GetInt, &t.Block); err != nil {
			return err
		}
		if err := override(cmd, "warn", cmd.Flags().GetInt, &t.Warn); err != nil {
			return err
		}
		if err := s.SetThresholds(cmd.Context(), t); err != nil {
			return err
		}
		printThresholds(cmd.OutOrStdout(), t)
		return nil
	})
}

// withSettings opens the database and calls fn with the settings store.
func withSettings(cmd *cobra.Command, fn func(*settings.Store) error) error {
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

	return fn(settings.New(db, cfg.Thresholds, logger))
}

func printThresholds(w io.Writer, t forest.Thresholds) {
	fmt.Fprintf(w, "block: %d%%\n", t.Block)
	fmt.Fprintf(w, "warn:  %d%%\n", t.Warn)
}

package main

import (
	"github.com/nao1215/phishscan/internal/config"
	"github.com/nao1215/phishscan/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show past classifications",
		Long: `History lists recorded classifications, newest first.

With a URL argument only that URL's analyses are listed.

Examples:
  # The 20 most recent analyses
  phishscan history

  # Every analysis of one URL, as JSON
  phishscan history -n 0 -j https://example.com/login`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Maximum number of entries (0 for all)")
	addOutputFlags(cmd)

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, func(cfg *config.Config) error {
		return applyOutputFlags(cmd, cfg)
	})
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	db, err := openDB(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	var url string
	if len(args) == 1 {
		url = args[0]
	}

	entries, err := db.History(cmd.Context(), url, limit)
	if err != nil {
		return err
	}
	return withOutput(cmd, cfg, func(w report.Writer) error {
		return w.WriteHistory(entries)
	})
}

package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/nao1215/phishscan/internal/config"
	"github.com/nao1215/phishscan/internal/model"
	"github.com/nao1215/phishscan/internal/report"
	"github.com/spf13/cobra"
)

// errNoTargets is returned when classify has nothing to classify.
var errNoTargets = errors.New("no URLs provided (specify URLs as arguments or use --list)")

// NewClassifyCmd creates the classify command.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [url]...",
		Short: "Score web pages for phishing",
		Long: `Classify scores each URL with the decision forest and prints a verdict:
Unsafe, Suspicious, Likely Safe, or Cannot Classify.

The page is downloaded so that DOM signals (forms, password inputs) can be
used; --no-fetch classifies from the URL alone. Pages scoring at or above
the warn threshold are queued as reports for "phishscan reports upload".
Every analysis is recorded for "phishscan history".

Examples:
  # Classify a single page
  phishscan classify https://example.com/login

  # Classify URLs listed in a file, 8 at a time
  phishscan classify --list urls.txt -b 8

  # Fetch pages through a running Tor proxy
  phishscan classify --tor --tor-proxy 127.0.0.1:9150 https://example.com

  # Use a model published by the collector and write JSON
  phishscan classify --model https://collector.example.com/model.json -j https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runClassifyCmd,
	}

	cmd.Flags().StringP("list", "l", "",
		"Read URLs from a file, one per line (# starts a comment)")
	cmd.Flags().Bool("no-fetch", false,
		"Classify from the URL alone without downloading the page")
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout,
		"Timeout for each page download")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of URLs classified concurrently")
	cmd.Flags().String("model", "",
		"Model artifact file path or http(s) URL (default: built-in model)")

	cmd.Flags().Bool("tor", false,
		"Fetch pages through Tor")
	cmd.Flags().Bool("embedded-tor", false,
		"Start an embedded Tor daemon instead of using --tor-proxy (implies --tor)")
	cmd.Flags().String("tor-proxy", config.DefaultTorProxyAddress,
		"Tor SOCKS5 proxy address")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	addOutputFlags(cmd)

	return cmd
}

func runClassifyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, func(cfg *config.Config) error {
		return applyClassifyFlags(cmd, cfg)
	})
	if err != nil {
		return err
	}

	targets, err := collectTargets(cmd, args)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	logger.Info("starting classification",
		"targets", len(targets),
		"fetch", cfg.Fetch,
		"tor", cfg.UseTor,
		"batchSize", cfg.BatchSize,
	)

	e, err := newEngine(ctx, cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer e.Close()

	var (
		mu       sync.Mutex
		analyses = make([]*model.Analysis, len(targets))
		done     int
	)
	err = e.batch.ProcessBatchWithCallback(ctx, targets, func(a *model.Analysis, index int) {
		mu.Lock()
		defer mu.Unlock()
		analyses[index] = a
		done++
		logger.Debug("classified", "url", a.URL, "tier", a.Tier, "progress", fmt.Sprintf("%d/%d", done, len(targets)))
	})
	if err != nil {
		return fmt.Errorf("classification interrupted: %w", err)
	}

	return withOutput(cmd, cfg, func(w report.Writer) error {
		return w.WriteAnalyses(analyses)
	})
}

// applyClassifyFlags copies the classify flags the user set into cfg.
func applyClassifyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	noFetch, err := flags.GetBool("no-fetch")
	if err != nil {
		return err
	}
	if noFetch {
		cfg.Fetch = false
	}

	for _, o := range []func() error{
		func() error { return override(cmd, "timeout", flags.GetDuration, &cfg.FetchTimeout) },
		func() error { return override(cmd, "batch", flags.GetInt, &cfg.BatchSize) },
		func() error { return override(cmd, "model", flags.GetString, &cfg.ModelSource) },
		func() error { return override(cmd, "tor", flags.GetBool, &cfg.UseTor) },
		func() error { return override(cmd, "embedded-tor", flags.GetBool, &cfg.EmbeddedTor) },
		func() error { return override(cmd, "tor-proxy", flags.GetString, &cfg.TorProxyAddress) },
		func() error { return override(cmd, "tor-timeout", flags.GetDuration, &cfg.TorStartupTimeout) },
		func() error { return applyOutputFlags(cmd, cfg) },
	} {
		if err := o(); err != nil {
			return err
		}
	}

	if cfg.EmbeddedTor {
		cfg.UseTor = true
	}
	return nil
}

// collectTargets merges URL arguments with the --list file.
func collectTargets(cmd *cobra.Command, args []string) ([]string, error) {
	targets := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			targets = append(targets, a)
		}
	}

	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}
	if listPath != "" {
		listed, err := readTargetList(listPath)
		if err != nil {
			return nil, err
		}
		targets = append(targets, listed...)
	}

	if len(targets) == 0 {
		return nil, errNoTargets
	}
	return targets, nil
}

// readTargetList reads one URL per line. Blank lines and lines starting
// with # are skipped.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return targets, nil
}

package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nao1215/phishscan/internal/config"
	"github.com/nao1215/phishscan/internal/message"
	"github.com/spf13/cobra"
)

// NewAgentCmd creates the agent command.
func NewAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Serve the extension message protocol on localhost",
		Long: `Agent runs the local message endpoint used by the browser extension.

Requests are JSON objects posted to /message:

  {"type": "REPORT_SUSPECT", "url": "...", "score": 0.8, "extra": {...}}
  {"type": "GET_REPORTS"}
  {"type": "CLEAR_REPORTS"}
  {"type": "UPLOAD_REPORTS", "apiUrl": "https://collector.example.com/report"}
  {"type": "CLASSIFY", "url": "..."}

The agent shares its database with the other commands, so reports queued
by the extension show up in "phishscan reports list". It only listens on
loopback addresses. Browser requests are refused unless their origin is
allowed with --allow-origin or agent.allowedOrigins, and messages must be
sent with Content-Type: application/json.

Examples:
  # Accept messages from one browser extension
  phishscan agent --allow-origin chrome-extension://abcdefghijklmnopabcdefghijklmnop

  # Upload to a default collector when apiUrl is omitted
  phishscan agent --listen 127.0.0.1:9000 --url https://collector.example.com/report`,
		Args: cobra.NoArgs,
		RunE: runAgentCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultAgentAddress,
		"Loopback address to listen on")
	cmd.Flags().StringP("url", "u", "",
		"Collector endpoint used when UPLOAD_REPORTS has no apiUrl")
	cmd.Flags().Bool("no-fetch", false,
		"Classify CLASSIFY requests from the URL alone")
	cmd.Flags().StringSlice("allow-origin", nil,
		"Browser origin allowed to call the agent (repeatable)")

	return cmd
}

func runAgentCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, func(cfg *config.Config) error {
		if err := override(cmd, "listen", cmd.Flags().GetString, &cfg.AgentAddress); err != nil {
			return err
		}
		if err := override(cmd, "url", cmd.Flags().GetString, &cfg.CollectorURL); err != nil {
			return err
		}
		if err := override(cmd, "allow-origin", cmd.Flags().GetStringSlice, &cfg.AgentOrigins); err != nil {
			return err
		}
		noFetch, err := cmd.Flags().GetBool("no-fetch")
		if err != nil {
			return err
		}
		if noFetch {
			cfg.Fetch = false
		}
		return nil
	})
	if err != nil {
		return err
	}
	// Fail before Tor or the model are started.
	if err := message.CheckLoopback(cfg.AgentAddress); err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	ctx, cancel := signalContext(cmd)
	defer cancel()

	e, err := newEngine(ctx, cfg, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}
	defer e.Close()

	handler := message.NewHandler(e.queue,
		message.WithAnalyzer(e.batch),
		message.WithDefaultEndpoint(cfg.CollectorURL),
		message.WithLogger(logger),
	)

	if len(cfg.AgentOrigins) == 0 {
		logger.Warn("no browser origin allowed; only local tools can reach the agent")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Agent listening on http://%s/message\n", cfg.AgentAddress)
	server := message.NewServer(handler, logger, message.WithAllowedOrigins(cfg.AgentOrigins...))
	err = server.ListenAndServe(ctx, cfg.AgentAddress)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

package cli

import (
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/logging"
	"github.com/HendryAvila/semantic-hooks/internal/runner"
	semserver "github.com/HendryAvila/semantic-hooks/internal/server"
)

// newHookCmd is the entry point the host agent invokes, one process per
// event. It is hidden from help output.
func newHookCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "hook EVENT",
		Short:  "Handle one hook event (called by the host agent)",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := hook.ParseEvent(args[0])
			if err != nil {
				return err
			}
			// Used until the configured logger exists.
			fallback := slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			r := runner.New(runner.FromConfig(a.configPath, a.stderr), fallback)
			if code := r.Run(cmd.Context(), ev, a.stdin, a.stdout, a.stderr); code != 0 {
				return exitCodeError{code: code}
			}
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the semantic memory over MCP (stdio transport)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			logger, closer := logging.New(cfg.Logging, a.stderr)
			defer closer.Close()

			s, cleanup, err := semserver.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()

			go a.notifyUpdate(cmd.Context())

			return server.NewStdioServer(s).Listen(cmd.Context(), a.stdin, a.stdout)
		},
	}
}

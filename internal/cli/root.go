// Package cli implements the semantic-hooks command line: the hidden hook
// handlers the host agent invokes, the install and maintenance commands,
// and the MCP server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/semantic-hooks/internal/config"
)

// app carries the process streams and global flags to every command.
type app struct {
	version    string
	configPath string
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
}

// exitCodeError ends the process with code without printing anything.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the command line against the process environment and
// returns the exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, version, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes args and returns the exit code.
func Run(ctx context.Context, version string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{version: version, stdin: stdin, stdout: stdout, stderr: stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit exitCodeError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "semantic-hooks",
		Short: "Semantic tension tracking for AI coding agents",
		Long: `semantic-hooks measures how far each step of an agent session drifts from
the recent trajectory (ΔS = 1 - cos) and gates, warns or records accordingly.

Run 'semantic-hooks install' to register the hooks with the host agent.`,
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"config file (default $SEMANTIC_HOOKS_CONFIG or ~/.semantic-hooks/config.yaml)")

	root.AddCommand(
		newInstallCmd(a),
		newUninstallCmd(a),
		newStatusCmd(a),
		newTreeCmd(a),
		newConfigCmd(a),
		newImportCmd(a),
		newPruneCmd(a),
		newHookCmd(a),
		newServeCmd(a),
		newUpdateCmd(a),
		newVersionCmd(a),
	)
	return root
}

// configFile is the file install and config write to.
func (a *app) configFile() string {
	if a.configPath != "" {
		return a.configPath
	}
	return config.GlobalPath()
}

// loadConfig merges the config file, the project file of the current
// directory and the environment.
func (a *app) loadConfig() (*config.Config, error) {
	wd, _ := os.Getwd()
	cfg, err := config.Load(config.Options{Path: a.configPath, WorkDir: wd})
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "semantic-hooks v%s\n", a.version)
		},
	}
}

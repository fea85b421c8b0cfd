package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/semantic-hooks/internal/config"
	"github.com/HendryAvila/semantic-hooks/internal/embedding"
	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/settings"
)

func newInstallCmd(a *app) *cobra.Command {
	var (
		force        bool
		binary       string
		settingsPath string
	)
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Write the default config and register the hooks with the host agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if binary == "" {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("locate executable: %w", err)
				}
				binary = exe
			}
			return a.install(binary, settingsPath, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite a malformed settings file")
	cmd.Flags().StringVar(&binary, "binary", "", "command the hooks invoke (default: this executable)")
	cmd.Flags().StringVar(&settingsPath, "settings", settings.Path(), "host settings file")
	return cmd
}

func (a *app) install(binary, settingsPath string, force bool) error {
	st := newStyles(a.stdout)
	cfgPath := a.configFile()
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if err := config.Save(cfgPath, config.Default()); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "%s Created config: %s\n", st.ok.Render("✓"), cfgPath)
	} else {
		fmt.Fprintf(a.stdout, "%s Config exists: %s\n", st.dim.Render("•"), cfgPath)
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	for _, dir := range []string{cfg.Memory.DataDir, cfg.Checkpoint.Dir, filepath.Dir(cfg.StuckDetection.HistoryPath)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	if err := settings.Install(settingsPath, binary, settings.DefaultEvents, force); err != nil {
		if errors.Is(err, settings.ErrMalformed) {
			return fmt.Errorf("%w (rerun with --force to replace it)", err)
		}
		return err
	}
	fmt.Fprintf(a.stdout, "%s Registered %d hooks in %s\n", st.ok.Render("✓"), len(settings.DefaultEvents), settingsPath)
	for _, ev := range settings.DefaultEvents {
		fmt.Fprintf(a.stdout, "   %s\n", st.dim.Render(settings.Command(binary, ev)))
	}

	if cfg.Embedding.Provider == embedding.ProviderOpenAI && os.Getenv(cfg.Embedding.APIKeyEnv) == "" {
		fmt.Fprintf(a.stdout, "\n%s %s is not set; embeddings use the local provider until it is.\n",
			st.bad.Render("!"), cfg.Embedding.APIKeyEnv)
	}
	return nil
}

func newUninstallCmd(a *app) *cobra.Command {
	var (
		purge        bool
		settingsPath string
	)
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the hooks from the host agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := newStyles(a.stdout)
			n, err := settings.Uninstall(settingsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s Removed %d hooks from %s\n", st.ok.Render("✓"), n, settingsPath)

			if purge {
				dir := config.DataDir()
				if err := os.RemoveAll(dir); err != nil {
					return fmt.Errorf("purge %s: %w", dir, err)
				}
				fmt.Fprintf(a.stdout, "%s Deleted %s\n", st.ok.Render("✓"), dir)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also delete ~/.semantic-hooks (config, memory, checkpoints)")
	cmd.Flags().StringVar(&settingsPath, "settings", settings.Path(), "host settings file")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	var settingsPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show registered hooks, configuration and memory size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.status(cmd, settingsPath)
		},
	}
	cmd.Flags().StringVar(&settingsPath, "settings", settings.Path(), "host settings file")
	return cmd
}

func (a *app) status(cmd *cobra.Command, settingsPath string) error {
	st := newStyles(a.stdout)
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, st.title.Render("semantic-hooks v"+a.version))
	fmt.Fprintf(a.stdout, "Config:    %s\n", a.configFile())
	fmt.Fprintf(a.stdout, "Embedding: %s (%s)\n", cfg.Embedding.Provider, cfg.Embedding.Model)
	fmt.Fprintf(a.stdout, "Zones:     safe < %.2f ≤ transitional < %.2f ≤ risk < %.2f ≤ danger\n",
		cfg.Thresholds.Safe, cfg.Thresholds.Transitional, cfg.Thresholds.Risk)
	fmt.Fprintf(a.stdout, "Blocking:  %v\n", cfg.Guard.BlockInDanger)

	registered, err := settings.Registered(settingsPath)
	if err != nil {
		return err
	}
	have := map[hook.Event]bool{}
	for _, ev := range registered {
		have[ev] = true
	}
	fmt.Fprintf(a.stdout, "\n%s (%d/%d)\n", st.title.Render("Hooks"), len(registered), len(settings.DefaultEvents))
	for _, ev := range settings.DefaultEvents {
		mark := st.bad.Render("✗")
		if have[ev] {
			mark = st.ok.Render("✓")
		}
		fmt.Fprintf(a.stdout, "  %s %s\n", mark, ev)
	}

	fmt.Fprintf(a.stdout, "\n%s\n", st.title.Render("Memory"))
	if _, err := os.Stat(memory.DBPath(cfg.Memory.DataDir)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(a.stdout, st.dim.Render("  no database yet"))
		return nil
	}
	store, err := memory.New(cfg.Memory, nil)
	if err != nil {
		return err
	}
	defer store.Close()
	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "  %d nodes in %d sessions, mean ΔS %.3f\n", stats.TotalNodes, stats.TotalSessions, stats.MeanDeltaS)
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/semantic-hooks/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	var (
		show      bool
		sets      []string
		threshold float64
		provider  string
		block     bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration file",
		Long: `Show or change the configuration file.

Keys are dotted paths into the YAML file, e.g.
  semantic-hooks config --set guard.block_in_danger=false --set logging.level=debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configFile()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(a.stderr, "Config not found: %s\nRun 'semantic-hooks install' first.\n", path)
				return exitCodeError{code: 1}
			}
			cfg, err := config.Load(config.Options{Path: path})
			if err != nil {
				return err
			}

			var changes [][2]string
			for _, kv := range sets {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return fmt.Errorf("--set %q: want key=value", kv)
				}
				changes = append(changes, [2]string{strings.TrimSpace(k), strings.TrimSpace(v)})
			}
			flags := cmd.Flags()
			if flags.Changed("delta-s-threshold") {
				changes = append(changes, [2]string{"thresholds.risk", strconv.FormatFloat(threshold, 'g', -1, 64)})
			}
			if flags.Changed("embedding-provider") {
				changes = append(changes, [2]string{"embedding.provider", provider})
			}
			if flags.Changed("block-in-danger") {
				changes = append(changes, [2]string{"guard.block_in_danger", strconv.FormatBool(block)})
			}

			if len(changes) == 0 {
				return printConfig(a, cfg, path)
			}
			for _, c := range changes {
				if err := cfg.Set(c[0], c[1]); err != nil {
					if errors.Is(err, config.ErrNotFound) {
						return fmt.Errorf("%w (known keys: %s)", err, strings.Join(config.Keys(), ", "))
					}
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			for _, c := range changes {
				fmt.Fprintf(a.stdout, "%s = %s\n", c[0], c[1])
			}
			if show {
				return printConfig(a, cfg, path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the configuration")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set key=value (repeatable)")
	cmd.Flags().Float64Var(&threshold, "delta-s-threshold", 0, "lower bound of the danger zone (thresholds.risk)")
	cmd.Flags().StringVar(&provider, "embedding-provider", "", "embedding provider: openai or local")
	cmd.Flags().BoolVar(&block, "block-in-danger", true, "block tool calls in the danger zone")
	return cmd
}

func printConfig(a *app, cfg *config.Config, path string) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprintf(a.stdout, "# %s\n%s", path, b)
	return nil
}

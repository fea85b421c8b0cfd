package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/semantic-hooks/internal/updater"
)

func newUpdateCmd(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update semantic-hooks to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := newStyles(a.stdout)
			c := updater.New()
			res := c.Check(cmd.Context(), a.version)
			if !res.Available {
				fmt.Fprintf(a.stdout, "%s semantic-hooks v%s is the latest version\n", st.ok.Render("✓"), res.Current)
				return nil
			}
			fmt.Fprintf(a.stdout, "New version available: v%s → v%s\n%s\n", res.Current, res.Latest, st.dim.Render(res.ReleaseURL))
			if check {
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}
			v, err := c.Update(cmd.Context(), a.version, exe)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s Updated to v%s\n", st.ok.Render("✓"), v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "only report whether an update is available")
	return cmd
}

// notifyUpdate prints a notice to stderr when a newer release exists.
// stdout belongs to the MCP transport.
func (a *app) notifyUpdate(ctx context.Context) {
	res := updater.New().Check(ctx, a.version)
	if res.Available {
		fmt.Fprintf(a.stderr, "\n  Update available: v%s → v%s\n  Run: semantic-hooks update\n\n",
			res.Current, res.Latest)
	}
}

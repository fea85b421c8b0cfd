package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/semantic-hooks/internal/config"
	"github.com/HendryAvila/semantic-hooks/internal/embedding"
	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/logging"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

const treeInsightMax = 80

// openStore opens the configured memory. withEmbedder wires the embedding
// provider for commands that write nodes.
func (a *app) openStore(cfg *config.Config, withEmbedder bool) (*memory.Store, error) {
	var emb embedding.Embedder
	if withEmbedder {
		logger, closer := logging.New(cfg.Logging, a.stderr)
		defer closer.Close()
		var err error
		if emb, err = embedding.New(cfg.Embedding, logger); err != nil {
			return nil, err
		}
	}
	return memory.New(cfg.Memory, emb)
}

func newTreeCmd(a *app) *cobra.Command {
	var (
		session string
		limit   int
		export  string
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the most recent semantic nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			store, err := a.openStore(cfg, false)
			if err != nil {
				return err
			}
			defer store.Close()

			if export != "" {
				data, err := store.Export(cmd.Context(), session)
				if err != nil {
					return err
				}
				return a.writeExport(data, export)
			}

			nodes, err := store.Recent(cmd.Context(), memory.RecentOptions{Limit: limit, SessionID: session})
			if err != nil {
				return err
			}
			printTree(a.stdout, nodes, cfg.Thresholds)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "only show this session")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of nodes")
	cmd.Flags().StringVar(&export, "export", "", "write the export JSON to FILE, or - for stdout")
	return cmd
}

func (a *app) writeExport(data *memory.ExportData, dest string) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	b = append(b, '\n')
	if dest == "-" {
		_, err := a.stdout.Write(b)
		return err
	}
	if err := os.WriteFile(dest, b, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(a.stdout, "Exported %d nodes to %s\n", data.NodeCount, dest)
	return nil
}

func printTree(w io.Writer, nodes []semantic.Node, t semantic.Thresholds) {
	st := newStyles(w)
	if len(nodes) == 0 {
		fmt.Fprintln(w, "No semantic nodes recorded yet.")
		return
	}
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("Recent Semantic Nodes (%d)", len(nodes))))
	fmt.Fprintln(w, strings.Repeat("=", 60))
	for i := range nodes {
		n := &nodes[i]
		z := n.ZoneWith(t)
		insight := strings.Join(strings.Fields(n.Insight), " ")
		if cut := hook.Truncate(insight, treeInsightMax); cut != insight {
			insight = cut + "..."
		}
		fmt.Fprintf(w, "\n%s %s\n", z.Marker(), st.title.Render(n.Topic))
		fmt.Fprintf(w, "   %s | %s | %s\n",
			st.zone(z, fmt.Sprintf("ΔS=%.3f", n.DeltaS)), n.LambdaObserve, n.ModuleUsed)
		if insight != "" {
			fmt.Fprintf(w, "   %s\n", insight)
		}
		fmt.Fprintf(w, "   %s\n", st.dim.Render(n.Timestamp.Local().Format("2006-01-02 15:04:05")))
	}
}

func newImportCmd(a *app) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import nodes from an export or checkpoint file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := memory.ReadExportFile(args[0])
			if err != nil {
				return err
			}
			if session != "" {
				data.SessionID = session
				for i := range data.Nodes {
					data.Nodes[i].SessionID = session
				}
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			store, err := a.openStore(cfg, true)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := store.Import(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Imported %d nodes (%d already present)\n", res.Imported, res.Skipped)
			if res.Unembedded > 0 {
				fmt.Fprintf(a.stdout, "%d nodes were stored without embeddings\n", res.Unembedded)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "assign every imported node to this session")
	return cmd
}

func newPruneCmd(a *app) *cobra.Command {
	var maxNodes int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest nodes beyond a cap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			store, err := a.openStore(cfg, false)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(cmd.Context(), maxNodes)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Pruned %d nodes\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "nodes to keep (default memory.max_nodes)")
	return cmd
}

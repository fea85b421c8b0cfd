package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
	"github.com/mark3labs/mcp-go/mcp"
)

// StatsTool handles the semantic_stats MCP tool.
type StatsTool struct {
	store *memory.Store
}

// NewStatsTool creates a StatsTool with the given memory store.
func NewStatsTool(store *memory.Store) *StatsTool {
	return &StatsTool{store: store}
}

// Definition returns the MCP tool definition for semantic_stats.
func (t *StatsTool) Definition() mcp.Tool {
	return mcp.NewTool("semantic_stats",
		mcp.WithDescription(
			"Show semantic memory statistics: nodes, sessions and projects tracked, mean tension "+
				"and how many nodes fall in each zone.",
		),
	)
}

// Handle processes the semantic_stats tool call.
func (t *StatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := t.store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString("## Semantic Memory Statistics\n\n")
	sb.WriteString(fmt.Sprintf("- **Nodes**: %d\n", stats.TotalNodes))
	sb.WriteString(fmt.Sprintf("- **Sessions**: %d\n", stats.TotalSessions))
	sb.WriteString(fmt.Sprintf("- **Mean ΔS**: %.3f\n", stats.MeanDeltaS))

	if len(stats.Projects) > 0 {
		sb.WriteString(fmt.Sprintf("- **Projects** (%d): %s\n", len(stats.Projects), strings.Join(stats.Projects, ", ")))
	} else {
		sb.WriteString("- **Projects**: none\n")
	}
	if stats.Oldest != nil && stats.Newest != nil {
		sb.WriteString(fmt.Sprintf("- **Span**: %s to %s\n",
			stats.Oldest.UTC().Format("2006-01-02 15:04"), stats.Newest.UTC().Format("2006-01-02 15:04")))
	}

	sb.WriteString("\n### Zones\n\n")
	for _, z := range semantic.Zones {
		sb.WriteString(fmt.Sprintf("- %s %s: %d\n", z.Marker(), z, stats.ZoneSummary[z]))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

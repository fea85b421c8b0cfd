package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultZoneLimit = 10
	maxZoneLimit     = 100
)

// ZoneTool handles the semantic_zone MCP tool.
type ZoneTool struct {
	store *memory.Store
}

// NewZoneTool creates a ZoneTool.
func NewZoneTool(store *memory.Store) *ZoneTool {
	return &ZoneTool{store: store}
}

// Definition returns the MCP tool definition for semantic_zone.
func (t *ZoneTool) Definition() mcp.Tool {
	zones := make([]string, len(semantic.Zones))
	for i, z := range semantic.Zones {
		zones[i] = string(z)
	}
	return mcp.NewTool("semantic_zone",
		mcp.WithDescription(
			"List the most recent nodes whose tension falls in a zone. Danger and risk nodes "+
				"show where the agent jumped away from its trajectory.",
		),
		mcp.WithString("zone",
			mcp.Required(),
			mcp.Description("Zone to list"),
			mcp.Enum(zones...),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max nodes (default: 10, max: 100)"),
		),
	)
}

// Handle processes the semantic_zone tool call.
func (t *ZoneTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	zone, err := semantic.ParseZone(strings.ToLower(req.GetString("zone", "")))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := clamp(intArg(req, "limit", defaultZoneLimit), maxZoneLimit)

	th := t.store.Thresholds()
	nodes, err := t.store.ByZone(ctx, zone, limit, th)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to query zone: %v", err)), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No nodes in the %s zone.", zone)), nil
	}

	var b strings.Builder
	lo, hi := zone.Range(th)
	fmt.Fprintf(&b, "## %s %s zone (%.2f ≤ ΔS < %.2f): %d nodes\n\n", zone.Marker(), zone, lo, hi, len(nodes))
	for _, n := range nodes {
		writeNode(&b, n, th)
	}
	return mcp.NewToolResultText(b.String()), nil
}

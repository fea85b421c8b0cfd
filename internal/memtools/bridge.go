package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultBridgeLimit = 3
	maxBridgeLimit     = 10
)

// BridgeTool handles the semantic_bridge MCP tool.
type BridgeTool struct {
	store *memory.Store
}

// NewBridgeTool creates a BridgeTool.
func NewBridgeTool(store *memory.Store) *BridgeTool {
	return &BridgeTool{store: store}
}

// Definition returns the MCP tool definition for semantic_bridge.
func (t *BridgeTool) Definition() mcp.Tool {
	return mcp.NewTool("semantic_bridge",
		mcp.WithDescription(
			"Find recorded topics that sit between where the reasoning is now and where it wants "+
				"to go. Bridges are the stepping stones that make a large jump safe.",
		),
		mcp.WithString("current",
			mcp.Required(),
			mcp.Description("Description of the current context"),
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Description of the intended destination"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max bridges (default: 3, max: 10)"),
		),
	)
}

// Handle processes the semantic_bridge tool call.
func (t *BridgeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current := req.GetString("current", "")
	target := req.GetString("target", "")
	if current == "" || target == "" {
		return mcp.NewToolResultError("'current' and 'target' are required"), nil
	}
	limit := clamp(intArg(req, "limit", defaultBridgeLimit), maxBridgeLimit)

	nodes, err := t.store.FindBridge(ctx, current, target, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("bridge search failed: %v", err)), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("No bridge found. The target has no known connection to the current context."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d bridge topics:\n\n", len(nodes))
	th := t.store.Thresholds()
	for _, n := range nodes {
		writeNode(&b, n, th)
	}
	return mcp.NewToolResultText(b.String()), nil
}

package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultTreeLimit = 20
	maxTreeLimit     = 200
)

// TreeTool handles the semantic_tree MCP tool.
type TreeTool struct {
	store *memory.Store
}

// NewTreeTool creates a TreeTool.
func NewTreeTool(store *memory.Store) *TreeTool {
	return &TreeTool{store: store}
}

// Definition returns the MCP tool definition for semantic_tree.
func (t *TreeTool) Definition() mcp.Tool {
	return mcp.NewTool("semantic_tree",
		mcp.WithDescription(
			"Show the recent reasoning trajectory: recorded nodes in chronological order with "+
				"their tension (ΔS), zone and direction. Use it to see where a session has been "+
				"before deciding where to go next.",
		),
		mcp.WithString("session_id",
			mcp.Description("Restrict to one session (default: all sessions)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max nodes (default: 20, max: 200)"),
		),
	)
}

// Handle processes the semantic_tree tool call.
func (t *TreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session := req.GetString("session_id", "")
	limit := clamp(intArg(req, "limit", defaultTreeLimit), maxTreeLimit)

	nodes, err := t.store.Recent(ctx, memory.RecentOptions{Limit: limit, SessionID: session})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load trajectory: %v", err)), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("No semantic nodes recorded yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Semantic Trajectory (%d nodes)\n\n", len(nodes))
	th := t.store.Thresholds()
	// Recent is newest first; the tree reads oldest first.
	for i := len(nodes) - 1; i >= 0; i-- {
		writeNode(&b, nodes[i], th)
	}
	return mcp.NewToolResultText(b.String()), nil
}

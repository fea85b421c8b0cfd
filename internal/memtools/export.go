package memtools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

// ExportTool handles the semantic_export MCP tool.
type ExportTool struct {
	store *memory.Store
}

// NewExportTool creates an ExportTool.
func NewExportTool(store *memory.Store) *ExportTool {
	return &ExportTool{store: store}
}

// Definition returns the MCP tool definition for semantic_export.
func (t *ExportTool) Definition() mcp.Tool {
	return mcp.NewTool("semantic_export",
		mcp.WithDescription(
			"Export a session's semantic nodes (or the most recent global history) as JSON, "+
				"in the same format the import command and checkpoints use.",
		),
		mcp.WithString("session_id",
			mcp.Description("Session to export (default: recent nodes across all sessions)"),
		),
	)
}

// Handle processes the semantic_export tool call.
func (t *ExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := t.store.Export(ctx, req.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling export: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

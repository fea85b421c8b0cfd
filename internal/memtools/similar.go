package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultSimilarLimit = 5
	maxSimilarLimit     = 20
	defaultMinSimilar   = 0.5
)

// SimilarTool handles the semantic_similar MCP tool.
type SimilarTool struct {
	store *memory.Store
}

// NewSimilarTool creates a SimilarTool. The store's embedder embeds the
// query text.
func NewSimilarTool(store *memory.Store) *SimilarTool {
	return &SimilarTool{store: store}
}

// Definition returns the MCP tool definition for semantic_similar.
func (t *SimilarTool) Definition() mcp.Tool {
	return mcp.NewTool("semantic_similar",
		mcp.WithDescription(
			"Find recorded nodes semantically close to a piece of text. Use it to check whether "+
				"an idea connects to anything already explored before acting on it.",
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to compare against the trajectory"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 5, max: 20)"),
		),
		mcp.WithNumber("min_similarity",
			mcp.Description("Minimum cosine similarity between -1 and 1 (default: 0.5)"),
		),
	)
}

// Handle processes the semantic_similar tool call.
func (t *SimilarTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}
	emb := t.store.Embedder()
	if emb == nil {
		return mcp.NewToolResultError("no embedding provider configured"), nil
	}

	vec, err := emb.Embed(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("embedding failed: %v", err)), nil
	}
	limit := clamp(intArg(req, "limit", defaultSimilarLimit), maxSimilarLimit)
	results, err := t.store.FindSimilar(ctx, vec, limit, floatArg(req, "min_similarity", defaultMinSimilar))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No similar nodes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d similar nodes:\n\n", len(results))
	th := t.store.Thresholds()
	for _, r := range results {
		fmt.Fprintf(&b, "similarity %.3f\n", r.Similarity)
		writeNode(&b, r.Node, th)
	}
	return mcp.NewToolResultText(b.String()), nil
}

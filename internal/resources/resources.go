// Package resources implements MCP resource handlers over the semantic
// memory.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (semantic://...) following MCP conventions.
package resources

import (
	"context"
	"fmt"

	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	StatsURI  = "semantic://trajectory/stats"
	RecentURI = "semantic://trajectory/recent"

	recentLimit = 20
)

// Handler manages semantic resource endpoints.
type Handler struct {
	store *memory.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *memory.Store) *Handler {
	return &Handler{store: store}
}

// StatsResource returns the MCP resource definition for memory statistics.
func (h *Handler) StatsResource() mcp.Resource {
	return mcp.NewResource(
		StatsURI,
		"Semantic Trajectory Statistics",
		mcp.WithResourceDescription("Node, session and zone counts of the semantic memory"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStats returns the memory statistics as JSON.
func (h *Handler) HandleStats(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats, err := h.store.Stats(ctx)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, stats)
}

// RecentResource returns the MCP resource definition for the latest nodes.
func (h *Handler) RecentResource() mcp.Resource {
	return mcp.NewResource(
		RecentURI,
		"Recent Semantic Nodes",
		mcp.WithResourceDescription(fmt.Sprintf("The %d most recent nodes across all sessions, oldest first", recentLimit)),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRecent returns the most recent nodes as an export document.
func (h *Handler) HandleRecent(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	nodes, err := h.store.Recent(ctx, memory.RecentOptions{Limit: recentLimit})
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return jsonResource(req.Params.URI, nodes)
}

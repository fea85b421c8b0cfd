// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, resources and prompts that depend on them. No
// business logic lives here, only wiring.
package server

import (
	"fmt"
	"log/slog"

	"github.com/HendryAvila/semantic-hooks/internal/config"
	"github.com/HendryAvila/semantic-hooks/internal/embedding"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/memtools"
	"github.com/HendryAvila/semantic-hooks/internal/prompts"
	"github.com/HendryAvila/semantic-hooks/internal/resources"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server over the semantic memory described by cfg.
//
// The returned cleanup function closes the memory store's database
// connection and must be called on shutdown (typically via defer).
// It is always non-nil.
func New(cfg *config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	emb, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, noop, fmt.Errorf("creating embedder: %w", err)
	}
	store, err := memory.New(cfg.Memory, emb)
	if err != nil {
		return nil, noop, fmt.Errorf("opening memory: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("memory store close", "error", err)
		}
	}
	return NewWithStore(store), cleanup, nil
}

// NewWithStore creates the MCP server over an open store. The caller owns
// the store.
func NewWithStore(store *memory.Store) *server.MCPServer {
	s := server.NewMCPServer(
		"semantic-hooks",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerTools(s, store)

	resourceHandler := resources.NewHandler(store)
	s.AddResource(resourceHandler.StatsResource(), resourceHandler.HandleStats)
	s.AddResource(resourceHandler.RecentResource(), resourceHandler.HandleRecent)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)
	groundPrompt := prompts.NewGroundPrompt()
	s.AddPrompt(groundPrompt.Definition(), groundPrompt.Handle)

	return s
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// registerTools registers the semantic memory tools with the server.
func registerTools(s *server.MCPServer, ms *memory.Store) {
	// --- Trajectory ---
	treeTool := memtools.NewTreeTool(ms)
	s.AddTool(treeTool.Definition(), treeTool.Handle)

	exportTool := memtools.NewExportTool(ms)
	s.AddTool(exportTool.Definition(), exportTool.Handle)

	statsTool := memtools.NewStatsTool(ms)
	s.AddTool(statsTool.Definition(), statsTool.Handle)

	// --- Similarity ---
	similarTool := memtools.NewSimilarTool(ms)
	s.AddTool(similarTool.Definition(), similarTool.Handle)

	zoneTool := memtools.NewZoneTool(ms)
	s.AddTool(zoneTool.Definition(), zoneTool.Handle)

	bridgeTool := memtools.NewBridgeTool(ms)
	s.AddTool(bridgeTool.Definition(), bridgeTool.Handle)
}

// serverInstructions tells the agent what the semantic tools are for.
func serverInstructions() string {
	return `You have access to semantic-hooks, a record of your own reasoning trajectory.

Every tool call and response in a session is stored as a semantic node with a
tension score ΔS = 1 - cos(current, expected), where "expected" is a decayed
average of the recent nodes. Zones:
- safe (ΔS < 0.4): on track
- transitional (0.4 to 0.6): drifting
- risk (0.6 to 0.8): approaching unknown territory
- danger (ΔS ≥ 0.8): likely hallucination; tool calls here may be blocked

## When to use the tools
- semantic_tree: before a large change, to see where the session has been
- semantic_similar: to check whether an idea connects to earlier work
- semantic_bridge: when a call was blocked in the danger zone, to find the
  intermediate topics that connect where you are to where you want to go
- semantic_zone: to review the risky jumps of past sessions
- semantic_stats and semantic_export: for summaries and handoffs

If a call is blocked, do not retry it unchanged. Ground the step through a
bridge topic or ask the user for clarification.`
}

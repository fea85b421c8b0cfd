// Package memtools provides MCP tool handlers over the semantic memory.
//
// Each tool handler follows the same pattern:
// - A struct with dependencies (memory.Store) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// The tools are read-only: hooks write the trajectory, tools inspect it.
package memtools

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
	"github.com/mark3labs/mcp-go/mcp"
)

const snippetLength = 120

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg extracts a float argument from a tool request.
func floatArg(req mcp.CallToolRequest, key string, defaultVal float64) float64 {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return v
}

// clamp bounds n to [1, max].
func clamp(n, max int) int {
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// writeNode renders one node as a markdown list entry.
func writeNode(b *strings.Builder, n semantic.Node, t semantic.Thresholds) {
	z := n.ZoneWith(t)
	fmt.Fprintf(b, "- %s **%s** | ΔS=%.3f (%s) | %s | %s\n",
		z.Marker(), n.Topic, n.DeltaS, z, n.LambdaObserve.Name(), n.ModuleUsed)
	if n.Insight != "" {
		insight := strings.Join(strings.Fields(n.Insight), " ")
		if len([]rune(insight)) > snippetLength {
			insight = hook.Truncate(insight, snippetLength) + "..."
		}
		fmt.Fprintf(b, "  %s\n", insight)
	}
	fmt.Fprintf(b, "  _%s | session %s_\n", n.Timestamp.UTC().Format("2006-01-02 15:04:05"), n.SessionID)
}

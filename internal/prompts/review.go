// Package prompts implements MCP prompt handlers for semantic-hooks.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReviewPrompt handles the semantic-review MCP prompt.
// It asks the AI to walk through the session trajectory and point out the
// jumps that deserve a second look.
type ReviewPrompt struct{}

// NewReviewPrompt creates a ReviewPrompt.
func NewReviewPrompt() *ReviewPrompt {
	return &ReviewPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *ReviewPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("semantic-review",
		mcp.WithPromptDescription(
			"Review the reasoning trajectory of a session: where it drifted, "+
				"which steps landed in the risk or danger zones, and whether "+
				"they were grounded afterwards.",
		),
		mcp.WithArgument("session_id",
			mcp.ArgumentDescription("Session to review. Default: the most recent nodes of all sessions"),
		),
	)
}

// Handle processes the semantic-review prompt request.
func (p *ReviewPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	session := req.Params.Arguments["session_id"]

	treeCall := "`semantic_tree`"
	scope := "recent work"
	if session != "" {
		treeCall = fmt.Sprintf("`semantic_tree` with session_id='%s'", session)
		scope = "session " + session
	}

	return &mcp.GetPromptResult{
		Description: "Semantic review of " + scope,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please review the reasoning trajectory of my " + scope + ".\n\n" +
						"1. Run `semantic_stats` for the overall zone distribution\n" +
						"2. Run " + treeCall + " and read it oldest first\n" +
						"3. Run `semantic_zone` with zone='danger', then zone='risk'\n" +
						"4. For every risky or dangerous step, tell me what changed direction and whether " +
						"the following steps brought the work back on track\n" +
						"5. End with the one or two steps I should double-check before relying on the result",
				),
			},
		},
	}, nil
}

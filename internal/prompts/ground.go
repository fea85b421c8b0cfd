package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// GroundPrompt handles the semantic-ground MCP prompt.
// It guides the AI back to known territory after a blocked step.
type GroundPrompt struct{}

// NewGroundPrompt creates a GroundPrompt.
func NewGroundPrompt() *GroundPrompt {
	return &GroundPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *GroundPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("semantic-ground",
		mcp.WithPromptDescription(
			"Find a grounded path to a step that was blocked in the danger zone, "+
				"using bridge topics from earlier work.",
		),
		mcp.WithArgument("target",
			mcp.ArgumentDescription("What you were trying to do when the step was blocked"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("current",
			mcp.ArgumentDescription("What the session was working on before the jump. Default: ask"),
		),
	)
}

// Handle processes the semantic-ground prompt request.
func (p *GroundPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	target := req.Params.Arguments["target"]
	if target == "" {
		return nil, fmt.Errorf("semantic-ground: target is required")
	}

	current := req.Params.Arguments["current"]
	step := "1. Ask me in one sentence what we were working on before this step\n"
	if current != "" {
		step = fmt.Sprintf("1. We were working on: %s\n", current)
	}

	return &mcp.GetPromptResult{
		Description: "Ground the step: " + target,
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"A step was blocked because it jumped too far from the current trajectory. "+
						"The step was: %s\n\n"+
						"%s"+
						"2. Run `semantic_bridge` with current=<that work> and target='%s'\n"+
						"3. Run `semantic_similar` with text='%s' to see if we have done something close before\n"+
						"4. Propose a sequence of smaller steps through the bridge topics, and wait for my go-ahead\n"+
						"5. If no bridge exists, say so and ask me to confirm the direction instead of retrying the step",
					target, step, target, target,
				)),
			},
		},
	}, nil
}

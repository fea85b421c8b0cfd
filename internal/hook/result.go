package hook

import (
	"encoding/json"
	"fmt"
	"io"
)

// Exit codes understood by the host.
const (
	ExitAllow = 0
	ExitError = 1
	ExitBlock = 2
)

// Result is a hook's answer.
type Result struct {
	Allow             bool
	Block             bool
	Message           string
	AdditionalContext string
	// RecordNode asks the caller to persist an observation for this call.
	RecordNode bool
}

// Allowed returns an allowing result with an optional message.
func Allowed(message string) Result {
	return Result{Allow: true, Message: message}
}

// Blocked returns a blocking result.
func Blocked(message string) Result {
	return Result{Allow: false, Block: true, Message: message}
}

// ExitCode maps the result to the host's contract: block → 2, not allowed
// → 1, otherwise 0.
func (r Result) ExitCode() int {
	if r.Block {
		return ExitBlock
	}
	if !r.Allow {
		return ExitError
	}
	return ExitAllow
}

// Output is the JSON document written to stdout.
type Output struct {
	Message            string          `json:"message,omitempty"`
	AdditionalContext  string          `json:"additionalContext,omitempty"`
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// SpecificOutput carries context the host injects into the conversation.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// Output renders the stdout document for ev.
func (r Result) Output(ev Event) Output {
	out := Output{Message: r.Message, AdditionalContext: r.AdditionalContext}
	if r.AdditionalContext != "" {
		out.HookSpecificOutput = &SpecificOutput{
			HookEventName:     string(ev),
			AdditionalContext: r.AdditionalContext,
		}
	}
	return out
}

// Write emits the result: JSON on stdout when there is anything to say,
// and the message on stderr when the call is blocked, since the host
// feeds stderr back to the agent on exit 2. It returns the exit code.
func (r Result) Write(ev Event, stdout, stderr io.Writer) (int, error) {
	code := r.ExitCode()
	if code == ExitBlock && r.Message != "" {
		if _, err := fmt.Fprintln(stderr, r.Message); err != nil {
			return code, fmt.Errorf("hook: write stderr: %w", err)
		}
	}
	if r.Message == "" && r.AdditionalContext == "" {
		return code, nil
	}
	b, err := json.Marshal(r.Output(ev))
	if err != nil {
		return code, fmt.Errorf("hook: encode output: %w", err)
	}
	if _, err := fmt.Fprintln(stdout, string(b)); err != nil {
		return code, fmt.Errorf("hook: write stdout: %w", err)
	}
	return code, nil
}

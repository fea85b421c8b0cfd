package hook

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxContextInput  = 500
	maxContextPrompt = 300
)

// Context is the per-invocation view of a hook call. It is built fresh
// from stdin and never persisted.
type Context struct {
	Event            Event
	SessionID        string
	ToolName         string
	ToolInput        map[string]any
	ToolResult       string
	ExitCode         *int
	Prompt           string
	WorkingDirectory string
	TranscriptPath   string
	Timestamp        time.Time
}

// NewContext resolves the fallbacks in in and returns the context for ev.
// For response events ToolResult carries the assistant text.
func NewContext(ev Event, in Input) Context {
	c := Context{
		Event:            ev,
		SessionID:        in.Session(),
		ToolName:         in.ToolName,
		ToolInput:        in.ToolInputMap(),
		ExitCode:         in.Exit(),
		Prompt:           in.PromptText(),
		WorkingDirectory: in.WorkingDir(),
		TranscriptPath:   in.TranscriptPath,
		Timestamp:        time.Now().UTC(),
	}
	switch ev {
	case PostResponse, Stop, SubagentStop:
		c.ToolResult = in.ResponseText()
	default:
		c.ToolResult = in.ToolResultText()
	}
	return c
}

// Text summarises the salient parts of the call for embedding:
// "Tool: X | Input: {...} | Prompt: ...". Long inputs and prompts are cut.
func (c Context) Text() string {
	var parts []string
	if c.ToolName != "" {
		parts = append(parts, "Tool: "+c.ToolName)
	}
	if len(c.ToolInput) > 0 {
		b, err := json.Marshal(c.ToolInput)
		if err == nil {
			s := string(b)
			if utf8.RuneCountInString(s) > maxContextInput {
				s = Truncate(s, maxContextInput) + "..."
			}
			parts = append(parts, "Input: "+s)
		}
	}
	if c.Prompt != "" {
		parts = append(parts, "Prompt: "+Truncate(c.Prompt, maxContextPrompt))
	}
	return strings.Join(parts, " | ")
}

// InputString returns the string value of the first key present in the
// tool input.
func (c Context) InputString(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := c.ToolInput[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s, true
		}
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		return string(b), true
	}
	return "", false
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

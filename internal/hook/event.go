// Package hook defines the host agent's hook protocol: the events it fires,
// the JSON document it writes to a hook's stdin, and the JSON plus exit code
// a hook answers with.
package hook

import (
	"fmt"
	"strings"
)

// Event is a lifecycle point at which the host invokes a hook.
type Event string

const (
	SessionStart      Event = "SessionStart"
	SessionEnd        Event = "SessionEnd"
	PreToolUse        Event = "PreToolUse"
	PostToolUse       Event = "PostToolUse"
	PostResponse      Event = "PostResponse"
	UserPromptSubmit  Event = "UserPromptSubmit"
	PreCompact        Event = "PreCompact"
	Notification      Event = "Notification"
	Stop              Event = "Stop"
	SubagentStart     Event = "SubagentStart"
	SubagentStop      Event = "SubagentStop"
	PermissionRequest Event = "PermissionRequest"
)

// Events lists every known event.
var Events = []Event{
	SessionStart, SessionEnd, PreToolUse, PostToolUse, PostResponse, UserPromptSubmit,
	PreCompact, Notification, Stop, SubagentStart, SubagentStop, PermissionRequest,
}

var slugs = map[Event]string{
	SessionStart:      "session-start",
	SessionEnd:        "session-end",
	PreToolUse:        "pre-tool-use",
	PostToolUse:       "post-tool-use",
	PostResponse:      "post-response",
	UserPromptSubmit:  "user-prompt-submit",
	PreCompact:        "pre-compact",
	Notification:      "notification",
	Stop:              "stop",
	SubagentStart:     "subagent-start",
	SubagentStop:      "subagent-stop",
	PermissionRequest: "permission-request",
}

// Slug is the command-line name of the event, e.g. "pre-tool-use".
func (e Event) Slug() string {
	if s, ok := slugs[e]; ok {
		return s
	}
	return strings.ToLower(string(e))
}

// FailClosed reports whether an internal failure while handling the event
// must stop the host. Only the pre-tool-use gate fails closed.
func (e Event) FailClosed() bool {
	return e == PreToolUse
}

// ParseEvent accepts a wire name ("PreToolUse") or a slug ("pre-tool-use").
// Matching is case-insensitive and ignores '-' and '_'.
func ParseEvent(s string) (Event, error) {
	key := normalizeEvent(s)
	for _, e := range Events {
		if normalizeEvent(string(e)) == key {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown hook event %q", s)
}

func normalizeEvent(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "").Replace(s)
}

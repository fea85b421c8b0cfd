package hook

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxInputBytes caps stdin reads. Hook payloads are small JSON objects.
const MaxInputBytes = 1 << 20

// ErrInputTooLarge is returned when stdin holds more than MaxInputBytes.
var ErrInputTooLarge = errors.New("hook: input exceeds 1 MiB")

// maxTranscriptLine bounds a single JSONL line when scanning transcripts.
const maxTranscriptLine = 4 << 20

// Input is the JSON document the host writes to a hook's stdin. Hosts and
// host versions disagree on a few field names, so some values have more
// than one source; the accessor methods apply the fallback order.
type Input struct {
	SessionID      string `json:"session_id"`
	SessionIDCamel string `json:"sessionId"`
	HookEventName  string `json:"hook_event_name"`
	TranscriptPath string `json:"transcript_path"`

	CWD              string `json:"cwd"`
	WorkingDirectory string `json:"working_directory"`

	Prompt          string `json:"prompt"`
	UserMessageText string `json:"user_message_text"`
	Message         string `json:"message"`

	ToolName     string          `json:"tool_name"`
	ToolInput    json.RawMessage `json:"tool_input"`
	ToolResult   json.RawMessage `json:"tool_result"`
	ToolResponse json.RawMessage `json:"tool_response"`
	ExitCode     *int            `json:"exit_code"`

	Response             json.RawMessage `json:"response"`
	LastAssistantMessage string          `json:"last_assistant_message"`
}

// ReadInput decodes one hook document from r, reading at most
// MaxInputBytes. Larger input fails with ErrInputTooLarge. Empty input
// yields a zero Input.
func ReadInput(r io.Reader) (Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxInputBytes+1))
	if err != nil {
		return Input{}, fmt.Errorf("hook: read stdin: %w", err)
	}
	if len(data) > MaxInputBytes {
		return Input{}, ErrInputTooLarge
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Input{}, nil
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("hook: decode stdin: %w", err)
	}
	return in, nil
}

// Session returns the session id, empty for global scope.
func (in Input) Session() string {
	return firstNonEmpty(in.SessionID, in.SessionIDCamel)
}

// WorkingDir returns the directory the host was running in.
func (in Input) WorkingDir() string {
	return firstNonEmpty(in.CWD, in.WorkingDirectory)
}

// PromptText returns the user prompt.
func (in Input) PromptText() string {
	return firstNonEmpty(in.Prompt, in.UserMessageText, in.Message)
}

// ToolInputMap decodes tool_input. Non-object inputs are returned under
// the "value" key.
func (in Input) ToolInputMap() map[string]any {
	if isNull(in.ToolInput) {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(in.ToolInput, &m); err == nil {
		return m
	}
	var v any
	if err := json.Unmarshal(in.ToolInput, &v); err != nil {
		return nil
	}
	return map[string]any{"value": v}
}

// ToolResultText returns the tool's output as text, from tool_result or
// tool_response.
func (in Input) ToolResultText() string {
	if s := rawText(in.ToolResult); s != "" {
		return s
	}
	return rawText(in.ToolResponse)
}

// Exit returns the tool's exit code when the host reported one, either at
// the top level or inside tool_response.
func (in Input) Exit() *int {
	if in.ExitCode != nil {
		return in.ExitCode
	}
	if isNull(in.ToolResponse) {
		return nil
	}
	var resp struct {
		ExitCode      *int `json:"exit_code"`
		ExitCodeCamel *int `json:"exitCode"`
	}
	if err := json.Unmarshal(in.ToolResponse, &resp); err != nil {
		return nil
	}
	if resp.ExitCode != nil {
		return resp.ExitCode
	}
	return resp.ExitCodeCamel
}

// ResponseText returns the assistant's latest text. The order is
// tool_result, tool_response, response, last_assistant_message, then the
// last assistant entry of the transcript file.
func (in Input) ResponseText() string {
	if s := in.ToolResultText(); s != "" {
		return s
	}
	if s := rawText(in.Response); s != "" {
		return s
	}
	if in.LastAssistantMessage != "" {
		return in.LastAssistantMessage
	}
	if in.TranscriptPath == "" {
		return ""
	}
	text, err := LastAssistantText(in.TranscriptPath)
	if err != nil {
		return ""
	}
	return text
}

// ─── Transcript ──────────────────────────────────────────────────────────────

type transcriptEntry struct {
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Message *struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// LastAssistantText scans a JSONL transcript and returns the text of the
// last assistant message. Unparseable lines are skipped.
func LastAssistantText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hook: open transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxTranscriptLine)

	var last string
	for sc.Scan() {
		var e transcriptEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		role, content := e.Role, e.Content
		if e.Message != nil {
			role, content = e.Message.Role, e.Message.Content
		}
		if role != "assistant" && e.Type != "assistant" {
			continue
		}
		if text := contentText(content); text != "" {
			last = text
		}
	}
	if err := sc.Err(); err != nil {
		return last, fmt.Errorf("hook: scan transcript: %w", err)
	}
	return last, nil
}

// contentText flattens a message content field, which is either a string
// or a list of typed blocks.
func contentText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(parts, "\n")
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// rawText renders a JSON value as text: strings are unquoted, command
// results use stdout and stderr, anything else is compact JSON.
func rawText(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var cmd struct {
		Stdout *string `json:"stdout"`
		Stderr string  `json:"stderr"`
	}
	if err := json.Unmarshal(raw, &cmd); err == nil && cmd.Stdout != nil {
		out := *cmd.Stdout
		if cmd.Stderr != "" {
			if out != "" {
				out += "\n"
			}
			out += cmd.Stderr
		}
		return out
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

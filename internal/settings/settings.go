// Package settings registers semantic-hooks in the host agent's
// settings.json. Only entries that invoke our hook handlers are touched;
// hooks installed by anything else are preserved as they are.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/tidwall/jsonc"

	"github.com/HendryAvila/semantic-hooks/internal/hook"
)

// ErrMalformed is returned when the settings file exists but is not a JSON
// object, even after comments and trailing commas are stripped.
var ErrMalformed = errors.New("settings: malformed settings file")

// DefaultEvents are the events registered by install.
var DefaultEvents = []hook.Event{
	hook.SessionStart,
	hook.UserPromptSubmit,
	hook.PreToolUse,
	hook.PostToolUse,
	hook.PostResponse,
	hook.Stop,
	hook.PreCompact,
	hook.SessionEnd,
}

// timeouts in milliseconds; events not listed run without one.
var timeouts = map[hook.Event]int{
	hook.PreToolUse:       5000,
	hook.PostToolUse:      3000,
	hook.PostResponse:     3000,
	hook.Stop:             3000,
	hook.UserPromptSubmit: 3000,
}

// legacyScripts are the handler scripts of the earlier Python release.
// Entries pointing at them are ours too, so install replaces them.
var legacyScripts = []string{
	"pre_tool_use.py",
	"post_tool_use.py",
	"post_response.py",
	"session_start.py",
	"session_end.py",
	"pre_compact.py",
}

// Path returns ~/.claude/settings.json.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".claude", "settings.json")
}

// Command is the shell command the host runs for event.
func Command(binary string, event hook.Event) string {
	return shellQuote(binary) + " hook " + event.Slug()
}

// Read loads the settings file. A missing or empty file yields an empty
// object.
func Read(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s: not an object", ErrMalformed, path)
	}
	return out, nil
}

// Write stores settings as indented JSON, atomically.
func Write(path string, settings map[string]any) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}

// Install registers binary as the handler for events, replacing any entries
// of ours already present. With force, a malformed settings file is
// replaced by a fresh one instead of failing.
func Install(path, binary string, events []hook.Event, force bool) error {
	settings, err := Read(path)
	if err != nil {
		if !force || !errors.Is(err, ErrMalformed) {
			return err
		}
		settings = map[string]any{}
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = map[string]any{}
	}
	removeOwned(hooks)

	for _, ev := range events {
		cmd := map[string]any{
			"type":    "command",
			"command": Command(binary, ev),
		}
		if ms, ok := timeouts[ev]; ok {
			cmd["timeout"] = ms
		}
		entry := map[string]any{
			"matcher": "*",
			"hooks":   []any{cmd},
		}
		list, _ := hooks[string(ev)].([]any)
		hooks[string(ev)] = append(list, entry)
	}

	if len(hooks) == 0 {
		delete(settings, "hooks")
	} else {
		settings["hooks"] = hooks
	}
	return Write(path, settings)
}

// Uninstall removes every entry of ours and reports how many were removed.
// A missing settings file is not an error.
func Uninstall(path string) (int, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	settings, err := Read(path)
	if err != nil {
		return 0, err
	}
	hooks, ok := settings["hooks"].(map[string]any)
	if !ok {
		return 0, nil
	}
	removed := removeOwned(hooks)
	if removed == 0 {
		return 0, nil
	}
	if len(hooks) == 0 {
		delete(settings, "hooks")
	}
	return removed, Write(path, settings)
}

// Registered lists the events that currently have an entry of ours,
// sorted by name.
func Registered(path string) ([]hook.Event, error) {
	settings, err := Read(path)
	if err != nil {
		return nil, err
	}
	hooks, _ := settings["hooks"].(map[string]any)
	var out []hook.Event
	for name, v := range hooks {
		list, _ := v.([]any)
		for _, e := range list {
			if isOwned(e) {
				out = append(out, hook.Event(name))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// removeOwned drops our entries from every event list, deleting lists that
// end up empty.
func removeOwned(hooks map[string]any) int {
	removed := 0
	for name, v := range hooks {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		kept := list[:0:0]
		for _, e := range list {
			if isOwned(e) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(hooks, name)
		} else {
			hooks[name] = kept
		}
	}
	return removed
}

// isOwned reports whether a settings entry runs one of our handlers. The
// host runs the first command of an entry, so that is the one checked.
func isOwned(entry any) bool {
	m, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	list, _ := m["hooks"].([]any)
	if len(list) == 0 {
		return false
	}
	first, _ := list[0].(map[string]any)
	cmd, _ := first["command"].(string)
	if cmd == "" {
		return false
	}
	for _, s := range legacyScripts {
		if strings.Contains(cmd, s) {
			return true
		}
	}
	if !strings.Contains(cmd, "semantic-hooks") {
		return false
	}
	for _, ev := range hook.Events {
		if strings.HasSuffix(cmd, " hook "+ev.Slug()) {
			return true
		}
	}
	return false
}

// shellQuote quotes s for a POSIX shell when it contains anything beyond
// plain path characters.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("/._-+:@%=,", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

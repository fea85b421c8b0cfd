package settings

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/semantic-hooks/internal/hook"
)

const bin = "/usr/local/bin/semantic-hooks"

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".claude", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readHooks(t *testing.T, path string) map[string]any {
	t.Helper()
	s, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	h, _ := s["hooks"].(map[string]any)
	return h
}

func TestInstall_FreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".claude", "settings.json")
	if err := Install(path, bin, DefaultEvents, false); err != nil {
		t.Fatalf("Install: %v", err)
	}

	hooks := readHooks(t, path)
	if len(hooks) != len(DefaultEvents) {
		t.Fatalf("events = %d, want %d", len(hooks), len(DefaultEvents))
	}
	list := hooks["PreToolUse"].([]any)
	entry := list[0].(map[string]any)
	if entry["matcher"] != "*" {
		t.Errorf("matcher = %v, want *", entry["matcher"])
	}
	cmd := entry["hooks"].([]any)[0].(map[string]any)
	if cmd["command"] != bin+" hook pre-tool-use" {
		t.Errorf("command = %v", cmd["command"])
	}
	if cmd["timeout"] != float64(5000) {
		t.Errorf("timeout = %v, want 5000", cmd["timeout"])
	}

	start := hooks["SessionStart"].([]any)[0].(map[string]any)
	if _, ok := start["hooks"].([]any)[0].(map[string]any)["timeout"]; ok {
		t.Error("SessionStart should have no timeout")
	}
}

func TestInstall_PreservesForeignHooksAndIsIdempotent(t *testing.T) {
	path := writeFile(t, `{
  // user settings
  "theme": "dark",
  "hooks": {
    "PreToolUse": [
      {"matcher": "Bash", "hooks": [{"type": "command", "command": "my-linter"}]},
    ],
  },
}`)
	for i := 0; i < 2; i++ {
		if err := Install(path, bin, []hook.Event{hook.PreToolUse}, false); err != nil {
			t.Fatalf("Install #%d: %v", i, err)
		}
	}

	s, _ := Read(path)
	if s["theme"] != "dark" {
		t.Errorf("theme = %v, want dark", s["theme"])
	}
	list := readHooks(t, path)["PreToolUse"].([]any)
	if len(list) != 2 {
		t.Fatalf("PreToolUse entries = %d, want 2 (foreign + ours)", len(list))
	}
	if isOwned(list[0]) || !isOwned(list[1]) {
		t.Error("foreign entry should come first, ours second")
	}
}

func TestInstall_ReplacesLegacyScripts(t *testing.T) {
	path := writeFile(t, `{"hooks": {"PostToolUse": [
  {"matcher": "*", "hooks": [{"type": "command", "command": "python3 /home/u/.semantic-hooks/hooks/post_tool_use.py"}]}
]}}`)
	if err := Install(path, bin, []hook.Event{hook.PostToolUse}, false); err != nil {
		t.Fatal(err)
	}
	list := readHooks(t, path)["PostToolUse"].([]any)
	if len(list) != 1 {
		t.Fatalf("entries = %d, want 1", len(list))
	}
	cmd := list[0].(map[string]any)["hooks"].([]any)[0].(map[string]any)["command"].(string)
	if !strings.HasSuffix(cmd, "hook post-tool-use") {
		t.Errorf("command = %q", cmd)
	}
}

func TestInstall_Malformed(t *testing.T) {
	path := writeFile(t, `{"hooks": [`)

	err := Install(path, bin, DefaultEvents, false)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Install = %v, want ErrMalformed", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != `{"hooks": [` {
		t.Error("malformed file must be left untouched without force")
	}

	if err := Install(path, bin, DefaultEvents, true); err != nil {
		t.Fatalf("Install(force): %v", err)
	}
	if got, _ := Registered(path); len(got) != len(DefaultEvents) {
		t.Errorf("Registered = %v", got)
	}
}

func TestUninstall(t *testing.T) {
	path := writeFile(t, `{"model": "x", "hooks": {"Stop": [
  {"matcher": "*", "hooks": [{"type": "command", "command": "notify-send done"}]}
]}}`)
	if err := Install(path, bin, DefaultEvents, false); err != nil {
		t.Fatal(err)
	}

	removed, err := Uninstall(path)
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if removed != len(DefaultEvents) {
		t.Errorf("removed = %d, want %d", removed, len(DefaultEvents))
	}
	hooks := readHooks(t, path)
	if len(hooks) != 1 || len(hooks["Stop"].([]any)) != 1 {
		t.Errorf("hooks after uninstall = %v, want only the foreign Stop hook", hooks)
	}
}

func TestUninstall_DropsEmptyHooksKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := Install(path, bin, []hook.Event{hook.SessionEnd}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := Uninstall(path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	var s map[string]any
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatal(err)
	}
	if _, ok := s["hooks"]; ok {
		t.Errorf("settings = %s, want no hooks key", data)
	}
}

func TestUninstall_MissingFile(t *testing.T) {
	n, err := Uninstall(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil || n != 0 {
		t.Errorf("Uninstall(missing) = %d, %v", n, err)
	}
}

func TestRegistered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if got, err := Registered(path); err != nil || len(got) != 0 {
		t.Fatalf("Registered(missing) = %v, %v", got, err)
	}
	if err := Install(path, bin, []hook.Event{hook.SessionStart, hook.PreCompact}, false); err != nil {
		t.Fatal(err)
	}
	got, err := Registered(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []hook.Event{hook.PreCompact, hook.SessionStart}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Registered = %v, want %v", got, want)
	}
}

func TestCommand_Quoting(t *testing.T) {
	tests := []struct {
		binary string
		want   string
	}{
		{"/opt/bin/semantic-hooks", "/opt/bin/semantic-hooks hook stop"},
		{"/Users/Jo Doe/bin/semantic-hooks", "'/Users/Jo Doe/bin/semantic-hooks' hook stop"},
		{"/tmp/it's/semantic-hooks", `'/tmp/it'"'"'s/semantic-hooks' hook stop`},
	}
	for _, tt := range tests {
		if got := Command(tt.binary, hook.Stop); got != tt.want {
			t.Errorf("Command(%q) = %q, want %q", tt.binary, got, tt.want)
		}
	}
	if !isOwned(map[string]any{"hooks": []any{map[string]any{"command": Command("/Users/Jo Doe/bin/semantic-hooks", hook.Stop)}}}) {
		t.Error("quoted command should still be recognised as ours")
	}
}

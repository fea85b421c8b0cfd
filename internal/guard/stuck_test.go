package guard_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/semantic-hooks/internal/guard"
	"github.com/HendryAvila/semantic-hooks/internal/hook"
)

const loopText = "The database migration failed because the database schema is outdated; " +
	"migration scripts need the database updated."

func TestExtractSignature(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  int
		want string
	}{
		{"too short", "database migration failed", 2, ""},
		{"frequency then first occurrence", loopText, 2, "because,database,failed,migration,schema"},
		{
			"stop words and short words dropped",
			"okay thanks please, sorry hello! what which where: the and but. Yes, sure, right, well.",
			1, "",
		},
		{
			"below minimum words",
			"okay thanks please, sorry hello! what which where: the and but. Kubernetes, sure, right.",
			2, "",
		},
		{
			"punctuation splits words",
			"config-loader: config-loader, config_loader!! (config) loader... the and but or if",
			2, "config,config_loader,loader",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := guard.ExtractSignature(tt.text, tt.min); got != tt.want {
				t.Errorf("ExtractSignature() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"a,b,c", "a,b,c", 1},
		{"a,b,c", "b,c,d", 0.5},
		{"a,b", "c,d", 0},
		{"a,b,c,d,e", "a,b,c,d,f", 4.0 / 6.0},
	}
	for _, tt := range tests {
		if got := guard.Jaccard(tt.a, tt.b); got != tt.want {
			t.Errorf("Jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBuildNudge(t *testing.T) {
	got := guard.BuildNudge("alpha,beta", "Sam")
	for _, want := range []string{
		"<stuck-detection>",
		"- Repeating topic words: alpha, beta",
		"1. Ask Sam a direct question about what they want",
		"4. Do NOT repeat status updates unless explicitly asked\n</stuck-detection>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("nudge missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(guard.BuildNudge("x,y", ""), "Ask User a direct") {
		t.Error("empty user name should default to User")
	}
}

func responseCtx(text string) hook.Context {
	return hook.Context{Event: hook.PostResponse, SessionID: "s1", ToolResult: text}
}

func TestStuckGuard_DetectsRepetition(t *testing.T) {
	g := guard.NewStuckGuard(guard.StuckConfig{UserName: "Alex"})
	var history []guard.HistoryEntry

	for turn := 1; turn <= 3; turn++ {
		r, res := g.Check(responseCtx(loopText), history)
		if r.ExitCode() != hook.ExitAllow {
			t.Fatalf("turn %d: exit %d, stuck guard must never block", turn, r.ExitCode())
		}
		if len(res.History) != turn {
			t.Fatalf("turn %d: history len = %d", turn, len(res.History))
		}
		history = res.History

		if turn < 3 {
			if res.Stuck || r.AdditionalContext != "" {
				t.Errorf("turn %d: stuck too early: %+v", turn, res)
			}
			continue
		}
		if !res.Stuck || res.SimilarCount != 3 {
			t.Fatalf("turn 3: result = %+v, want stuck with 3 similar", res)
		}
		if r.Message != "⚠️ Stuck loop detected (3 similar turns)" {
			t.Errorf("Message = %q", r.Message)
		}
		if !strings.Contains(r.AdditionalContext, "Ask Alex a direct question") {
			t.Errorf("AdditionalContext = %q", r.AdditionalContext)
		}
	}
}

func TestStuckGuard_VariedTopicsNotStuck(t *testing.T) {
	g := guard.NewStuckGuard(guard.StuckConfig{})
	texts := []string{
		loopText,
		"Rendering terminal colors requires checking the terminal profile before writing escape sequences.",
		"Kubernetes deployments roll pods gradually; readiness probes gate traffic during rollout windows.",
	}
	var history []guard.HistoryEntry
	for i, text := range texts {
		_, res := g.Check(responseCtx(text), history)
		if res.Stuck {
			t.Errorf("turn %d flagged as stuck", i)
		}
		history = res.History
	}
}

func TestStuckGuard_SkipsWithoutSignature(t *testing.T) {
	g := guard.NewStuckGuard(guard.StuckConfig{})
	prior := []guard.HistoryEntry{{Signature: "a,b"}}

	r, res := g.Check(responseCtx("ok"), prior)
	if r.ExitCode() != hook.ExitAllow || res.Signature != "" || res.History != nil {
		t.Errorf("Check(short) = %+v, %+v", r, res)
	}
	r, res = g.Check(hook.Context{Event: hook.PostResponse}, prior)
	if r.ExitCode() != hook.ExitAllow || res.History != nil {
		t.Errorf("Check(empty) = %+v, %+v", r, res)
	}
}

func TestStuckGuard_FallsBackToPrompt(t *testing.T) {
	g := guard.NewStuckGuard(guard.StuckConfig{})
	_, res := g.Check(hook.Context{Event: hook.Stop, Prompt: loopText}, nil)
	if res.Signature == "" {
		t.Error("prompt text was not fingerprinted")
	}
}

func TestStuckGuard_StripsMarkdown(t *testing.T) {
	g := guard.NewStuckGuard(guard.StuckConfig{})
	md := "## Database **migration**\n\n- the `database` schema\n- migration [scripts](https://example.com/scripts)\n"
	_, res := g.Check(responseCtx(md), nil)
	if strings.Contains(res.Signature, "https") || strings.Contains(res.Signature, "example") {
		t.Errorf("Signature %q includes link target", res.Signature)
	}
	if !strings.Contains(res.Signature, "database") {
		t.Errorf("Signature = %q, want database", res.Signature)
	}
}

func TestStuckGuard_TrimsHistory(t *testing.T) {
	g := guard.NewStuckGuard(guard.StuckConfig{MaxHistory: 4})
	var prior []guard.HistoryEntry
	for i := 0; i < 6; i++ {
		prior = append(prior, guard.HistoryEntry{Signature: fmt.Sprintf("w%d,x", i)})
	}
	_, res := g.Check(responseCtx(loopText), prior)
	if len(res.History) != 4 {
		t.Fatalf("history len = %d, want 4", len(res.History))
	}
	if res.History[3].Signature != res.Signature || res.History[0].Signature != "w3,x" {
		t.Errorf("history = %+v", res.History)
	}
}

func TestHistory_LoadSaveReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stuck-history.json")
	h := guard.NewHistory(path, 2)

	got, err := h.Load()
	if err != nil || got != nil {
		t.Fatalf("Load(missing) = %v, %v", got, err)
	}

	entries := []guard.HistoryEntry{{Signature: "a"}, {Signature: "b"}, {Signature: "c"}}
	if err := h.Save(entries); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = h.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Signature != "b" || got[1].Signature != "c" {
		t.Errorf("Load() = %+v, want newest two", got)
	}

	if err := h.Reset(); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if strings.TrimSpace(string(b)) != "[]" {
		t.Errorf("after Reset file = %q, want []", b)
	}
}

func TestHistory_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	if err := os.WriteFile(path, []byte(`{"not":"a list"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := guard.NewHistory(path, 0).Load()
	if err == nil || got != nil {
		t.Errorf("Load(malformed) = %v, %v; want nil entries and an error", got, err)
	}
}

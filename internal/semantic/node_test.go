package semantic_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want semantic.Direction
	}{
		{"->", semantic.Convergent},
		{"<-", semantic.Divergent},
		{"<>", semantic.Recursive},
		{"convergent", semantic.Convergent},
		{"DIVERGENT", semantic.Divergent},
		{" recursive ", semantic.Recursive},
	}
	for _, tt := range tests {
		got, err := semantic.ParseDirection(tt.in)
		if err != nil {
			t.Errorf("ParseDirection(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := semantic.ParseDirection("sideways"); err == nil {
		t.Error("ParseDirection(sideways) = nil error")
	}
}

func TestNewNode(t *testing.T) {
	n := semantic.NewNode("main.go", 0.5, semantic.Convergent, "tool:Edit", "edited", "s1")
	if n.ID == "" {
		t.Error("ID is empty")
	}
	if n.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
	if n.Zone() != semantic.ZoneTransitional {
		t.Errorf("Zone() = %q, want transitional", n.Zone())
	}
	other := semantic.NewNode("main.go", 0.5, semantic.Convergent, "tool:Edit", "edited", "s1")
	if other.ID == n.ID {
		t.Error("two nodes share an ID")
	}
}

func TestNode_JSONRoundTrip(t *testing.T) {
	n := semantic.Node{
		ID:            "abc",
		Topic:         "internal/x.go",
		DeltaS:        0.85,
		LambdaObserve: semantic.Divergent,
		ModuleUsed:    "tool:Bash",
		Insight:       "exit status 1",
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		SessionID:     "s1",
		ProjectID:     "proj",
		ParentID:      "root",
		Embedding:     []float32{1, 2},
		Metadata:      map[string]any{"branch": "main"},
	}

	b, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"zone":"danger"`) {
		t.Errorf("marshaled node missing derived zone: %s", b)
	}
	if strings.Contains(string(b), "embedding") {
		t.Errorf("embedding should not be serialized: %s", b)
	}

	var got semantic.Node
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.ID != n.ID || got.Topic != n.Topic || got.DeltaS != n.DeltaS ||
		got.LambdaObserve != n.LambdaObserve || got.ModuleUsed != n.ModuleUsed ||
		got.Insight != n.Insight || !got.Timestamp.Equal(n.Timestamp) ||
		got.SessionID != n.SessionID || got.ProjectID != n.ProjectID || got.ParentID != n.ParentID {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, n)
	}
	if got.Metadata["branch"] != "main" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
	if got.Zone() != semantic.ZoneDanger {
		t.Errorf("Zone() after round trip = %q", got.Zone())
	}
}

func TestNode_UnmarshalDirectionName(t *testing.T) {
	var n semantic.Node
	if err := json.Unmarshal([]byte(`{"id":"x","lambda_observe":"RECURSIVE","zone":"safe","delta_s":0.9}`), &n); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if n.LambdaObserve != semantic.Recursive {
		t.Errorf("LambdaObserve = %q, want <>", n.LambdaObserve)
	}
	// zone is derived, the stale value in the document is ignored
	if n.Zone() != semantic.ZoneDanger {
		t.Errorf("Zone() = %q, want danger", n.Zone())
	}
}

func TestZoneSummary(t *testing.T) {
	nodes := []semantic.Node{{DeltaS: 0.1}, {DeltaS: 0.2}, {DeltaS: 0.95}}
	got := semantic.ZoneSummary(nodes, semantic.DefaultThresholds)
	if len(got) != 4 {
		t.Errorf("len = %d, want every zone present", len(got))
	}
	if got[semantic.ZoneSafe] != 2 || got[semantic.ZoneDanger] != 1 || got[semantic.ZoneRisk] != 0 {
		t.Errorf("ZoneSummary = %v", got)
	}
}

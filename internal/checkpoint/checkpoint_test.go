package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestCheckpointer(t *testing.T, store Exporter) *Checkpointer {
	t.Helper()
	c := New(store, Config{Dir: filepath.Join(t.TempDir(), "checkpoints"), DigestSize: 2})
	c.now = func() time.Time { return fixedNow }
	return c
}

func openStore(t *testing.T) *memory.Store {
	t.Helper()
	s, err := memory.New(memory.Config{DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRun_EmptyStore(t *testing.T) {
	c := newTestCheckpointer(t, openStore(t))

	rep, err := c.Run(context.Background(), "0123456789abcdef")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.WriteErr != nil {
		t.Fatalf("WriteErr: %v", rep.WriteErr)
	}
	if rep.Digest != "" {
		t.Errorf("Digest = %q, want empty", rep.Digest)
	}
	if filepath.Base(rep.Path) != "checkpoint-01234567-20260304-050607.json" {
		t.Errorf("Path = %s", rep.Path)
	}

	b, err := os.ReadFile(rep.Path)
	if err != nil {
		t.Fatalf("checkpoint file missing: %v", err)
	}
	var doc struct {
		NodeCount *int              `json:"node_count"`
		Nodes     []json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("checkpoint is not valid JSON: %v", err)
	}
	if doc.NodeCount == nil || *doc.NodeCount != 0 || doc.Nodes == nil || len(doc.Nodes) != 0 {
		t.Errorf("checkpoint = %s", b)
	}
}

func TestRun_WritesNodesAndDigest(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	deltas := []float64{0.1, 0.2, 0.5}
	for i, topic := range []string{"first", "second", "third"} {
		n := semantic.NewNode(topic, deltas[i], semantic.Convergent, "Read", topic+" insight", "s1")
		n.Timestamp = fixedNow.Add(time.Duration(i) * time.Second)
		if err := store.AddNode(ctx, n); err != nil {
			t.Fatal(err)
		}
	}
	c := newTestCheckpointer(t, store)

	rep, err := c.Run(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if rep.NodeCount != 3 {
		t.Errorf("NodeCount = %d, want 3", rep.NodeCount)
	}
	lines := strings.Split(rep.Digest, "\n")
	if len(lines) != 3 {
		t.Fatalf("digest lines = %d, want header + 2:\n%s", len(lines), rep.Digest)
	}
	if !strings.Contains(lines[1], "second") || !strings.HasPrefix(lines[2], "🟡 third") {
		t.Errorf("digest = \n%s", rep.Digest)
	}

	data, err := Load(rep.Path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if data.NodeCount != 3 || data.Nodes[0].Topic != "first" || data.SessionID != "s1" {
		t.Errorf("loaded = %+v", data)
	}
}

func TestRun_ZonesFollowConfiguredThresholds(t *testing.T) {
	strict := semantic.Thresholds{Safe: 0.1, Transitional: 0.2, Risk: 0.3}
	store, err := memory.New(memory.Config{DataDir: t.TempDir(), Thresholds: strict}, nil)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	n := semantic.NewNode("drift", 0.5, semantic.Divergent, "Edit", "far from the plan", "s1")
	if err := store.AddNode(ctx, n); err != nil {
		t.Fatal(err)
	}
	c := New(store, Config{Dir: filepath.Join(t.TempDir(), "checkpoints"), Thresholds: strict})
	c.now = func() time.Time { return fixedNow }

	rep, err := c.Run(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(strings.Split(rep.Digest, "\n")[1], "🔴 drift") {
		t.Errorf("digest = \n%s", rep.Digest)
	}

	b, err := os.ReadFile(rep.Path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Nodes []struct {
			Zone semantic.Zone `json:"zone"`
		} `json:"nodes"`
		ZoneSummary map[semantic.Zone]int `json:"zone_summary"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0].Zone != semantic.ZoneDanger {
		t.Errorf("node zones = %+v, want danger", doc.Nodes)
	}
	if doc.ZoneSummary[semantic.ZoneDanger] != 1 {
		t.Errorf("zone_summary = %v", doc.ZoneSummary)
	}
}

func TestRun_WriteFailureIsReported(t *testing.T) {
	c := newTestCheckpointer(t, fakeExporter{data: &memory.ExportData{
		NodeCount: 1,
		Nodes:     []semantic.Node{{Topic: "kept", Insight: "still summarised"}},
	}})
	c.writeFile = func(string, []byte, os.FileMode) error { return errors.New("no space left on device") }

	rep, err := c.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run returned error for a write failure: %v", err)
	}
	if rep.WriteErr == nil || !strings.Contains(rep.WriteErr.Error(), "no space left") {
		t.Errorf("WriteErr = %v", rep.WriteErr)
	}
	if !strings.Contains(rep.Digest, "kept") {
		t.Errorf("Digest = %q, want it produced despite the write failure", rep.Digest)
	}
	if !strings.Contains(filepath.Base(rep.Path), "-global-") {
		t.Errorf("Path = %s, want global suffix", rep.Path)
	}
}

func TestRun_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(fakeExporter{data: &memory.ExportData{}}, Config{Dir: filepath.Join(blocker, "sub")})
	rep, err := c.Run(context.Background(), "s")
	if err != nil {
		t.Fatal(err)
	}
	if rep.WriteErr == nil {
		t.Error("WriteErr = nil for a directory under a regular file")
	}
}

func TestRun_ExportFailure(t *testing.T) {
	c := newTestCheckpointer(t, fakeExporter{err: errors.New("database is locked")})
	if _, err := c.Run(context.Background(), "s1"); err == nil {
		t.Error("Run() = nil error when export fails")
	}
}

type fakeExporter struct {
	data *memory.ExportData
	err  error
}

func (f fakeExporter) Export(context.Context, string) (*memory.ExportData, error) {
	return f.data, f.err
}

func TestDigest_TruncatesInsight(t *testing.T) {
	long := strings.Repeat("word ", 40)
	got := Digest([]semantic.Node{{Topic: "t", Insight: long, DeltaS: 0.9}}, 5, semantic.DefaultThresholds)
	line := strings.Split(got, "\n")[1]
	if !strings.HasPrefix(line, "🔴 t (ΔS=0.90): ") || !strings.HasSuffix(line, "...") {
		t.Errorf("line = %q", line)
	}
	if body := strings.SplitN(line, ": ", 2)[1]; len(body) != 83 {
		t.Errorf("insight length = %d, want 80 + ...", len(body))
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if _, err := Latest(dir, "s1"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Latest(empty) err = %v, want ErrNotExist", err)
	}

	for _, name := range []string{
		FileName("", fixedNow),
		FileName("s1", fixedNow),
		FileName("s1", fixedNow.Add(time.Hour)),
		FileName("s2", fixedNow.Add(2*time.Hour)),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := Latest(dir, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != FileName("s1", fixedNow.Add(time.Hour)) {
		t.Errorf("Latest(s1) = %s", got)
	}
	got, err = Latest(dir, "s3")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != FileName("", fixedNow) {
		t.Errorf("Latest(s3) = %s, want global fallback", got)
	}
}

// Package recorder turns hook calls into semantic nodes. Every call
// appends at most one node; earlier nodes are never touched.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/HendryAvila/semantic-hooks/internal/embedding"
	"github.com/HendryAvila/semantic-hooks/internal/gitinfo"
	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

const (
	maxInsight     = 200
	maxTopicDetail = 50
	minInsight     = 10
)

var trivialTools = map[string]bool{"echo": true, "pwd": true, "whoami": true}

// Store is the part of the semantic memory the recorder writes to.
type Store interface {
	AddNode(ctx context.Context, n *semantic.Node) error
	Recent(ctx context.Context, opts memory.RecentOptions) ([]semantic.Node, error)
	LastConvergent(ctx context.Context, sessionID string) (*semantic.Node, error)
	Export(ctx context.Context, sessionID string) (*memory.ExportData, error)
}

// Config tunes how ΔS is measured when the caller does not supply it.
type Config struct {
	TrajectoryWindow int
	Decay            float64
}

// Recorder persists one node per recorded hook call.
type Recorder struct {
	store    Store
	embedder embedding.Embedder
	cfg      Config

	// Project and Branch resolve the working directory's git context.
	Project func(ctx context.Context, dir string) string
	Branch  func(ctx context.Context, dir string) string
	now     func() time.Time
}

// New returns a Recorder. embedder may be nil, in which case nodes are
// stored without vectors and ΔS defaults to 0.
func New(store Store, embedder embedding.Embedder, cfg Config) *Recorder {
	if cfg.TrajectoryWindow <= 0 {
		cfg.TrajectoryWindow = 5
	}
	if cfg.Decay <= 0 {
		cfg.Decay = semantic.DefaultDecay
	}
	return &Recorder{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		Project:  gitinfo.ProjectID,
		Branch:   gitinfo.Branch,
		now:      time.Now,
	}
}

// Options adjusts a single Record call.
type Options struct {
	// DeltaS is a tension measured elsewhere, e.g. by the tension guard.
	DeltaS *float64
	// Embedding is the call's vector when the caller already has it.
	Embedding []float32
	// Force records even trivial calls.
	Force bool
	// Module, Topic and Insight override the values derived from the call.
	Module  string
	Topic   string
	Insight string
}

// Record stores a node for hc and returns it, or nil when the call was
// too trivial to keep.
func (r *Recorder) Record(ctx context.Context, hc hook.Context, opts Options) (*semantic.Node, error) {
	topic := opts.Topic
	if topic == "" {
		topic = Topic(hc)
	}
	insight := opts.Insight
	if insight == "" {
		insight = Insight(hc)
	}
	if !opts.Force && IsTrivial(hc, insight) {
		return nil, nil
	}

	module := opts.Module
	if module == "" {
		module = hc.ToolName
	}
	if module == "" {
		module = "unknown"
	}

	n := semantic.NewNode(topic, 0, Direction(hc.ExitCode), module, insight, hc.SessionID)
	n.Timestamp = r.now().UTC()
	n.Embedding = opts.Embedding
	if n.Embedding == nil && r.embedder != nil {
		vec, err := r.embedder.Embed(ctx, n.EmbeddingText())
		if err != nil {
			return nil, fmt.Errorf("recorder: embed node: %w", err)
		}
		n.Embedding = vec
	}

	if opts.DeltaS != nil {
		n.DeltaS = *opts.DeltaS
	} else {
		d, err := r.measure(ctx, hc.SessionID, n.Embedding)
		if err != nil {
			return nil, err
		}
		n.DeltaS = d
	}

	parent, err := r.store.LastConvergent(ctx, hc.SessionID)
	switch {
	case err == nil:
		n.ParentID = parent.ID
	case !errors.Is(err, memory.ErrNotFound):
		return nil, fmt.Errorf("recorder: find parent: %w", err)
	}

	n.Metadata = map[string]any{
		"exit_code":         exitValue(hc.ExitCode),
		"working_directory": hc.WorkingDirectory,
		"event":             string(hc.Event),
	}
	if hc.WorkingDirectory != "" {
		if r.Project != nil {
			n.ProjectID = r.Project(ctx, hc.WorkingDirectory)
		}
		if r.Branch != nil {
			if b := r.Branch(ctx, hc.WorkingDirectory); b != "" {
				n.Metadata["git_branch"] = b
			}
		}
	}

	if err := r.store.AddNode(ctx, n); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	return n, nil
}

// measure returns ΔS of vec against the session's recent trajectory, or 0
// when there is nothing to compare with.
func (r *Recorder) measure(ctx context.Context, sessionID string, vec []float32) (float64, error) {
	if len(vec) == 0 {
		return 0, nil
	}
	recent, err := r.store.Recent(ctx, memory.RecentOptions{
		Limit:          r.cfg.TrajectoryWindow,
		SessionID:      sessionID,
		WithEmbeddings: true,
	})
	if err != nil {
		return 0, fmt.Errorf("recorder: load trajectory: %w", err)
	}
	var embs [][]float32
	for i := len(recent) - 1; i >= 0; i-- {
		if e := recent[i].Embedding; len(e) == len(vec) {
			embs = append(embs, e)
		}
	}
	if len(embs) == 0 {
		return 0, nil
	}
	expected, err := semantic.TrajectoryEmbeddingDecay(embs, nil, r.cfg.Decay)
	if err != nil {
		return 0, fmt.Errorf("recorder: trajectory: %w", err)
	}
	return semantic.Tension(vec, expected), nil
}

// EndSession returns the session's export summary.
func (r *Recorder) EndSession(ctx context.Context, sessionID string) (*memory.ExportData, error) {
	data, err := r.store.Export(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("recorder: end session: %w", err)
	}
	return data, nil
}

// Summary is the one-line report of a recorded node.
func Summary(n *semantic.Node) string {
	return fmt.Sprintf("Recorded: %s (ΔS=%.3f, %s)", n.Topic, n.DeltaS, n.LambdaObserve)
}

// Direction infers the reasoning direction from a tool's exit code: success
// (or no code) converges, 1 diverges, anything else recurses.
func Direction(exitCode *int) semantic.Direction {
	switch {
	case exitCode == nil || *exitCode == 0:
		return semantic.Convergent
	case *exitCode == 1:
		return semantic.Divergent
	default:
		return semantic.Recursive
	}
}

// Topic names what the call touched: "Tool: <file, path, command, query
// or pattern>", or just the tool name.
func Topic(hc hook.Context) string {
	tool := hc.ToolName
	if tool == "" {
		tool = "unknown"
	}
	if v, ok := hc.InputString("file_path"); ok {
		return tool + ": " + v
	}
	if v, ok := hc.InputString("path"); ok {
		return tool + ": " + v
	}
	for _, key := range []string{"command", "query", "pattern"} {
		if v, ok := hc.InputString(key); ok {
			return tool + ": " + hook.Truncate(v, maxTopicDetail)
		}
	}
	return tool
}

// Insight compresses the tool result to at most about 200 characters.
// Long multi-line output keeps its first and last two lines.
func Insight(hc hook.Context) string {
	result := hc.ToolResult
	if result == "" {
		return "Executed " + hc.ToolName
	}
	if utf8.RuneCountInString(result) <= maxInsight {
		return result
	}
	lines := strings.Split(result, "\n")
	if len(lines) > 5 {
		kept := append(append(append([]string{}, lines[:2]...), "..."), lines[len(lines)-2:]...)
		result = strings.Join(kept, "\n")
		if utf8.RuneCountInString(result) > maxInsight {
			result = hook.Truncate(result, maxInsight) + "..."
		}
		return result
	}
	return hook.Truncate(result, maxInsight) + "..."
}

// IsTrivial reports calls not worth a node: short output from a call that
// explicitly succeeded, or a low-value tool.
func IsTrivial(hc hook.Context, insight string) bool {
	if utf8.RuneCountInString(insight) < minInsight && hc.ExitCode != nil && *hc.ExitCode == 0 {
		return true
	}
	return trivialTools[strings.ToLower(hc.ToolName)]
}

func exitValue(code *int) any {
	if code == nil {
		return nil
	}
	return *code
}

// Package guard decides whether an agent action may proceed. The tension
// guard measures how far a pending tool call drifts from the session's
// recent trajectory; the stuck guard notices when responses go in circles.
package guard

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/semantic-hooks/internal/embedding"
	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

// DefaultTrajectoryWindow is how many recent nodes form the expected
// trajectory.
const DefaultTrajectoryWindow = 5

const (
	riskBridges   = 2
	dangerBridges = 3
)

// Trajectory is the read side of the semantic memory the tension guard
// needs.
type Trajectory interface {
	Recent(ctx context.Context, opts memory.RecentOptions) ([]semantic.Node, error)
	FindBridge(ctx context.Context, current, target string, topK int) ([]semantic.Node, error)
}

// TensionConfig tunes the tension guard. Thresholds come from the
// top-level thresholds section.
type TensionConfig struct {
	Thresholds          semantic.Thresholds `yaml:"-" mapstructure:"-"`
	BlockInDanger       bool                `yaml:"block_in_danger" mapstructure:"block_in_danger"`
	InjectBridgeContext bool                `yaml:"inject_bridge_context" mapstructure:"inject_bridge_context"`
	TrajectoryWindow    int                 `yaml:"trajectory_window" mapstructure:"trajectory_window"`
	Decay               float64             `yaml:"decay" mapstructure:"decay"`
}

// DefaultTensionConfig blocks in the danger zone and suggests bridges in
// the risk zone.
func DefaultTensionConfig() TensionConfig {
	return TensionConfig{
		Thresholds:          semantic.DefaultThresholds,
		BlockInDanger:       true,
		InjectBridgeContext: true,
		TrajectoryWindow:    DefaultTrajectoryWindow,
		Decay:               semantic.DefaultDecay,
	}
}

// Assessment is what the tension guard measured for one call.
type Assessment struct {
	// Measured is false when there was no trajectory to compare against.
	Measured  bool
	DeltaS    float64
	Zone      semantic.Zone
	Embedding []float32
	Bridges   []string
	// BridgeErr is a bridge lookup failure. It never fails the check by
	// itself; a missing bridge in the danger zone still blocks.
	BridgeErr error
}

// TensionGuard compares a pending tool call with the session trajectory.
type TensionGuard struct {
	memory   Trajectory
	embedder embedding.Embedder
	cfg      TensionConfig
}

// NewTensionGuard returns a TensionGuard, filling zero fields of cfg with
// defaults.
func NewTensionGuard(mem Trajectory, emb embedding.Embedder, cfg TensionConfig) *TensionGuard {
	if cfg.Thresholds == (semantic.Thresholds{}) {
		cfg.Thresholds = semantic.DefaultThresholds
	}
	if cfg.TrajectoryWindow <= 0 {
		cfg.TrajectoryWindow = DefaultTrajectoryWindow
	}
	if cfg.Decay <= 0 {
		cfg.Decay = semantic.DefaultDecay
	}
	return &TensionGuard{memory: mem, embedder: emb, cfg: cfg}
}

// Check measures ΔS between the call in hc and the decayed average of the
// session's recent nodes, then applies the zone policy. Errors are
// returned as is; the caller decides how a failing guard behaves.
func (g *TensionGuard) Check(ctx context.Context, hc hook.Context) (hook.Result, Assessment, error) {
	if hc.Event != hook.PreToolUse {
		return hook.Allowed(""), Assessment{}, nil
	}
	text := hc.Text()
	if text == "" {
		return hook.Allowed(""), Assessment{}, nil
	}

	current, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return hook.Result{}, Assessment{}, fmt.Errorf("guard: embed context: %w", err)
	}
	a := Assessment{Embedding: current}

	recent, err := g.memory.Recent(ctx, memory.RecentOptions{
		Limit:          g.cfg.TrajectoryWindow,
		SessionID:      hc.SessionID,
		WithEmbeddings: true,
	})
	if err != nil {
		return hook.Result{}, a, fmt.Errorf("guard: load trajectory: %w", err)
	}
	if len(recent) == 0 {
		return hook.Allowed("No trajectory history - proceeding without ΔS check"), a, nil
	}

	// Recent is newest first; the trajectory wants oldest first. Vectors
	// from another provider are skipped.
	var embs [][]float32
	for i := len(recent) - 1; i >= 0; i-- {
		if e := recent[i].Embedding; len(e) > 0 && len(e) == len(current) {
			embs = append(embs, e)
		}
	}
	if len(embs) == 0 {
		return hook.Allowed(""), a, nil
	}

	expected, err := semantic.TrajectoryEmbeddingDecay(embs, nil, g.cfg.Decay)
	if err != nil {
		return hook.Result{}, a, fmt.Errorf("guard: trajectory: %w", err)
	}
	a.Measured = true
	a.DeltaS = semantic.Tension(current, expected)
	a.Zone = semantic.ClassifyWith(a.DeltaS, g.cfg.Thresholds)

	return g.decide(ctx, hc, text, &a), a, nil
}

func (g *TensionGuard) decide(ctx context.Context, hc hook.Context, text string, a *Assessment) hook.Result {
	switch a.Zone {
	case semantic.ZoneSafe:
		return hook.Allowed("")

	case semantic.ZoneTransitional:
		r := hook.Allowed(fmt.Sprintf("ΔS=%.3f (transitional zone)", a.DeltaS))
		r.RecordNode = true
		return r

	case semantic.ZoneRisk:
		r := hook.Allowed(fmt.Sprintf("⚠️ ΔS=%.3f (risk zone) - approaching unknown territory", a.DeltaS))
		r.RecordNode = true
		if g.cfg.InjectBridgeContext && hc.ToolName != "" {
			a.Bridges, a.BridgeErr = g.bridges(ctx, text, hc.ToolName, riskBridges)
			if len(a.Bridges) > 0 {
				r.AdditionalContext = "Consider connecting through these related concepts: " +
					strings.Join(a.Bridges, ", ")
			}
		}
		return r
	}

	if !g.cfg.BlockInDanger {
		r := hook.Allowed(fmt.Sprintf("🚨 ΔS=%.3f (danger zone) - high hallucination risk. Proceed with caution.", a.DeltaS))
		r.RecordNode = true
		r.AdditionalContext = "WARNING: You're entering unfamiliar territory with no clear " +
			"connection to prior context. Consider asking for clarification " +
			"or explicitly noting uncertainty."
		return r
	}

	target := hc.ToolName
	if target == "" {
		target = "unknown"
	}
	a.Bridges, a.BridgeErr = g.bridges(ctx, text, target, dangerBridges)
	if len(a.Bridges) == 0 {
		return hook.Blocked(fmt.Sprintf(
			"🛑 BLOCKED: ΔS=%.3f (danger zone) - no bridge to known territory. Request clarification.", a.DeltaS))
	}
	r := hook.Allowed(fmt.Sprintf("🚨 ΔS=%.3f (danger zone) - high hallucination risk, but bridge found", a.DeltaS))
	r.RecordNode = true
	r.AdditionalContext = "CAUTION: You're entering unfamiliar territory. Consider grounding through: " +
		strings.Join(a.Bridges, ", ")
	return r
}

func (g *TensionGuard) bridges(ctx context.Context, current, target string, topK int) ([]string, error) {
	nodes, err := g.memory.FindBridge(ctx, current, target, topK)
	if err != nil {
		return nil, fmt.Errorf("guard: find bridge: %w", err)
	}
	topics := make([]string, 0, len(nodes))
	for _, n := range nodes {
		topics = append(topics, n.Topic)
	}
	return topics, nil
}

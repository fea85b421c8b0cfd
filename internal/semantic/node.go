package semantic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ─── Direction ───────────────────────────────────────────────────────────────

// Direction is the reasoning direction at the time of an observation (λ_observe).
type Direction string

const (
	// Convergent: moving toward a conclusion.
	Convergent Direction = "->"
	// Divergent: exploring alternatives or backtracking.
	Divergent Direction = "<-"
	// Recursive: self-referential or iterating.
	Recursive Direction = "<>"
)

// ParseDirection accepts the arrow form or the name (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "->", "CONVERGENT":
		return Convergent, nil
	case "<-", "DIVERGENT":
		return Divergent, nil
	case "<>", "RECURSIVE", "NEUTRAL":
		return Recursive, nil
	}
	return "", fmt.Errorf("unknown reasoning direction %q", s)
}

// Name returns the upper-case name of the direction.
func (d Direction) Name() string {
	switch d {
	case Convergent:
		return "CONVERGENT"
	case Divergent:
		return "DIVERGENT"
	case Recursive:
		return "RECURSIVE"
	}
	return string(d)
}

// UnmarshalText implements encoding.TextUnmarshaler so persisted nodes
// written with either form parse back.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ─── Node ────────────────────────────────────────────────────────────────────

// Node is one recorded observation in the reasoning trajectory.
type Node struct {
	ID            string         `json:"id"`
	Topic         string         `json:"topic"`
	DeltaS        float64        `json:"delta_s"`
	LambdaObserve Direction      `json:"lambda_observe"`
	ModuleUsed    string         `json:"module_used"`
	Insight       string         `json:"insight"`
	Timestamp     time.Time      `json:"timestamp"`
	SessionID     string         `json:"session_id"`
	ProjectID     string         `json:"project_id,omitempty"`
	ParentID      string         `json:"parent_id,omitempty"`
	Embedding     []float32      `json:"-"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// NewNode creates a node with a fresh ID and the current time.
func NewNode(topic string, deltaS float64, dir Direction, module, insight, sessionID string) *Node {
	return &Node{
		ID:            uuid.NewString(),
		Topic:         topic,
		DeltaS:        deltaS,
		LambdaObserve: dir,
		ModuleUsed:    module,
		Insight:       insight,
		Timestamp:     time.Now().UTC(),
		SessionID:     sessionID,
	}
}

// Zone classifies the node with DefaultThresholds.
func (n *Node) Zone() Zone {
	return Classify(n.DeltaS)
}

// ZoneWith classifies the node with custom thresholds.
func (n *Node) ZoneWith(t Thresholds) Zone {
	return ClassifyWith(n.DeltaS, t)
}

// EmbeddingText is the text a node is embedded from.
func (n *Node) EmbeddingText() string {
	return n.Topic + ": " + n.Insight
}

// nodeJSON adds the derived zone to the persisted form. The zone is
// emitted for readers of checkpoint files and ignored on the way back in.
type nodeJSON struct {
	nodeAlias
	Zone Zone `json:"zone"`
}

type nodeAlias Node

// MarshalJSON emits the node with its zone under DefaultThresholds. Use
// ZonedNode when the thresholds are configured.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{nodeAlias: nodeAlias(n), Zone: n.Zone()})
}

// ZonedNode marshals a node with its zone classified under Thresholds.
type ZonedNode struct {
	Node
	Thresholds Thresholds
}

// MarshalJSON emits the node with the zone derived from z.Thresholds.
func (z ZonedNode) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{nodeAlias: nodeAlias(z.Node), Zone: z.Node.ZoneWith(z.Thresholds)})
}

// nodeIn reads the timestamp as text so documents written without a zone
// offset still parse.
type nodeIn struct {
	nodeAlias
	Timestamp *string `json:"timestamp"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON parses the persisted form, dropping the derived zone.
// Timestamps without an offset are taken as UTC.
func (n *Node) UnmarshalJSON(b []byte) error {
	var v nodeIn
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Node(v.nodeAlias)
	if v.Timestamp != nil && *v.Timestamp != "" {
		ts, err := parseTimestamp(*v.Timestamp)
		if err != nil {
			return err
		}
		n.Timestamp = ts
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable node timestamp %q", s)
}

// ZoneSummary counts nodes per zone. Every zone is present in the result.
func ZoneSummary(nodes []Node, t Thresholds) map[Zone]int {
	summary := make(map[Zone]int, len(Zones))
	for _, z := range Zones {
		summary[z] = 0
	}
	for i := range nodes {
		summary[nodes[i].ZoneWith(t)]++
	}
	return summary
}

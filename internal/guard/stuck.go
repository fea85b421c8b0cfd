package guard

import (
	"fmt"
	"time"

	"github.com/HendryAvila/semantic-hooks/internal/hook"
)

// Stuck detection defaults.
const (
	DefaultMaxHistory          = 10
	DefaultStuckThreshold      = 3
	DefaultSimilarityThreshold = 0.6
	DefaultMinSignificantWords = 2
	DefaultUserName            = "User"
)

// StuckConfig tunes loop detection.
type StuckConfig struct {
	HistoryPath         string  `yaml:"history_path" mapstructure:"history_path"`
	MaxHistory          int     `yaml:"max_history" mapstructure:"max_history"`
	StuckThreshold      int     `yaml:"stuck_threshold" mapstructure:"stuck_threshold"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	MinSignificantWords int     `yaml:"min_significant_words" mapstructure:"min_significant_words"`
	UserName            string  `yaml:"user_name" mapstructure:"user_name"`
}

// DefaultStuckConfig returns the default loop detection settings. The
// history path is left to the caller.
func DefaultStuckConfig() StuckConfig {
	return StuckConfig{
		MaxHistory:          DefaultMaxHistory,
		StuckThreshold:      DefaultStuckThreshold,
		SimilarityThreshold: DefaultSimilarityThreshold,
		MinSignificantWords: DefaultMinSignificantWords,
		UserName:            DefaultUserName,
	}
}

// StuckResult describes one loop check.
type StuckResult struct {
	Stuck        bool
	Signature    string
	Nudge        string
	SimilarCount int
	// History is the input history with this turn's signature appended and
	// trimmed to MaxHistory. It is nil when no signature was extracted, in
	// which case nothing needs saving.
	History []HistoryEntry
}

// StuckGuard detects an agent repeating itself across responses. It never
// blocks; when a loop is found it injects a nudge.
type StuckGuard struct {
	cfg StuckConfig
	now func() time.Time
}

// NewStuckGuard returns a StuckGuard, filling zero fields with defaults.
func NewStuckGuard(cfg StuckConfig) *StuckGuard {
	def := DefaultStuckConfig()
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = def.StuckThreshold
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = def.SimilarityThreshold
	}
	if cfg.MinSignificantWords <= 0 {
		cfg.MinSignificantWords = def.MinSignificantWords
	}
	if cfg.UserName == "" {
		cfg.UserName = def.UserName
	}
	return &StuckGuard{cfg: cfg, now: time.Now}
}

// Config returns the effective settings.
func (g *StuckGuard) Config() StuckConfig { return g.cfg }

// Check fingerprints the response text in hc and compares it with
// history. The turn counts as stuck when every one of the last
// StuckThreshold signatures, this one included, is more similar than
// SimilarityThreshold to the current signature. Check does no I/O; the
// caller persists StuckResult.History.
func (g *StuckGuard) Check(hc hook.Context, history []HistoryEntry) (hook.Result, StuckResult) {
	text := hc.ToolResult
	if text == "" {
		text = hc.Prompt
	}
	if text == "" {
		return hook.Allowed(""), StuckResult{}
	}

	sig := ExtractSignature(PlainText(text), g.cfg.MinSignificantWords)
	if sig == "" {
		return hook.Allowed(""), StuckResult{}
	}

	updated := make([]HistoryEntry, 0, len(history)+1)
	updated = append(updated, history...)
	updated = append(updated, HistoryEntry{Signature: sig, Timestamp: g.now().UTC().Format(time.RFC3339)})
	updated = trimHistory(updated, g.cfg.MaxHistory)

	res := StuckResult{Signature: sig, History: updated}
	if len(updated) < g.cfg.StuckThreshold {
		return hook.Allowed(""), res
	}

	for _, e := range updated[len(updated)-g.cfg.StuckThreshold:] {
		if Jaccard(sig, e.Signature) > g.cfg.SimilarityThreshold {
			res.SimilarCount++
		}
	}
	if res.SimilarCount < g.cfg.StuckThreshold {
		return hook.Allowed(""), res
	}

	res.Stuck = true
	res.Nudge = BuildNudge(sig, g.cfg.UserName)
	r := hook.Allowed(fmt.Sprintf("⚠️ Stuck loop detected (%d similar turns)", res.SimilarCount))
	r.AdditionalContext = res.Nudge
	return r, res
}

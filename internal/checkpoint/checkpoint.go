// Package checkpoint snapshots the semantic trajectory before the host
// compacts its context, and reads the latest snapshot back at session
// start.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

const (
	// DefaultDigestSize is how many recent nodes a digest lists.
	DefaultDigestSize = 5
	digestInsight     = 80
	filePrefix        = "checkpoint-"
	stampLayout       = "20060102-150405"
)

// Exporter is the part of the semantic memory a checkpoint reads.
type Exporter interface {
	Export(ctx context.Context, sessionID string) (*memory.ExportData, error)
}

// Config locates checkpoints.
type Config struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	DigestSize int    `yaml:"digest_size" mapstructure:"digest_size"`
	// Thresholds come from the top-level configuration.
	Thresholds semantic.Thresholds `yaml:"-" mapstructure:"-"`
}

// Report describes one checkpoint run.
type Report struct {
	Path      string
	NodeCount int
	// Digest summarises the most recent nodes; empty when there are none.
	Digest string
	// WriteErr is set when the file could not be written. The digest is
	// still produced.
	WriteErr error
}

// Checkpointer writes checkpoint files.
type Checkpointer struct {
	store      Exporter
	dir        string
	digestSize int
	thresholds semantic.Thresholds

	now       func() time.Time
	writeFile func(path string, data []byte, perm os.FileMode) error
}

// New returns a Checkpointer writing to cfg.Dir.
func New(store Exporter, cfg Config) *Checkpointer {
	if cfg.DigestSize <= 0 {
		cfg.DigestSize = DefaultDigestSize
	}
	if cfg.Thresholds == (semantic.Thresholds{}) {
		cfg.Thresholds = semantic.DefaultThresholds
	}
	return &Checkpointer{
		store:      store,
		dir:        cfg.Dir,
		digestSize: cfg.DigestSize,
		thresholds: cfg.Thresholds,
		now:        time.Now,
		writeFile: func(path string, data []byte, perm os.FileMode) error {
			return renameio.WriteFile(path, data, perm)
		},
	}
}

// Run exports the session (or recent global history when sessionID is
// empty) to a timestamped file and builds the digest. Only a failed
// export is an error; a failed write is reported in Report.WriteErr.
func (c *Checkpointer) Run(ctx context.Context, sessionID string) (Report, error) {
	data, err := c.store.Export(ctx, sessionID)
	if err != nil {
		return Report{}, fmt.Errorf("checkpoint: export: %w", err)
	}

	rep := Report{
		Path:      filepath.Join(c.dir, FileName(sessionID, c.now())),
		NodeCount: data.NodeCount,
		Digest:    Digest(data.Nodes, c.digestSize, c.thresholds),
	}
	if data.Thresholds == (semantic.Thresholds{}) {
		data.Thresholds = c.thresholds
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		rep.WriteErr = fmt.Errorf("checkpoint: encode: %w", err)
		return rep, nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		rep.WriteErr = fmt.Errorf("checkpoint: create dir: %w", err)
		return rep, nil
	}
	if err := c.writeFile(rep.Path, b, 0o644); err != nil {
		rep.WriteErr = fmt.Errorf("checkpoint: write %s: %w", rep.Path, err)
	}
	return rep, nil
}

// FileName is checkpoint-<first 8 of session|global>-<YYYYmmdd-HHMMSS>.json.
func FileName(sessionID string, at time.Time) string {
	return filePrefix + sessionSuffix(sessionID) + "-" + at.UTC().Format(stampLayout) + ".json"
}

func sessionSuffix(sessionID string) string {
	if sessionID == "" {
		return "global"
	}
	s := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, sessionID)
	return hook.Truncate(s, 8)
}

// Digest lists the last n nodes, oldest first, one per line: zone marker,
// topic and insight cut to 80 characters. Zones are classified under t.
// It is empty when nodes is.
func Digest(nodes []semantic.Node, n int, t semantic.Thresholds) string {
	if len(nodes) == 0 || n <= 0 {
		return ""
	}
	if len(nodes) > n {
		nodes = nodes[len(nodes)-n:]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Semantic checkpoint - last %d node(s):\n", len(nodes))
	for _, node := range nodes {
		insight := strings.Join(strings.Fields(node.Insight), " ")
		if len([]rune(insight)) > digestInsight {
			insight = hook.Truncate(insight, digestInsight) + "..."
		}
		fmt.Fprintf(&b, "%s %s (ΔS=%.2f): %s\n", node.ZoneWith(t).Marker(), node.Topic, node.DeltaS, insight)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Latest returns the newest checkpoint for sessionID in dir, falling back
// to the newest global one. It returns an error wrapping os.ErrNotExist
// when there is none.
func Latest(dir, sessionID string) (string, error) {
	for _, suffix := range []string{sessionSuffix(sessionID), "global"} {
		matches, err := filepath.Glob(filepath.Join(dir, filePrefix+suffix+"-*.json"))
		if err != nil {
			return "", fmt.Errorf("checkpoint: list: %w", err)
		}
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[len(matches)-1], nil
		}
	}
	return "", fmt.Errorf("checkpoint: none in %s: %w", dir, os.ErrNotExist)
}

// Load reads a checkpoint file.
func Load(path string) (*memory.ExportData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read: %w", err)
	}
	var data memory.ExportData
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", path, err)
	}
	return &data, nil
}

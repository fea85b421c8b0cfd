// Package config loads semantic-hooks settings from YAML files and the
// environment. A global file under ~/.semantic-hooks is read first, then a
// project file under <workdir>/.semantic-hooks overrides it, then
// SEMANTIC_HOOKS_* environment variables override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/semantic-hooks/internal/checkpoint"
	"github.com/HendryAvila/semantic-hooks/internal/embedding"
	"github.com/HendryAvila/semantic-hooks/internal/guard"
	"github.com/HendryAvila/semantic-hooks/internal/logging"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

const (
	// DirName is the per-user and per-project settings directory.
	DirName  = ".semantic-hooks"
	FileName = "config.yaml"
	// EnvPath overrides the global config file location.
	EnvPath   = "SEMANTIC_HOOKS_CONFIG"
	envPrefix = "SEMANTIC_HOOKS"
)

// ErrNotFound is returned by Get and Set for unknown keys.
var ErrNotFound = errors.New("config: unknown key")

// ExternalConfig points at a store to seed memory from at session start.
type ExternalConfig struct {
	SeedPath string `yaml:"seed_path" mapstructure:"seed_path"`
}

// Config is the full settings tree.
type Config struct {
	Embedding      embedding.Config    `yaml:"embedding" mapstructure:"embedding"`
	Thresholds     semantic.Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
	Guard          guard.TensionConfig `yaml:"guard" mapstructure:"guard"`
	Memory         memory.Config       `yaml:"memory" mapstructure:"memory"`
	StuckDetection guard.StuckConfig   `yaml:"stuck_detection" mapstructure:"stuck_detection"`
	Checkpoint     checkpoint.Config   `yaml:"checkpoint" mapstructure:"checkpoint"`
	External       ExternalConfig      `yaml:"external" mapstructure:"external"`
	Logging        logging.Config      `yaml:"logging" mapstructure:"logging"`
}

// Default returns the built-in settings rooted at the user's home.
func Default() *Config {
	dir := DataDir()
	stuck := guard.DefaultStuckConfig()
	stuck.HistoryPath = filepath.Join(dir, "stuck-history.json")
	mem := memory.DefaultConfig()
	mem.DataDir = dir
	return &Config{
		Embedding:      embedding.DefaultConfig(),
		Thresholds:     semantic.DefaultThresholds,
		Guard:          guard.DefaultTensionConfig(),
		Memory:         mem,
		StuckDetection: stuck,
		Checkpoint: checkpoint.Config{
			Dir:        filepath.Join(dir, "checkpoints"),
			DigestSize: checkpoint.DefaultDigestSize,
		},
		Logging: logging.DefaultConfig(),
	}
}

// DataDir returns ~/.semantic-hooks.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, DirName)
}

// GlobalPath returns the global config file: $SEMANTIC_HOOKS_CONFIG, or
// ~/.semantic-hooks/config.yaml.
func GlobalPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return filepath.Join(DataDir(), FileName)
}

// ProjectPath returns the project config file for workDir.
func ProjectPath(workDir string) string {
	return filepath.Join(workDir, DirName, FileName)
}

// Options locate the files Load reads.
type Options struct {
	// Path replaces the global file when set.
	Path string
	// WorkDir enables the project file when set.
	WorkDir string
}

// Load merges defaults, the global file, the project file and the
// environment. Missing files are skipped; unreadable ones are errors.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	v := viper.New()
	defaults, err := flatten(cfg)
	if err != nil {
		return nil, err
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	global := opts.Path
	if global == "" {
		global = GlobalPath()
	}
	files := []string{global}
	if opts.WorkDir != "" {
		if p := ProjectPath(opts.WorkDir); p != global {
			files = append(files, p)
		}
	}
	v.SetConfigType("yaml")
	for _, path := range files {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.expandPaths()
	cfg.propagate()
	return cfg, nil
}

// propagate copies shared settings into the sections that use them.
func (c *Config) propagate() {
	c.Guard.Thresholds = c.Thresholds
	c.Memory.Thresholds = c.Thresholds
	c.Checkpoint.Thresholds = c.Thresholds
}

func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Memory.DataDir,
		&c.StuckDetection.HistoryPath,
		&c.Checkpoint.Dir,
		&c.External.SeedPath,
		&c.Logging.File,
	} {
		*p = ExpandHome(*p)
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate checks values that would make the hooks misbehave.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("thresholds: %w", err))
	}
	switch c.Embedding.Provider {
	case embedding.ProviderOpenAI, embedding.ProviderLocal:
	default:
		errs = append(errs, fmt.Errorf("embedding.provider: unknown provider %q", c.Embedding.Provider))
	}
	if c.Guard.TrajectoryWindow <= 0 {
		errs = append(errs, errors.New("guard.trajectory_window: must be positive"))
	}
	if c.Guard.Decay <= 0 || c.Guard.Decay > 1 {
		errs = append(errs, fmt.Errorf("guard.decay: %v not in (0, 1]", c.Guard.Decay))
	}
	if c.StuckDetection.SimilarityThreshold < 0 || c.StuckDetection.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("stuck_detection.similarity_threshold: %v not in [0, 1]",
			c.StuckDetection.SimilarityThreshold))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Save writes cfg to path as YAML, atomically.
func Save(path string, cfg *Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	b = append([]byte("# semantic-hooks configuration\n"), b...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := renameio.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Keys lists every settable dotted key, sorted.
func Keys() []string {
	flat, _ := flatten(Default())
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "guard.block_in_danger".
func (c *Config) Get(key string) (any, error) {
	flat, err := flatten(c)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return v, nil
}

// Set parses value as a YAML scalar and assigns it to a dotted key.
func (c *Config) Set(key, value string) error {
	tree, err := toTree(c)
	if err != nil {
		return err
	}
	parts := strings.Split(key, ".")
	node := tree
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		node = next
	}
	leaf := parts[len(parts)-1]
	if _, ok := node[leaf]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("config: parse value for %s: %w", key, err)
	}
	node[leaf] = parsed

	b, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	next := *c
	if err := yaml.Unmarshal(b, &next); err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	next.propagate()
	*c = next
	return nil
}

// toTree renders cfg as nested maps keyed like the YAML file. Optional
// empty values are kept so every key can be set.
func toTree(cfg *Config) (map[string]any, error) {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if emb, ok := tree["embedding"].(map[string]any); ok {
		if _, ok := emb["base_url"]; !ok {
			emb["base_url"] = cfg.Embedding.BaseURL
		}
	}
	return tree, nil
}

func flatten(cfg *Config) (map[string]any, error) {
	tree, err := toTree(cfg)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := v.(map[string]any); ok {
				walk(key, sub)
				continue
			}
			out[key] = v
		}
	}
	walk("", tree)
	return out, nil
}

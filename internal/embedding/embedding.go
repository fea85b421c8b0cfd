// Package embedding turns text into vectors for tension measurement.
//
// The default provider calls the OpenAI embeddings API through an LRU
// cache. A local feature-hashing provider needs no network and is used
// when configured, or when no API key is available.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Embedder produces embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

const (
	DefaultModel      = "text-embedding-3-small"
	DefaultAPIKeyEnv  = "OPENAI_API_KEY"
	DefaultCacheSize  = 1000
	DefaultDimensions = 1536
	DefaultLocalDims  = 256
)

// Config selects and tunes the embedding provider.
type Config struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`
	Model      string `yaml:"model" mapstructure:"model"`
	APIKeyEnv  string `yaml:"api_key_env" mapstructure:"api_key_env"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	CacheSize  int    `yaml:"cache_size" mapstructure:"cache_size"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
}

// DefaultConfig returns the OpenAI configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderOpenAI,
		Model:      DefaultModel,
		APIKeyEnv:  DefaultAPIKeyEnv,
		CacheSize:  DefaultCacheSize,
		Dimensions: DefaultDimensions,
	}
}

// New builds the configured embedder. An OpenAI configuration without an
// API key in the environment falls back to the local provider, logged at
// warn level, so hooks keep measuring tension offline.
func New(cfg Config, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Provider {
	case ProviderLocal:
		return NewHashing(localDims(cfg)), nil
	case ProviderOpenAI, "":
		env := cfg.APIKeyEnv
		if env == "" {
			env = DefaultAPIKeyEnv
		}
		key := os.Getenv(env)
		if key == "" {
			logger.Warn("embedding: no API key, using local provider", "env", env)
			return NewHashing(DefaultLocalDims), nil
		}
		oa := NewOpenAI(key, cfg.Model, cfg.BaseURL, cfg.Dimensions)
		size := cfg.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		return NewCached(oa, size)
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
}

func localDims(cfg Config) int {
	if cfg.Dimensions > 0 && cfg.Dimensions != DefaultDimensions {
		return cfg.Dimensions
	}
	return DefaultLocalDims
}

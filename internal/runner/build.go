package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/HendryAvila/semantic-hooks/internal/checkpoint"
	"github.com/HendryAvila/semantic-hooks/internal/config"
	"github.com/HendryAvila/semantic-hooks/internal/embedding"
	"github.com/HendryAvila/semantic-hooks/internal/guard"
	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/logging"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/recorder"
)

func noop() {}

// Build wires the components described by cfg. emb may be nil, in which
// case the configured provider is built. The cleanup closes the store.
func Build(cfg *config.Config, emb embedding.Embedder, logger *slog.Logger) (*Components, func(), error) {
	if emb == nil {
		var err error
		emb, err = embedding.New(cfg.Embedding, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("creating embedder: %w", err)
		}
	}

	store, err := memory.New(cfg.Memory, emb)
	if err != nil {
		return nil, noop, fmt.Errorf("opening memory: %w", err)
	}

	c := &Components{
		Store:   store,
		Tension: guard.NewTensionGuard(store, emb, cfg.Guard),
		Stuck:   guard.NewStuckGuard(cfg.StuckDetection),
		History: guard.NewHistory(cfg.StuckDetection.HistoryPath, cfg.StuckDetection.MaxHistory),
		Recorder: recorder.New(store, emb, recorder.Config{
			TrajectoryWindow: cfg.Guard.TrajectoryWindow,
			Decay:            cfg.Guard.Decay,
		}),
		Checkpointer:  checkpoint.New(store, cfg.Checkpoint),
		Logger:        logger,
		CheckpointDir: cfg.Checkpoint.Dir,
		DigestSize:    cfg.Checkpoint.DigestSize,
		SeedPath:      cfg.External.SeedPath,
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("close memory", "error", err)
		}
	}
	return c, cleanup, nil
}

// FromConfig returns a Builder that loads configuration for the call's
// working directory, opens the configured log file and wires the
// components. configPath overrides the global config file when set.
func FromConfig(configPath string, stderr io.Writer) Builder {
	return func(ctx context.Context, in hook.Input) (*Components, func(), error) {
		cfg, err := config.Load(config.Options{Path: configPath, WorkDir: in.WorkingDir()})
		if err != nil {
			return nil, noop, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, noop, fmt.Errorf("invalid configuration: %w", err)
		}

		logger, closer := logging.New(cfg.Logging, stderr)
		c, cleanup, err := Build(cfg, nil, logger)
		return c, func() {
			cleanup()
			_ = closer.Close()
		}, err
	}
}

// Package runner is the boundary between the host and the hook logic. It
// reads one hook document, dispatches it to the handler for the event and
// turns the outcome into the host's exit-code contract.
//
// Errors and panics never escape Run. The pre-tool-use gate fails closed
// (exit 2, so a broken guard cannot wave actions through); every other
// event fails open (exit 0, so a broken recorder cannot stall the agent).
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/HendryAvila/semantic-hooks/internal/checkpoint"
	"github.com/HendryAvila/semantic-hooks/internal/guard"
	"github.com/HendryAvila/semantic-hooks/internal/hook"
	"github.com/HendryAvila/semantic-hooks/internal/memory"
	"github.com/HendryAvila/semantic-hooks/internal/recorder"
	"github.com/HendryAvila/semantic-hooks/internal/semantic"
)

const (
	seedMetaPrefix = "seeded:"
	promptTopicMax = 50
	insightMax     = 200
)

// Components are the collaborators a hook call needs.
type Components struct {
	Store        *memory.Store
	Tension      *guard.TensionGuard
	Stuck        *guard.StuckGuard
	History      *guard.History
	Recorder     *recorder.Recorder
	Checkpointer *checkpoint.Checkpointer
	Logger       *slog.Logger

	CheckpointDir string
	DigestSize    int
	// SeedPath is an export file imported once per session at start.
	SeedPath string
}

// Builder assembles components for one call. It receives the decoded
// input so project settings can follow the working directory. The
// returned cleanup is always non-nil.
type Builder func(ctx context.Context, in hook.Input) (*Components, func(), error)

// Runner handles hook invocations.
type Runner struct {
	build  Builder
	logger *slog.Logger
}

// New returns a Runner. logger receives failures that happen before the
// components, and their own logger, exist.
func New(build Builder, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{build: build, logger: logger}
}

// Handles reports whether ev has a handler. Other events exit 0 at once.
func Handles(ev hook.Event) bool {
	switch ev {
	case hook.SessionStart, hook.UserPromptSubmit, hook.PreToolUse, hook.PostToolUse,
		hook.PostResponse, hook.Stop, hook.PreCompact, hook.SessionEnd:
		return true
	}
	return false
}

// Run processes one hook call and returns the process exit code.
func (r *Runner) Run(ctx context.Context, ev hook.Event, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	logger := r.logger.With("event", string(ev))
	defer func() {
		if p := recover(); p != nil {
			logger.Error("hook panicked", "panic", p, "stack", string(debug.Stack()))
			code = fail(ev, fmt.Errorf("internal error: %v", p), logger, stdout, stderr)
		}
	}()

	if !Handles(ev) {
		return hook.ExitAllow
	}

	in, err := hook.ReadInput(stdin)
	if err != nil {
		return fail(ev, err, logger, stdout, stderr)
	}

	c, cleanup, err := r.build(ctx, in)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return fail(ev, err, logger, stdout, stderr)
	}
	if c.Logger != nil {
		logger = c.Logger.With("event", string(ev))
	}

	hc := hook.NewContext(ev, in)
	h := &handler{c: c, logger: logger.With("session", hc.SessionID)}
	res, err := h.dispatch(ctx, hc, stdout)
	if err != nil {
		return fail(ev, err, logger, stdout, stderr)
	}

	code, err = res.Write(ev, stdout, stderr)
	if err != nil {
		logger.Warn("write hook output", "error", err)
	}
	return code
}

// fail applies the failure policy of ev.
func fail(ev hook.Event, err error, logger *slog.Logger, stdout, stderr io.Writer) int {
	if !ev.FailClosed() {
		logger.Warn("hook failed open", "error", err)
		return hook.ExitAllow
	}
	logger.Error("hook failed closed", "error", err)
	res := hook.Blocked("🛑 semantic-hooks: tension check unavailable: " + err.Error())
	code, werr := res.Write(ev, stdout, stderr)
	if werr != nil {
		logger.Warn("write hook output", "error", werr)
	}
	return code
}

type handler struct {
	c      *Components
	logger *slog.Logger
}

func (h *handler) dispatch(ctx context.Context, hc hook.Context, stdout io.Writer) (hook.Result, error) {
	switch hc.Event {
	case hook.SessionStart:
		return h.sessionStart(ctx, hc)
	case hook.UserPromptSubmit:
		return h.userPrompt(ctx, hc)
	case hook.PreToolUse:
		return h.preToolUse(ctx, hc)
	case hook.PostToolUse:
		return h.postToolUse(ctx, hc)
	case hook.PostResponse, hook.Stop:
		return h.response(ctx, hc)
	case hook.PreCompact:
		return h.preCompact(ctx, hc, stdout)
	case hook.SessionEnd:
		return h.sessionEnd(ctx, hc)
	}
	return hook.Allowed(""), nil
}

func (h *handler) sessionStart(ctx context.Context, hc hook.Context) (hook.Result, error) {
	if h.c.SeedPath != "" && hc.SessionID != "" {
		h.seed(ctx, hc.SessionID)
	}

	res := hook.Allowed("")
	if h.c.CheckpointDir == "" {
		return res, nil
	}
	path, err := checkpoint.Latest(h.c.CheckpointDir, hc.SessionID)
	if err != nil {
		return res, nil
	}
	data, err := checkpoint.Load(path)
	if err != nil {
		h.logger.Warn("load checkpoint", "path", path, "error", err)
		return res, nil
	}
	res.AdditionalContext = checkpoint.Digest(data.Nodes, h.c.DigestSize, h.c.Store.Thresholds())
	return res, nil
}

// seed imports the external store the first time a session starts.
func (h *handler) seed(ctx context.Context, sessionID string) {
	key := seedMetaPrefix + sessionID
	if _, done, err := h.c.Store.Meta(ctx, key); err != nil || done {
		if err != nil {
			h.logger.Warn("read seed marker", "error", err)
		}
		return
	}
	res, err := h.c.Store.ImportFile(ctx, h.c.SeedPath)
	if err != nil {
		h.logger.Warn("seed from external store", "path", h.c.SeedPath, "error", err)
		return
	}
	h.logger.Info("seeded memory", "path", h.c.SeedPath,
		"imported", res.Imported, "skipped", res.Skipped, "unembedded", res.Unembedded)
	if err := h.c.Store.SetMeta(ctx, key, h.c.SeedPath); err != nil {
		h.logger.Warn("write seed marker", "error", err)
	}
}

func (h *handler) userPrompt(ctx context.Context, hc hook.Context) (hook.Result, error) {
	prompt := strings.TrimSpace(hc.Prompt)
	if prompt == "" {
		return hook.Allowed(""), nil
	}
	topic, _, _ := strings.Cut(prompt, "\n")
	n, err := h.c.Recorder.Record(ctx, hc, recorder.Options{
		Module:  "prompt",
		Topic:   hook.Truncate(topic, promptTopicMax),
		Insight: hook.Truncate(prompt, insightMax),
	})
	if err != nil {
		return hook.Result{}, err
	}
	h.logRecorded(n)
	return hook.Allowed(""), nil
}

func (h *handler) preToolUse(ctx context.Context, hc hook.Context) (hook.Result, error) {
	res, a, err := h.c.Tension.Check(ctx, hc)
	if err != nil {
		return hook.Result{}, err
	}
	if a.BridgeErr != nil {
		h.logger.Warn("bridge lookup", "error", a.BridgeErr)
	}
	h.logger.Debug("tension", "tool", hc.ToolName, "measured", a.Measured,
		"delta_s", a.DeltaS, "zone", a.Zone, "exit", res.ExitCode())

	if res.RecordNode && !res.Block {
		deltaS := a.DeltaS
		n, err := h.c.Recorder.Record(ctx, hc, recorder.Options{
			DeltaS:    &deltaS,
			Embedding: a.Embedding,
			Force:     true,
			Insight:   hook.Truncate(hc.Text(), insightMax),
		})
		// The decision is already made; a failed write must not turn an
		// allow into a block.
		if err != nil {
			h.logger.Warn("record intent", "error", err)
		} else {
			h.logRecorded(n)
		}
	}
	return res, nil
}

func (h *handler) postToolUse(ctx context.Context, hc hook.Context) (hook.Result, error) {
	n, err := h.c.Recorder.Record(ctx, hc, recorder.Options{})
	if err != nil {
		return hook.Result{}, err
	}
	h.logRecorded(n)
	return hook.Allowed(""), nil
}

func (h *handler) response(ctx context.Context, hc hook.Context) (hook.Result, error) {
	history, err := h.c.History.Load()
	if err != nil {
		h.logger.Warn("stuck history unreadable, starting fresh", "error", err)
		history = nil
	}
	res, stuck := h.c.Stuck.Check(hc, history)
	if stuck.History != nil {
		if err := h.c.History.Save(stuck.History); err != nil {
			h.logger.Warn("save stuck history", "error", err)
		}
	}
	if stuck.Stuck {
		h.logger.Info("stuck loop", "signature", stuck.Signature, "similar", stuck.SimilarCount)
	}

	if strings.TrimSpace(hc.ToolResult) != "" {
		topic := stuck.Signature
		if topic == "" {
			topic = "response"
		}
		n, err := h.c.Recorder.Record(ctx, hc, recorder.Options{
			Module: "response",
			Topic:  topic,
		})
		if err != nil {
			h.logger.Warn("record response", "error", err)
		} else {
			h.logRecorded(n)
		}
	}
	return res, nil
}

func (h *handler) preCompact(ctx context.Context, hc hook.Context, stdout io.Writer) (hook.Result, error) {
	rep, err := h.c.Checkpointer.Run(ctx, hc.SessionID)
	if err != nil {
		return hook.Result{}, err
	}
	if rep.WriteErr != nil {
		h.logger.Warn("checkpoint not written", "error", rep.WriteErr)
	} else {
		h.logger.Info("checkpoint written", "path", rep.Path, "nodes", rep.NodeCount)
	}
	if rep.Digest != "" {
		if _, err := fmt.Fprintln(stdout, rep.Digest); err != nil {
			return hook.Result{}, fmt.Errorf("runner: write digest: %w", err)
		}
	}
	return hook.Allowed(""), nil
}

func (h *handler) sessionEnd(ctx context.Context, hc hook.Context) (hook.Result, error) {
	var errs []error
	data, err := h.c.Recorder.EndSession(ctx, hc.SessionID)
	if err != nil {
		errs = append(errs, err)
	} else {
		h.logger.Info("session ended", "nodes", data.NodeCount, "zones", data.ZoneSummary)
	}
	if err := h.c.History.Reset(); err != nil {
		errs = append(errs, fmt.Errorf("runner: reset stuck history: %w", err))
	}
	return hook.Allowed(""), errors.Join(errs...)
}

func (h *handler) logRecorded(n *semantic.Node) {
	if n != nil {
		h.logger.Debug(recorder.Summary(n))
	}
}

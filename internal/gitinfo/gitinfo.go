// Package gitinfo resolves which project a working directory belongs to.
// All commands target the directory via "git -C <dir>" and give up after
// Timeout, so a slow or missing git never stalls a hook.
package gitinfo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Timeout bounds every git invocation.
const Timeout = 5 * time.Second

// run executes git in dir and returns trimmed stdout.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	fullArgs := append([]string{"-C", dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), dir, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// TopLevel returns the root of the work tree containing dir.
func TopLevel(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "rev-parse", "--show-toplevel")
}

// ProjectID names the project dir belongs to: the base name of its git
// work tree, or of dir itself outside a repository. Empty dir yields "".
func ProjectID(ctx context.Context, dir string) string {
	if dir == "" {
		return ""
	}
	if top, err := TopLevel(ctx, dir); err == nil && top != "" {
		return filepath.Base(top)
	}
	return filepath.Base(filepath.Clean(dir))
}

// Branch returns the checked-out branch, or "" when detached or outside a
// repository.
func Branch(ctx context.Context, dir string) string {
	if dir == "" {
		return ""
	}
	b, err := run(ctx, dir, "symbolic-ref", "--short", "HEAD")
	if err != nil {
		return ""
	}
	return b
}

package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/agentx-labs/fleetsync/internal/git"
	"github.com/agentx-labs/fleetsync/internal/manifest"
	"github.com/agentx-labs/fleetsync/internal/registry"
)

var (
	// ErrNoManagedDirectory is returned by Pull when the target has none of
	// the managed category directories.
	ErrNoManagedDirectory = errors.New("no managed directory found")
	// ErrTargetMissing marks a registered path that no longer exists.
	ErrTargetMissing = errors.New("target directory missing")
)

// Options configures a Syncer.
type Options struct {
	// Framework is the source-of-truth repository root.
	Framework string
	// LinkDir is the framework checkout inside each target, relative to
	// the target root.
	LinkDir string
	// Timeout bounds the work done for a single target.
	Timeout time.Duration
	// DryRun reports what would change without writing or committing.
	DryRun bool
}

// Syncer runs push, pull and status against the targets of a registry,
// one target at a time.
type Syncer struct {
	opts     Options
	manifest *manifest.Manifest
	git      git.Client
	logger   *slog.Logger
}

// New creates a Syncer. A nil logger discards log output.
func New(opts Options, m *manifest.Manifest, client git.Client, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Syncer{opts: opts, manifest: m, git: client, logger: logger}
}

// linkPath returns the framework checkout inside target.
func (s *Syncer) linkPath(target string) string {
	return filepath.Join(target, s.opts.LinkDir)
}

// checkTarget verifies that target exists and carries the linkage marker.
func (s *Syncer) checkTarget(target string) error {
	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrTargetMissing, target)
	}
	if !registry.IsLinked(target, s.opts.LinkDir) {
		return fmt.Errorf("%w: no %s checkout", registry.ErrNotLinked, s.opts.LinkDir)
	}
	return nil
}

// describeErr turns a per-target error into a short reason, naming the
// timeout when the deadline was the cause.
func (s *Syncer) describeErr(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timed out after %s", s.opts.Timeout)
	}
	return err.Error()
}

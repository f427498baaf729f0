package fleet

import (
	"context"
	"fmt"
	"os"

	"github.com/agentx-labs/fleetsync/internal/registry"
	"github.com/agentx-labs/fleetsync/internal/snapshot"
)

// PullReport lists the target-side edits found by a pull.
type PullReport struct {
	Target         string
	NewFiles       []snapshot.Result // in the target, absent from the framework
	ModifiedFiles  []snapshot.Result // differ; Diff runs framework → target
	UnchangedCount int
	Applied        bool // false for a dry run
}

// Empty reports whether the pull found nothing to bring back.
func (r *PullReport) Empty() bool {
	return len(r.NewFiles) == 0 && len(r.ModifiedFiles) == 0
}

// Pull copies new and modified managed files from target back into the
// framework. The target's version wins. Structured documents are not
// pulled. Nothing is copied when the target has no managed directory.
func (s *Syncer) Pull(ctx context.Context, target string) (*PullReport, error) {
	target, err := registry.Normalize(target)
	if err != nil {
		return nil, err
	}
	// Pull only needs the directory; the linkage marker is not required.
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrTargetMissing, target)
	}
	if !snapshot.HasManagedRoot(target, s.manifest) {
		return nil, fmt.Errorf("%w in %s (looked for %v)", ErrNoManagedDirectory, target, s.manifest.Roots())
	}

	// Compare with the roles swapped: the target is the source of changes.
	cmp, err := snapshot.Compare(target, s.opts.Framework, s.manifest)
	if err != nil {
		return nil, fmt.Errorf("comparing %s: %w", target, err)
	}

	report := &PullReport{Target: target}
	for _, r := range cmp.Results {
		switch r.State {
		case snapshot.MissingInTarget:
			report.NewFiles = append(report.NewFiles, r)
		case snapshot.DivergedFromSource:
			report.ModifiedFiles = append(report.ModifiedFiles, r)
		default:
			report.UnchangedCount++
		}
	}

	if s.opts.DryRun || report.Empty() {
		s.logger.Info("pull finished", "target", target,
			"new", len(report.NewFiles), "modified", len(report.ModifiedFiles), "applied", false)
		return report, nil
	}

	for _, r := range cmp.Changed() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := snapshot.CopyFile(target, s.opts.Framework, r.Path); err != nil {
			return report, fmt.Errorf("copying %s into framework: %w", r.Path, err)
		}
		s.logger.Debug("pulled file", "path", r.Path, "state", r.State.String())
	}
	report.Applied = true

	s.logger.Info("pull finished", "target", target,
		"new", len(report.NewFiles), "modified", len(report.ModifiedFiles), "applied", true)
	return report, nil
}

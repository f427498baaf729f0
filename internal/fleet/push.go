package fleet

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/agentx-labs/fleetsync/internal/git"
	"github.com/agentx-labs/fleetsync/internal/settings"
	"github.com/agentx-labs/fleetsync/internal/snapshot"
)

// restoreTimeout bounds putting a checkout back after a failed push.
const restoreTimeout = 30 * time.Second

// Outcome is the result of pushing to one target.
type Outcome string

const (
	OutcomeUpdated  Outcome = "updated"
	OutcomeUpToDate Outcome = "up-to-date"
	OutcomeFailed   Outcome = "failed"
)

// TargetResult records what a push did to one target.
type TargetResult struct {
	Target    string
	Outcome   Outcome
	From      string   // linked revision before the push
	To        string   // revision propagated
	Copied    []string // managed files written
	Merged    []string // structured documents changed
	Committed bool
	Reason    string // set when Outcome is failed
}

// Failure names a target that could not be pushed.
type Failure struct {
	Target string
	Reason string
}

// PushReport summarizes a push across all targets, in registry order.
type PushReport struct {
	Revision string
	DryRun   bool
	Updated  []string
	UpToDate []string
	Failed   []Failure
	Results  []TargetResult
}

func (r *PushReport) add(res TargetResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case OutcomeUpdated:
		r.Updated = append(r.Updated, res.Target)
	case OutcomeUpToDate:
		r.UpToDate = append(r.UpToDate, res.Target)
	case OutcomeFailed:
		r.Failed = append(r.Failed, Failure{Target: res.Target, Reason: res.Reason})
	}
}

// Push propagates the framework's current revision to every target in
// order. A failing target is recorded and the loop moves on; the returned
// error is reserved for an unreadable framework.
func (s *Syncer) Push(ctx context.Context, targets iter.Seq[string]) (*PushReport, error) {
	rev, err := s.git.Head(ctx, s.opts.Framework)
	if err != nil {
		return nil, fmt.Errorf("resolving framework revision: %w", err)
	}

	report := &PushReport{Revision: rev, DryRun: s.opts.DryRun}
	for target := range targets {
		if ctx.Err() != nil {
			report.add(TargetResult{Target: target, Outcome: OutcomeFailed, Reason: ctx.Err().Error()})
			continue
		}
		report.add(s.pushTarget(ctx, target, rev))
	}

	s.logger.Info("push finished",
		"revision", git.Short(rev),
		"updated", len(report.Updated),
		"up_to_date", len(report.UpToDate),
		"failed", len(report.Failed))
	return report, nil
}

func (s *Syncer) pushTarget(ctx context.Context, target, rev string) TargetResult {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	logger := s.logger.With("target", target)
	res := TargetResult{Target: target, To: rev}
	fail := func(step string, err error) TargetResult {
		res.Outcome = OutcomeFailed
		res.Reason = step + ": " + s.describeErr(err)
		logger.Warn("push failed", "step", step, "error", err)
		return res
	}

	if err := s.checkTarget(target); err != nil {
		return fail("checking target", err)
	}

	linked, err := s.git.Head(ctx, s.linkPath(target))
	if err != nil {
		return fail("resolving linked revision", err)
	}
	res.From = linked
	if linked == rev {
		logger.Debug("target up to date", "revision", git.Short(rev))
		res.Outcome = OutcomeUpToDate
		return res
	}

	// Refuse to start on a target whose documents cannot be merged, so a
	// conflict never leaves a half-synced working tree behind.
	for _, doc := range s.manifest.Documents {
		if err := settings.Check(filepath.Join(target, filepath.FromSlash(doc))); err != nil {
			return fail("checking "+doc, err)
		}
	}

	if s.opts.DryRun {
		return s.planTarget(res, fail)
	}

	link := s.linkPath(target)
	logger.Info("advancing framework checkout", "from", git.Short(linked), "to", git.Short(rev))
	if err := s.git.Advance(ctx, link, s.opts.Framework, rev); err != nil {
		return fail("advancing "+s.opts.LinkDir, err)
	}

	// Past this point a failure puts the checkout back at linked, so the
	// target still reads as behind and the next push redoes it in full.
	failAdvanced := func(step string, err error) TargetResult {
		res = fail(step, err)
		if rerr := s.restore(ctx, link, linked); rerr != nil {
			logger.Error("restoring framework checkout failed", "revision", git.Short(linked), "error", rerr)
			res.Reason += "; restoring " + s.opts.LinkDir + ": " + rerr.Error()
		}
		return res
	}

	// Files come from the advanced checkout, which holds exactly rev, not
	// from the framework working tree.
	cmp, err := snapshot.Compare(link, target, s.manifest)
	if err != nil {
		return failAdvanced("comparing", err)
	}
	for _, r := range cmp.Changed() {
		if ctx.Err() != nil {
			return failAdvanced("copying", ctx.Err())
		}
		if err := snapshot.CopyFile(link, target, r.Path); err != nil {
			return failAdvanced("copying", err)
		}
		logger.Debug("copied managed file", "path", r.Path, "state", r.State.String())
		res.Copied = append(res.Copied, r.Path)
	}

	for _, doc := range s.manifest.Documents {
		changed, err := settings.MergeFile(
			filepath.Join(target, filepath.FromSlash(doc)),
			filepath.Join(link, filepath.FromSlash(doc)))
		if err != nil {
			return failAdvanced("merging "+doc, err)
		}
		if changed {
			logger.Debug("merged document", "path", doc)
			res.Merged = append(res.Merged, doc)
		}
	}

	committed, err := s.git.Commit(ctx, target, s.commitPaths(target, cmp), CommitMessage(rev))
	if err != nil {
		return failAdvanced("committing", err)
	}
	res.Committed = committed
	res.Outcome = OutcomeUpdated
	logger.Info("target updated", "copied", len(res.Copied), "merged", len(res.Merged), "committed", committed)
	return res
}

// commitPaths lists what a sync commit stages: the framework checkout, every
// managed file the framework ships and the documents present in the target.
// Files left uncommitted by an earlier failed push are picked up this way.
func (s *Syncer) commitPaths(target string, cmp *snapshot.Comparison) []string {
	paths := []string{path.Clean(filepath.ToSlash(s.opts.LinkDir))}
	for _, r := range cmp.Results {
		paths = append(paths, r.Path)
	}
	for _, doc := range s.manifest.Documents {
		if _, err := os.Stat(filepath.Join(target, filepath.FromSlash(doc))); err == nil {
			paths = append(paths, doc)
		}
	}
	return paths
}

// restore detaches the checkout at rev again. It runs on its own deadline
// because ctx may be the one that just expired.
func (s *Syncer) restore(ctx context.Context, checkout, rev string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	return s.git.Checkout(ctx, checkout, rev)
}

// planTarget fills res with the changes a push would make, without writing.
// The checkout is not advanced, so the framework working tree stands in for
// the revision.
func (s *Syncer) planTarget(res TargetResult, fail func(string, error) TargetResult) TargetResult {
	cmp, err := snapshot.Compare(s.opts.Framework, res.Target, s.manifest)
	if err != nil {
		return fail("comparing", err)
	}
	for _, r := range cmp.Changed() {
		res.Copied = append(res.Copied, r.Path)
	}
	for _, doc := range s.manifest.Documents {
		pending, err := settings.Pending(
			filepath.Join(res.Target, filepath.FromSlash(doc)),
			filepath.Join(s.opts.Framework, filepath.FromSlash(doc)))
		if err != nil {
			return fail("merging "+doc, err)
		}
		if pending {
			res.Merged = append(res.Merged, doc)
		}
	}
	res.Outcome = OutcomeUpdated
	return res
}

// CommitMessage is the message used for sync commits in targets.
func CommitMessage(rev string) string {
	return "Sync framework to " + git.Short(rev)
}

package fleet

import (
	"context"
	"errors"
	"iter"

	"github.com/Masterminds/semver/v3"
	"github.com/agentx-labs/fleetsync/internal/git"
)

// SyncState is a target's position relative to the framework.
type SyncState string

const (
	StateUpToDate SyncState = "up-to-date"
	StateBehind   SyncState = "behind"
	StateMissing  SyncState = "missing"
	StateUnknown  SyncState = "unknown"
)

// StatusRow describes one target.
type StatusRow struct {
	Target  string
	State   SyncState
	Behind  int    // commits behind, for StateBehind
	Pinned  string // linked revision
	Subject string // subject line of the pinned revision
	Tag     string // nearest tag of the pinned revision
	// Gap is "major", "minor" or "patch" when both the pinned and the
	// framework tags are semantic versions and the pinned one is older.
	Gap    string
	Reason string // why the state is missing or unknown
}

// StatusReport holds the framework revision and one row per target.
type StatusReport struct {
	Revision string
	Subject  string
	Tag      string
	// SourceErr is set when the framework revision could not be read; every
	// linked target is then unknown.
	SourceErr string
	Rows      []StatusRow
}

// Status computes every target's offset from the framework. It never fails;
// problems become missing or unknown rows.
func (s *Syncer) Status(ctx context.Context, targets iter.Seq[string]) *StatusReport {
	report := &StatusReport{}

	rev, err := s.git.Head(ctx, s.opts.Framework)
	if err != nil {
		report.SourceErr = err.Error()
	} else {
		report.Revision = rev
		report.Subject, _ = s.git.Subject(ctx, s.opts.Framework, rev)
		report.Tag, _ = s.git.Describe(ctx, s.opts.Framework, rev)
	}

	for target := range targets {
		report.Rows = append(report.Rows, s.statusRow(ctx, target, report))
	}
	return report
}

func (s *Syncer) statusRow(ctx context.Context, target string, src *StatusReport) StatusRow {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	row := StatusRow{Target: target}
	if err := s.checkTarget(target); err != nil {
		row.State = StateMissing
		row.Reason = err.Error()
		return row
	}

	pinned, err := s.git.Head(ctx, s.linkPath(target))
	if err != nil {
		row.State = StateUnknown
		row.Reason = s.describeErr(err)
		return row
	}
	row.Pinned = pinned
	row.Subject, _ = s.git.Subject(ctx, s.linkPath(target), pinned)

	if src.SourceErr != "" {
		row.State = StateUnknown
		row.Reason = "framework revision unavailable"
		return row
	}
	if pinned == src.Revision {
		row.State = StateUpToDate
		row.Tag = src.Tag
		return row
	}

	n, err := s.git.CountBetween(ctx, s.opts.Framework, pinned, src.Revision)
	switch {
	case err != nil:
		row.State = StateUnknown
		row.Reason = s.describeErr(err)
		if !errors.Is(err, context.DeadlineExceeded) {
			row.Reason = "pinned revision not in framework history"
		}
		return row
	case n == 0:
		row.State = StateUnknown
		row.Reason = "pinned revision is ahead of the framework"
		return row
	}

	row.State = StateBehind
	row.Behind = n
	row.Tag, _ = s.git.Describe(ctx, s.opts.Framework, pinned)
	row.Gap = versionGap(row.Tag, src.Tag)
	return row
}

// versionGap classifies how far pinned lags source when both are semantic
// versions. It returns "" otherwise.
func versionGap(pinned, source string) string {
	if pinned == "" || source == "" {
		return ""
	}
	p, err := semver.NewVersion(pinned)
	if err != nil {
		return ""
	}
	c, err := semver.NewVersion(source)
	if err != nil {
		return ""
	}
	if !p.LessThan(c) {
		return ""
	}
	switch {
	case c.Major() != p.Major():
		return "major"
	case c.Minor() != p.Minor():
		return "minor"
	default:
		return "patch"
	}
}

// shortOrDash renders a revision for tables.
func shortOrDash(rev string) string {
	if rev == "" {
		return "-"
	}
	return git.Short(rev)
}

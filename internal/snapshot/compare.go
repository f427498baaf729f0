package snapshot

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/agentx-labs/fleetsync/internal/manifest"
)

var (
	// ErrSourceUnreadable is returned when the source side cannot be scanned.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrTargetUnreadable is returned when the target side cannot be scanned.
	ErrTargetUnreadable = errors.New("target unreadable")
)

// State classifies a source file relative to the target.
type State int

const (
	Identical State = iota
	MissingInTarget
	DivergedFromSource
)

func (s State) String() string {
	switch s {
	case Identical:
		return "identical"
	case MissingInTarget:
		return "missing"
	case DivergedFromSource:
		return "diverged"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the classification of one managed file.
type Result struct {
	Path     string
	Category string // empty for singleton files
	State    State
	// Diff is a unified diff from the target copy to the source copy, set
	// only for diverged files.
	Diff    string
	Added   int
	Removed int
}

// Comparison holds one Result per managed file found in the source, sorted
// by path. Files present only in the target are not reported.
type Comparison struct {
	SourceRoot string
	TargetRoot string
	Results    []Result
}

// Compare classifies every managed file under sourceRoot against targetRoot.
// Content is compared by sha256 together with the executable bits; other
// permission bits and timestamps are ignored.
func Compare(sourceRoot, targetRoot string, m *manifest.Manifest) (*Comparison, error) {
	src, err := Scan(sourceRoot, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnreadable, sourceRoot, err)
	}
	dst, err := Scan(targetRoot, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTargetUnreadable, targetRoot, err)
	}

	cmp := &Comparison{SourceRoot: sourceRoot, TargetRoot: targetRoot}
	for _, p := range src.Paths() {
		r := Result{Path: p, Category: m.CategoryOf(p)}
		t, ok := dst[p]
		switch {
		case !ok:
			r.State = MissingInTarget
		case t.Hash == src[p].Hash && execBits(t.Mode) == execBits(src[p].Mode):
			r.State = Identical
		case t.Hash == src[p].Hash:
			r.State = DivergedFromSource
			r.Diff = fmt.Sprintf("mode change %04o => %04o %s\n", t.Mode.Perm(), src[p].Mode.Perm(), p)
		default:
			r.State = DivergedFromSource
			d, err := diffFiles(targetRoot, sourceRoot, p)
			if err != nil {
				return nil, err
			}
			r.Diff, r.Added, r.Removed = d.Text, d.Added, d.Removed
		}
		cmp.Results = append(cmp.Results, r)
	}
	return cmp, nil
}

// Changed returns the results that are not identical.
func (c *Comparison) Changed() []Result {
	var out []Result
	for _, r := range c.Results {
		if r.State != Identical {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many results are in state s.
func (c *Comparison) Count(s State) int {
	n := 0
	for _, r := range c.Results {
		if r.State == s {
			n++
		}
	}
	return n
}

// execBits keeps the permission bits git tracks for regular files.
func execBits(m fs.FileMode) fs.FileMode {
	return m.Perm() & 0111
}

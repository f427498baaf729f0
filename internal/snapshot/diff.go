package snapshot

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	diffContext = 3
	// binarySniffLen matches git's heuristic: a NUL in the first 8000
	// bytes marks the file as binary.
	binarySniffLen = 8000
)

type fileDiff struct {
	Text    string
	Added   int
	Removed int
}

// Summary renders the line counts, e.g. "+3 -1".
func (r Result) Summary() string {
	if r.State != DivergedFromSource {
		return ""
	}
	return fmt.Sprintf("+%d -%d", r.Added, r.Removed)
}

// diffFiles builds a unified diff of rel from oldRoot to newRoot.
func diffFiles(oldRoot, newRoot, rel string) (fileDiff, error) {
	a, err := os.ReadFile(filepath.Join(oldRoot, filepath.FromSlash(rel)))
	if err != nil {
		return fileDiff{}, fmt.Errorf("reading %s: %w", rel, err)
	}
	b, err := os.ReadFile(filepath.Join(newRoot, filepath.FromSlash(rel)))
	if err != nil {
		return fileDiff{}, fmt.Errorf("reading %s: %w", rel, err)
	}
	return diffBytes(rel, a, b)
}

func diffBytes(rel string, a, b []byte) (fileDiff, error) {
	if isBinary(a) || isBinary(b) {
		return fileDiff{Text: fmt.Sprintf("Binary files a/%s and b/%s differ (%d -> %d bytes)\n", rel, rel, len(a), len(b))}, nil
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "a/" + rel,
		ToFile:   "b/" + rel,
		Context:  diffContext,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return fileDiff{}, fmt.Errorf("diffing %s: %w", rel, err)
	}

	d := fileDiff{Text: text}
	// The first two lines are the ---/+++ file headers.
	for i, line := range strings.Split(text, "\n") {
		switch {
		case i < 2:
		case strings.HasPrefix(line, "+"):
			d.Added++
		case strings.HasPrefix(line, "-"):
			d.Removed++
		}
	}
	return d, nil
}

func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

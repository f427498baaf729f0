package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverDepth is how many directory levels below the search root are scanned.
const DiscoverDepth = 2

// skippedDirs are never descended into during discovery.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// Discover scans up to DiscoverDepth directory levels under searchRoot and
// returns every directory carrying the linkage marker, sorted. The framework
// directory (sourceRoot) is never returned nor descended into, even when it
// looks like a target.
func Discover(searchRoot, sourceRoot, linkDir string) ([]string, error) {
	root, err := Normalize(searchRoot)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading search root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("search root %s is not a directory", root)
	}

	source := ""
	if sourceRoot != "" {
		source = canonical(sourceRoot)
	}

	var found []string
	var walk func(dir string, depth int)
	walk = func(dir string, depth int) {
		if depth > DiscoverDepth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return // unreadable directories are skipped
		}
		for _, e := range entries {
			if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || skippedDirs[e.Name()] {
				continue
			}
			child := filepath.Join(dir, e.Name())
			if source != "" && canonical(child) == source {
				continue
			}
			if IsLinked(child, linkDir) {
				found = append(found, child)
			}
			walk(child, depth+1)
		}
	}
	walk(root, 1)

	sort.Strings(found)
	return found, nil
}

// canonical resolves symlinks so the same directory compares equal however
// it was reached. Unresolvable paths fall back to their absolute form.
func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

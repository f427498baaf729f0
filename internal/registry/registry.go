package registry

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/fleetsync/internal/platform"
)

const filePerm = 0644

var (
	// ErrNotLinked is returned by Register when the target has no linkage
	// marker pointing at the framework.
	ErrNotLinked = errors.New("target is not linked to the framework")
	// ErrAlreadyRegistered is advisory: the path is already in the registry.
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrNotRegistered is advisory: the path is not in the registry.
	ErrNotRegistered = errors.New("not registered")
)

// Registry is the persisted list of target project paths. It is loaded
// fresh by Open and written back atomically by Save.
type Registry struct {
	path  string
	lines []string
}

// Open loads the registry file at path. A missing file yields an empty
// registry; it is created on the first Save.
func Open(path string) (*Registry, error) {
	r := &Registry{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		r.lines = append(r.lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning registry %s: %w", path, err)
	}

	return r, nil
}

// Path returns the location of the registry file.
func (r *Registry) Path() string { return r.path }

// Paths yields registered paths in insertion order, skipping blank lines,
// comment lines and repeated entries. Each range over the sequence starts
// from the beginning.
func (r *Registry) Paths() iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]bool)
		for _, line := range r.lines {
			p, ok := entry(line)
			if !ok || seen[p] {
				continue
			}
			seen[p] = true
			if !yield(p) {
				return
			}
		}
	}
}

// Len returns the number of distinct registered paths.
func (r *Registry) Len() int {
	n := 0
	for range r.Paths() {
		n++
	}
	return n
}

// Contains reports whether path is registered. The path is normalized first.
func (r *Registry) Contains(path string) bool {
	p, err := Normalize(path)
	if err != nil {
		return false
	}
	for existing := range r.Paths() {
		if existing == p {
			return true
		}
	}
	return false
}

// Add appends path to the in-memory list. It returns ErrAlreadyRegistered
// when the path is present. Call Save to persist.
func (r *Registry) Add(path string) (string, error) {
	p, err := Normalize(path)
	if err != nil {
		return "", err
	}
	if r.Contains(p) {
		return p, fmt.Errorf("%s: %w", p, ErrAlreadyRegistered)
	}
	r.lines = append(r.lines, p)
	return p, nil
}

// Remove drops every line naming path, keeping comments and other entries in
// place. It returns ErrNotRegistered when nothing matched. Call Save to persist.
func (r *Registry) Remove(path string) (string, error) {
	p, err := Normalize(path)
	if err != nil {
		return "", err
	}

	var kept []string
	removed := false
	for _, line := range r.lines {
		if e, ok := entry(line); ok && e == p {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return p, fmt.Errorf("%s: %w", p, ErrNotRegistered)
	}
	r.lines = kept
	return p, nil
}

// Save writes the registry atomically, creating its directory if needed.
func (r *Registry) Save() error {
	var buf bytes.Buffer
	for _, line := range r.lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if err := platform.WriteFileAtomic(r.path, buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}
	return nil
}

// Register adds target after checking its linkage marker and persists the
// registry. The returned path is the normalized form that was stored.
func (r *Registry) Register(target, linkDir string) (string, error) {
	p, err := Normalize(target)
	if err != nil {
		return "", err
	}
	if !IsLinked(p, linkDir) {
		return p, fmt.Errorf("%s (no %s): %w", p, filepath.Join(linkDir, ".git"), ErrNotLinked)
	}
	if _, err := r.Add(p); err != nil {
		return p, err
	}
	return p, r.Save()
}

// Unregister removes target and persists the registry.
func (r *Registry) Unregister(target string) (string, error) {
	p, err := r.Remove(target)
	if err != nil {
		return p, err
	}
	return p, r.Save()
}

// IsLinked reports whether dir carries the linkage marker: a linkDir
// directory holding a .git file (submodule) or directory (nested clone).
func IsLinked(dir, linkDir string) bool {
	info, err := os.Stat(filepath.Join(dir, linkDir))
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = os.Lstat(filepath.Join(dir, linkDir, ".git"))
	return err == nil
}

// Normalize returns the absolute, cleaned form of path with symlinks
// resolved, so one project has one registry entry however it is reached.
// A path that no longer exists keeps its absolute form.
func Normalize(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return canonical(abs), nil
}

// entry extracts a registered path from a raw line.
func entry(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	return filepath.Clean(line), true
}

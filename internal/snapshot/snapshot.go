package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentx-labs/fleetsync/internal/manifest"
	"github.com/agentx-labs/fleetsync/internal/platform"
)

// excludedNames are never part of a snapshot.
var excludedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// Entry is one managed file in a snapshot.
type Entry struct {
	Path string // slash-separated, relative to the project root
	Hash string // hex sha256 of the content
	Size int64
	Mode fs.FileMode
}

// Snapshot maps relative paths to their entries.
type Snapshot map[string]Entry

// Paths returns the snapshot's paths in sorted order.
func (s Snapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Scan fingerprints every managed file under root: files below each category
// root plus the singleton files. Structured documents and protected names are
// left out. Missing category roots and singletons are skipped; a missing root
// directory is an error.
func Scan(root string, m *manifest.Manifest) (Snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	snap := make(Snapshot)
	add := func(abs string) error {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if m.IsDocument(rel) || m.IsProtected(rel) {
			return nil
		}
		e, err := fingerprint(abs)
		if err != nil {
			return err
		}
		e.Path = rel
		snap[rel] = e
		return nil
	}

	for _, c := range m.Categories {
		dir := filepath.Join(root, filepath.FromSlash(c.Root))
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			continue
		}
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if excludedNames[d.Name()] {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			// Symlinks and other special files are not synced.
			if !d.Type().IsRegular() {
				return nil
			}
			return add(p)
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", c.Root, err)
		}
	}

	for _, f := range m.Files {
		abs := filepath.Join(root, filepath.FromSlash(f))
		info, err := os.Lstat(abs)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := add(abs); err != nil {
			return nil, err
		}
	}

	return snap, nil
}

// HasManagedRoot reports whether any category root exists under root.
func HasManagedRoot(root string, m *manifest.Manifest) bool {
	for _, r := range m.Roots() {
		if info, err := os.Stat(filepath.Join(root, filepath.FromSlash(r))); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

// CopyFile copies a managed file from srcRoot to dstRoot, preserving its
// mode. The destination is replaced atomically.
func CopyFile(srcRoot, dstRoot, rel string) error {
	src := filepath.Join(srcRoot, filepath.FromSlash(rel))
	dst := filepath.Join(dstRoot, filepath.FromSlash(rel))

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", rel, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", rel, err)
	}
	if err := platform.WriteFileAtomic(dst, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

func fingerprint(p string) (Entry, error) {
	f, err := os.Open(p)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Entry{}, fmt.Errorf("hashing %s: %w", p, err)
	}
	return Entry{
		Hash: hex.EncodeToString(h.Sum(nil)),
		Size: info.Size(),
		Mode: info.Mode().Perm(),
	}, nil
}

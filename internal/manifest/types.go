package manifest

import (
	"path"
	"slices"
	"strings"
)

// FileName is the optional manifest override at the framework root.
const FileName = "fleetsync.yaml"

// Category is a directory of managed files, e.g. agent definitions.
type Category struct {
	Name string `yaml:"name" json:"name"`
	Root string `yaml:"root" json:"root"`
}

// Manifest lists what the framework manages inside every target.
// All paths are slash-separated and relative to the project root.
type Manifest struct {
	// Categories are directories walked recursively.
	Categories []Category `yaml:"categories,omitempty" json:"categories,omitempty"`
	// Files are singleton managed files outside any category.
	Files []string `yaml:"files,omitempty" json:"files,omitempty"`
	// Documents are structured JSON documents merged field-wise on push.
	Documents []string `yaml:"documents,omitempty" json:"documents,omitempty"`
	// Protected names free-form documents that are never written by push.
	Protected []string `yaml:"protected,omitempty" json:"protected,omitempty"`
}

// DefaultCategories are the managed directories used when the framework has
// no manifest override.
var DefaultCategories = []Category{
	{Name: "agents", Root: ".claude/agents"},
	{Name: "commands", Root: ".claude/commands"},
	{Name: "hooks", Root: ".claude/hooks"},
	{Name: "scripts", Root: ".claude/scripts"},
}

// DefaultDocuments are the structured documents merged on push.
var DefaultDocuments = []string{".claude/settings.json"}

// DefaultProtected are per-project documents push must never overwrite.
var DefaultProtected = []string{"CLAUDE.md", "PROGRESS.md"}

// Default returns the built-in manifest.
func Default() *Manifest {
	return &Manifest{
		Categories: slices.Clone(DefaultCategories),
		Documents:  slices.Clone(DefaultDocuments),
		Protected:  slices.Clone(DefaultProtected),
	}
}

// Roots returns the category roots in declaration order.
func (m *Manifest) Roots() []string {
	roots := make([]string, 0, len(m.Categories))
	for _, c := range m.Categories {
		roots = append(roots, c.Root)
	}
	return roots
}

// CategoryOf returns the category whose root contains rel, or "" for
// singleton files and unmanaged paths.
func (m *Manifest) CategoryOf(rel string) string {
	for _, c := range m.Categories {
		if rel == c.Root || strings.HasPrefix(rel, c.Root+"/") {
			return c.Name
		}
	}
	return ""
}

// IsDocument reports whether rel is a structured document.
func (m *Manifest) IsDocument(rel string) bool {
	return slices.Contains(m.Documents, rel)
}

// IsProtected reports whether rel is a protected free-form document. Entries
// without a slash match the base name anywhere in the tree.
func (m *Manifest) IsProtected(rel string) bool {
	for _, p := range m.Protected {
		if p == rel || p == path.Base(rel) {
			return true
		}
	}
	return false
}

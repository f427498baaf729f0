package manifest

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ErrInvalid is returned when a manifest override fails validation.
var ErrInvalid = errors.New("invalid manifest")

// Load returns the manifest for the framework at root. Without a
// fleetsync.yaml the built-in defaults apply; sections the override leaves
// out also keep their defaults.
func Load(root string) (*Manifest, error) {
	p := filepath.Join(root, FileName)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading manifest %s: %w", p, err)
	}
	return Parse(data, p)
}

// Parse validates data against the manifest schema and decodes it. name is
// used in error messages only.
func Parse(data []byte, name string) (*Manifest, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating %s: %w", name, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w %s: %s", ErrInvalid, name, result.Summary())
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", name, err)
	}

	def := Default()
	if m.Categories == nil {
		m.Categories = def.Categories
	}
	if m.Documents == nil {
		m.Documents = def.Documents
	}
	if m.Protected == nil {
		m.Protected = def.Protected
	}

	if err := m.check(); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrInvalid, name, err)
	}
	return &m, nil
}

// check enforces rules the schema cannot express.
func (m *Manifest) check() error {
	seen := make(map[string]bool)
	for _, c := range m.Categories {
		root := path.Clean(c.Root)
		if !filepath.IsLocal(filepath.FromSlash(root)) {
			return fmt.Errorf("category %s root %q escapes the project", c.Name, c.Root)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = true
	}

	managed := append(append([]string{}, m.Files...), m.Documents...)
	for _, f := range managed {
		if !filepath.IsLocal(filepath.FromSlash(f)) {
			return fmt.Errorf("path %q escapes the project", f)
		}
		if m.IsProtected(f) {
			return fmt.Errorf("%q is protected and cannot be managed", f)
		}
	}
	for _, f := range m.Files {
		if m.IsDocument(f) {
			return fmt.Errorf("%q is listed both as a file and a document", f)
		}
		if cat := m.CategoryOf(f); cat != "" {
			return fmt.Errorf("%q already belongs to category %s", f, cat)
		}
	}
	return nil
}

package registry

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
)

const testLinkDir = ".framework"

// makeTarget creates a project directory with a linkage marker.
func makeTarget(t *testing.T, dir string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, testLinkDir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, testLinkDir, ".git"), []byte("gitdir: ../.git/modules/framework\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return canonical(dir)
}

func TestOpenMissingFile(t *testing.T) {
	r, err := Open(filepath.Join(t.TempDir(), "nope", "projects"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestPathsSkipsBlankAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects")
	content := "# managed by fleetsync\n\n/srv/a\n   \n# /srv/ignored\n/srv/b\n/srv/a\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := slices.Collect(r.Paths())
	want := []string{"/srv/a", "/srv/b"}
	if !slices.Equal(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}

	// The sequence is restartable.
	again := slices.Collect(r.Paths())
	if !slices.Equal(again, want) {
		t.Errorf("second Paths() = %v, want %v", again, want)
	}
}

func TestRegisterTwiceKeepsOneEntry(t *testing.T) {
	tmp := t.TempDir()
	target := makeTarget(t, filepath.Join(tmp, "app"))
	regPath := filepath.Join(tmp, "home", "projects")

	r, err := Open(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(target, testLinkDir); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := r.Register(target+"/", testLinkDir); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second Register error = %v, want ErrAlreadyRegistered", err)
	}

	reloaded, err := Open(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := slices.Collect(reloaded.Paths()); len(got) != 1 || got[0] != target {
		t.Errorf("Paths() = %v, want [%s]", got, target)
	}

	data, err := os.ReadFile(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), target); n != 1 {
		t.Errorf("registry file names target %d times, want 1", n)
	}
}

func TestRegisterThroughSymlinkKeepsOneEntry(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	tmp := t.TempDir()
	target := makeTarget(t, filepath.Join(tmp, "app"))
	alias := filepath.Join(tmp, "alias")
	if err := os.Symlink(target, alias); err != nil {
		t.Fatal(err)
	}

	r, err := Open(filepath.Join(tmp, "projects"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(target, testLinkDir); err != nil {
		t.Fatalf("Register: %v", err)
	}
	p, err := r.Register(alias, testLinkDir)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("Register via symlink error = %v, want ErrAlreadyRegistered", err)
	}
	if p != target {
		t.Errorf("normalized path = %s, want %s", p, target)
	}
	if !r.Contains(alias) {
		t.Error("Contains(alias) = false")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	if _, err := r.Unregister(alias); err != nil {
		t.Fatalf("Unregister via symlink: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() after Unregister = %d, want 0", r.Len())
	}
}

func TestRegisterRequiresLinkage(t *testing.T) {
	tmp := t.TempDir()
	plain := filepath.Join(tmp, "plain")
	if err := os.MkdirAll(plain, 0755); err != nil {
		t.Fatal(err)
	}

	r, err := Open(filepath.Join(tmp, "projects"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(plain, testLinkDir); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("Register error = %v, want ErrNotLinked", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if _, err := os.Stat(filepath.Join(tmp, "projects")); !os.IsNotExist(err) {
		t.Errorf("registry file should not be written on failure")
	}
}

func TestUnregister(t *testing.T) {
	tmp := t.TempDir()
	regPath := filepath.Join(tmp, "projects")
	a := makeTarget(t, filepath.Join(tmp, "a"))
	b := makeTarget(t, filepath.Join(tmp, "b"))
	if err := os.WriteFile(regPath, []byte("# header\n"+a+"\n"+b+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := Open(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Unregister(a); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, err := r.Unregister(a); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("second Unregister error = %v, want ErrNotRegistered", err)
	}

	data, err := os.ReadFile(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "# header\n"+b+"\n"; got != want {
		t.Errorf("registry file = %q, want %q", got, want)
	}
}

func TestRegisterPreservesOrder(t *testing.T) {
	tmp := t.TempDir()
	regPath := filepath.Join(tmp, "projects")
	names := []string{"zeta", "alpha", "mid"}

	r, err := Open(regPath)
	if err != nil {
		t.Fatal(err)
	}
	var want []string
	for _, n := range names {
		p := makeTarget(t, filepath.Join(tmp, n))
		if _, err := r.Register(p, testLinkDir); err != nil {
			t.Fatalf("Register(%s): %v", n, err)
		}
		want = append(want, p)
	}

	reloaded, err := Open(regPath)
	if err != nil {
		t.Fatal(err)
	}
	if got := slices.Collect(reloaded.Paths()); !slices.Equal(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
}

func TestIsLinked(t *testing.T) {
	tmp := t.TempDir()

	linked := makeTarget(t, filepath.Join(tmp, "linked"))

	cloned := filepath.Join(tmp, "cloned")
	if err := os.MkdirAll(filepath.Join(cloned, testLinkDir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}

	empty := filepath.Join(tmp, "empty")
	if err := os.MkdirAll(filepath.Join(empty, testLinkDir), 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		dir  string
		want bool
	}{
		{"submodule file", linked, true},
		{"nested clone", cloned, true},
		{"link dir without git", empty, false},
		{"missing", filepath.Join(tmp, "missing"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLinked(tt.dir, testLinkDir); got != tt.want {
				t.Errorf("IsLinked(%s) = %v, want %v", tt.dir, got, tt.want)
			}
		})
	}
}

//go:build integration

package integration_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentx-labs/fleetsync/internal/fleet"
	"github.com/agentx-labs/fleetsync/internal/git"
	"github.com/agentx-labs/fleetsync/internal/manifest"
)

const linkDir = ".framework"

// testEnv holds paths to an isolated framework and its registry.
type testEnv struct {
	Framework string // source-of-truth repository
	Registry  string // registry file
}

// setupTestEnv creates a framework repository with a first commit. Tests are
// skipped when git is not installed.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	env := &testEnv{
		Framework: t.TempDir(),
		Registry:  filepath.Join(t.TempDir(), "projects"),
	}
	initRepo(t, env.Framework)
	writeFile(t, filepath.Join(env.Framework, ".claude/agents/planner.md"), "# planner\n")
	writeFile(t, filepath.Join(env.Framework, ".claude/settings.json"),
		`{"hooks":{"Stop":[{"type":"command","command":"make check"}]}}`+"\n")
	writeFile(t, filepath.Join(env.Framework, "CLAUDE.md"), "framework\n")
	commitAll(t, env.Framework, "Initial framework")
	return env
}

// addProject creates a project repository linked to the framework through a
// nested clone and commits the link.
func addProject(t *testing.T, env *testEnv) string {
	t.Helper()
	dir := t.TempDir()
	initRepo(t, dir)
	writeFile(t, filepath.Join(dir, "CLAUDE.md"), "project\n")
	gitRun(t, "", "clone", "-q", env.Framework, filepath.Join(dir, linkDir))
	commitAll(t, dir, "Link framework")
	return dir
}

func newSyncer(t *testing.T, env *testEnv) *fleet.Syncer {
	t.Helper()
	m, err := manifest.Load(env.Framework)
	if err != nil {
		t.Fatalf("manifest.Load: %v", err)
	}
	return fleet.New(fleet.Options{Framework: env.Framework, LinkDir: linkDir, Timeout: time.Minute},
		m, git.NewShellClient(), nil)
}

func initRepo(t *testing.T, dir string) {
	t.Helper()
	gitRun(t, "", "init", "-q", "-b", "main", dir)
	gitRun(t, dir, "config", "user.email", "test@test.com")
	gitRun(t, dir, "config", "user.name", "Test")
	gitRun(t, dir, "config", "commit.gpgsign", "false")
}

func commitAll(t *testing.T, dir, msg string) {
	t.Helper()
	gitRun(t, dir, "add", "--all")
	gitRun(t, dir, "commit", "-q", "-m", msg)
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	out, err := exec.Command("git", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v: %s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

func head(t *testing.T, repo string) string {
	t.Helper()
	rev, err := git.NewShellClient().Head(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	return rev
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

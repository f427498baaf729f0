package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func gitCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := exec.Command("git", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
	return string(out)
}

// initRepo creates a repository with a committer identity on branch main.
func initRepo(t *testing.T, dir string) {
	t.Helper()
	gitCmd(t, "init", "-q", "-b", "main", dir)
	gitCmd(t, "-C", dir, "config", "user.email", "test@test.com")
	gitCmd(t, "-C", dir, "config", "user.name", "Test")
	gitCmd(t, "-C", dir, "config", "commit.gpgsign", "false")
}

// commitFile writes name and commits it, returning the new HEAD.
func commitFile(t *testing.T, repo, name, content, msg string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(repo, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	gitCmd(t, "-C", repo, "add", name)
	gitCmd(t, "-C", repo, "commit", "-q", "-m", msg)
	head, err := NewShellClient().Head(context.Background(), repo)
	if err != nil {
		t.Fatal(err)
	}
	return head
}

func TestHeadAndSubject(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	repo := t.TempDir()
	initRepo(t, repo)
	rev := commitFile(t, repo, "a.md", "one", "Add planner agent")

	c := NewShellClient()
	head, err := c.Head(ctx, repo)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != rev || len(head) != 40 {
		t.Errorf("Head = %q, want %q", head, rev)
	}
	subject, err := c.Subject(ctx, repo, head)
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if subject != "Add planner agent" {
		t.Errorf("Subject = %q", subject)
	}
}

func TestHeadNotARepo(t *testing.T) {
	requireGit(t)
	if _, err := NewShellClient().Head(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error outside a repository")
	}
}

func TestAdvanceAndCount(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	c := NewShellClient()

	fw := t.TempDir()
	initRepo(t, fw)
	first := commitFile(t, fw, "a.md", "v1", "first")

	checkout := filepath.Join(t.TempDir(), "checkout")
	gitCmd(t, "clone", "-q", fw, checkout)

	commitFile(t, fw, "a.md", "v2", "second")
	third := commitFile(t, fw, "a.md", "v3", "third")

	n, err := c.CountBetween(ctx, fw, first, third)
	if err != nil {
		t.Fatalf("CountBetween: %v", err)
	}
	if n != 2 {
		t.Errorf("CountBetween = %d, want 2", n)
	}

	if err := c.Advance(ctx, checkout, fw, third); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	head, err := c.Head(ctx, checkout)
	if err != nil {
		t.Fatal(err)
	}
	if head != third {
		t.Errorf("checkout HEAD = %s, want %s", head, third)
	}
	data, err := os.ReadFile(filepath.Join(checkout, "a.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v3" {
		t.Errorf("checkout content = %q, want v3", data)
	}
}

func TestCheckoutRestoresRevision(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	c := NewShellClient()

	fw := t.TempDir()
	initRepo(t, fw)
	first := commitFile(t, fw, "a.md", "v1", "first")
	checkout := filepath.Join(t.TempDir(), "checkout")
	gitCmd(t, "clone", "-q", fw, checkout)
	second := commitFile(t, fw, "a.md", "v2", "second")

	if err := c.Advance(ctx, checkout, fw, second); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if err := c.Checkout(ctx, checkout, first); err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	head, err := c.Head(ctx, checkout)
	if err != nil {
		t.Fatal(err)
	}
	if head != first {
		t.Errorf("checkout HEAD = %s, want %s", head, first)
	}
	data, err := os.ReadFile(filepath.Join(checkout, "a.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v1" {
		t.Errorf("checkout content = %q, want v1", data)
	}

	if err := c.Checkout(ctx, checkout, "0000000000000000000000000000000000000000"); err == nil {
		t.Error("Checkout of a missing revision succeeded")
	}
}

func TestCountBetweenUnknownRevision(t *testing.T) {
	requireGit(t)
	fw := t.TempDir()
	initRepo(t, fw)
	head := commitFile(t, fw, "a.md", "v1", "first")

	_, err := NewShellClient().CountBetween(context.Background(), fw, "0123456789abcdef0123456789abcdef01234567", head)
	if err == nil {
		t.Fatal("expected error for unknown revision")
	}
}

func TestCommit(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	c := NewShellClient()

	repo := t.TempDir()
	initRepo(t, repo)
	commitFile(t, repo, "README.md", "hi", "init")

	if err := os.WriteFile(filepath.Join(repo, "agent.md"), []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, "scratch.txt"), []byte("untouched"), 0644); err != nil {
		t.Fatal(err)
	}

	committed, err := c.Commit(ctx, repo, []string{"agent.md"}, "Sync framework to abc")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !committed {
		t.Fatal("expected a commit")
	}
	subject, err := c.Subject(ctx, repo, "HEAD")
	if err != nil {
		t.Fatal(err)
	}
	if subject != "Sync framework to abc" {
		t.Errorf("Subject = %q", subject)
	}
	status := gitCmd(t, "-C", repo, "status", "--porcelain")
	if status != "?? scratch.txt\n" {
		t.Errorf("unrelated file should stay untracked, status = %q", status)
	}

	committed, err = c.Commit(ctx, repo, []string{"agent.md"}, "again")
	if err != nil {
		t.Fatalf("second Commit: %v", err)
	}
	if committed {
		t.Error("second commit with no changes should be skipped")
	}
}

func TestDescribe(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	c := NewShellClient()

	repo := t.TempDir()
	initRepo(t, repo)
	rev := commitFile(t, repo, "a.md", "v1", "first")

	tag, err := c.Describe(ctx, repo, rev)
	if err != nil || tag != "" {
		t.Fatalf("Describe without tags = %q, %v; want empty, nil", tag, err)
	}

	gitCmd(t, "-C", repo, "tag", "v1.2.0")
	next := commitFile(t, repo, "a.md", "v2", "second")
	tag, err = c.Describe(ctx, repo, next)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if tag != "v1.2.0" {
		t.Errorf("Describe = %q, want v1.2.0", tag)
	}
}

func TestCanceledContext(t *testing.T) {
	requireGit(t)
	repo := t.TempDir()
	initRepo(t, repo)
	commitFile(t, repo, "a.md", "v1", "first")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewShellClient().Head(ctx, repo)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Head error = %v, want context.Canceled", err)
	}
}

func TestShort(t *testing.T) {
	if got := Short("0123456789abcdef"); got != "0123456789ab" {
		t.Errorf("Short = %q", got)
	}
	if got := Short("abc"); got != "abc" {
		t.Errorf("Short = %q", got)
	}
}

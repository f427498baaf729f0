package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Client provides the version-control operations the sync coordinators need.
type Client interface {
	// Head returns the commit id checked out in repo.
	Head(ctx context.Context, repo string) (string, error)
	// Advance fetches from source into the checkout and detaches it at rev.
	Advance(ctx context.Context, checkout, source, rev string) error
	// Checkout detaches repo at rev, which must already be present.
	Checkout(ctx context.Context, repo, rev string) error
	// Commit stages paths in repo and commits them with message. It reports
	// false without committing when the paths have no staged changes.
	Commit(ctx context.Context, repo string, paths []string, message string) (bool, error)
	// CountBetween returns how many commits are reachable from to but not from.
	CountBetween(ctx context.Context, repo, from, to string) (int, error)
	// Subject returns the first line of rev's commit message.
	Subject(ctx context.Context, repo, rev string) (string, error)
	// Describe returns the nearest tag reachable from rev, or "" if none.
	Describe(ctx context.Context, repo, rev string) (string, error)
}

// ShellClient implements Client by shelling out to the git command.
type ShellClient struct {
	binary string
}

// NewShellClient creates a client that runs the git binary found on PATH.
func NewShellClient() *ShellClient {
	return &ShellClient{binary: "git"}
}

// Available reports whether the git binary can be found.
func (c *ShellClient) Available() (string, error) {
	return exec.LookPath(c.binary)
}

// Head returns the commit id of HEAD in repo.
func (c *ShellClient) Head(ctx context.Context, repo string) (string, error) {
	out, err := c.run(ctx, repo, "rev-parse", "--verify", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}
	return out, nil
}

// Advance fetches source's HEAD into checkout and checks out rev detached.
// Fetching from the framework path keeps this working without a reachable
// remote.
func (c *ShellClient) Advance(ctx context.Context, checkout, source, rev string) error {
	if _, err := c.run(ctx, checkout, "fetch", "--quiet", "--no-tags", source, "HEAD"); err != nil {
		return fmt.Errorf("git fetch failed: %w", err)
	}
	return c.Checkout(ctx, checkout, rev)
}

// Checkout detaches repo at rev.
func (c *ShellClient) Checkout(ctx context.Context, repo, rev string) error {
	if _, err := c.run(ctx, repo, "checkout", "--quiet", "--detach", rev); err != nil {
		return fmt.Errorf("git checkout failed for %s: %w", Short(rev), err)
	}
	return nil
}

// Commit stages paths and commits only those paths.
func (c *ShellClient) Commit(ctx context.Context, repo string, paths []string, message string) (bool, error) {
	if len(paths) == 0 {
		return false, nil
	}

	addArgs := append([]string{"add", "--all", "--"}, paths...)
	if _, err := c.run(ctx, repo, addArgs...); err != nil {
		return false, fmt.Errorf("git add failed: %w", err)
	}

	diffArgs := append([]string{"diff", "--cached", "--quiet", "--"}, paths...)
	_, err := c.run(ctx, repo, diffArgs...)
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return false, fmt.Errorf("git diff failed: %w", err)
	}

	commitArgs := append([]string{"commit", "--quiet", "--message", message, "--"}, paths...)
	if _, err := c.run(ctx, repo, commitArgs...); err != nil {
		return false, fmt.Errorf("git commit failed: %w", err)
	}
	return true, nil
}

// CountBetween runs rev-list --count from..to in repo.
func (c *ShellClient) CountBetween(ctx context.Context, repo, from, to string) (int, error) {
	out, err := c.run(ctx, repo, "rev-list", "--count", from+".."+to)
	if err != nil {
		return 0, fmt.Errorf("git rev-list failed: %w", err)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("parsing rev-list output %q: %w", out, err)
	}
	return n, nil
}

// Subject returns the subject line of rev.
func (c *ShellClient) Subject(ctx context.Context, repo, rev string) (string, error) {
	out, err := c.run(ctx, repo, "log", "-1", "--format=%s", rev)
	if err != nil {
		return "", fmt.Errorf("git log failed: %w", err)
	}
	return out, nil
}

// Describe returns the nearest tag reachable from rev. A repository without
// tags yields "" and no error.
func (c *ShellClient) Describe(ctx context.Context, repo, rev string) (string, error) {
	out, err := c.run(ctx, repo, "describe", "--tags", "--abbrev=0", rev)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", nil
	}
	return out, nil
}

// run executes git -C dir args and returns trimmed stdout. On failure the
// error wraps the exit error (or the context error) and carries stderr.
func (c *ShellClient) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.binary, append([]string{"-C", dir}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", err
		}
		return "", fmt.Errorf("%w: %s", err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Short abbreviates a commit id for messages and reports.
func Short(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

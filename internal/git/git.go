package git

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Client looks up facts about the checkout an agent worked in.
type Client interface {
	CurrentBranch(ctx context.Context, dir string) (string, error)
	LastCommitHash(ctx context.Context, dir string) (string, error)
	RemoteURL(ctx context.Context, dir string) (string, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

// run executes name in dir and returns trimmed stdout. A non-zero exit is
// reported with the command's stderr.
func run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) CurrentBranch(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "git", "rev-parse", "--abbrev-ref", "HEAD")
}

func (c *RealClient) LastCommitHash(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "git", "log", "-1", "--format=%h")
}

// RemoteURL returns the origin URL, or "" when the checkout has no origin.
func (c *RealClient) RemoteURL(ctx context.Context, dir string) (string, error) {
	out, err := run(ctx, dir, "git", "remote", "get-url", "origin")
	if err != nil {
		return "", nil
	}
	return out, nil
}

// ExtractOwnerRepo parses a GitHub remote URL (SSH or HTTPS) into owner and repo.
func ExtractOwnerRepo(remoteURL string) (owner, repo string, err error) {
	path := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")
	switch {
	case strings.HasPrefix(path, "git@"):
		_, after, ok := strings.Cut(path, ":")
		if !ok {
			return "", "", fmt.Errorf("cannot parse SSH remote: %s", remoteURL)
		}
		path = after
	case strings.HasPrefix(path, "https://github.com/"), strings.HasPrefix(path, "http://github.com/"):
		path = path[strings.Index(path, "github.com/")+len("github.com/"):]
	}

	owner, repo, ok := strings.Cut(path, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	return owner, repo, nil
}

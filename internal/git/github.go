package git

import (
	"context"
	"encoding/json"
	"fmt"
)

// PullRequest is the subset of `gh pr view --json` output the workflow records.
type PullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Branch string `json:"headRefName"`
	URL    string `json:"url"`
}

// GitHubClient wraps the gh CLI for pull request lookups.
type GitHubClient interface {
	// CurrentPR returns the pull request for the branch checked out in dir.
	CurrentPR(ctx context.Context, dir string) (*PullRequest, error)
}

// RealGitHubClient implements GitHubClient using the gh CLI.
type RealGitHubClient struct{}

// NewGitHubClient returns a new RealGitHubClient.
func NewGitHubClient() *RealGitHubClient {
	return &RealGitHubClient{}
}

func (c *RealGitHubClient) CurrentPR(ctx context.Context, dir string) (*PullRequest, error) {
	out, err := run(ctx, dir, "gh", "pr", "view", "--json", "number,title,state,headRefName,url")
	if err != nil {
		return nil, err
	}
	return ParsePullRequest(out)
}

// ParsePullRequest decodes `gh pr view --json` output.
func ParsePullRequest(out string) (*PullRequest, error) {
	var pr PullRequest
	if err := json.Unmarshal([]byte(out), &pr); err != nil {
		return nil, fmt.Errorf("parse PR: %w", err)
	}
	if pr.URL == "" {
		return nil, fmt.Errorf("parse PR: missing url")
	}
	return &pr, nil
}

package git

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	cmds := [][]string{
		{"git", "-C", dir, "init", "-b", "main"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func TestExtractOwnerRepo_SSH(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("git@github.com:joescharf/bleue.git")
	assert.NoError(t, err)
	assert.Equal(t, "joescharf", owner)
	assert.Equal(t, "bleue", repo)
}

func TestExtractOwnerRepo_HTTPS(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("https://github.com/joescharf/bleue.git")
	assert.NoError(t, err)
	assert.Equal(t, "joescharf", owner)
	assert.Equal(t, "bleue", repo)
}

func TestExtractOwnerRepo_HTTPSNoGit(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("https://github.com/joescharf/bleue")
	assert.NoError(t, err)
	assert.Equal(t, "joescharf", owner)
	assert.Equal(t, "bleue", repo)
}

func TestExtractOwnerRepo_Invalid(t *testing.T) {
	_, _, err := ExtractOwnerRepo("not-a-url")
	assert.Error(t, err)
}

func TestExtractOwnerRepo_Rejects(t *testing.T) {
	for _, in := range []string{"https://github.com/bleue", "git@github.com:bleue", "https://github.com/a/b/c"} {
		_, _, err := ExtractOwnerRepo(in)
		assert.Error(t, err, in)
	}
}

func TestRealClient_BranchAndCommit(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	require.NoError(t, exec.Command("git", "-C", dir, "commit", "--allow-empty", "-m", "init").Run())
	require.NoError(t, exec.Command("git", "-C", dir, "checkout", "-b", "issue-12").Run())

	ctx := context.Background()
	c := NewClient()

	branch, err := c.CurrentBranch(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "issue-12", branch)

	hash, err := c.LastCommitHash(ctx, dir)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
}

func TestRealClient_RemoteURL(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	ctx := context.Background()

	url, err := NewClient().RemoteURL(ctx, dir)
	assert.NoError(t, err)
	assert.Empty(t, url, "no origin is not an error")

	require.NoError(t, exec.Command("git", "-C", dir, "remote", "add", "origin", "git@github.com:joescharf/bleue.git").Run())
	url, err = NewClient().RemoteURL(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "git@github.com:joescharf/bleue.git", url)
}

func TestRealClient_NotARepo(t *testing.T) {
	_, err := NewClient().CurrentBranch(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git rev-parse")
}

func TestParsePullRequest(t *testing.T) {
	pr, err := ParsePullRequest(`{"number":42,"title":"Fix login","state":"OPEN","headRefName":"issue-12","url":"https://github.com/joescharf/bleue/pull/42"}`)
	require.NoError(t, err)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "issue-12", pr.Branch)
	assert.Equal(t, "https://github.com/joescharf/bleue/pull/42", pr.URL)

	_, err = ParsePullRequest(`{"number":1}`)
	assert.Error(t, err)

	_, err = ParsePullRequest("no pull requests found")
	assert.Error(t, err)
}

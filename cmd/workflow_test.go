package cmd

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bleue/internal/agent"
	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/tracker"
	"github.com/joescharf/bleue/internal/workflow"
)

func writeFakeClaude(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script agent stub requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestGetExecutor(t *testing.T) {
	cmdEnv(t)
	dir := t.TempDir()

	ex, err := getExecutor(dir, logger)
	require.NoError(t, err)
	cli, ok := ex.(*agent.ClaudeCLI)
	require.True(t, ok)
	assert.Equal(t, "claude", cli.Command)
	assert.Equal(t, dir, cli.WorkDir)
	assert.Equal(t, filepath.Join(viper.GetString("state_dir"), "agents"), cli.OutputDir)

	viper.Set("agent.command", "/opt/bin/claude")
	ex, err = getExecutor(dir, logger)
	require.NoError(t, err)
	assert.Equal(t, "/opt/bin/claude", ex.(*agent.ClaudeCLI).Command)

	workflowAgent = "api"
	_, err = getExecutor(dir, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")

	viper.Set("anthropic.api_key", "sk-test")
	ex, err = getExecutor(dir, logger)
	require.NoError(t, err)
	assert.IsType(t, &agent.AnthropicAPI{}, ex)

	workflowAgent = "codex"
	_, err = getExecutor(dir, logger)
	assert.Error(t, err)
}

func TestResolveWorkdir(t *testing.T) {
	cmdEnv(t)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	got, err := resolveWorkdir()
	require.NoError(t, err)
	assert.Equal(t, cwd, got)

	dir := t.TempDir()
	viper.Set("agent.workdir", dir)
	got, err = resolveWorkdir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	other := t.TempDir()
	workflowWorkdir = other
	got, err = resolveWorkdir()
	require.NoError(t, err)
	assert.Equal(t, other, got)
}

func TestWorkflowFinalize_AgentFailureStillCompletes(t *testing.T) {
	out := cmdEnv(t)
	ctx := context.Background()
	issues, comments := mustTracker(t)

	issue, err := issues.Create(ctx, tracker.CreateIssueInput{Description: "Ship the onboarding checklist"})
	require.NoError(t, err)
	_, err = issues.UpdateStatus(ctx, issue.ID, models.IssueStatusStarted)
	require.NoError(t, err)

	viper.Set("agent.command", writeFakeClaude(t, "echo 'gh: not logged in' >&2\nexit 1\n"))
	workflowWorkdir = t.TempDir()

	require.NoError(t, workflowFinalizeRun(ctx, "1"))
	assert.Contains(t, out.String(), "Pull request preparation failed")
	assert.Contains(t, out.String(), "status: completed")

	got, err := issues.Fetch(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusCompleted, got.Status)

	list, err := comments.List(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, workflow.MsgSolutionImplemented, list[0].Comment)
	assert.Equal(t, models.CommentSourceSystem, list[0].Source)
	assert.Equal(t, models.CommentTypeWorkflow, list[0].Type)
}

func TestWorkflowFinalize_DryRun(t *testing.T) {
	out := cmdEnv(t)
	ctx := context.Background()
	issues, comments := mustTracker(t)

	issue, err := issues.Create(ctx, tracker.CreateIssueInput{Description: "Ship the onboarding checklist"})
	require.NoError(t, err)

	dryRun = true
	ui.DryRun = true
	workflowWorkdir = t.TempDir()
	require.NoError(t, workflowFinalizeRun(ctx, "1"))
	assert.Contains(t, out.String(), "Would run "+workflow.PullRequestCommand)

	got, err := issues.Fetch(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusPending, got.Status)
	list, err := comments.List(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWorkflowFinalize_UnknownIssue(t *testing.T) {
	cmdEnv(t)

	err := workflowFinalizeRun(context.Background(), "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issue with id 9 not found")
}

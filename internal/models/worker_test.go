package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerOptions_UnassignedFirst(t *testing.T) {
	opts := WorkerOptions()
	require.NotEmpty(t, opts)
	assert.Equal(t, "Unassigned", opts[0].Label)
	assert.Empty(t, opts[0].ID)
	assert.Len(t, opts, len(Fleets)*3+1)
}

func TestWorkerOptions_IncludesAllFleets(t *testing.T) {
	ids := WorkerIDs()
	for _, want := range []string{
		"alleycat-1", "alleycat-2", "alleycat-3",
		"executor-1", "executor-2", "executor-3",
		"local-1", "local-2", "local-3",
		"tydirium-1", "tydirium-2", "tydirium-3",
		"xwing-1", "xwing-2", "xwing-3",
	} {
		assert.Contains(t, ids, want)
		assert.True(t, ValidWorker(want), want)
	}
}

func TestWorkerDisplayName(t *testing.T) {
	assert.Equal(t, "Alleycat 1", WorkerDisplayName("alleycat-1"))
	assert.Equal(t, "Executor 2", WorkerDisplayName("executor-2"))
	assert.Equal(t, "Local 3", WorkerDisplayName("local-3"))
	assert.Equal(t, "X-Wing 1", WorkerDisplayName("xwing-1"))
	assert.Equal(t, "", WorkerDisplayName(""))
	assert.Equal(t, "", WorkerDisplayName("unknown-worker"))
	assert.Equal(t, "", WorkerDisplayName("invalid-1"))
}

func TestValidWorker_CaseSensitive(t *testing.T) {
	assert.False(t, ValidWorker("ALLEYCAT-1"))
	assert.False(t, ValidWorker("Alleycat-1"))
	assert.False(t, ValidWorker("alleycat-4"))
	assert.False(t, ValidWorker(""))
}

func TestWorkerIDs_ReturnsCopy(t *testing.T) {
	ids := WorkerIDs()
	ids[0] = "mutated"
	assert.Equal(t, "alleycat-1", WorkerIDs()[0])
}

func TestParseWorkflow(t *testing.T) {
	for in, want := range map[string]Workflow{
		"":      WorkflowNone,
		"none":  WorkflowNone,
		"main":  WorkflowMain,
		"patch": WorkflowPatch,
	} {
		got, ok := ParseWorkflow(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := ParseWorkflow("Main")
	assert.False(t, ok)
	_, ok = ParseWorkflow("invalid")
	assert.False(t, ok)
}

func TestWorkflowDisplay(t *testing.T) {
	assert.Equal(t, "None", WorkflowNone.Display())
	assert.Equal(t, "Main", WorkflowMain.Display())
	assert.Equal(t, "Patch", WorkflowPatch.Display())
}

func TestIssueStatusValid(t *testing.T) {
	assert.True(t, IssueStatusPending.Valid())
	assert.True(t, IssueStatusStarted.Valid())
	assert.True(t, IssueStatusCompleted.Valid())
	assert.False(t, IssueStatus("done").Valid())
	assert.False(t, IssueStatus("").Valid())
}

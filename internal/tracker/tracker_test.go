package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// brokenStore fails every call with errBackend.
type brokenStore struct{ store.Store }

var errBackend = errors.New("connection refused")

func (brokenStore) CreateIssue(context.Context, *models.Issue) error { return errBackend }
func (brokenStore) ListIssues(context.Context) ([]*models.Issue, error) {
	return nil, errBackend
}
func (brokenStore) CreateComment(context.Context, *models.Comment) error { return errBackend }

func newTestTracker(t *testing.T) (*IssueStore, *CommentLog) {
	t.Helper()
	s := newTestStore(t)
	return NewIssueStore(s, nil), NewCommentLog(s, nil)
}

func mustCreate(t *testing.T, issues *IssueStore, desc string) *models.Issue {
	t.Helper()
	issue, err := issues.Create(context.Background(), CreateIssueInput{Description: desc})
	require.NoError(t, err)
	return issue
}

// --- Create ---

func TestCreate_DescriptionLength(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		desc  string
		valid bool
	}{
		{"empty", "", false},
		{"whitespace", "     \n\t ", false},
		{"nine chars", "123456789", false},
		{"nine chars padded", "   123456789   ", false},
		{"ten chars", "1234567890", true},
		{"ten chars padded", "  1234567890  ", true},
		{"max", strings.Repeat("x", MaxDescriptionLen), true},
		{"max plus one", strings.Repeat("x", MaxDescriptionLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issues.Create(ctx, CreateIssueInput{Description: tt.desc})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, IsValidation(err), "expected validation error, got %v", err)
			}
		})
	}
}

func TestCreate_EmptyDescriptionMessage(t *testing.T) {
	issues, _ := newTestTracker(t)
	_, err := issues.Create(context.Background(), CreateIssueInput{Description: "   "})
	assert.EqualError(t, err, "Issue description cannot be empty")
}

func TestCreate_Defaults(t *testing.T) {
	issues, _ := newTestTracker(t)
	issue := mustCreate(t, issues, "Fix login bug across browsers")

	assert.NotZero(t, issue.ID)
	assert.Equal(t, models.IssueStatusPending, issue.Status)
	assert.Equal(t, models.WorkflowNone, issue.Workflow)
	assert.Empty(t, issue.AssignedTo)
	assert.Empty(t, issue.Title)
}

func TestCreate_OptionalFields(t *testing.T) {
	issues, _ := newTestTracker(t)
	issue, err := issues.Create(context.Background(), CreateIssueInput{
		Description: "Add dark mode to settings",
		Title:       "  Dark mode  ",
		Workflow:    "patch",
		AssignedTo:  "tydirium-3",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dark mode", issue.Title)
	assert.Equal(t, models.WorkflowPatch, issue.Workflow)
	assert.Equal(t, "tydirium-3", issue.AssignedTo)
}

func TestCreate_TitleTooLong(t *testing.T) {
	issues, _ := newTestTracker(t)
	_, err := issues.Create(context.Background(), CreateIssueInput{
		Description: "Valid description here",
		Title:       strings.Repeat("t", MaxTitleLen+1),
	})
	assert.EqualError(t, err, "Issue title cannot exceed 255 characters")

	_, err = issues.Create(context.Background(), CreateIssueInput{
		Description: "Valid description here",
		Title:       strings.Repeat("t", MaxTitleLen),
	})
	assert.NoError(t, err)
}

func TestCreate_InvalidWorkflowAndWorker(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := issues.Create(ctx, CreateIssueInput{Description: "Valid description here", Workflow: "hotfix"})
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "Invalid workflow")

	_, err = issues.Create(ctx, CreateIssueInput{Description: "Valid description here", AssignedTo: "ALLEYCAT-1"})
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "Invalid worker ID")

	all, err := issues.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "rejected input never reaches the store")
}

func TestCreate_PersistenceError(t *testing.T) {
	issues := NewIssueStore(brokenStore{newTestStore(t)}, nil)
	_, err := issues.Create(context.Background(), CreateIssueInput{Description: "Valid description here"})
	require.Error(t, err)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, "failed to create issue: connection refused", err.Error())
	assert.False(t, IsValidation(err))
}

// --- Fetch ---

func TestFetch_RoundTripTrimsDescription(t *testing.T) {
	issues, _ := newTestTracker(t)
	created := mustCreate(t, issues, "   Trimmed on the way in   ")

	got, err := issues.Fetch(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trimmed on the way in", got.Description)
}

func TestFetch_NotFound(t *testing.T) {
	issues, _ := newTestTracker(t)
	_, err := issues.Fetch(context.Background(), 404)
	assert.True(t, IsNotFound(err))
	assert.EqualError(t, err, "issue with id 404 not found")
}

func TestFetchAll(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()

	all, err := issues.FetchAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	a := mustCreate(t, issues, "First issue created")
	b := mustCreate(t, issues, "Second issue created")

	all, err = issues.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Equal(t, a.ID, all[1].ID)
}

func TestFetchAll_PersistenceError(t *testing.T) {
	issues := NewIssueStore(brokenStore{newTestStore(t)}, nil)
	_, err := issues.FetchAll(context.Background())
	var pe *PersistenceError
	assert.ErrorAs(t, err, &pe)
}

// --- Updates ---

func TestUpdateStatus(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()
	issue := mustCreate(t, issues, "Status transitions")

	for _, st := range []models.IssueStatus{models.IssueStatusStarted, models.IssueStatusCompleted, models.IssueStatusPending} {
		got, err := issues.UpdateStatus(ctx, issue.ID, st)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
	}

	_, err := issues.UpdateStatus(ctx, issue.ID, "archived")
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "pending, started, completed")

	_, err = issues.UpdateStatus(ctx, 999, models.IssueStatusStarted)
	assert.True(t, IsNotFound(err))
}

func TestUpdateDescription(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()
	issue := mustCreate(t, issues, "Original description")

	got, err := issues.UpdateDescription(ctx, issue.ID, "  Updated description  ")
	require.NoError(t, err)
	assert.Equal(t, "Updated description", got.Description)

	_, err = issues.UpdateDescription(ctx, issue.ID, "short")
	assert.EqualError(t, err, "Issue description must be at least 10 characters")

	_, err = issues.UpdateDescription(ctx, issue.ID, strings.Repeat("x", MaxDescriptionLen+1))
	assert.EqualError(t, err, "Issue description cannot exceed 10000 characters")

	_, err = issues.UpdateDescription(ctx, 999, "Updated description")
	assert.True(t, IsNotFound(err))
}

func TestUpdateAssignment_AllRegisteredWorkers(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()
	issue := mustCreate(t, issues, "Assign me to someone")

	for _, id := range models.WorkerIDs() {
		got, err := issues.UpdateAssignment(ctx, issue.ID, id)
		require.NoError(t, err, id)
		assert.Equal(t, id, got.AssignedTo)
	}

	got, err := issues.UpdateAssignment(ctx, issue.ID, "")
	require.NoError(t, err)
	assert.Empty(t, got.AssignedTo)
}

func TestUpdateAssignment_InvalidWorker(t *testing.T) {
	issues, _ := newTestTracker(t)
	issue := mustCreate(t, issues, "Assign me to someone")

	for _, id := range []string{"ALLEYCAT-1", "Alleycat-1", "alleycat-4", "xwing", "nobody"} {
		_, err := issues.UpdateAssignment(context.Background(), issue.ID, id)
		assert.True(t, IsValidation(err), id)
	}
}

func TestUpdateAssignment_OnlyPending(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()

	for _, st := range []models.IssueStatus{models.IssueStatusStarted, models.IssueStatusCompleted} {
		issue := mustCreate(t, issues, "Gate on non-pending status")
		_, err := issues.UpdateStatus(ctx, issue.ID, st)
		require.NoError(t, err)

		for _, worker := range []string{"alleycat-1", ""} {
			_, err = issues.UpdateAssignment(ctx, issue.ID, worker)
			require.True(t, IsValidation(err))
			assert.Contains(t, err.Error(), "Only pending issues can be assigned")
			assert.Contains(t, err.Error(), string(st))
		}
	}
}

func TestUpdateAssignment_NotFound(t *testing.T) {
	issues, _ := newTestTracker(t)
	_, err := issues.UpdateAssignment(context.Background(), 999, "local-1")
	assert.True(t, IsNotFound(err))
}

// vanishingStore deletes the row between the gate's fetch and the write.
type vanishingStore struct{ store.Store }

func (v vanishingStore) UpdateIssue(ctx context.Context, id int64, patch store.IssuePatch) (*models.Issue, error) {
	if err := v.Store.DeleteIssue(ctx, id); err != nil {
		return nil, err
	}
	return v.Store.UpdateIssue(ctx, id, patch)
}

func TestGatedUpdates_RowVanishesBeforeWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("assignment", func(t *testing.T) {
		s := newTestStore(t)
		issues := NewIssueStore(vanishingStore{s}, nil)
		issue := mustCreate(t, issues, "Deleted while being assigned")

		_, err := issues.UpdateAssignment(ctx, issue.ID, "local-1")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), fmt.Sprintf("issue with id %d not found", issue.ID))
	})

	t.Run("workflow", func(t *testing.T) {
		s := newTestStore(t)
		issues := NewIssueStore(vanishingStore{s}, nil)
		issue := mustCreate(t, issues, "Deleted while changing workflow")

		_, err := issues.UpdateWorkflow(ctx, issue.ID, "main")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestChecks_DoNotWrite(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()
	issue := mustCreate(t, issues, "Checked but never changed")

	assert.NoError(t, CreateIssueInput{Description: "Valid description", Workflow: "main"}.Validate())
	assert.True(t, IsValidation(CreateIssueInput{Description: "Valid description", AssignedTo: "nobody"}.Validate()))
	assert.NoError(t, ValidateStatus(models.IssueStatusCompleted))
	assert.True(t, IsValidation(ValidateStatus("archived")))

	require.NoError(t, issues.CheckAssignment(ctx, issue.ID, "alleycat-1"))
	wf, err := issues.CheckWorkflow(ctx, issue.ID, "patch")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowPatch, wf)
	assert.True(t, IsNotFound(issues.CheckAssignment(ctx, 999, "alleycat-1")))

	got, err := issues.Fetch(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AssignedTo)
	assert.Equal(t, models.WorkflowNone, got.Workflow)
}

func TestUpdateWorkflow(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()
	issue := mustCreate(t, issues, "Workflow changes")

	got, err := issues.UpdateWorkflow(ctx, issue.ID, "patch")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowPatch, got.Workflow)

	got, err = issues.UpdateWorkflow(ctx, issue.ID, "none")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowNone, got.Workflow)

	_, err = issues.UpdateWorkflow(ctx, issue.ID, "release")
	assert.True(t, IsValidation(err))

	_, err = issues.UpdateWorkflow(ctx, 999, "main")
	assert.True(t, IsNotFound(err))
}

func TestWorkflowScenario(t *testing.T) {
	issues, _ := newTestTracker(t)
	ctx := context.Background()

	issue := mustCreate(t, issues, "Fix login bug across browsers")
	assert.Equal(t, models.IssueStatusPending, issue.Status)
	assert.Equal(t, models.WorkflowNone, issue.Workflow)

	got, err := issues.UpdateWorkflow(ctx, issue.ID, "main")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowMain, got.Workflow)

	_, err = issues.UpdateStatus(ctx, issue.ID, models.IssueStatusStarted)
	require.NoError(t, err)

	_, err = issues.UpdateWorkflow(ctx, issue.ID, "patch")
	require.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "Only pending issues can have their workflow changed")

	got, err = issues.Fetch(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowMain, got.Workflow)
}

// --- Delete ---

func TestDelete(t *testing.T) {
	issues, comments := newTestTracker(t)
	ctx := context.Background()
	issue := mustCreate(t, issues, "Delete me with comments")
	_, err := comments.Append(ctx, CommentInput{IssueID: issue.ID, Text: "note"})
	require.NoError(t, err)

	ok, err := issues.Delete(ctx, issue.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = issues.Fetch(ctx, issue.ID)
	assert.True(t, IsNotFound(err))

	list, err := comments.List(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	ok, err = issues.Delete(ctx, issue.ID)
	assert.False(t, ok)
	assert.True(t, IsNotFound(err))
}

// --- Comments ---

func TestCommentAppend(t *testing.T) {
	issues, comments := newTestTracker(t)
	ctx := context.Background()
	issue := mustCreate(t, issues, "Issue with comments")

	c, err := comments.Append(ctx, CommentInput{
		IssueID: issue.ID,
		Text:    "  Started work  ",
		Source:  models.CommentSourceUser,
	})
	require.NoError(t, err)
	assert.Equal(t, "Started work", c.Comment)
	assert.Equal(t, map[string]any{}, c.Raw)
	assert.Equal(t, models.CommentSourceUser, c.Source)
}

func TestCommentAppend_EmptyText(t *testing.T) {
	_, comments := newTestTracker(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := comments.Append(context.Background(), CommentInput{IssueID: 1, Text: text})
		assert.True(t, IsValidation(err), "%q", text)
	}
}

func TestCommentAppend_PersistenceError(t *testing.T) {
	comments := NewCommentLog(brokenStore{newTestStore(t)}, nil)
	_, err := comments.Append(context.Background(), CommentInput{IssueID: 1, Text: "hello"})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "create comment on issue 1")
}

func TestCommentList_NewestFirst(t *testing.T) {
	issues, comments := newTestTracker(t)
	ctx := context.Background()
	issue := mustCreate(t, issues, "Issue with comments")

	for _, text := range []string{"one", "two", "three"} {
		_, err := comments.Append(ctx, CommentInput{IssueID: issue.ID, Text: text})
		require.NoError(t, err)
	}

	list, err := comments.List(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "three", list[0].Comment)
	assert.Equal(t, "one", list[2].Comment)
}

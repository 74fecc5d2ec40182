// Package tracker implements the validated issue lifecycle and the per-issue
// comment log on top of a store.Store.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/store"
)

const (
	MinDescriptionLen = 10
	MaxDescriptionLen = 10000
	MaxTitleLen       = 255
)

// CreateIssueInput holds the fields accepted by IssueStore.Create. Empty
// optional fields are not written.
type CreateIssueInput struct {
	Description string
	Title       string
	Workflow    string
	AssignedTo  string
}

// IssueStore validates and applies every issue mutation. It keeps no cache:
// each read goes to the store.
type IssueStore struct {
	store  store.Store
	logger *zap.Logger
}

// NewIssueStore returns an IssueStore backed by s. A nil logger disables logging.
func NewIssueStore(s store.Store, logger *zap.Logger) *IssueStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IssueStore{store: s, logger: logger}
}

// ValidateDescription trims d and checks its length.
func ValidateDescription(d string) (string, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return "", invalid("description", "Issue description cannot be empty")
	}
	n := utf8.RuneCountInString(d)
	if n < MinDescriptionLen {
		return "", invalid("description", "Issue description must be at least %d characters", MinDescriptionLen)
	}
	if n > MaxDescriptionLen {
		return "", invalid("description", "Issue description cannot exceed %d characters", MaxDescriptionLen)
	}
	return d, nil
}

// ValidateTitle trims t and checks its length. An empty title is allowed.
func ValidateTitle(t string) (string, error) {
	t = strings.TrimSpace(t)
	if utf8.RuneCountInString(t) > MaxTitleLen {
		return "", invalid("title", "Issue title cannot exceed %d characters", MaxTitleLen)
	}
	return t, nil
}

// ValidateWorkflow parses w, accepting "", "none", "main" and "patch".
func ValidateWorkflow(w string) (models.Workflow, error) {
	wf, ok := models.ParseWorkflow(w)
	if !ok {
		return "", invalid("workflow", "Invalid workflow '%s'. Must be one of: none, main, patch", w)
	}
	return wf, nil
}

// ValidateWorker checks id against the worker registry. An empty id means unassigned.
func ValidateWorker(id string) error {
	if id == "" || models.ValidWorker(id) {
		return nil
	}
	return invalid("assigned_to", "Invalid worker ID '%s'. Must be one of: %s", id, models.WorkerList())
}

// ValidateStatus checks status against the known issue statuses.
func ValidateStatus(status models.IssueStatus) error {
	if status.Valid() {
		return nil
	}
	names := make([]string, len(models.IssueStatuses))
	for i, st := range models.IssueStatuses {
		names[i] = string(st)
	}
	return invalid("status", "Invalid status '%s'. Must be one of: %s", status, strings.Join(names, ", "))
}

// Validate checks every field of in without touching the store.
func (in CreateIssueInput) Validate() error {
	_, err := in.issue()
	return err
}

func (in CreateIssueInput) issue() (*models.Issue, error) {
	desc, err := ValidateDescription(in.Description)
	if err != nil {
		return nil, err
	}
	title, err := ValidateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	wf, err := ValidateWorkflow(in.Workflow)
	if err != nil {
		return nil, err
	}
	if err := ValidateWorker(in.AssignedTo); err != nil {
		return nil, err
	}
	return &models.Issue{
		Title:       title,
		Description: desc,
		Status:      models.IssueStatusPending,
		Workflow:    wf,
		AssignedTo:  in.AssignedTo,
	}, nil
}

// Create validates in and persists a new pending issue.
func (s *IssueStore) Create(ctx context.Context, in CreateIssueInput) (*models.Issue, error) {
	issue, err := in.issue()
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateIssue(ctx, issue); err != nil {
		s.logger.Error("create issue failed", zap.Error(err))
		return nil, &PersistenceError{Op: "create issue", Err: err}
	}
	s.logger.Info("issue created", zap.Int64("issue_id", issue.ID))
	return issue, nil
}

// Fetch returns the issue with the given id.
func (s *IssueStore) Fetch(ctx context.Context, id int64) (*models.Issue, error) {
	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return nil, storeErr(id, fmt.Sprintf("fetch issue %d", id), err)
	}
	return issue, nil
}

// FetchAll returns every issue, newest first. It never returns a nil slice on success.
func (s *IssueStore) FetchAll(ctx context.Context) ([]*models.Issue, error) {
	issues, err := s.store.ListIssues(ctx)
	if err != nil {
		s.logger.Error("fetch issues failed", zap.Error(err))
		return nil, &PersistenceError{Op: "fetch issues", Err: err}
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	return issues, nil
}

// UpdateStatus sets the status of an issue.
func (s *IssueStore) UpdateStatus(ctx context.Context, id int64, status models.IssueStatus) (*models.Issue, error) {
	if err := ValidateStatus(status); err != nil {
		return nil, err
	}
	return s.update(ctx, id, "status", store.IssuePatch{Status: &status})
}

// UpdateDescription replaces the description of an issue.
func (s *IssueStore) UpdateDescription(ctx context.Context, id int64, description string) (*models.Issue, error) {
	desc, err := ValidateDescription(description)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, "description", store.IssuePatch{Description: &desc})
}

// UpdateAssignment assigns workerID to a pending issue. An empty workerID unassigns.
func (s *IssueStore) UpdateAssignment(ctx context.Context, id int64, workerID string) (*models.Issue, error) {
	// Check-then-act: a concurrent status change between the fetch and the
	// write is not detected.
	if err := s.CheckAssignment(ctx, id, workerID); err != nil {
		return nil, err
	}
	return s.update(ctx, id, "assignment", store.IssuePatch{AssignedTo: &workerID})
}

// CheckAssignment runs the checks of UpdateAssignment without writing.
func (s *IssueStore) CheckAssignment(ctx context.Context, id int64, workerID string) error {
	if err := ValidateWorker(workerID); err != nil {
		return err
	}
	current, err := s.Fetch(ctx, id)
	if err != nil {
		return err
	}
	if !current.IsPending() {
		return invalid("assigned_to",
			"Cannot assign worker to issue %d with status '%s'. Only pending issues can be assigned.",
			id, current.Status)
	}
	return nil
}

// UpdateWorkflow sets the workflow of a pending issue.
func (s *IssueStore) UpdateWorkflow(ctx context.Context, id int64, workflow string) (*models.Issue, error) {
	wf, err := s.CheckWorkflow(ctx, id, workflow)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, id, "workflow", store.IssuePatch{Workflow: &wf})
}

// CheckWorkflow runs the checks of UpdateWorkflow without writing and
// returns the parsed workflow.
func (s *IssueStore) CheckWorkflow(ctx context.Context, id int64, workflow string) (models.Workflow, error) {
	wf, err := ValidateWorkflow(workflow)
	if err != nil {
		return "", err
	}
	current, err := s.Fetch(ctx, id)
	if err != nil {
		return "", err
	}
	if !current.IsPending() {
		return "", invalid("workflow",
			"Cannot change workflow for issue %d with status '%s'. Only pending issues can have their workflow changed.",
			id, current.Status)
	}
	return wf, nil
}

// Delete removes an issue. Its comments are removed by the store.
func (s *IssueStore) Delete(ctx context.Context, id int64) (bool, error) {
	if err := s.store.DeleteIssue(ctx, id); err != nil {
		s.logger.Error("delete issue failed", zap.Int64("issue_id", id), zap.Error(err))
		return false, storeErr(id, fmt.Sprintf("delete issue %d", id), err)
	}
	s.logger.Info("issue deleted", zap.Int64("issue_id", id))
	return true, nil
}

func (s *IssueStore) update(ctx context.Context, id int64, what string, patch store.IssuePatch) (*models.Issue, error) {
	issue, err := s.store.UpdateIssue(ctx, id, patch)
	if err != nil {
		s.logger.Error("update issue failed",
			zap.Int64("issue_id", id), zap.String("field", what), zap.Error(err))
		return nil, storeErr(id, fmt.Sprintf("update issue %d %s", id, what), err)
	}
	s.logger.Debug("issue updated", zap.Int64("issue_id", id), zap.String("field", what))
	return issue, nil
}

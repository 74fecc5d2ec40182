package store

import (
	"context"
	"errors"

	"github.com/joescharf/bleue/internal/models"
)

// ErrNotFound is returned (wrapped) when no row matches.
var ErrNotFound = errors.New("not found")

// IssuePatch lists the columns an update writes. Nil fields are left untouched.
// An empty Workflow or AssignedTo clears the column.
type IssuePatch struct {
	Status      *models.IssueStatus
	Description *string
	Workflow    *models.Workflow
	AssignedTo  *string
}

// Empty reports whether the patch writes nothing.
func (p IssuePatch) Empty() bool {
	return p.Status == nil && p.Description == nil && p.Workflow == nil && p.AssignedTo == nil
}

// Store defines the persistence interface for the issues and comments tables.
type Store interface {
	// Issues
	CreateIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, id int64) (*models.Issue, error)
	ListIssues(ctx context.Context) ([]*models.Issue, error)
	UpdateIssue(ctx context.Context, id int64, patch IssuePatch) (*models.Issue, error)
	DeleteIssue(ctx context.Context, id int64) error

	// Comments
	CreateComment(ctx context.Context, c *models.Comment) error
	ListComments(ctx context.Context, issueID int64) ([]*models.Comment, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

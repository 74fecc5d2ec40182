package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/tracker"
)

// CommentAppender is the part of tracker.CommentLog the workflow writes to.
type CommentAppender interface {
	Append(ctx context.Context, in tracker.CommentInput) (*models.Comment, error)
}

// StatusUpdater is the part of tracker.IssueStore the workflow writes to.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id int64, status models.IssueStatus) (*models.Issue, error)
}

// EmitProgressComment posts a system comment on the issue. Raw defaults to
// {"text": message} and commentType to "workflow". Failures are logged at
// error level and reported through the return value only.
func EmitProgressComment(ctx context.Context, comments CommentAppender, issueID int64, message string, raw map[string]any, commentType string, logger *zap.Logger) bool {
	if raw == nil {
		raw = map[string]any{"text": message}
	}
	if commentType == "" {
		commentType = models.CommentTypeWorkflow
	}

	c, err := comments.Append(ctx, tracker.CommentInput{
		IssueID: issueID,
		Text:    message,
		Raw:     raw,
		Source:  models.CommentSourceSystem,
		Type:    commentType,
	})
	if err != nil {
		logger.Error("progress comment failed", zap.Int64("issue_id", issueID), zap.Error(err))
		return false
	}
	logger.Debug("progress comment posted", zap.Int64("issue_id", issueID), zap.Int64("comment_id", c.ID))
	return true
}

// UpdateStatusBestEffort sets the issue status, logging and swallowing any failure.
func UpdateStatusBestEffort(ctx context.Context, issues StatusUpdater, issueID int64, status models.IssueStatus, logger *zap.Logger) bool {
	if _, err := issues.UpdateStatus(ctx, issueID, status); err != nil {
		logger.Error("status update failed",
			zap.Int64("issue_id", issueID), zap.String("status", string(status)), zap.Error(err))
		return false
	}
	logger.Debug("status updated", zap.Int64("issue_id", issueID), zap.String("status", string(status)))
	return true
}

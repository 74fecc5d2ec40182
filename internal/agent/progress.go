package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/tracker"
)

// CommentAppender is the part of tracker.CommentLog the progress handler needs.
type CommentAppender interface {
	Append(ctx context.Context, in tracker.CommentInput) (*models.Comment, error)
}

// ProgressCommentHandler returns a StreamHandler that posts each assistant
// text message as an agent comment on the issue. Failures are logged and
// dropped so a flaky backend never interrupts the agent.
func ProgressCommentHandler(ctx context.Context, comments CommentAppender, issueID int64, runID string, logger *zap.Logger) StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ev Event) {
		if ev.Type != "assistant" {
			return
		}
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return
		}
		raw := make(map[string]any, len(ev.Raw)+2)
		for k, v := range ev.Raw {
			raw[k] = v
		}
		if _, ok := raw["text"]; !ok {
			raw["text"] = text
		}
		raw["run_id"] = runID

		if _, err := comments.Append(ctx, tracker.CommentInput{
			IssueID: issueID,
			Text:    text,
			Raw:     raw,
			Source:  models.CommentSourceAgent,
			Type:    models.CommentTypeWorkflow,
		}); err != nil {
			logger.Error("agent progress comment failed",
				zap.Int64("issue_id", issueID), zap.String("run_id", runID), zap.Error(err))
			return
		}
		logger.Debug("agent progress comment posted", zap.Int64("issue_id", issueID))
	}
}

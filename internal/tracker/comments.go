package tracker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/store"
)

// CommentInput holds the fields accepted by CommentLog.Append.
type CommentInput struct {
	IssueID int64
	Text    string
	Raw     map[string]any
	Source  string
	Type    string
}

// CommentLog appends and lists the event records of an issue.
type CommentLog struct {
	store  store.Store
	logger *zap.Logger
}

// NewCommentLog returns a CommentLog backed by s. A nil logger disables logging.
func NewCommentLog(s store.Store, logger *zap.Logger) *CommentLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentLog{store: s, logger: logger}
}

// ValidateCommentText trims text and rejects it when empty.
func ValidateCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", invalid("comment", "Comment text cannot be empty")
	}
	return text, nil
}

// Append trims the text and stores a new comment. Raw defaults to an empty object.
func (l *CommentLog) Append(ctx context.Context, in CommentInput) (*models.Comment, error) {
	text, err := ValidateCommentText(in.Text)
	if err != nil {
		return nil, err
	}
	raw := in.Raw
	if raw == nil {
		raw = map[string]any{}
	}

	c := &models.Comment{
		IssueID: in.IssueID,
		Comment: text,
		Raw:     raw,
		Source:  in.Source,
		Type:    in.Type,
	}
	if err := l.store.CreateComment(ctx, c); err != nil {
		l.logger.Error("create comment failed", zap.Int64("issue_id", in.IssueID), zap.Error(err))
		return nil, &PersistenceError{Op: fmt.Sprintf("create comment on issue %d", in.IssueID), Err: err}
	}
	return c, nil
}

// List returns the comments of an issue, newest first.
func (l *CommentLog) List(ctx context.Context, issueID int64) ([]*models.Comment, error) {
	comments, err := l.store.ListComments(ctx, issueID)
	if err != nil {
		l.logger.Error("fetch comments failed", zap.Int64("issue_id", issueID), zap.Error(err))
		return nil, &PersistenceError{Op: fmt.Sprintf("fetch comments for issue %d", issueID), Err: err}
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

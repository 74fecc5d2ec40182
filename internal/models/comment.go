package models

import "time"

// Comment sources.
const (
	CommentSourceSystem = "system"
	CommentSourceAgent  = "agent"
	CommentSourceUser   = "user"
)

// CommentTypeWorkflow marks comments emitted by workflow steps.
const CommentTypeWorkflow = "workflow"

// Comment is an append-only event record attached to an issue.
type Comment struct {
	ID        int64          `json:"id,omitempty"`
	IssueID   int64          `json:"issue_id"`
	Comment   string         `json:"comment"`
	Raw       map[string]any `json:"raw"`
	Source    string         `json:"source,omitempty"`
	Type      string         `json:"type,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

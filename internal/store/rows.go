package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/bleue/internal/models"
)

// issueRow is the wire shape of an issues row. Pointers distinguish absent
// columns from empty ones so decoding can fail loudly on missing fields.
type issueRow struct {
	ID          *int64  `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Type        *string `json:"type"`
	AssignedTo  *string `json:"assigned_to"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

func (r issueRow) toModel() (*models.Issue, error) {
	if r.ID == nil {
		return nil, fmt.Errorf("decode issue row: missing id")
	}
	if r.Description == nil {
		return nil, fmt.Errorf("decode issue %d: missing description", *r.ID)
	}

	issue := &models.Issue{
		ID:          *r.ID,
		Description: strings.TrimSpace(*r.Description),
		Status:      models.IssueStatusPending,
	}
	if r.Title != nil {
		issue.Title = *r.Title
	}
	if r.Status != nil && *r.Status != "" {
		issue.Status = models.IssueStatus(*r.Status)
		if !issue.Status.Valid() {
			return nil, fmt.Errorf("decode issue %d: unknown status %q", *r.ID, *r.Status)
		}
	}
	if r.Type != nil {
		wf, ok := models.ParseWorkflow(*r.Type)
		if !ok {
			return nil, fmt.Errorf("decode issue %d: unknown workflow %q", *r.ID, *r.Type)
		}
		issue.Workflow = wf
	}
	if r.AssignedTo != nil {
		issue.AssignedTo = *r.AssignedTo
	}

	var err error
	if issue.CreatedAt, err = parseTimestamp(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("decode issue %d created_at: %w", *r.ID, err)
	}
	if issue.UpdatedAt, err = parseTimestamp(r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("decode issue %d updated_at: %w", *r.ID, err)
	}
	return issue, nil
}

// commentRow is the wire shape of a comments row.
type commentRow struct {
	ID        *int64          `json:"id"`
	IssueID   *int64          `json:"issue_id"`
	Comment   *string         `json:"comment"`
	Raw       json.RawMessage `json:"raw"`
	Source    *string         `json:"source"`
	Type      *string         `json:"type"`
	CreatedAt *string         `json:"created_at"`
}

func (r commentRow) toModel() (*models.Comment, error) {
	if r.IssueID == nil {
		return nil, fmt.Errorf("decode comment row: missing issue_id")
	}
	if r.Comment == nil {
		return nil, fmt.Errorf("decode comment on issue %d: missing comment", *r.IssueID)
	}

	c := &models.Comment{
		IssueID: *r.IssueID,
		Comment: strings.TrimSpace(*r.Comment),
		Raw:     map[string]any{},
	}
	if r.ID != nil {
		c.ID = *r.ID
	}
	if len(r.Raw) > 0 && string(r.Raw) != "null" {
		if err := json.Unmarshal(r.Raw, &c.Raw); err != nil {
			return nil, fmt.Errorf("decode comment raw payload: %w", err)
		}
	}
	if r.Source != nil {
		c.Source = *r.Source
	}
	if r.Type != nil {
		c.Type = *r.Type
	}

	var err error
	if c.CreatedAt, err = parseTimestamp(r.CreatedAt); err != nil {
		return nil, fmt.Errorf("decode comment created_at: %w", err)
	}
	return c, nil
}

// timestampLayouts covers the formats Postgres emits through PostgREST.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp returns the zero time for a missing value.
func parseTimestamp(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", *s)
}

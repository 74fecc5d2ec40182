package models

import "time"

// IssueStatus represents the lifecycle state of an issue.
type IssueStatus string

const (
	IssueStatusPending   IssueStatus = "pending"
	IssueStatusStarted   IssueStatus = "started"
	IssueStatusCompleted IssueStatus = "completed"
)

// IssueStatuses lists every valid status in lifecycle order.
var IssueStatuses = []IssueStatus{IssueStatusPending, IssueStatusStarted, IssueStatusCompleted}

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	for _, v := range IssueStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Workflow classifies which automation path applies to an issue.
// The zero value means no workflow.
type Workflow string

const (
	WorkflowNone  Workflow = ""
	WorkflowMain  Workflow = "main"
	WorkflowPatch Workflow = "patch"
)

// ParseWorkflow accepts "", "none", "main" or "patch".
func ParseWorkflow(s string) (Workflow, bool) {
	switch s {
	case "", "none":
		return WorkflowNone, true
	case string(WorkflowMain):
		return WorkflowMain, true
	case string(WorkflowPatch):
		return WorkflowPatch, true
	}
	return WorkflowNone, false
}

// Display returns the title-cased workflow name, "None" when unset.
func (w Workflow) Display() string {
	switch w {
	case WorkflowMain:
		return "Main"
	case WorkflowPatch:
		return "Patch"
	}
	return "None"
}

// WorkflowOption pairs a display label with a workflow value.
type WorkflowOption struct {
	Label    string
	Workflow Workflow
}

// WorkflowOptions is the ordered list offered by selection UIs.
var WorkflowOptions = []WorkflowOption{
	{Label: "None", Workflow: WorkflowNone},
	{Label: "Main", Workflow: WorkflowMain},
	{Label: "Patch", Workflow: WorkflowPatch},
}

// Issue is a trackable unit of work.
type Issue struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description"`
	Status      IssueStatus `json:"status"`
	Workflow    Workflow    `json:"type,omitempty"`
	AssignedTo  string      `json:"assigned_to,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// IsPending reports whether workflow and assignment may still change.
func (i *Issue) IsPending() bool {
	return i.Status == IssueStatusPending
}

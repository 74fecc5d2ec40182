package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/tracker"
)

// Server exposes the issue tracker as MCP tools so agents can read issues and
// report progress.
type Server struct {
	issues   *tracker.IssueStore
	comments *tracker.CommentLog
	version  string
	logger   *zap.Logger
}

// NewServer creates the MCP server wrapper.
func NewServer(issues *tracker.IssueStore, comments *tracker.CommentLog, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	return &Server{issues: issues, comments: comments, version: version, logger: logger}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("bleue", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.updateIssueStatusTool())
	srv.AddTool(s.assignIssueTool())
	srv.AddTool(s.setWorkflowTool())
	srv.AddTool(s.addCommentTool())
	srv.AddTool(s.listCommentsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// issueIDArg reads a required integer id. JSON numbers arrive as float64.
func issueIDArg(request mcp.CallToolRequest) (int64, error) {
	v, ok := request.GetArguments()["issue_id"]
	if !ok || v == nil {
		return 0, fmt.Errorf("missing required parameter: issue_id")
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("issue_id must be an integer")
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("issue_id must be an integer")
		}
		return id, nil
	}
	return 0, fmt.Errorf("issue_id must be an integer")
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

type issueOut struct {
	ID          int64  `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Workflow    string `json:"workflow"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	Worker      string `json:"worker,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toIssueOut(i *models.Issue) issueOut {
	return issueOut{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Status:      string(i.Status),
		Workflow:    i.Workflow.Display(),
		AssignedTo:  i.AssignedTo,
		Worker:      models.WorkerDisplayName(i.AssignedTo),
		CreatedAt:   i.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   i.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// bleue_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bleue_list_issues",
		mcp.WithDescription("List issues, newest first. Returns a JSON array with id, title, description, status, workflow and assigned worker."),
		mcp.WithString("status", mcp.Description("Filter by status: pending, started, completed")),
		mcp.WithString("assigned_to", mcp.Description("Filter by worker id, e.g. alleycat-1")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := request.GetString("status", "")
	worker := request.GetString("assigned_to", "")
	if status != "" && !models.IssueStatus(status).Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid status: %s", status)), nil
	}

	issues, err := s.issues.FetchAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	out := make([]issueOut, 0, len(issues))
	for _, i := range issues {
		if status != "" && string(i.Status) != status {
			continue
		}
		if worker != "" && i.AssignedTo != worker {
			continue
		}
		out = append(out, toIssueOut(i))
	}
	return jsonResult(out)
}

// bleue_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bleue_get_issue",
		mcp.WithDescription("Get one issue with its comments (newest first)."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := issueIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	issue, err := s.issues.Fetch(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comments, err := s.comments.List(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list comments: %v", err)), nil
	}

	return jsonResult(struct {
		issueOut
		Comments []commentOut `json:"comments"`
	}{toIssueOut(issue), toCommentsOut(comments)})
}

// bleue_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bleue_create_issue",
		mcp.WithDescription("Create a pending issue."),
		mcp.WithString("description", mcp.Required(), mcp.Description("Issue description, 10 to 10000 characters")),
		mcp.WithString("title", mcp.Description("Optional title, at most 255 characters")),
		mcp.WithString("workflow", mcp.Description("Workflow: none, main or patch")),
		mcp.WithString("assigned_to", mcp.Description("Worker id, e.g. alleycat-1")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	desc, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: description"), nil
	}

	issue, err := s.issues.Create(ctx, tracker.CreateIssueInput{
		Description: desc,
		Title:       request.GetString("title", ""),
		Workflow:    request.GetString("workflow", ""),
		AssignedTo:  request.GetString("assigned_to", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Info("issue created via mcp", zap.Int64("issue_id", issue.ID))
	return jsonResult(toIssueOut(issue))
}

// bleue_update_issue_status
func (s *Server) updateIssueStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bleue_update_issue_status",
		mcp.WithDescription("Set the status of an issue."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("status", mcp.Required(), mcp.Enum("pending", "started", "completed"), mcp.Description("New status")),
	)
	return tool, s.handleUpdateIssueStatus
}

func (s *Server) handleUpdateIssueStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := issueIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	issue, err := s.issues.UpdateStatus(ctx, id, models.IssueStatus(status))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(toIssueOut(issue))
}

// bleue_assign_issue
func (s *Server) assignIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bleue_assign_issue",
		mcp.WithDescription("Assign a worker to a pending issue. Omit assigned_to to unassign."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("assigned_to", mcp.Description("Worker id, e.g. alleycat-1")),
	)
	return tool, s.handleAssignIssue
}

func (s *Server) handleAssignIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := issueIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issue, err := s.issues.UpdateAssignment(ctx, id, request.GetString("assigned_to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(toIssueOut(issue))
}

// bleue_set_workflow
func (s *Server) setWorkflowTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bleue_set_workflow",
		mcp.WithDescription("Set the workflow of a pending issue."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("workflow", mcp.Required(), mcp.Enum("none", "main", "patch"), mcp.Description("Workflow")),
	)
	return tool, s.handleSetWorkflow
}

func (s *Server) handleSetWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := issueIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	wf, err := request.RequireString("workflow")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: workflow"), nil
	}
	issue, err := s.issues.UpdateWorkflow(ctx, id, wf)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(toIssueOut(issue))
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

type commentOut struct {
	ID        int64          `json:"id"`
	Comment   string         `json:"comment"`
	Source    string         `json:"source,omitempty"`
	Type      string         `json:"type,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func toCommentsOut(comments []*models.Comment) []commentOut {
	out := make([]commentOut, len(comments))
	for i, c := range comments {
		out[i] = commentOut{
			ID:        c.ID,
			Comment:   c.Comment,
			Source:    c.Source,
			Type:      c.Type,
			Raw:       c.Raw,
			CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return out
}

// bleue_add_comment
func (s *Server) addCommentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bleue_add_comment",
		mcp.WithDescription("Append a progress comment to an issue."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
		mcp.WithString("comment", mcp.Required(), mcp.Description("Comment text")),
		mcp.WithString("source", mcp.Description("Comment source: agent (default), system or user")),
		mcp.WithString("type", mcp.Description("Comment type, e.g. workflow")),
	)
	return tool, s.handleAddComment
}

func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := issueIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := request.RequireString("comment")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: comment"), nil
	}
	if _, err := s.issues.Fetch(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	c, err := s.comments.Append(ctx, tracker.CommentInput{
		IssueID: id,
		Text:    text,
		Raw:     map[string]any{"text": strings.TrimSpace(text)},
		Source:  request.GetString("source", models.CommentSourceAgent),
		Type:    request.GetString("type", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(toCommentsOut([]*models.Comment{c})[0])
}

// bleue_list_comments
func (s *Server) listCommentsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bleue_list_comments",
		mcp.WithDescription("List the comments of an issue, newest first."),
		mcp.WithNumber("issue_id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleListComments
}

func (s *Server) handleListComments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := issueIDArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comments, err := s.comments.List(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list comments: %v", err)), nil
	}
	return jsonResult(toCommentsOut(comments))
}

package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/agent"
	"github.com/joescharf/bleue/internal/git"
	"github.com/joescharf/bleue/internal/models"
)

const (
	PullRequestCommand = "/adw-pull-request"
	PullRequestModel   = "sonnet"

	MsgPullRequestPrepared = "Pull request prepared."
	MsgSolutionImplemented = "Solution implemented successfully"
)

// PreparePullRequestStep asks the implementor agent to open a pull request,
// then finalizes the issue: status completed plus a completion comment. The
// finalize sequence runs whatever the agent outcome.
type PreparePullRequestStep struct {
	Agent    agent.Executor
	Issues   StatusUpdater
	Comments CommentAppender

	// Optional PR lookup for the comment payload; nil skips it.
	GitHub  git.GitHubClient
	Git     git.Client
	WorkDir string
}

func (s *PreparePullRequestStep) Name() string { return "Preparing pull request" }

// Critical is false: the workflow continues when PR preparation fails.
func (s *PreparePullRequestStep) Critical() bool { return false }

// Run reports success only when the agent prepared the PR. Finalize failures
// never change the result.
func (s *PreparePullRequestStep) Run(ctx context.Context, wc *Context) Result {
	res := s.prepare(ctx, wc)
	s.Finalize(context.WithoutCancel(ctx), wc)
	return res
}

func (s *PreparePullRequestStep) prepare(ctx context.Context, wc *Context) (res Result) {
	logger := wc.Logger
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("pull request preparation failed", zap.Any("panic", p))
			res = Result{Success: false, Message: fmt.Sprintf("panic: %v", p)}
		}
	}()

	req := agent.TemplateRequest{
		AgentName:    agent.AgentImplementor,
		SlashCommand: PullRequestCommand,
		Args:         []string{},
		RunID:        wc.RunID,
		IssueID:      wc.IssueID,
		Model:        PullRequestModel,
	}
	logger.Debug("pull_request request",
		zap.String("agent", req.AgentName), zap.String("command", req.SlashCommand), zap.String("model", req.Model))

	handler := agent.ProgressCommentHandler(ctx, s.Comments, wc.IssueID, wc.RunID, logger)
	resp, err := s.Agent.ExecuteTemplate(ctx, req, handler)
	if err != nil {
		logger.Warn("pull request preparation failed", zap.Error(err))
		return Result{Success: false, Message: err.Error()}
	}
	logger.Debug("pull_request response", zap.Bool("success", resp.Success))

	if !resp.Success {
		logger.Warn("pull request preparation failed", zap.String("output", resp.Output))
		return Result{Success: false, Message: resp.Output}
	}

	logger.Info("pull request prepared successfully")
	EmitProgressComment(ctx, s.Comments, wc.IssueID, MsgPullRequestPrepared, s.prPayload(ctx, logger), "", logger)
	return Result{Success: true, Message: MsgPullRequestPrepared}
}

// prPayload builds the raw payload of the "prepared" comment, adding the
// branch, commit, repository and PR when they can be looked up.
func (s *PreparePullRequestStep) prPayload(ctx context.Context, logger *zap.Logger) map[string]any {
	raw := map[string]any{"text": MsgPullRequestPrepared}
	if s.Git != nil {
		if branch, err := s.Git.CurrentBranch(ctx, s.WorkDir); err == nil {
			raw["branch"] = branch
		}
		if commit, err := s.Git.LastCommitHash(ctx, s.WorkDir); err == nil {
			raw["commit"] = commit
		}
		if remote, _ := s.Git.RemoteURL(ctx, s.WorkDir); remote != "" {
			if owner, repo, err := git.ExtractOwnerRepo(remote); err == nil {
				raw["repo"] = owner + "/" + repo
			}
		}
	}
	if s.GitHub != nil {
		pr, err := s.GitHub.CurrentPR(ctx, s.WorkDir)
		if err != nil {
			logger.Debug("pull request lookup failed", zap.Error(err))
		} else {
			raw["pr_url"] = pr.URL
			raw["pr_number"] = pr.Number
		}
	}
	return raw
}

// Finalize marks the issue completed and posts the completion comment. Each
// action is best effort.
func (s *PreparePullRequestStep) Finalize(ctx context.Context, wc *Context) {
	safely(wc.Logger, "status update", func() {
		UpdateStatusBestEffort(ctx, s.Issues, wc.IssueID, models.IssueStatusCompleted, wc.Logger)
	})
	safely(wc.Logger, "completion comment", func() {
		EmitProgressComment(ctx, s.Comments, wc.IssueID, MsgSolutionImplemented,
			map[string]any{"text": MsgSolutionImplemented + "."}, "", wc.Logger)
	})
}

// safely runs fn, logging instead of propagating a panic.
func safely(logger *zap.Logger, what string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("finalize action failed", zap.String("action", what), zap.Any("panic", p))
		}
	}()
	fn()
}

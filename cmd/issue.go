package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/output"
	"github.com/joescharf/bleue/internal/tracker"
)

var (
	issueTitle    string
	issueDesc     string
	issueWorkflow string
	issueAssign   string
	issueStatus   string
	issueWorker   string
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long:  "Create, list and update issues. Workflow and assignment can only change while an issue is pending.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(cmdContext())
	},
}

var issueCreateCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"add", "new"},
	Short:   "Create a pending issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueCreateRun(cmdContext())
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun(cmdContext())
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(cmdContext(), args[0])
	},
}

var issueStatusCmd = &cobra.Command{
	Use:   "status <issue-id> <pending|started|completed>",
	Short: "Set an issue's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueStatusRun(cmdContext(), args[0], args[1])
	},
}

var issueDescribeCmd = &cobra.Command{
	Use:   "describe <issue-id>",
	Short: "Replace an issue's description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDescribeRun(cmdContext(), args[0])
	},
}

var issueAssignCmd = &cobra.Command{
	Use:   "assign <issue-id> [worker-id]",
	Short: "Assign a pending issue to a worker (omit worker to unassign)",
	Long: `Assign a pending issue to a worker. Omitting the worker id unassigns it.

Run 'bleue workers' for the list of valid worker ids.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		worker := ""
		if len(args) > 1 {
			worker = args[1]
		}
		return issueAssignRun(cmdContext(), args[0], worker)
	},
}

var issueWorkflowCmd = &cobra.Command{
	Use:   "workflow <issue-id> <none|main|patch>",
	Short: "Set the workflow of a pending issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueWorkflowRun(cmdContext(), args[0], args[1])
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:     "delete <issue-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue and its comments",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(cmdContext(), args[0])
	},
}

func init() {
	issueCreateCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description, 10 to 10000 characters (required)")
	issueCreateCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title")
	issueCreateCmd.Flags().StringVar(&issueWorkflow, "workflow", "", "Workflow: none, main, patch")
	issueCreateCmd.Flags().StringVar(&issueAssign, "assign", "", "Worker id to assign")
	_ = issueCreateCmd.MarkFlagRequired("desc")

	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status: pending, started, completed")
	issueListCmd.Flags().StringVar(&issueWorker, "worker", "", "Filter by assigned worker id")

	issueDescribeCmd.Flags().StringVar(&issueDesc, "desc", "", "New description (required)")
	_ = issueDescribeCmd.MarkFlagRequired("desc")

	issueCmd.AddCommand(issueCreateCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueStatusCmd)
	issueCmd.AddCommand(issueDescribeCmd)
	issueCmd.AddCommand(issueAssignCmd)
	issueCmd.AddCommand(issueWorkflowCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	rootCmd.AddCommand(issueCmd)
}

// parseIssueID parses a positive integer issue id, accepting a leading '#'.
func parseIssueID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id %q", s)
	}
	return id, nil
}

func issueCreateRun(ctx context.Context) error {
	issues, _, err := getTracker(false)
	if err != nil {
		return err
	}

	in := tracker.CreateIssueInput{
		Description: issueDesc,
		Title:       issueTitle,
		Workflow:    issueWorkflow,
		AssignedTo:  issueAssign,
	}
	if dryRun {
		if err := in.Validate(); err != nil {
			return err
		}
		ui.DryRunMsg("Would create issue: %s", output.Truncate(issueDesc, 60))
		return nil
	}

	issue, err := issues.Create(ctx, in)
	if err != nil {
		return err
	}

	ui.Success("Created issue %s: %s", output.IssueRef(issue.ID), issueLabel(issue))
	return nil
}

func issueListRun(ctx context.Context) error {
	if issueStatus != "" && !models.IssueStatus(issueStatus).Valid() {
		return fmt.Errorf("invalid status %q: must be pending, started or completed", issueStatus)
	}
	if issueWorker != "" && !models.ValidWorker(issueWorker) {
		return fmt.Errorf("invalid worker id %q (run 'bleue workers' for the list)", issueWorker)
	}

	issues, _, err := getTracker(false)
	if err != nil {
		return err
	}

	all, err := issues.FetchAll(ctx)
	if err != nil {
		return err
	}

	var shown []*models.Issue
	for _, i := range all {
		if issueStatus != "" && string(i.Status) != issueStatus {
			continue
		}
		if issueWorker != "" && i.AssignedTo != issueWorker {
			continue
		}
		shown = append(shown, i)
	}

	if len(shown) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Workflow", "Worker", "Status", "Created"})
	for _, i := range shown {
		_ = table.Append([]string{
			strconv.FormatInt(i.ID, 10),
			output.Truncate(issueLabel(i), 50),
			output.WorkflowColor(i.Workflow),
			output.WorkerName(i.AssignedTo, "-"),
			output.StatusColor(i.Status),
			output.Timestamp(i.CreatedAt),
		})
	}
	_ = table.Render()
	return nil
}

func issueShowRun(ctx context.Context, ref string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	issues, comments, err := getTracker(false)
	if err != nil {
		return err
	}

	issue, err := issues.Fetch(ctx, id)
	if err != nil {
		return err
	}
	list, err := comments.List(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.IssueRef(issue.ID), issueLabel(issue))
	ui.Field("Status", output.StatusColor(issue.Status))
	ui.Field("Workflow", output.WorkflowColor(issue.Workflow))
	worker := output.WorkerName(issue.AssignedTo, "Unassigned")
	if issue.AssignedTo != "" {
		worker += " (" + issue.AssignedTo + ")"
	}
	ui.Field("Worker", worker)
	ui.Field("Created", output.Timestamp(issue.CreatedAt))
	ui.Field("Updated", output.Timestamp(issue.UpdatedAt))
	fmt.Fprintf(ui.Out, "\n%s\n", issue.Description)

	fmt.Fprintf(ui.Out, "\nComments (%d)\n", len(list))
	for _, c := range list {
		meta := output.Timestamp(c.CreatedAt)
		if c.Source != "" {
			meta += "  " + c.Source
		}
		if c.Type != "" {
			meta += "/" + c.Type
		}
		fmt.Fprintf(ui.Out, "  %s\n    %s\n", output.Faint(meta), c.Comment)
	}
	return nil
}

func issueStatusRun(ctx context.Context, ref, status string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	issues, _, err := getTracker(false)
	if err != nil {
		return err
	}

	if dryRun {
		if err := tracker.ValidateStatus(models.IssueStatus(status)); err != nil {
			return err
		}
		if _, err := issues.Fetch(ctx, id); err != nil {
			return err
		}
		ui.DryRunMsg("Would set issue #%d status to %s", id, status)
		return nil
	}

	issue, err := issues.UpdateStatus(ctx, id, models.IssueStatus(status))
	if err != nil {
		return err
	}
	ui.Success("Issue #%d is now %s", issue.ID, output.StatusColor(issue.Status))
	return nil
}

func issueDescribeRun(ctx context.Context, ref string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	issues, _, err := getTracker(false)
	if err != nil {
		return err
	}

	if dryRun {
		if _, err := tracker.ValidateDescription(issueDesc); err != nil {
			return err
		}
		if _, err := issues.Fetch(ctx, id); err != nil {
			return err
		}
		ui.DryRunMsg("Would update description of issue #%d", id)
		return nil
	}

	if _, err := issues.UpdateDescription(ctx, id, issueDesc); err != nil {
		return err
	}
	ui.Success("Updated description of issue #%d", id)
	return nil
}

func issueAssignRun(ctx context.Context, ref, worker string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	issues, _, err := getTracker(false)
	if err != nil {
		return err
	}

	if dryRun {
		if err := issues.CheckAssignment(ctx, id, worker); err != nil {
			return err
		}
		ui.DryRunMsg("Would assign issue #%d to %q", id, worker)
		return nil
	}

	issue, err := issues.UpdateAssignment(ctx, id, worker)
	if err != nil {
		return err
	}
	if issue.AssignedTo == "" {
		ui.Success("Issue #%d unassigned", issue.ID)
		return nil
	}
	ui.Success("Issue #%d assigned to %s", issue.ID, output.WorkerName(issue.AssignedTo, issue.AssignedTo))
	return nil
}

func issueWorkflowRun(ctx context.Context, ref, workflow string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	issues, _, err := getTracker(false)
	if err != nil {
		return err
	}

	if dryRun {
		wf, err := issues.CheckWorkflow(ctx, id, workflow)
		if err != nil {
			return err
		}
		ui.DryRunMsg("Would set issue #%d workflow to %s", id, wf.Display())
		return nil
	}

	issue, err := issues.UpdateWorkflow(ctx, id, workflow)
	if err != nil {
		return err
	}
	ui.Success("Issue #%d workflow set to %s", issue.ID, issue.Workflow.Display())
	return nil
}

func issueDeleteRun(ctx context.Context, ref string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	issues, _, err := getTracker(false)
	if err != nil {
		return err
	}

	if dryRun {
		issue, err := issues.Fetch(ctx, id)
		if err != nil {
			return err
		}
		ui.DryRunMsg("Would delete issue #%d and its comments: %s", issue.ID, issueLabel(issue))
		return nil
	}

	if _, err := issues.Delete(ctx, id); err != nil {
		return err
	}
	ui.Success("Deleted issue #%d", id)
	return nil
}

// issueLabel is the title, or the description when the issue has none.
func issueLabel(i *models.Issue) string {
	if i.Title != "" {
		return i.Title
	}
	return output.Truncate(i.Description, 80)
}

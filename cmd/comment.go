package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/bleue/internal/models"
	"github.com/joescharf/bleue/internal/output"
	"github.com/joescharf/bleue/internal/tracker"
)

var (
	commentSource string
	commentType   string
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Add or list issue comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <issue-id> <text...>",
	Short: "Append a comment to an issue",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentAddRun(cmdContext(), args[0], strings.Join(args[1:], " "))
	},
}

var commentListCmd = &cobra.Command{
	Use:     "list <issue-id>",
	Aliases: []string{"ls"},
	Short:   "List an issue's comments, newest first",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return commentListRun(cmdContext(), args[0])
	},
}

func init() {
	commentAddCmd.Flags().StringVar(&commentSource, "source", models.CommentSourceUser, "Comment source: system, agent, user")
	commentAddCmd.Flags().StringVar(&commentType, "type", "", "Comment type, e.g. workflow")

	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentListCmd)
	rootCmd.AddCommand(commentCmd)
}

func commentAddRun(ctx context.Context, ref, text string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	switch commentSource {
	case models.CommentSourceSystem, models.CommentSourceAgent, models.CommentSourceUser:
	default:
		return fmt.Errorf("invalid source %q: must be system, agent or user", commentSource)
	}

	issues, comments, err := getTracker(false)
	if err != nil {
		return err
	}
	if _, err := issues.Fetch(ctx, id); err != nil {
		return err
	}

	if dryRun {
		if _, err := tracker.ValidateCommentText(text); err != nil {
			return err
		}
		ui.DryRunMsg("Would comment on issue #%d: %s", id, output.Truncate(text, 60))
		return nil
	}

	c, err := comments.Append(ctx, tracker.CommentInput{
		IssueID: id,
		Text:    text,
		Raw:     map[string]any{"text": strings.TrimSpace(text)},
		Source:  commentSource,
		Type:    commentType,
	})
	if err != nil {
		return err
	}
	ui.Success("Added comment %d to issue #%d", c.ID, id)
	return nil
}

func commentListRun(ctx context.Context, ref string) error {
	id, err := parseIssueID(ref)
	if err != nil {
		return err
	}
	issues, comments, err := getTracker(false)
	if err != nil {
		return err
	}
	if _, err := issues.Fetch(ctx, id); err != nil {
		return err
	}

	list, err := comments.List(ctx, id)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		ui.Info("No comments on issue #%d.", id)
		return nil
	}

	table := ui.Table([]string{"ID", "Created", "Source", "Type", "Comment"})
	for _, c := range list {
		_ = table.Append([]string{
			fmt.Sprintf("%d", c.ID),
			output.Timestamp(c.CreatedAt),
			c.Source,
			c.Type,
			output.Truncate(c.Comment, 80),
		})
	}
	_ = table.Render()
	return nil
}

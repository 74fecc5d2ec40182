package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joescharf/bleue/internal/agent"
	"github.com/joescharf/bleue/internal/git"
	"github.com/joescharf/bleue/internal/workflow"
)

var (
	workflowWorkdir string
	workflowAgent   string
)

var workflowCmd = &cobra.Command{
	Use:   "workflow",
	Short: "Run agent workflow steps for an issue",
}

var workflowFinalizeCmd = &cobra.Command{
	Use:   "finalize <issue-id>",
	Short: "Prepare the pull request and mark the issue completed",
	Long: `Ask the implementor agent to prepare a pull request for the issue, then
finalize it: the issue is marked completed and a completion comment is posted
whether or not the pull request step succeeded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return workflowFinalizeRun(cmdContext(), args[0])
	},
}

func init() {
	workflowFinalizeCmd.Flags().StringVar(&workflowWorkdir, "workdir", "", "Repository the agent works in (default: agent.workdir or cwd)")
	workflowFinalizeCmd.Flags().StringVar(&workflowAgent, "agent", "", "Agent backend: cli or api (default: agent.backend)")

	workflowCmd.AddCommand(workflowFinalizeCmd)
	rootCmd.AddCommand(workflowCmd)
}

// resolveWorkdir picks the flag, then agent.workdir, then the current directory.
func resolveWorkdir() (string, error) {
	dir := workflowWorkdir
	if dir == "" {
		dir = viper.GetString("agent.workdir")
	}
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}

// getExecutor builds the agent executor selected by --agent or agent.backend.
func getExecutor(workdir string, l *zap.Logger) (agent.Executor, error) {
	backend := workflowAgent
	if backend == "" {
		backend = viper.GetString("agent.backend")
	}

	switch backend {
	case "", "cli":
		c := agent.NewClaudeCLI(workdir, viper.GetString("agent.model"), l)
		if command := viper.GetString("agent.command"); command != "" {
			c.Command = command
		}
		c.OutputDir = filepath.Join(viper.GetString("state_dir"), "agents")
		return c, nil
	case "api":
		key := viper.GetString("anthropic.api_key")
		if key == "" {
			return nil, fmt.Errorf("anthropic.api_key (ANTHROPIC_API_KEY) is required for the api agent backend")
		}
		return agent.NewAnthropicAPI(key, viper.GetString("anthropic.model"), workdir, l), nil
	}
	return nil, fmt.Errorf("invalid agent backend %q: must be cli or api", backend)
}

func workflowFinalizeRun(ctx context.Context, ref string) error {
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

	workdir, err := resolveWorkdir()
	if err != nil {
		return fmt.Errorf("resolve workdir: %w", err)
	}
	executor, err := getExecutor(workdir, logger)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would run %s in %s for issue #%d, then mark it completed", workflow.PullRequestCommand, workdir, issue.ID)
		return nil
	}

	step := &workflow.PreparePullRequestStep{
		Agent:    executor,
		Issues:   issues,
		Comments: comments,
		GitHub:   git.NewGitHubClient(),
		Git:      git.NewClient(),
		WorkDir:  workdir,
	}
	wc := workflow.NewContext(issue.ID, logger)
	ui.Info("Run %s: %s for issue #%d", wc.RunID, step.Name(), issue.ID)

	var runner workflow.Runner
	results, err := runner.Run(ctx, wc, step)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Success {
			ui.Success("%s", res.Message)
		} else {
			ui.Warning("Pull request preparation failed: %s", res.Message)
		}
	}

	final, err := issues.Fetch(context.WithoutCancel(ctx), issue.ID)
	if err != nil {
		ui.Warning("Could not re-read issue #%d: %v", issue.ID, err)
		return nil
	}
	ui.Info("Issue #%d status: %s", final.ID, final.Status)
	return nil
}

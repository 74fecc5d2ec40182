package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joescharf/bleue/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents read issues and post progress comments. Configure
in your agent with:

  {
    "mcpServers": {
      "bleue": { "command": "bleue", "args": ["mcp"] }
    }
  }

Available tools: bleue_list_issues, bleue_get_issue, bleue_create_issue,
bleue_update_issue_status, bleue_assign_issue, bleue_set_workflow,
bleue_add_comment, bleue_list_comments`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmdContext())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// mcpRun serves until stdin closes or ctx is cancelled. Logs go to stderr or
// log.file; stdout carries the protocol.
func mcpRun(ctx context.Context) error {
	issues, comments, err := getTracker(false)
	if err != nil {
		return err
	}
	srv := mcp.NewServer(issues, comments, buildVersion, logger)
	return srv.ServeStdio(ctx)
}

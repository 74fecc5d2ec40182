package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/bleue/internal/models"
)

var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "List the worker ids issues can be assigned to",
	RunE: func(cmd *cobra.Command, args []string) error {
		return workersRun()
	},
}

func init() {
	rootCmd.AddCommand(workersCmd)
}

func workersRun() error {
	table := ui.Table([]string{"ID", "Name", "Fleet"})
	for _, id := range models.WorkerIDs() {
		fleet, _, _ := strings.Cut(id, "-")
		_ = table.Append([]string{id, models.WorkerDisplayName(id), fleet})
	}
	_ = table.Render()
	fmt.Fprintf(ui.Out, "\nRegistry version %d\n", models.WorkerRegistryVersion)
	return nil
}

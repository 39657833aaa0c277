package cli

import (
	"github.com/spf13/cobra"

	"github.com/flowtrace/flowtrace/internal/inspector"
)

func NewWorkflowsCommand() *cobra.Command {
	workflowsCmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect workflows on the platform",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			all, _ := cmd.Flags().GetBool("all")

			service := inspector.NewService(client)

			workflows, err := service.ListWorkflows(cmd.Context(), !all)
			if err != nil {
				return err
			}

			type row struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				Active bool   `json:"active"`
			}

			rows := make([]row, 0, len(workflows))
			for _, workflow := range workflows {
				rows = append(rows, row{ID: workflow.ID, Name: workflow.Name, Active: workflow.Active})
			}

			return printJSON(rows)
		},
	}
	listCmd.Flags().Bool("all", false, "Include inactive workflows")

	workflowsCmd.AddCommand(listCmd)

	return workflowsCmd
}

package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/flowtrace/flowtrace/internal/domain"
	"github.com/flowtrace/flowtrace/internal/inspector"
	"github.com/flowtrace/flowtrace/pkg/flowapi"
)

func NewExecutionsCommand() *cobra.Command {
	executionsCmd := &cobra.Command{
		Use:   "executions",
		Short: "Inspect workflow executions",
	}

	executionsCmd.AddCommand(newExecutionsListCommand())
	executionsCmd.AddCommand(newExecutionsGetCommand())

	return executionsCmd
}

func newExecutionsListCommand() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			workflowID, _ := cmd.Flags().GetString("workflow")
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

			service := inspector.NewService(client)

			executions, err := service.ListExecutions(cmd.Context(), flowapi.ExecutionFilter{
				WorkflowID: workflowID,
				Status:     domain.ExecutionStatus(status),
				Limit:      limit,
			})
			if err != nil {
				return err
			}

			type row struct {
				ID         string     `json:"id"`
				WorkflowID string     `json:"workflow_id"`
				Status     string     `json:"status"`
				StartedAt  time.Time  `json:"started_at"`
				StoppedAt  *time.Time `json:"stopped_at,omitempty"`
			}

			rows := make([]row, 0, len(executions))
			for _, execution := range executions {
				rows = append(rows, row{
					ID:         execution.ID,
					WorkflowID: execution.WorkflowID,
					Status:     string(execution.Status),
					StartedAt:  execution.StartedAt,
					StoppedAt:  execution.StoppedAt,
				})
			}

			return printJSON(rows)
		},
	}

	listCmd.Flags().String("workflow", "", "Filter by workflow id")
	listCmd.Flags().String("status", "", "Filter by status (success, error, running, waiting)")
	listCmd.Flags().Int("limit", 20, "Maximum number of executions")

	return listCmd
}

func newExecutionsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <execution-id>",
		Short: "Show one execution with its node errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			service := inspector.NewService(client)

			execution, err := service.GetExecution(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(struct {
				ID         string                       `json:"id"`
				WorkflowID string                       `json:"workflow_id"`
				Status     string                       `json:"status"`
				StartedAt  time.Time                    `json:"started_at"`
				StoppedAt  *time.Time                   `json:"stopped_at,omitempty"`
				Nodes      int                          `json:"nodes_with_run_data"`
				Errors     []inspector.NodeErrorSummary `json:"errors"`
			}{
				ID:         execution.ID,
				WorkflowID: execution.WorkflowID,
				Status:     string(execution.Status),
				StartedAt:  execution.StartedAt,
				StoppedAt:  execution.StoppedAt,
				Nodes:      len(execution.RunData),
				Errors:     inspector.ExecutionErrors(*execution),
			})
		},
	}
}

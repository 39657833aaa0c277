package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/flowtrace/flowtrace/internal/correlator"
)

func NewTraceCommand() *cobra.Command {
	traceCmd := &cobra.Command{
		Use:   "trace <execution-id>",
		Short: "Discover executions triggered by the given execution",
		Long: `Trace starts from the given execution and discovers other executions it
likely triggered, directly or transitively, by following webhook calls
and sub-workflow triggers. Each discovered execution carries a
confidence score and the signals that produced it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			timeWindow, _ := cmd.Flags().GetDuration("time-window")
			maxDepth, _ := cmd.Flags().GetInt("max-depth")

			c := correlator.New(client)

			correlations, err := c.CorrelateExecutions(cmd.Context(), args[0], correlator.Options{
				TimeWindow: timeWindow,
				MaxDepth:   maxDepth,
			})
			if err != nil {
				return err
			}

			type row struct {
				ExecutionID  string    `json:"execution_id"`
				WorkflowID   string    `json:"workflow_id"`
				WorkflowName string    `json:"workflow_name"`
				Status       string    `json:"status"`
				StartedAt    time.Time `json:"started_at"`
				ParentID     string    `json:"parent_id"`
				Confidence   float64   `json:"confidence"`
				Method       string    `json:"method"`
			}

			rows := make([]row, 0, len(correlations))
			for _, correlation := range correlations {
				rows = append(rows, row{
					ExecutionID:  correlation.Execution.ID,
					WorkflowID:   correlation.Execution.WorkflowID,
					WorkflowName: c.GetWorkflowName(correlation.Execution.WorkflowID),
					Status:       string(correlation.Execution.Status),
					StartedAt:    correlation.Execution.StartedAt,
					ParentID:     correlation.ParentID,
					Confidence:   correlation.Confidence,
					Method:       correlation.Method,
				})
			}

			return printJSON(struct {
				RootExecutionID string            `json:"root_execution_id"`
				Correlations    []row             `json:"correlations"`
				WorkflowNames   map[string]string `json:"workflow_names"`
			}{
				RootExecutionID: args[0],
				Correlations:    rows,
				WorkflowNames:   c.GetWorkflowNames(),
			})
		},
	}

	traceCmd.Flags().Duration("time-window", correlator.DefaultTimeWindow, "How long after an execution a triggered execution may start")
	traceCmd.Flags().Int("max-depth", correlator.DefaultMaxDepth, "Maximum number of triggering hops to follow")

	return traceCmd
}

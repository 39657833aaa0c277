package inspector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/flowtrace/flowtrace/internal/domain"
	"github.com/flowtrace/flowtrace/pkg/flowapi"
)

// Service is the read side of the toolkit: plain lookups over the
// platform API, plus small summaries the CLI renders. It holds no state
// beyond the client.
type Service struct {
	client flowapi.ClientInterface
}

func NewService(client flowapi.ClientInterface) *Service {
	return &Service{client: client}
}

func (s *Service) ListWorkflows(ctx context.Context, activeOnly bool) ([]domain.Workflow, error) {
	return s.client.ListWorkflows(ctx, activeOnly)
}

func (s *Service) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	return s.client.GetWorkflow(ctx, id)
}

func (s *Service) ListExecutions(ctx context.Context, filter flowapi.ExecutionFilter) ([]domain.Execution, error) {
	return s.client.ListExecutions(ctx, filter)
}

func (s *Service) GetExecution(ctx context.Context, id string) (*domain.Execution, error) {
	execution, err := s.client.GetExecution(ctx, id, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	return execution, nil
}

// NodeErrorSummary is one failed node invocation, flattened for display.
type NodeErrorSummary struct {
	NodeName  string    `json:"node_name"`
	Run       int       `json:"run"`
	StartedAt time.Time `json:"started_at"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Message   string    `json:"message"`
	Stack     string    `json:"stack,omitempty"`
}

// ExecutionErrors walks an execution's run data and collects every node
// error, ordered by node name and run index.
func ExecutionErrors(execution domain.Execution) []NodeErrorSummary {
	var summaries []NodeErrorSummary

	nodeNames := make([]string, 0, len(execution.RunData))
	for name := range execution.RunData {
		nodeNames = append(nodeNames, name)
	}

	sort.Strings(nodeNames)

	for _, nodeName := range nodeNames {
		for i, run := range execution.RunData[nodeName] {
			if run.Error == nil {
				continue
			}

			summaries = append(summaries, NodeErrorSummary{
				NodeName:  nodeName,
				Run:       i,
				StartedAt: run.StartedAt,
				ElapsedMS: run.ExecutionTimeMS,
				Message:   run.Error.Message,
				Stack:     run.Error.Stack,
			})
		}
	}

	return summaries
}

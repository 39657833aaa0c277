package flowapi

import (
	"time"

	"github.com/flowtrace/flowtrace/internal/domain"
)

// ExecutionFilter narrows ListExecutions. Zero-value fields are omitted
// from the query.
type ExecutionFilter struct {
	WorkflowID  string
	Status      domain.ExecutionStatus
	Limit       int
	IncludeData bool
}

// Wire representations of the platform API. The platform reports node run
// timestamps as millisecond epochs; domain types carry time.Time.

type workflowDTO struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
	Nodes  []nodeDTO `json:"nodes,omitempty"`
}

type nodeDTO struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type executionDTO struct {
	ID         string            `json:"id"`
	WorkflowID string            `json:"workflowId"`
	Status     string            `json:"status"`
	StartedAt  time.Time         `json:"startedAt"`
	StoppedAt  *time.Time        `json:"stoppedAt,omitempty"`
	Data       *executionDataDTO `json:"data,omitempty"`
}

type executionDataDTO struct {
	ResultData resultDataDTO `json:"resultData"`
}

type resultDataDTO struct {
	RunData map[string][]nodeRunDTO `json:"runData"`
}

type nodeRunDTO struct {
	StartTime       int64         `json:"startTime"`
	ExecutionTime   int64         `json:"executionTime"`
	ExecutionStatus string        `json:"executionStatus,omitempty"`
	Error           *nodeErrorDTO `json:"error,omitempty"`
	Data            *runOutputDTO `json:"data,omitempty"`
}

type nodeErrorDTO struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Node    string `json:"node,omitempty"`
}

type runOutputDTO struct {
	Main [][]outputItemDTO `json:"main"`
}

type outputItemDTO struct {
	JSON map[string]any `json:"json"`
}

func (dto workflowDTO) toDomain() domain.Workflow {
	workflow := domain.Workflow{
		ID:     dto.ID,
		Name:   dto.Name,
		Active: dto.Active,
	}

	for _, node := range dto.Nodes {
		workflow.Nodes = append(workflow.Nodes, domain.Node{
			Type:       domain.NodeType(node.Type),
			Name:       node.Name,
			Parameters: node.Parameters,
		})
	}

	return workflow
}

func (dto executionDTO) toDomain() domain.Execution {
	execution := domain.Execution{
		ID:         dto.ID,
		WorkflowID: dto.WorkflowID,
		Status:     parseExecutionStatus(dto.Status),
		StartedAt:  dto.StartedAt,
		StoppedAt:  dto.StoppedAt,
	}

	if dto.Data == nil || len(dto.Data.ResultData.RunData) == 0 {
		return execution
	}

	execution.RunData = make(map[string][]domain.NodeRun, len(dto.Data.ResultData.RunData))

	for nodeName, runs := range dto.Data.ResultData.RunData {
		mapped := make([]domain.NodeRun, 0, len(runs))
		for _, run := range runs {
			mapped = append(mapped, run.toDomain())
		}

		execution.RunData[nodeName] = mapped
	}

	return execution
}

func (dto nodeRunDTO) toDomain() domain.NodeRun {
	run := domain.NodeRun{
		StartedAt:       time.UnixMilli(dto.StartTime),
		ExecutionTimeMS: dto.ExecutionTime,
		Status:          parseExecutionStatus(dto.ExecutionStatus),
	}

	if dto.Error != nil {
		run.Error = &domain.NodeError{
			Message:  dto.Error.Message,
			Stack:    dto.Error.Stack,
			NodeName: dto.Error.Node,
		}
	}

	if dto.Data != nil {
		output := &domain.RunOutput{}
		for _, row := range dto.Data.Main {
			items := make([]domain.OutputItem, 0, len(row))
			for _, item := range row {
				items = append(items, domain.OutputItem{JSON: item.JSON})
			}

			output.Main = append(output.Main, items)
		}

		run.Data = output
	}

	return run
}

func parseExecutionStatus(status string) domain.ExecutionStatus {
	switch domain.ExecutionStatus(status) {
	case domain.ExecutionStatusSuccess,
		domain.ExecutionStatusError,
		domain.ExecutionStatusRunning,
		domain.ExecutionStatusWaiting:
		return domain.ExecutionStatus(status)
	default:
		return domain.ExecutionStatusUnknown
	}
}

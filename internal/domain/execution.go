package domain

import "time"

type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusError   ExecutionStatus = "error"
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusWaiting ExecutionStatus = "waiting"
	ExecutionStatusUnknown ExecutionStatus = "unknown"
)

// Execution is one run instance of a workflow, fetched as a read-only
// snapshot from the platform. RunData is only populated when the fetch
// requested full data.
type Execution struct {
	ID         string
	WorkflowID string
	Status     ExecutionStatus
	StartedAt  time.Time
	StoppedAt  *time.Time

	// RunData maps node name to that node's invocations in run order.
	// A node may run more than once, e.g. inside a loop.
	RunData map[string][]NodeRun
}

func (e Execution) Finished() bool {
	return e.StoppedAt != nil
}

// NodeRun is a single invocation of a node within an execution.
type NodeRun struct {
	StartedAt       time.Time
	ExecutionTimeMS int64
	Status          ExecutionStatus
	Error           *NodeError
	Data            *RunOutput
}

type NodeError struct {
	Message  string
	Stack    string
	NodeName string
}

// RunOutput mirrors the platform's branching output model: the outer
// slice holds one row per output branch, each row holding the items the
// branch produced.
type RunOutput struct {
	Main [][]OutputItem
}

// FirstItem returns the first item of the first output row, which is
// where single-output nodes put their payload.
func (o *RunOutput) FirstItem() (OutputItem, bool) {
	if o == nil || len(o.Main) == 0 || len(o.Main[0]) == 0 {
		return OutputItem{}, false
	}

	return o.Main[0][0], true
}

type OutputItem struct {
	JSON map[string]any
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowWebhookPaths(t *testing.T) {
	workflow := Workflow{
		ID:   "W1",
		Name: "Orders",
		Nodes: []Node{
			{Type: NodeTypeWebhookTrigger, Name: "Incoming", Parameters: map[string]any{"path": "orders/incoming"}},
			{Type: NodeTypeWebhookTrigger, Name: "Cancel", Parameters: map[string]any{"path": "/orders/cancel"}},
			{Type: NodeTypeWebhookTrigger, Name: "Broken", Parameters: map[string]any{}},
			{Type: "core.http", Name: "Call API", Parameters: map[string]any{"path": "ignored"}},
		},
	}

	assert.Equal(t, []string{"/orders/incoming", "/orders/cancel"}, workflow.WebhookPaths())
}

func TestWorkflowHasWorkflowTrigger(t *testing.T) {
	assert.True(t, Workflow{Nodes: []Node{
		{Type: "core.set", Name: "Set"},
		{Type: NodeTypeWorkflowTrigger, Name: "When called"},
	}}.HasWorkflowTrigger())

	assert.False(t, Workflow{Nodes: []Node{
		{Type: NodeTypeWebhookTrigger, Name: "Webhook"},
	}}.HasWorkflowTrigger())

	assert.False(t, Workflow{}.HasWorkflowTrigger())
}

func TestRunOutputFirstItem(t *testing.T) {
	output := &RunOutput{
		Main: [][]OutputItem{
			{{JSON: map[string]any{"a": 1}}, {JSON: map[string]any{"b": 2}}},
			{{JSON: map[string]any{"c": 3}}},
		},
	}

	item, ok := output.FirstItem()
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"a": 1}, item.JSON)

	_, ok = (&RunOutput{}).FirstItem()
	assert.False(t, ok)

	var nilOutput *RunOutput
	_, ok = nilOutput.FirstItem()
	assert.False(t, ok)

	_, ok = (&RunOutput{Main: [][]OutputItem{{}}}).FirstItem()
	assert.False(t, ok)
}

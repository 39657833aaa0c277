package correlator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtrace/flowtrace/internal/domain"
)

func testIndex() *webhookIndex {
	return buildWebhookIndex([]domain.Workflow{
		{
			ID:     "W1",
			Name:   "Agent",
			Active: true,
			Nodes: []domain.Node{
				{Type: domain.NodeTypeWebhookTrigger, Name: "Webhook", Parameters: map[string]any{"path": "agent"}},
			},
		},
		{
			ID:     "W2",
			Name:   "Orders",
			Active: true,
			Nodes: []domain.Node{
				{Type: domain.NodeTypeWebhookTrigger, Name: "Webhook", Parameters: map[string]any{"path": "/orders/incoming"}},
			},
		},
	})
}

func TestWebhookIndex_Find(t *testing.T) {
	index := testIndex()

	tests := []struct {
		name       string
		input      string
		workflowID string
		found      bool
	}{
		{
			name:       "full url with webhook mount",
			input:      "https://host/webhook/agent",
			workflowID: "W1",
			found:      true,
		},
		{
			name:       "bare path",
			input:      "agent",
			workflowID: "W1",
			found:      true,
		},
		{
			name:       "leading slash path",
			input:      "/orders/incoming",
			workflowID: "W2",
			found:      true,
		},
		{
			name:       "input longer than declared path",
			input:      "https://host/webhook/agent-v2",
			workflowID: "W1",
			found:      true,
		},
		{
			name:       "declared path longer than input",
			input:      "/orders",
			workflowID: "W2",
			found:      true,
		},
		{
			name:  "no match",
			input: "https://host/webhook/billing",
			found: false,
		},
		{
			name:  "empty input",
			input: "",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapping, found := index.Find(tt.input)

			require.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.workflowID, mapping.WorkflowID)
			}
		})
	}
}

func TestNormalizeWebhookPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "full url", input: "https://host/webhook/agent", expected: "agent"},
		{name: "bare path with slash", input: "/agent", expected: "agent"},
		{name: "bare path", input: "agent", expected: "agent"},
		{name: "webhook mount only", input: "/webhook/agent", expected: "agent"},
		{name: "nested path", input: "https://host/webhook/orders/incoming", expected: "orders/incoming"},
		{name: "query string dropped", input: "https://host/webhook/agent?x=1", expected: "agent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized := normalizeWebhookPath(tt.input)
			assert.Equal(t, tt.expected, normalized)

			// Normalization is idempotent.
			assert.Equal(t, normalized, normalizeWebhookPath(normalized))
		})
	}
}

func TestWebhookIndex_PathsNormalizedWithLeadingSlash(t *testing.T) {
	index := testIndex()

	require.Len(t, index.mappings, 2)
	assert.Equal(t, "/agent", index.mappings[0].Path)
	assert.Equal(t, "/orders/incoming", index.mappings[1].Path)
	assert.Equal(t, "Agent", index.mappings[0].WorkflowName)
}

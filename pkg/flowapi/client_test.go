package flowapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtrace/flowtrace/internal/domain"
)

func TestListWorkflows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/workflows", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"W1","name":"Entry","active":true},
			{"id":"W2","name":"Agent","active":true}
		]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithAPIKey("secret"))

	workflows, err := client.ListWorkflows(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	assert.Equal(t, "W1", workflows[0].ID)
	assert.Equal(t, "Entry", workflows[0].Name)
	assert.True(t, workflows[0].Active)
	assert.Empty(t, workflows[0].Nodes)
}

func TestGetWorkflow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/workflows/W2", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{
			"id":"W2","name":"Agent","active":true,
			"nodes":[
				{"type":"trigger.webhook","name":"Webhook","parameters":{"path":"agent"}},
				{"type":"core.http","name":"Call API","parameters":{}}
			]
		}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	workflow, err := client.GetWorkflow(context.Background(), "W2")
	require.NoError(t, err)
	require.Len(t, workflow.Nodes, 2)

	assert.Equal(t, domain.NodeTypeWebhookTrigger, workflow.Nodes[0].Type)
	assert.Equal(t, []string{"/agent"}, workflow.WebhookPaths())
}

func TestGetWorkflow_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"workflow not found"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.GetWorkflow(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestListExecutions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/executions", r.URL.Path)

		query := r.URL.Query()
		assert.Equal(t, "W2", query.Get("workflowId"))
		assert.Equal(t, "10", query.Get("limit"))
		assert.Equal(t, "true", query.Get("includeData"))
		assert.Empty(t, query.Get("status"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{
			"id":"E2","workflowId":"W2","status":"success",
			"startedAt":"2026-03-14T12:00:00Z",
			"stoppedAt":"2026-03-14T12:00:03Z",
			"data":{"resultData":{"runData":{
				"Webhook":[{
					"startTime":1773489600000,
					"executionTime":12,
					"data":{"main":[[{"json":{"user_id":"u1"}}]]}
				}]
			}}}
		}]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	executions, err := client.ListExecutions(context.Background(), ExecutionFilter{
		WorkflowID:  "W2",
		Limit:       10,
		IncludeData: true,
	})
	require.NoError(t, err)
	require.Len(t, executions, 1)

	execution := executions[0]
	assert.Equal(t, "E2", execution.ID)
	assert.Equal(t, domain.ExecutionStatusSuccess, execution.Status)
	assert.True(t, execution.Finished())

	runs := execution.RunData["Webhook"]
	require.Len(t, runs, 1)
	assert.Equal(t, int64(12), runs[0].ExecutionTimeMS)
	assert.Equal(t, time.UnixMilli(1773489600000), runs[0].StartedAt)

	item, ok := runs[0].Data.FirstItem()
	require.True(t, ok)
	assert.Equal(t, "u1", item.JSON["user_id"])
}

func TestGetExecution_UnknownStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/executions/E9", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("includeData"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{
			"id":"E9","workflowId":"W1","status":"crashed",
			"startedAt":"2026-03-14T12:00:00Z"
		}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	execution, err := client.GetExecution(context.Background(), "E9", false)
	require.NoError(t, err)

	assert.Equal(t, domain.ExecutionStatusUnknown, execution.Status)
	assert.False(t, execution.Finished())
	assert.Nil(t, execution.RunData)
}

func TestGetExecution_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such execution"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.GetExecution(context.Background(), "missing", true)
	require.ErrorIs(t, err, domain.ErrExecutionNotFound)
}

func TestDoRequest_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithRetryAttempts(3),
		WithRetryDelay(time.Millisecond),
	)

	workflows, err := client.ListWorkflows(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, workflows)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDoRequest_ExhaustedRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithRetryAttempts(1),
		WithRetryDelay(time.Millisecond),
	)

	_, err := client.ListWorkflows(context.Background(), false)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRetryable())
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestDoRequest_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithRetryAttempts(5),
		WithRetryDelay(time.Hour),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ListWorkflows(ctx, false)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientError_Message(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", "req-1")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	_, err := client.ListWorkflows(context.Background(), false)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsAuthError())
	assert.Equal(t, "invalid api key", apiErr.Message)
	assert.Equal(t, "req-1", apiErr.RequestID)
	assert.Contains(t, apiErr.Error(), "req-1")
}

package flowapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flowtrace/flowtrace/internal/domain"
)

// ClientInterface defines the read operations the platform API exposes
type ClientInterface interface {
	ListWorkflows(ctx context.Context, activeOnly bool) ([]domain.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error)
	GetExecution(ctx context.Context, id string, includeData bool) (*domain.Execution, error)
}

// Client provides read access to the workflow platform's REST API
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new platform API client with the given options
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// ListWorkflows returns workflow summaries. Summaries omit node lists;
// use GetWorkflow for the full definition.
func (c *Client) ListWorkflows(ctx context.Context, activeOnly bool) ([]domain.Workflow, error) {
	query := url.Values{}
	if activeOnly {
		query.Set("active", "true")
	}

	resp, err := c.doRequest(ctx, "/api/v1/workflows", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var envelope struct {
		Data []workflowDTO `json:"data"`
	}

	if err := c.handleResponse(resp, &envelope); err != nil {
		return nil, fmt.Errorf("failed to process workflow list: %w", err)
	}

	workflows := make([]domain.Workflow, 0, len(envelope.Data))
	for _, dto := range envelope.Data {
		workflows = append(workflows, dto.toDomain())
	}

	return workflows, nil
}

// GetWorkflow returns the full workflow definition, nodes included
func (c *Client) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	if id == "" {
		return nil, fmt.Errorf("workflow id cannot be empty")
	}

	resp, err := c.doRequest(ctx, "/api/v1/workflows/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s: %w", id, err)
	}

	var envelope struct {
		Data workflowDTO `json:"data"`
	}

	if err := c.handleResponse(resp, &envelope); err != nil {
		if apiErr, ok := IsAPIError(err); ok && apiErr.IsNotFound() {
			return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to process workflow %s: %w", id, err)
	}

	workflow := envelope.Data.toDomain()

	return &workflow, nil
}

// ListExecutions returns executions matching the filter, most recent first
func (c *Client) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := url.Values{}
	if filter.WorkflowID != "" {
		query.Set("workflowId", filter.WorkflowID)
	}

	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}

	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	if filter.IncludeData {
		query.Set("includeData", "true")
	}

	resp, err := c.doRequest(ctx, "/api/v1/executions", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	var envelope struct {
		Data []executionDTO `json:"data"`
	}

	if err := c.handleResponse(resp, &envelope); err != nil {
		return nil, fmt.Errorf("failed to process execution list: %w", err)
	}

	executions := make([]domain.Execution, 0, len(envelope.Data))
	for _, dto := range envelope.Data {
		executions = append(executions, dto.toDomain())
	}

	return executions, nil
}

// GetExecution returns a single execution, with per-node run data when
// includeData is set
func (c *Client) GetExecution(ctx context.Context, id string, includeData bool) (*domain.Execution, error) {
	if id == "" {
		return nil, fmt.Errorf("execution id cannot be empty")
	}

	query := url.Values{}
	if includeData {
		query.Set("includeData", "true")
	}

	resp, err := c.doRequest(ctx, "/api/v1/executions/"+url.PathEscape(id), query)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution %s: %w", id, err)
	}

	var envelope struct {
		Data executionDTO `json:"data"`
	}

	if err := c.handleResponse(resp, &envelope); err != nil {
		if apiErr, ok := IsAPIError(err); ok && apiErr.IsNotFound() {
			return nil, fmt.Errorf("execution %s: %w", id, domain.ErrExecutionNotFound)
		}

		return nil, fmt.Errorf("failed to process execution %s: %w", id, err)
	}

	execution := envelope.Data.toDomain()

	return &execution, nil
}

// doRequest performs a GET request with retry logic for transient failures
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	requestURL := c.config.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			log.Debug().Str("url", requestURL).Int("attempt", attempt).Msg("Retrying platform API request")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range c.config.DefaultHeaders {
			req.Header.Set(key, value)
		}

		if c.config.UserAgent != "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}

		if c.config.APIKey != "" {
			req.Header.Set("X-API-Key", c.config.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Server errors are worth retrying; everything else is final
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = &Error{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("server error: %d", resp.StatusCode),
				Body:       string(body),
				RequestID:  resp.Header.Get("X-Request-ID"),
			}

			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.config.RetryAttempts, lastErr)
}

// handleResponse processes the HTTP response and unmarshals JSON if successful
func (c *Client) handleResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResponse struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}

		if json.Unmarshal(body, &errorResponse) == nil {
			errorMsg := errorResponse.Error
			if errorMsg == "" {
				errorMsg = errorResponse.Message
			}
			if errorMsg != "" {
				return &Error{
					StatusCode: resp.StatusCode,
					Message:    errorMsg,
					Body:       string(body),
					RequestID:  resp.Header.Get("X-Request-ID"),
				}
			}
		}

		return &Error{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
			Body:       string(body),
			RequestID:  resp.Header.Get("X-Request-ID"),
		}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

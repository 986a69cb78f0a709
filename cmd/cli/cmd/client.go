package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"flowplane/pkg/api"
)

// FlowClient handles API calls to the flowplane scheduler.
type FlowClient struct {
	BaseURL    string
	Tenant     string
	HTTPClient *http.Client
}

// NewFlowClient creates a new client with the given base URL and tenant.
func NewFlowClient(baseURL, tenant string) *FlowClient {
	return &FlowClient{
		BaseURL: baseURL,
		Tenant:  tenant,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *FlowClient) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Add("Content-Type", "application/json")
	if c.Tenant != "" {
		httpReq.Header.Add("X-Tenant", c.Tenant)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// SaveFlow sends POST /flows to store a new flow revision.
func (c *FlowClient) SaveFlow(req api.SaveFlowRequest) (*api.SaveFlowResponse, error) {
	var result api.SaveFlowResponse
	if err := c.do(http.MethodPost, "/flows", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListFlows sends GET /flows.
func (c *FlowClient) ListFlows() ([]api.FlowResponse, error) {
	var result api.ListFlowsResponse
	if err := c.do(http.MethodGet, "/flows", nil, &result); err != nil {
		return nil, err
	}
	return result.Flows, nil
}

// ListTriggers sends GET /triggers.
func (c *FlowClient) ListTriggers(limit, offset int) ([]api.TriggerStateResponse, error) {
	var result api.ListTriggersResponse
	path := fmt.Sprintf("/triggers?limit=%d&offset=%d", limit, offset)
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Triggers, nil
}

// SetTriggerDisabled sends PUT /triggers/{ns}/{flow}/{trigger}/disable or /enable.
func (c *FlowClient) SetTriggerDisabled(namespace, flowID, triggerID string, disabled bool) error {
	action := "enable"
	if disabled {
		action = "disable"
	}
	path := fmt.Sprintf("/triggers/%s/%s/%s/%s", namespace, flowID, triggerID, action)
	return c.do(http.MethodPut, path, nil, nil)
}

// CreateBackfill sends POST /backfills.
func (c *FlowClient) CreateBackfill(req api.CreateBackfillRequest) (*api.TriggerStateResponse, error) {
	var result api.TriggerStateResponse
	if err := c.do(http.MethodPost, "/backfills", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetBackfillPaused sends PUT /backfills/{ns}/{flow}/{trigger}/pause or /resume.
func (c *FlowClient) SetBackfillPaused(namespace, flowID, triggerID string, paused bool) (*api.TriggerStateResponse, error) {
	action := "resume"
	if paused {
		action = "pause"
	}
	var result api.TriggerStateResponse
	path := fmt.Sprintf("/backfills/%s/%s/%s/%s", namespace, flowID, triggerID, action)
	if err := c.do(http.MethodPut, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteBackfill sends DELETE /backfills/{ns}/{flow}/{trigger}.
func (c *FlowClient) DeleteBackfill(namespace, flowID, triggerID string) (*api.TriggerStateResponse, error) {
	var result api.TriggerStateResponse
	path := fmt.Sprintf("/backfills/%s/%s/%s", namespace, flowID, triggerID)
	if err := c.do(http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetExecution sends GET /executions/{id} to retrieve execution details.
func (c *FlowClient) GetExecution(executionID string) (*api.ExecutionResponse, error) {
	var result api.ExecutionResponse
	if err := c.do(http.MethodGet, "/executions/"+executionID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

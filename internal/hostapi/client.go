// Package hostapi is a client for the workflow-automation host's
// management API, used by internal/sync to discover trigger nodes
// (spec.md §4.2, §6).
package hostapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/unihook/unihook/internal/core"
)

// Client calls the host's workflow-management API. It mirrors the shared
// *http.Client-with-timeout shape used by internal/fanout for outbound
// calls.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New builds a Client bound to the host's base URL and API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

type listWorkflowsResponse struct {
	Data []core.HostWorkflow `json:"data"`
}

// ListActiveWorkflows returns every workflow the host reports as active,
// each carrying the nodes internal/sync inspects for trigger descriptors.
func (c *Client) ListActiveWorkflows(ctx context.Context) ([]core.HostWorkflow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/workflows?active=true", nil)
	if err != nil {
		return nil, fmt.Errorf("hostapi: build request: %w", err)
	}
	req.Header.Set("X-N8N-API-KEY", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hostapi: list workflows: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hostapi: list workflows: unexpected status %d", resp.StatusCode)
	}

	var out listWorkflowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("hostapi: decode workflows response: %w", err)
	}

	active := make([]core.HostWorkflow, 0, len(out.Data))
	for _, wf := range out.Data {
		if wf.Active {
			active = append(active, wf)
		}
	}
	return active, nil
}

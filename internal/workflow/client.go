package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where the workflow backend is expected when the
// preference is unset.
const DefaultBaseURL = "http://localhost:8080"

// SaveResult is the backend's reply to a save request.
type SaveResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ExecuteResult is the backend's reply to an execute request.
type ExecuteResult struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"executionId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Client talks to the workflow backend over HTTP. It is safe for concurrent
// use; the editor fires saves and runs from goroutines without coalescing.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Save uploads the document. A transport failure is returned as err; a
// refusal by the backend comes back inside the result. Neither touches the
// caller's scene or history.
func (c *Client) Save(ctx context.Context, doc Document) (SaveResult, error) {
	var out SaveResult
	if err := c.postJSON(ctx, c.baseURL+"/api/workflows", doc, &out); err != nil {
		return SaveResult{}, err
	}
	return out, nil
}

// Execute asks the backend to run the named workflow and returns the
// execution id it assigns.
func (c *Client) Execute(ctx context.Context, workflowID string) (ExecuteResult, error) {
	endpoint := c.baseURL + "/api/workflows/" + url.PathEscape(workflowID) + "/execute"
	var out ExecuteResult
	if err := c.postJSON(ctx, endpoint, struct{}{}, &out); err != nil {
		return ExecuteResult{}, err
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// Error pages without a JSON body still need a readable failure.
		return fmt.Errorf("post %s: %s: %w", endpoint, resp.Status, err)
	}
	return nil
}

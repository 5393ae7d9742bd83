// Package creation is the HTTP client for the link creation service. It
// submits a whole import batch in a single call and decodes the per-row
// results the service sends back.
package creation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/linkforge/bulkimport/internal/core"
)

// batchRequest is the wire shape of a bulk creation call.
type batchRequest struct {
	WorkspaceID string                `json:"workspaceId"`
	Links       []core.SubmissionItem `json:"links"`
}

// batchResponse is the wire shape of the service's answer.
type batchResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Results []core.RowResult `json:"results"`
	Summary core.Summary     `json:"summary"`
}

// Client calls the creation service over HTTP. It deliberately does not
// retry: a batch that may have partially landed must only be resubmitted by
// an operator who has seen the failure.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client with a transport tuned for service-to-service calls.
func New(baseURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// CreateBatch submits all items for workspaceID in one call and returns the
// per-row results. Any failure of the call itself comes back as a
// *core.TransportError; in that case no row outcomes exist.
func (c *Client) CreateBatch(ctx context.Context, workspaceID string, items []core.SubmissionItem) (*core.BatchResult, error) {
	body, err := json.Marshal(batchRequest{WorkspaceID: workspaceID, Links: items})
	if err != nil {
		return nil, &core.TransportError{Op: "encode request", Err: err}
	}

	url := c.baseURL + "/api/workspaces/" + workspaceID + "/links/batch"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &core.TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.TransportError{Op: "create batch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read a little of the body for the log line; the caller only sees
		// the status.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &core.TransportError{
			Op:  "create batch",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)),
		}
	}

	var decoded batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &core.TransportError{Op: "decode response", Err: err}
	}
	if !decoded.Success {
		return nil, &core.TransportError{Op: "create batch", Err: fmt.Errorf("service reported failure: %s", decoded.Message)}
	}
	for _, r := range decoded.Results {
		if !r.Status.Known() {
			return nil, &core.TransportError{Op: "decode response", Err: fmt.Errorf("unknown row status %q", r.Status)}
		}
	}

	return &core.BatchResult{Results: decoded.Results, Summary: decoded.Summary}, nil
}

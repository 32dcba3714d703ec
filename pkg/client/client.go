package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cuemby/berth/pkg/api"
	"github.com/cuemby/berth/pkg/scheduler"
	"github.com/cuemby/berth/pkg/storage"
	"github.com/cuemby/berth/pkg/types"
)

const requestTimeout = 10 * time.Second

// Client talks to a berth server over its HTTP/JSON API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses back onto the server's sentinels so callers
// can use errors.Is on both sides of the wire
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return storage.ErrNotFound
	case http.StatusServiceUnavailable:
		return scheduler.ErrNoCapacity
	}
	return nil
}

// NewClient creates a client for the server at addr. addr may omit the scheme.
func NewClient(addr string) (*Client, error) {
	if addr == "" {
		return nil, errors.New("server address is required")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address %q: %w", addr, err)
	}

	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{},
	}, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Place asks the server for a node for one plug instance
func (c *Client) Place(workloadID string, dryRun bool) (*types.PlacementDecision, error) {
	var decision types.PlacementDecision
	req := api.PlacementRequest{WorkloadID: workloadID, DryRun: dryRun}
	if err := c.do(http.MethodPost, "/v1/placements", req, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// Summary fetches cluster-wide totals
func (c *Client) Summary() (*types.ClusterSummary, error) {
	var summary types.ClusterSummary
	if err := c.do(http.MethodGet, "/v1/cluster/summary", nil, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListNodes lists all nodes ordered by ID
func (c *Client) ListNodes() ([]*types.WorkerNode, error) {
	var nodes []*types.WorkerNode
	if err := c.do(http.MethodGet, "/v1/nodes", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// GetNode gets a node by ID
func (c *Client) GetNode(id string) (*types.WorkerNode, error) {
	var node types.WorkerNode
	if err := c.do(http.MethodGet, nodePath(id), nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// PutNode registers or replaces a node
func (c *Client) PutNode(node *types.WorkerNode) (*types.WorkerNode, error) {
	var stored types.WorkerNode
	if err := c.do(http.MethodPut, nodePath(node.ID), node, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// RemoveNode deletes a node
func (c *Client) RemoveNode(id string) error {
	return c.do(http.MethodDelete, nodePath(id), nil, nil)
}

// Heartbeat reports a runtime snapshot for a node
func (c *Client) Heartbeat(id string, runtime types.NodeRuntime) (*types.WorkerNode, error) {
	var node types.WorkerNode
	if err := c.do(http.MethodPut, nodePath(id)+"/heartbeat", runtime, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// Drain asks whether a node should be drained
func (c *Client) Drain(id string) (*api.DrainResponse, error) {
	var resp api.DrainResponse
	if err := c.do(http.MethodGet, nodePath(id)+"/drain", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPolicy fetches the active placement policy
func (c *Client) GetPolicy() (*types.PlacementPolicy, error) {
	var policy types.PlacementPolicy
	if err := c.do(http.MethodGet, "/v1/policy", nil, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

// PutPolicy replaces the placement policy
func (c *Client) PutPolicy(policy *types.PlacementPolicy) (*types.PlacementPolicy, error) {
	var stored types.PlacementPolicy
	if err := c.do(http.MethodPut, "/v1/policy", policy, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func nodePath(id string) string {
	return "/v1/nodes/" + url.PathEscape(id)
}

func (c *Client) do(method, path string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e api.ErrorResponse
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

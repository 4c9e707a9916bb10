// Package api is the REST client for the Duckling orchestrator. It covers
// the task, pool, and health endpoints; the push channel lives in
// internal/realtime.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/duckling-ai/duckwatch/internal/core/task"
)

// TaskCreate is the request body for POST /api/tasks.
type TaskCreate struct {
	Description    string        `json:"description"`
	RepoURL        string        `json:"repo_url"`
	Branch         string        `json:"branch,omitempty"`
	TargetBranch   string        `json:"target_branch,omitempty"`
	Mode           task.Mode     `json:"mode,omitempty"`
	Priority       task.Priority `json:"priority,omitempty"`
	Labels         []string      `json:"labels,omitempty"`
	Source         string        `json:"source,omitempty"`
	MaxIterations  int           `json:"max_iterations,omitempty"`
	TimeoutSeconds int           `json:"timeout_seconds,omitempty"`
}

// TaskList is the paginated response of GET /api/tasks.
type TaskList struct {
	Tasks   []task.Task `json:"tasks"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
}

// LogResponse is the full-log fetch of GET /api/tasks/{id}/log.
type LogResponse struct {
	TaskID string      `json:"task_id"`
	Log    string      `json:"log"`
	Status task.Status `json:"status"`
}

// CancelResponse acknowledges DELETE /api/tasks/{id}.
type CancelResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
}

// PoolStats is the warm pool summary of GET /api/pool/stats.
type PoolStats struct {
	Backend        string  `json:"backend"`
	TargetPoolSize int     `json:"target_pool_size"`
	ReadyVMs       int     `json:"ready_vms"`
	ClaimedVMs     int     `json:"claimed_vms"`
	CreatingVMs    int     `json:"creating_vms"`
	ErrorVMs       int     `json:"error_vms"`
	AvgClaimTimeMS float64 `json:"avg_claim_time_ms"`
}

// Health is the system summary of GET /api/health.
type Health struct {
	Status         string     `json:"status"`
	Pool           *PoolStats `json:"pool,omitempty"`
	QueueConnected bool       `json:"queue_connected"`
}

type apiError struct {
	Detail string `json:"detail"`
}

// Client talks to one orchestrator instance.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a client for the given base URL (scheme://host[:port],
// no trailing slash required).
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// BaseURL returns the configured orchestrator address.
func (c *Client) BaseURL() string { return c.baseURL }

// ChannelURL returns the push channel address for one task, derived from
// the base URL with the scheme switched to websocket.
func (c *Client) ChannelURL(taskID string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/tasks/" + url.PathEscape(taskID)
}

// ListTasks fetches one page of tasks.
func (c *Client) ListTasks(ctx context.Context, page, perPage int) (TaskList, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))

	var list TaskList
	err := c.doJSON(ctx, http.MethodGet, "/api/tasks?"+query.Encode(), nil, &list)
	return list, err
}

// GetTask fetches a single task snapshot.
func (c *Client) GetTask(ctx context.Context, id string) (task.Task, error) {
	var t task.Task
	if strings.TrimSpace(id) == "" {
		return t, fmt.Errorf("task id is required")
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &t)
	return t, err
}

// GetLog fetches the full execution log for a task.
func (c *Client) GetLog(ctx context.Context, id string) (LogResponse, error) {
	var lr LogResponse
	if strings.TrimSpace(id) == "" {
		return lr, fmt.Errorf("task id is required")
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/log", nil, &lr)
	return lr, err
}

// CreateTask submits a new task and returns the initial snapshot.
func (c *Client) CreateTask(ctx context.Context, body TaskCreate) (task.Task, error) {
	var t task.Task
	err := c.doJSON(ctx, http.MethodPost, "/api/tasks", body, &t)
	return t, err
}

// CancelTask requests cancellation of a running or pending task.
func (c *Client) CancelTask(ctx context.Context, id string) (CancelResponse, error) {
	var cr CancelResponse
	if strings.TrimSpace(id) == "" {
		return cr, fmt.Errorf("task id is required")
	}
	err := c.doJSON(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, &cr)
	return cr, err
}

// PoolStats fetches the warm pool summary.
func (c *Client) PoolStats(ctx context.Context) (PoolStats, error) {
	var ps PoolStats
	err := c.doJSON(ctx, http.MethodGet, "/api/pool/stats", nil, &ps)
	return ps, err
}

// Health fetches the system health summary.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &h)
	return h, err
}

// doJSON performs one request and decodes the JSON response into out.
// Error responses are reported with the orchestrator's detail message
// when one is present.
func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		blob, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		blob, _ := io.ReadAll(resp.Body)
		var detail apiError
		if json.Unmarshal(blob, &detail) == nil && strings.TrimSpace(detail.Detail) != "" {
			return fmt.Errorf("%s %s: %s", method, path, detail.Detail)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

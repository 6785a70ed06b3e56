package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fentz26/tempo/internal/api"
	"github.com/fentz26/tempo/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// APIError is a non-2xx reply from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// Client wraps HTTP calls to the Tempo API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout. An empty token sends no
// Authorization header.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health fetches /health. Any reply at all means the daemon is up.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var h api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// ListProjects fetches active projects.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := c.do(ctx, http.MethodGet, "/projects", nil, &projects)
	return projects, err
}

// ListTasks fetches a project's tasks with their live elapsed seconds.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]api.TaskView, error) {
	var tasks []api.TaskView
	err := c.do(ctx, http.MethodGet, "/projects/"+url.PathEscape(projectID)+"/tasks", nil, &tasks)
	return tasks, err
}

func (c *Client) CreateTask(ctx context.Context, projectID, title string) (*api.TaskView, error) {
	var task api.TaskView
	in := api.TaskInput{ProjectID: projectID, Title: title}
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) StartTask(ctx context.Context, id string) (*api.TimerResult, error) {
	return c.timer(ctx, id, "start")
}

func (c *Client) StopTask(ctx context.Context, id string) (*api.TimerResult, error) {
	return c.timer(ctx, id, "stop")
}

func (c *Client) timer(ctx context.Context, id, action string) (*api.TimerResult, error) {
	var res api.TimerResult
	if err := c.do(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/"+action, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Elapsed fetches the daemon's evaluation of a task's timer.
func (c *Client) Elapsed(ctx context.Context, id string) (*api.ElapsedView, error) {
	var v api.ElapsedView
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id)+"/elapsed", nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) Sessions(ctx context.Context, taskID string) ([]models.TimeSession, error) {
	var sessions []models.TimeSession
	err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(taskID)+"/sessions", nil, &sessions)
	return sessions, err
}

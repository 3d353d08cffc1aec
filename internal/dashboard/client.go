package dashboard

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

	"brainzzz/internal/model"
)

// TasksClient drives the task registry of a running dashboard server.
// Safe for concurrent use.
type TasksClient struct {
	baseURL string
	hc      *http.Client
}

func NewTasksClient(baseURL string, hc *http.Client) (*TasksClient, error) {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		return nil, errors.New("dashboard base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("dashboard base url: %w", err)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &TasksClient{baseURL: base, hc: hc}, nil
}

func (c *TasksClient) List(ctx context.Context) ([]model.TaskInfo, error) {
	var out struct {
		Tasks []model.TaskInfo `json:"tasks"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (c *TasksClient) Add(ctx context.Context, task model.TaskInfo) (model.TaskInfo, error) {
	var out model.TaskInfo
	err := c.call(ctx, http.MethodPost, "/api/tasks", task, &out)
	return out, err
}

func (c *TasksClient) Update(ctx context.Context, task model.TaskInfo) (model.TaskInfo, error) {
	if task.ID == "" {
		return model.TaskInfo{}, errors.New("task id is required")
	}
	var out model.TaskInfo
	err := c.call(ctx, http.MethodPut, "/api/tasks/"+task.ID, task, &out)
	return out, err
}

func (c *TasksClient) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("task id is required")
	}
	return c.call(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

func (c *TasksClient) call(ctx context.Context, method, path string, in, out any) error {
	var payload io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		var apiBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiBody) == nil && apiBody.Error != "" {
			msg = apiBody.Error
		}
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

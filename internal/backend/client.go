// Package backend is the REST client for the simulation API.
package backend

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

const (
	DefaultBaseURL = "http://127.0.0.1:8000"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

var (
	// ErrNotFound marks a 404 from the backend; match with errors.Is.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks a request rejected before it reaches the
	// backend.
	ErrInvalidArgument = errors.New("invalid argument")
)

// APIError reports a non-2xx backend response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// ControlAck is the backend's acknowledgement of a control command. Status
// "warning" means the command was accepted but could not be forwarded to
// the simulation.
type ControlAck struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// SystemStatus describes backend health and its downstream connections.
type SystemStatus struct {
	Status      string          `json:"status"`
	Connections map[string]bool `json:"connections"`
	Timestamp   string          `json:"timestamp"`
}

type Options struct {
	// BaseURL of the backend, without a trailing slash.
	BaseURL string
	// Timeout per request; DefaultTimeout when zero.
	Timeout time.Duration
	// HTTPClient overrides the default client. Timeout is ignored then.
	HTTPClient *http.Client
}

// Client talks to the simulation backend. Safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend base url: %w", err)
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, hc: hc}, nil
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/health", nil)
	return err
}

// Status fetches GET /api/status.
func (c *Client) Status(ctx context.Context) (SystemStatus, error) {
	var out SystemStatus
	err := c.getJSON(ctx, "/api/status", &out)
	return out, err
}

// Population fetches GET /api/population. A positive limit caps the
// returned summaries; zero leaves the server default.
func (c *Client) Population(ctx context.Context, limit int) ([]model.BrainSummary, error) {
	path := "/api/population"
	if limit > 0 {
		path = fmt.Sprintf("%s?limit=%d", path, limit)
	}
	var out []model.BrainSummary
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot fetches GET /api/population/{id} and validates the payload
// before handing it over. Validation failures carry a shape description of
// the offending payload for diagnosis.
func (c *Client) Snapshot(ctx context.Context, id int) (*model.BrainSnapshot, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: brain id must be positive, got %d", ErrInvalidArgument, id)
	}
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/population/%d", id), nil)
	if err != nil {
		return nil, err
	}
	snap, err := model.DecodeSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("brain %d payload %s: %w", id, model.PayloadShape(body), err)
	}
	return snap, nil
}

// Stats fetches GET /api/stats.
func (c *Client) Stats(ctx context.Context) (model.PopulationStats, error) {
	var out model.PopulationStats
	err := c.getJSON(ctx, "/api/stats", &out)
	return out, err
}

// Evolve posts /api/evolve. Parameter ranges are checked locally first,
// mirroring the backend's own limits.
func (c *Client) Evolve(ctx context.Context, req model.EvolveRequest) (ControlAck, error) {
	if req.MutationRate < 0 || req.MutationRate > 1 {
		return ControlAck{}, fmt.Errorf("%w: mutation rate must be within [0, 1], got %g", ErrInvalidArgument, req.MutationRate)
	}
	if req.PopulationSize < 1 || req.PopulationSize > 1000 {
		return ControlAck{}, fmt.Errorf("%w: population size must be within [1, 1000], got %d", ErrInvalidArgument, req.PopulationSize)
	}
	var out ControlAck
	err := c.postJSON(ctx, "/api/evolve", req, &out)
	return out, err
}

// Evaluate posts /api/evaluate.
func (c *Client) Evaluate(ctx context.Context) (ControlAck, error) {
	var out ControlAck
	err := c.postJSON(ctx, "/api/evaluate", nil, &out)
	return out, err
}

// ResizePopulation posts /api/population/resize.
func (c *Client) ResizePopulation(ctx context.Context, req model.EvolveRequest) (ControlAck, error) {
	if req.PopulationSize < 1 || req.PopulationSize > 1000 {
		return ControlAck{}, fmt.Errorf("%w: population size must be within [1, 1000], got %d", ErrInvalidArgument, req.PopulationSize)
	}
	var out ControlAck
	err := c.postJSON(ctx, "/api/population/resize", req, &out)
	return out, err
}

// Pause posts /api/control/pause.
func (c *Client) Pause(ctx context.Context) (ControlAck, error) {
	var out ControlAck
	err := c.postJSON(ctx, "/api/control/pause", nil, &out)
	return out, err
}

// Resume posts /api/control/resume.
func (c *Client) Resume(ctx context.Context) (ControlAck, error) {
	var out ControlAck
	err := c.postJSON(ctx, "/api/control/resume", nil, &out)
	return out, err
}

// RequestSnapshot posts /api/control/snapshot, asking the backend to
// persist a population snapshot on its side.
func (c *Client) RequestSnapshot(ctx context.Context) (ControlAck, error) {
	var out ControlAck
	err := c.postJSON(ctx, "/api/control/snapshot", nil, &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var payload io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("POST %s: encode request: %w", path, err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = strings.NewReader("{}")
	}
	body, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("POST %s: decode response: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

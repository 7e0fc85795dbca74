package mynest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mynest/mediasniff/internal/media"
)

// PluginName identifies mediasniff as the source of submitted tasks.
const PluginName = "mediasniff"

// maxResponseSize bounds how much of a response is read.
const maxResponseSize = 1 << 20

// Task is a download task as reported by MyNest.
type Task struct {
	ID          uint       `json:"id"`
	URL         string     `json:"url"`
	Filename    string     `json:"filename,omitempty"`
	Status      string     `json:"status"`
	PluginName  string     `json:"plugin_name,omitempty"`
	Category    string     `json:"category,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// DownloadRequest is the body of a submission.
type DownloadRequest struct {
	URL      string `json:"url"`
	Filename string `json:"filename,omitempty"`
	Plugin   string `json:"plugin"`
	Category string `json:"category,omitempty"`
}

// DownloadResponse is MyNest's answer to a submission.
type DownloadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Task    *Task  `json:"task,omitempty"`
}

// Health is the answer of the health endpoint.
type Health struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

// TaskQuery filters ListTasks.
type TaskQuery struct {
	Page       int
	PageSize   int
	Statuses   []string
	PluginName string
}

type taskList struct {
	Success bool   `json:"success"`
	Data    []Task `json:"data"`
	Tasks   []Task `json:"tasks"`
	Error   string `json:"error,omitempty"`
}

// Client talks to one MyNest instance.
type Client struct {
	baseURL  string
	token    string
	category string
	http     *http.Client
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithCategory sets the category attached to submissions.
func WithCategory(category string) Option {
	return func(c *Client) {
		c.category = category
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the MyNest API at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if u, err := url.Parse(baseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotConfigured, baseURL)
	}

	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Submit queues rawURL for download.
func (c *Client) Submit(ctx context.Context, rawURL string) (*Task, error) {
	return c.SubmitDownload(ctx, DownloadRequest{URL: rawURL})
}

// SubmitDownload queues a download. Plugin and Category default to
// PluginName and the client's category.
func (c *Client) SubmitDownload(ctx context.Context, req DownloadRequest) (*Task, error) {
	if !media.IsValidResourceURL(req.URL, nil) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, req.URL)
	}
	if req.Plugin == "" {
		req.Plugin = PluginName
	}
	if req.Category == "" {
		req.Category = c.category
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var resp DownloadResponse
	status, err := c.do(ctx, http.MethodPost, "/api/v1/download", bytes.NewReader(body), &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK || !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	c.logger.Info("download submitted", "url", req.URL, "message", resp.Message)
	return resp.Task, nil
}

// ListTasks returns tasks matching q, newest first.
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]Task, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.PluginName != "" {
		params.Set("plugin_name", q.PluginName)
	}
	for _, s := range q.Statuses {
		params.Add("status", s)
	}

	path := "/api/v1/tasks"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp taskList
	status, err := c.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrRejected, firstNonEmpty(resp.Error, http.StatusText(status)))
	}
	if resp.Data != nil {
		return resp.Data, nil
	}
	return resp.Tasks, nil
}

// Health checks the connection to MyNest.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	status, err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrRejected, http.StatusText(status))
	}
	if h.Name == "" {
		h.Name = "MyNest"
	}
	return &h, nil
}

// do sends a request and decodes the JSON answer into out, whatever the
// status. The status is returned for the caller to judge.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach mynest: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil && resp.StatusCode == http.StatusOK {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

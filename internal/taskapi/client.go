// Package taskapi is the HTTP client for the taskboard REST API.
package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/s1natex/taskboard-GO/internal/tasks"
)

type Client struct {
	baseURL string
	http    *http.Client
	apiKey  string
	token   string
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Client)

func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

func WithBearerToken(tok string) Option { return func(c *Client) { c.token = tok } }

// WithTimeout bounds each call; zero leaves only the caller's context.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithLimiter paces outgoing calls. Every edit is a round trip, so a fast
// typist can otherwise outrun a rate-limited server.
func WithLimiter(l *rate.Limiter) Option { return func(c *Client) { c.limiter = l } }

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u.String(),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type createTaskRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createBoardResponse struct {
	ID string `json:"id"`
}

func (c *Client) CreateBoard(ctx context.Context) (string, error) {
	var out createBoardResponse
	if err := c.do(ctx, http.MethodPost, "/boards", nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) Create(ctx context.Context, boardID, title, content string) (tasks.Task, error) {
	var out tasks.Task
	err := c.do(ctx, http.MethodPost, tasksPath(boardID), createTaskRequest{Title: title, Content: content}, &out)
	return out, err
}

func (c *Client) List(ctx context.Context, boardID string) ([]tasks.Task, error) {
	var out []tasks.Task
	err := c.do(ctx, http.MethodGet, tasksPath(boardID), nil, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, boardID string, taskID int64) (tasks.Task, error) {
	var out tasks.Task
	err := c.do(ctx, http.MethodGet, taskPath(boardID, taskID), nil, &out)
	return out, err
}

// Update sends a partial update and returns the task as the store acknowledged it.
func (c *Client) Update(ctx context.Context, boardID string, taskID int64, p tasks.Patch) (tasks.Task, error) {
	var out tasks.Task
	err := c.do(ctx, http.MethodPatch, taskPath(boardID, taskID), p, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, boardID string, taskID int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(boardID, taskID), nil, nil)
}

func tasksPath(boardID string) string {
	return "/boards/" + url.PathEscape(boardID) + "/tasks"
}

func taskPath(boardID string, taskID int64) string {
	return tasksPath(boardID) + "/" + strconv.FormatInt(taskID, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("taskapi_call",
		slog.String("req_id", reqID),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// FieldError is one validation problem reported by the server.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int          `json:"-"`
	Code    string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("taskapi: %d %s", e.Status, e.Code)
	if len(e.Details) > 0 {
		parts := make([]string, 0, len(e.Details))
		for _, d := range e.Details {
			parts = append(parts, d.Field+": "+d.Message)
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
	}
	return apiErr
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

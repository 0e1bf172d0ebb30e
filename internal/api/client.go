// Package api talks to the task REST API and keeps the app usable when it cannot.
//
// Client is a thin JSON wrapper over the Django-style routes (/tasks/, /tasks/{id}/).
// Service layers the fallback policy on top: failures are logged and answered from a
// locally held task list instead of being surfaced to the user.
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

	"tasklist/internal/model"
)

// ListOptions filters the task list.
type ListOptions struct {
	Status model.Status
}

// Source is the task backend the Service falls back from.
type Source interface {
	List(ctx context.Context, opts ListOptions) ([]model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	Create(ctx context.Context, in model.TaskInput) (model.Task, error)
	Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id int64) error
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientWithHTTP uses hc as-is (tests inject httptest clients).
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	c := NewClient(baseURL, 0)
	c.http = hc
	return c
}

func (c *Client) List(ctx context.Context, opts ListOptions) ([]model.Task, error) {
	path := "/tasks/"
	if opts.Status != "" {
		path += "?" + url.Values{"status": {string(opts.Status)}}.Encode()
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeTaskList(raw)
}

func (c *Client) Get(ctx context.Context, id int64) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, &t)
	return t, err
}

func (c *Client) Create(ctx context.Context, in model.TaskInput) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPost, "/tasks/", in, &t)
	return t, err
}

// Update applies a partial update (PATCH).
func (c *Client) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPatch, taskPath(id), patch, &t)
	return t, err
}

// Replace overwrites every writable field (PUT).
func (c *Client) Replace(ctx context.Context, id int64, in model.TaskInput) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPut, taskPath(id), in, &t)
	return t, err
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) BulkDelete(ctx context.Context, ids []int64) error {
	body := map[string][]int64{"ids": ids}
	return c.do(ctx, http.MethodPost, "/tasks/bulk_delete/", body, nil)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10) + "/"
}

func (c *Client) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

const maxBodyBytes = 8 << 20

// decodeTaskList accepts a bare JSON array or a paginated {"results": [...]} page.
func decodeTaskList(raw json.RawMessage) ([]model.Task, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []model.Task{}, nil
	}
	if raw[0] == '{' {
		var page struct {
			Results []model.Task `json:"results"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("decode task page: %w", err)
		}
		if page.Results == nil {
			page.Results = []model.Task{}
		}
		return page.Results, nil
	}
	var tasks []model.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

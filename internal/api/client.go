package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"taskdeck/internal/models"
)

// TokenSource provides the current session token. An empty token means the
// request goes out unauthenticated and the server is expected to reject it.
type TokenSource interface {
	Token() string
}

// Client talks to the remote task service over HTTP.
type Client struct {
	baseURL string
	tokens  TokenSource
	log     *slog.Logger
	client  *http.Client
}

// NewClient creates a gateway client for the given server base URL.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		log:     log,
		client:  &http.Client{Timeout: timeout},
	}
}

type taskJSON struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Status      string  `json:"status"`
	CreatedAt   *string `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

type serverError struct {
	Message string `json:"message"`
}

// ---- Auth

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		// The auth endpoint answers 401 for bad credentials, which is not a
		// session-expiry condition.
		if errors.Is(err, ErrUnauthorized) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login: empty token in response")
	}
	return resp.Token, nil
}

func (c *Client) Signup(ctx context.Context, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
}

// ---- Tasks

func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var raw []taskJSON
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &raw); err != nil {
		return nil, err
	}

	out := make([]models.Task, 0, len(raw))
	for _, it := range raw {
		task, err := taskFromJSON(it)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", it.ID, err)
		}
		out = append(out, task)
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, draft models.TaskDraft) (models.Task, error) {
	body := map[string]string{
		"title":       draft.Title,
		"description": draft.Description,
	}
	if strings.TrimSpace(draft.DueDate) != "" {
		due, err := normalizeDueDate(draft.DueDate)
		if err != nil {
			return models.Task{}, err
		}
		body["due_date"] = due
	}

	var raw taskJSON
	if err := c.do(ctx, http.MethodPost, "/api/tasks", body, &raw); err != nil {
		return models.Task{}, err
	}
	return taskFromJSON(raw)
}

func (c *Client) ToggleTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/tasks/%d/toggle", id), nil, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, nil)
}

// ---- helpers

// do performs one JSON request against the server, attaching the session
// token when present, and maps HTTP status codes onto the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := mapStatus(resp.StatusCode, respBody)
		c.log.Warn("request rejected",
			"method", method, "path", path,
			"status", resp.StatusCode, "error", err)
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func mapStatus(code int, body []byte) error {
	switch code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrEmailTaken
	case http.StatusBadRequest:
		var se serverError
		if json.Unmarshal(body, &se) == nil && se.Message != "" {
			return fmt.Errorf("%w: %s", ErrValidation, se.Message)
		}
		return ErrValidation
	default:
		var se serverError
		if json.Unmarshal(body, &se) == nil && se.Message != "" {
			return fmt.Errorf("server error (%d): %s", code, se.Message)
		}
		return fmt.Errorf("server error (%d)", code)
	}
}

// serverTimeLayouts covers the formats the service emits: RFC3339 and naive
// ISO timestamps without an offset.
var serverTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseServerTime(s string) (time.Time, error) {
	for _, layout := range serverTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// draftDueLayouts are the due-date formats accepted from the form.
var draftDueLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// normalizeDueDate converts a form due date into the wire format.
func normalizeDueDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range draftDueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.Format("2006-01-02T15:04:05"), nil
		}
	}
	return "", fmt.Errorf("%w: due date %q (use YYYY-MM-DD or YYYY-MM-DD HH:MM)", ErrValidation, s)
}

func taskFromJSON(x taskJSON) (models.Task, error) {
	t := models.Task{
		ID:     x.ID,
		Title:  x.Title,
		Status: models.TaskStatus(x.Status),
	}
	if x.Description != nil {
		t.Description = *x.Description
	}
	if x.DueDate != nil && *x.DueDate != "" {
		due, err := parseServerTime(*x.DueDate)
		if err != nil {
			return models.Task{}, fmt.Errorf("due_date: %w", err)
		}
		t.DueDate = &due
	}
	if x.CreatedAt != nil && *x.CreatedAt != "" {
		created, err := parseServerTime(*x.CreatedAt)
		if err != nil {
			return models.Task{}, fmt.Errorf("created_at: %w", err)
		}
		t.CreatedAt = created
	}
	if x.UpdatedAt != nil && *x.UpdatedAt != "" {
		updated, err := parseServerTime(*x.UpdatedAt)
		if err != nil {
			return models.Task{}, fmt.Errorf("updated_at: %w", err)
		}
		t.UpdatedAt = updated
	}
	return t, nil
}

// Package client talks to the sparklab REST API.
package client

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

	"sparklab/internal/app"
	"sparklab/internal/domain"
	"sparklab/internal/telemetry"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithToken sets the source of the bearer token sent with each request.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		token:   func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do sends body as JSON and decodes the envelope's data into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !env.Success {
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) Register(ctx context.Context, email, userName, password, id string, age int) (app.AuthResult, error) {
	var out app.AuthResult
	err := c.do(ctx, http.MethodPost, "/api/v1/users/register", map[string]any{
		"email": email, "userName": userName, "password": password, "id": id, "age": age,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, id, password string) (app.AuthResult, error) {
	var out app.AuthResult
	err := c.do(ctx, http.MethodPost, "/api/v1/users/login", map[string]any{"id": id, "password": password}, &out)
	return out, err
}

func (c *Client) Students(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := c.do(ctx, http.MethodGet, "/api/v1/users/get-all-students", nil, &out)
	return out, err
}

func (c *Client) Activities(ctx context.Context) ([]domain.Activity, error) {
	var out []domain.Activity
	err := c.do(ctx, http.MethodGet, "/api/v1/activities", nil, &out)
	return out, err
}

func (c *Client) Activity(ctx context.Context, id string) (domain.Activity, error) {
	var out domain.Activity
	err := c.do(ctx, http.MethodGet, "/api/v1/activities/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) Progress(ctx context.Context, activityID, userID string) (domain.ActivitySession, error) {
	var out domain.ActivitySession
	err := c.do(ctx, http.MethodGet, activityPath(activityID, "progress", userID), nil, &out)
	return out, err
}

func (c *Client) Advance(ctx context.Context, activityID, userID, section string) (domain.ActivitySession, error) {
	var out domain.ActivitySession
	err := c.do(ctx, http.MethodPut, activityPath(activityID, "progress", userID), map[string]string{"currentSection": section}, &out)
	return out, err
}

// CompleteSection posts a section completion with an optional payload.
func (c *Client) CompleteSection(ctx context.Context, activityID, section, userID string, data any) (domain.CompletionResult, error) {
	var out domain.CompletionResult
	err := c.do(ctx, http.MethodPost, activityPath(activityID, section, userID), map[string]any{"data": data}, &out)
	return out, err
}

// SendAction implements telemetry.Sender.
func (c *Client) SendAction(ctx context.Context, activityID, userID string, ev telemetry.Event) error {
	return c.do(ctx, http.MethodPost, activityPath(activityID, "action", userID), ev, nil)
}

func (c *Client) Quiz(ctx context.Context, name string) (domain.Quiz, error) {
	var out domain.Quiz
	err := c.do(ctx, http.MethodGet, "/api/v1/quizzes/"+url.PathEscape(name), nil, &out)
	return out, err
}

func (c *Client) SubmitQuiz(ctx context.Context, name string, sub app.Submission) (app.SubmitOutcome, error) {
	var out app.SubmitOutcome
	body := map[string]any{
		"user":     sub.User,
		"userId":   sub.UserID,
		"username": sub.Username,
		"email":    sub.Email,
		"answers":  sub.Answers,
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/quizzes/"+url.PathEscape(name)+"/submit", body, &out)
	return out, err
}

func (c *Client) Results(ctx context.Context, searchText string) ([]domain.QuizResult, error) {
	path := "/api/v1/quizzes/get-all-quiz-results"
	if searchText != "" {
		path += "?searchText=" + url.QueryEscape(searchText)
	}
	var out []domain.QuizResult
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func activityPath(activityID, segment, userID string) string {
	return "/api/v1/activities/" + url.PathEscape(activityID) + "/" + url.PathEscape(segment) + "/" + url.PathEscape(userID)
}

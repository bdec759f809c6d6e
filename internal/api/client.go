// Package api talks to the remote task service. Client is the task gateway
// the store persists through; AuthClient covers sign in and registration.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/tgienger/stmc/internal/models"
)

const (
	opList   = "tasks.list"
	opCreate = "tasks.create"
	opUpdate = "tasks.update"
	opDelete = "tasks.delete"
)

var fallbacks = map[string]string{
	opList:   "Failed to fetch tasks",
	opCreate: "Failed to create task",
	opUpdate: "Failed to update task",
	opDelete: "Failed to delete task",
}

// Client is the remote task gateway
type Client struct {
	baseURL string
	tokens  oauth2.TokenSource
	t       *transport
}

// NewClient creates a gateway for the tasks collection at baseURL
// (for example http://localhost:5000/api/tasks). Every call asks tokens
// for the bearer credential first.
func NewClient(baseURL string, tokens oauth2.TokenSource, opts ...Option) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		t:       newTransport(opts),
	}
}

// List fetches every task owned by the current identity
func (c *Client) List(ctx context.Context) ([]models.Task, error) {
	var wire []wireTask
	if err := c.call(ctx, opList, http.MethodGet, "", nil, &wire); err != nil {
		return nil, err
	}
	out := make([]models.Task, 0, len(wire))
	for _, w := range wire {
		t, err := normalizeTask(w)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opList, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Create stores a new task and returns it as the service recorded it
func (c *Client) Create(ctx context.Context, draft models.TaskDraft) (models.Task, error) {
	var w wireTask
	if err := c.call(ctx, opCreate, http.MethodPost, "", encodeDraft(draft), &w); err != nil {
		return models.Task{}, err
	}
	t, err := normalizeTask(w)
	if err != nil {
		return models.Task{}, fmt.Errorf("%s: %w", opCreate, err)
	}
	return t, nil
}

// Update sends the fields set in patch and returns the updated task
func (c *Client) Update(ctx context.Context, id string, patch models.TaskPatch) (models.Task, error) {
	var w wireTask
	if err := c.call(ctx, opUpdate, http.MethodPut, "/"+url.PathEscape(id), encodePatch(patch), &w); err != nil {
		return models.Task{}, err
	}
	t, err := normalizeTask(w)
	if err != nil {
		return models.Task{}, fmt.Errorf("%s: %w", opUpdate, err)
	}
	return t, nil
}

// Delete removes a task
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, opDelete, http.MethodDelete, "/"+url.PathEscape(id), nil, nil)
}

func (c *Client) call(ctx context.Context, op, method, path string, body, out any) error {
	tok, err := c.credential()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	payload, err := c.t.send(ctx, request{
		op:       op,
		fallback: fallbacks[op],
		method:   method,
		url:      c.baseURL + path,
		body:     body,
		token:    tok,
	})
	if err != nil {
		return err
	}
	return decodeData(op, fallbacks[op], payload, out)
}

func (c *Client) credential() (*oauth2.Token, error) {
	if c.tokens == nil {
		return nil, ErrAuthRequired
	}
	tok, err := c.tokens.Token()
	if err != nil {
		if errors.Is(err, ErrAuthRequired) {
			return nil, err
		}
		return nil, errors.Join(ErrAuthRequired, err)
	}
	if tok == nil || !tok.Valid() {
		return nil, ErrAuthRequired
	}
	return tok, nil
}

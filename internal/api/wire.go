package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tgienger/stmc/internal/models"
)

// envelope is the shape of every task service reply
type envelope struct {
	Success *bool                  `json:"success"`
	Data    sonic.NoCopyRawMessage `json:"data"`
	Message string                 `json:"message"`
}

// wireTask is a task as the service stores it. The primary key arrives as
// "_id"; some deployments also send "id".
type wireTask struct {
	MongoID     string  `json:"_id"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Completed   bool    `json:"completed"`
	Priority    string  `json:"priority"`
	Deadline    *string `json:"deadline"`
	Category    string  `json:"category"`
	CreatedAt   string  `json:"createdAt"`
}

// wireDraft is the create request body. id and createdAt are assigned by
// the service and never sent.
type wireDraft struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Completed   bool            `json:"completed"`
	Priority    models.Priority `json:"priority"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// decodeData unwraps the envelope and decodes its data member into out.
// out may be nil when the caller only cares about success.
func decodeData(op, fallback string, payload []byte, out any) error {
	if len(payload) == 0 {
		if out != nil {
			return fmt.Errorf("%s: empty body: %w", op, ErrMalformedResponse)
		}
		return nil
	}
	var env envelope
	if err := sonic.ConfigStd.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = fallback
		}
		return &RemoteError{Op: op, Message: msg}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%s: missing data: %w", op, ErrMalformedResponse)
	}
	if err := sonic.ConfigStd.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}

// normalizeTask is the single place the wire shape is turned into a
// models.Task.
func normalizeTask(w wireTask) (models.Task, error) {
	t := models.Task{
		ID:          w.MongoID,
		Title:       w.Title,
		Description: w.Description,
		Completed:   w.Completed,
		Priority:    models.Priority(strings.ToLower(w.Priority)),
		Category:    w.Category,
	}
	if t.ID == "" {
		t.ID = w.ID
	}
	if t.ID == "" {
		return models.Task{}, fmt.Errorf("task without id: %w", ErrMalformedResponse)
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}

	if w.CreatedAt != "" {
		created, err := parseTimestamp(w.CreatedAt)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %s createdAt: %w", t.ID, err)
		}
		t.CreatedAt = created
	}
	if w.Deadline != nil && *w.Deadline != "" {
		deadline, err := parseTimestamp(*w.Deadline)
		if err != nil {
			return models.Task{}, fmt.Errorf("task %s deadline: %w", t.ID, err)
		}
		t.Deadline = &deadline
	}
	return t, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q: %w", s, ErrMalformedResponse)
}

func encodeDraft(d models.TaskDraft) wireDraft {
	d = d.Normalized()
	return wireDraft{
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		Priority:    d.Priority,
		Deadline:    d.Deadline,
		Category:    d.Category,
	}
}

// encodePatch sends only the fields the patch sets, text trimmed as in
// TaskDraft.Normalized. A cleared deadline is sent as an explicit null.
func encodePatch(p models.TaskPatch) map[string]any {
	body := make(map[string]any)
	if p.Title != nil {
		body["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		body["description"] = strings.TrimSpace(*p.Description)
	}
	if p.Completed != nil {
		body["completed"] = *p.Completed
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	if p.Category != nil {
		body["category"] = strings.TrimSpace(*p.Category)
	}
	switch {
	case p.Deadline != nil:
		body["deadline"] = p.Deadline.Format(time.RFC3339Nano)
	case p.ClearDeadline:
		body["deadline"] = nil
	}
	return body
}

package devserver

import (
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type task struct {
	ID          string     `json:"_id"`
	User        string     `json:"user"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    string     `json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	Category    string     `json:"category"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// taskInput covers both create and update bodies. hasDeadline tells an
// explicit null apart from an absent field.
type taskInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
	Priority    *string `json:"priority"`
	Deadline    *string `json:"deadline"`
	Category    *string `json:"category"`

	hasDeadline bool
}

func bindTask(c echo.Context) (taskInput, error) {
	var in taskInput
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return in, err
	}
	if len(body) == 0 {
		return in, nil
	}
	var present map[string]any
	if err := sonic.ConfigStd.Unmarshal(body, &present); err != nil {
		return in, fail(http.StatusBadRequest, "Invalid JSON body")
	}
	if err := sonic.ConfigStd.Unmarshal(body, &in); err != nil {
		return in, fail(http.StatusBadRequest, "Invalid task fields")
	}
	_, in.hasDeadline = present["deadline"]
	return in, nil
}

func validPriority(p string) bool {
	switch p {
	case "low", "medium", "high":
		return true
	}
	return false
}

func (in taskInput) deadline() (*time.Time, error) {
	if in.Deadline == nil || *in.Deadline == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, *in.Deadline)
	if err != nil {
		return nil, fail(http.StatusBadRequest, "Invalid deadline")
	}
	return &ts, nil
}

func (in taskInput) apply(t *task) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return fail(http.StatusBadRequest, "Please add a title")
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	if in.Priority != nil {
		if !validPriority(*in.Priority) {
			return fail(http.StatusBadRequest, "Priority must be low, medium or high")
		}
		t.Priority = *in.Priority
	}
	if in.Category != nil {
		t.Category = strings.TrimSpace(*in.Category)
	}
	if in.hasDeadline {
		deadline, err := in.deadline()
		if err != nil {
			return err
		}
		t.Deadline = deadline
	}
	return nil
}

func (s *Server) listTasks(c echo.Context) error {
	owner := c.Get(userKey).(*user)
	s.mu.RLock()
	out := make([]task, 0, len(s.tasks[owner.ID]))
	for _, t := range s.tasks[owner.ID] {
		out = append(out, *t)
	}
	s.mu.RUnlock()
	return ok(c, http.StatusOK, out)
}

func (s *Server) createTask(c echo.Context) error {
	owner := c.Get(userKey).(*user)
	in, err := bindTask(c)
	if err != nil {
		return err
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return fail(http.StatusBadRequest, "Please add a title")
	}
	now := s.now().UTC()
	t := &task{
		ID:        uuid.NewString(),
		User:      owner.ID,
		Priority:  "medium",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := in.apply(t); err != nil {
		return err
	}

	s.mu.Lock()
	s.tasks[owner.ID] = append(s.tasks[owner.ID], t)
	created := *t
	s.mu.Unlock()

	s.log.WithField("task_id", t.ID).Debug("task created")
	return ok(c, http.StatusCreated, created)
}

func (s *Server) getTask(c echo.Context) error {
	owner := c.Get(userKey).(*user)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.find(owner.ID, c.Param("id"))
	if t == nil {
		return fail(http.StatusNotFound, "Task not found")
	}
	return ok(c, http.StatusOK, *t)
}

func (s *Server) updateTask(c echo.Context) error {
	owner := c.Get(userKey).(*user)
	in, err := bindTask(c)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.find(owner.ID, c.Param("id"))
	if t == nil {
		return fail(http.StatusNotFound, "Task not found")
	}
	next := *t
	if err := in.apply(&next); err != nil {
		return err
	}
	next.UpdatedAt = s.now().UTC()
	*t = next
	return ok(c, http.StatusOK, next)
}

func (s *Server) deleteTask(c echo.Context) error {
	owner := c.Get(userKey).(*user)
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.tasks[owner.ID]
	i := slices.IndexFunc(list, func(t *task) bool { return t.ID == id })
	if i < 0 {
		return fail(http.StatusNotFound, "Task not found")
	}
	s.tasks[owner.ID] = slices.Delete(list, i, i+1)
	return ok(c, http.StatusOK, map[string]string{"id": id})
}

// find must be called with s.mu held
func (s *Server) find(owner, id string) *task {
	for _, t := range s.tasks[owner] {
		if t.ID == id {
			return t
		}
	}
	return nil
}

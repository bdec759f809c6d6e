package models

import (
	"errors"
	"strings"
	"time"
)

// Priority is the importance of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank orders priorities: high=3, medium=2, low=1, anything else 0
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// ParsePriority accepts a priority name in any case
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// Task represents a single task owned by the signed in user
type Task struct {
	ID          string
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	Deadline    *time.Time // nil when the task has no deadline
	Category    string
	CreatedAt   time.Time
}

// User is the identity the remote service knows the client by
type User struct {
	ID    string
	Email string
}

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidPriority = errors.New("priority must be low, medium or high")
)

// TaskDraft holds the fields of a task that has not been created yet.
// The remote store assigns ID and CreatedAt.
type TaskDraft struct {
	Title       string
	Description string
	Completed   bool
	Priority    Priority
	Deadline    *time.Time
	Category    string
}

// Normalized trims the text fields and defaults an empty priority to medium
func (d TaskDraft) Normalized() TaskDraft {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	return d
}

// Validate rejects drafts with a blank title or an unknown priority
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// TaskPatch is a partial update. Nil fields are left untouched by the
// remote store; ClearDeadline removes an existing deadline.
type TaskPatch struct {
	Title         *string
	Description   *string
	Completed     *bool
	Priority      *Priority
	Deadline      *time.Time
	ClearDeadline bool
	Category      *string
}

// IsEmpty reports whether the patch changes nothing
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.Deadline == nil && !p.ClearDeadline && p.Category == nil
}

// Validate applies the draft rules to the fields the patch sets
func (p TaskPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// FilterSet narrows the visible tasks. A nil field places no constraint on
// that dimension, so the zero value matches every task.
type FilterSet struct {
	Category  *string
	Completed *bool
	Priority  *Priority
}

// Clone returns a set that shares no pointers with f
func (f FilterSet) Clone() FilterSet {
	var out FilterSet
	if f.Category != nil {
		out.Category = Ptr(*f.Category)
	}
	if f.Completed != nil {
		out.Completed = Ptr(*f.Completed)
	}
	if f.Priority != nil {
		out.Priority = Ptr(*f.Priority)
	}
	return out
}

// IsEmpty reports whether no predicate is set
func (f FilterSet) IsEmpty() bool {
	return f.Category == nil && f.Completed == nil && f.Priority == nil
}

// Matches reports whether t satisfies every present predicate
func (f FilterSet) Matches(t Task) bool {
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	return true
}

// SortKey selects the single ordering dimension for visible tasks
type SortKey string

const (
	SortNone      SortKey = ""
	SortPriority  SortKey = "priority"
	SortDeadline  SortKey = "deadline"
	SortCreatedAt SortKey = "createdAt"
	SortTitle     SortKey = "title"
)

// SortKeys lists the selectable keys in menu order
var SortKeys = []SortKey{SortPriority, SortDeadline, SortCreatedAt, SortTitle}

// ParseSortKey maps a stored or typed name to a key
func ParseSortKey(s string) (SortKey, bool) {
	for _, k := range SortKeys {
		if strings.EqualFold(s, string(k)) {
			return k, true
		}
	}
	return SortNone, false
}

// Label is the human readable name used by the UI
func (k SortKey) Label() string {
	switch k {
	case SortPriority:
		return "Priority"
	case SortDeadline:
		return "Deadline"
	case SortCreatedAt:
		return "Newest"
	case SortTitle:
		return "Title"
	}
	return "None"
}

// Ptr returns a pointer to v, handy when building patches and filters
func Ptr[T any](v T) *T {
	return &v
}

// Package tasks holds the pure list operations the task store composes:
// filtering, ordering and a few read-only helpers. Nothing here mutates its
// input or fails.
package tasks

import (
	"slices"
	"time"

	"github.com/tgienger/stmc/internal/models"
)

// Filter returns the tasks that satisfy every predicate present in f, in
// their original relative order. An empty filter set returns a copy of ts.
func Filter(ts []models.Task, f models.FilterSet) []models.Task {
	if f.IsEmpty() {
		return slices.Clone(ts)
	}
	out := make([]models.Task, 0, len(ts))
	for _, t := range ts {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Overdue reports whether an open task's deadline has passed
func Overdue(t models.Task, now time.Time) bool {
	return !t.Completed && t.Deadline != nil && t.Deadline.Before(now)
}

// Categories returns the distinct non-empty categories in first-seen order
func Categories(ts []models.Task) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range ts {
		if t.Category == "" || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	return out
}

package tasks

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tgienger/stmc/internal/models"
)

// Sort returns a new slice ordered by key. Ties keep their input order.
// SortNone and unknown keys return an unchanged copy.
func Sort(ts []models.Task, key models.SortKey) []models.Task {
	out := slices.Clone(ts)
	less := comparator(key)
	if less == nil {
		return out
	}
	slices.SortStableFunc(out, less)
	return out
}

func comparator(key models.SortKey) func(a, b models.Task) int {
	switch key {
	case models.SortPriority:
		return byPriority
	case models.SortDeadline:
		return byDeadline
	case models.SortCreatedAt:
		return byCreatedAt
	case models.SortTitle:
		return byTitle
	}
	return nil
}

// byPriority puts high before medium before low
func byPriority(a, b models.Task) int {
	return cmp.Compare(b.Priority.Rank(), a.Priority.Rank())
}

// byDeadline is ascending, tasks without a deadline go last
func byDeadline(a, b models.Task) int {
	switch {
	case a.Deadline == nil && b.Deadline == nil:
		return 0
	case a.Deadline == nil:
		return 1
	case b.Deadline == nil:
		return -1
	}
	return a.Deadline.Compare(*b.Deadline)
}

// byCreatedAt is newest first
func byCreatedAt(a, b models.Task) int {
	return b.CreatedAt.Compare(a.CreatedAt)
}

func byTitle(a, b models.Task) int {
	return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
}

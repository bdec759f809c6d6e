package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stmc/internal/models"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func task(id string, p models.Priority, done bool) models.Task {
	return models.Task{ID: id, Title: "task " + id, Priority: p, Completed: done, CreatedAt: base}
}

func ids(ts []models.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func at(hours int) *time.Time {
	t := base.Add(time.Duration(hours) * time.Hour)
	return &t
}

func TestFilterEmptySetReturnsInput(t *testing.T) {
	in := []models.Task{task("1", models.PriorityLow, false), task("2", models.PriorityHigh, true)}

	out := Filter(in, models.FilterSet{})

	assert.Equal(t, in, out)
	out[0].Title = "changed"
	assert.Equal(t, "task 1", in[0].Title, "result must not alias the input")
}

func TestFilterCompletedKeepsOrder(t *testing.T) {
	in := []models.Task{
		task("1", models.PriorityLow, false),
		task("2", models.PriorityLow, true),
		task("3", models.PriorityLow, false),
		task("4", models.PriorityLow, true),
		task("5", models.PriorityLow, false),
	}

	out := Filter(in, models.FilterSet{Completed: models.Ptr(true)})

	assert.Equal(t, []string{"2", "4"}, ids(out))
}

func TestFilterCombinesPredicates(t *testing.T) {
	a := task("a", models.PriorityHigh, false)
	a.Category = "Work"
	b := task("b", models.PriorityHigh, false)
	b.Category = "Home"
	c := task("c", models.PriorityLow, false)
	c.Category = "Work"

	out := Filter([]models.Task{a, b, c}, models.FilterSet{
		Category: models.Ptr("Work"),
		Priority: models.Ptr(models.PriorityHigh),
	})

	assert.Equal(t, []string{"a"}, ids(out))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	in := []models.Task{task("1", models.PriorityLow, true), task("2", models.PriorityLow, false)}
	snapshot := append([]models.Task(nil), in...)

	Filter(in, models.FilterSet{Completed: models.Ptr(false)})

	assert.Equal(t, snapshot, in)
}

func TestSortPriorityDescendingAndStable(t *testing.T) {
	in := []models.Task{
		task("low", models.PriorityLow, false),
		task("med1", models.PriorityMedium, false),
		task("high", models.PriorityHigh, false),
		task("med2", models.PriorityMedium, false),
	}

	out := Sort(in, models.SortPriority)

	assert.Equal(t, []string{"high", "med1", "med2", "low"}, ids(out))
	assert.Equal(t, []string{"low", "med1", "high", "med2"}, ids(in), "input must be untouched")
}

func TestSortPriorityAnyInputOrder(t *testing.T) {
	perms := [][]models.Priority{
		{models.PriorityHigh, models.PriorityMedium, models.PriorityLow},
		{models.PriorityLow, models.PriorityMedium, models.PriorityHigh},
		{models.PriorityMedium, models.PriorityLow, models.PriorityHigh},
		{models.PriorityLow, models.PriorityHigh, models.PriorityMedium},
	}
	for _, perm := range perms {
		var in []models.Task
		for _, p := range perm {
			in = append(in, task(string(p), p, false))
		}
		assert.Equal(t, []string{"high", "medium", "low"}, ids(Sort(in, models.SortPriority)))
	}
}

func TestSortDeadlineMissingLast(t *testing.T) {
	none1 := task("none1", models.PriorityLow, false)
	late := task("late", models.PriorityLow, false)
	late.Deadline = at(48)
	none2 := task("none2", models.PriorityLow, false)
	early := task("early", models.PriorityLow, false)
	early.Deadline = at(1)

	out := Sort([]models.Task{none1, late, none2, early}, models.SortDeadline)

	assert.Equal(t, []string{"early", "late", "none1", "none2"}, ids(out))
}

func TestSortCreatedAtNewestFirst(t *testing.T) {
	old := task("old", models.PriorityLow, false)
	mid := task("mid", models.PriorityLow, false)
	mid.CreatedAt = base.Add(time.Hour)
	newest := task("new", models.PriorityLow, false)
	newest.CreatedAt = base.Add(2 * time.Hour)

	out := Sort([]models.Task{old, newest, mid}, models.SortCreatedAt)

	assert.Equal(t, []string{"new", "mid", "old"}, ids(out))
}

func TestSortTitleCaseInsensitiveAndIdempotent(t *testing.T) {
	in := []models.Task{
		{ID: "1", Title: "banana"},
		{ID: "2", Title: "Apple"},
		{ID: "3", Title: "cherry"},
		{ID: "4", Title: "apple"},
	}

	once := Sort(in, models.SortTitle)
	twice := Sort(once, models.SortTitle)

	assert.Equal(t, []string{"2", "4", "1", "3"}, ids(once))
	assert.Equal(t, once, twice)
}

func TestSortIsPermutation(t *testing.T) {
	in := []models.Task{
		task("1", models.PriorityLow, false),
		task("2", models.PriorityHigh, true),
		task("3", models.PriorityMedium, false),
	}
	in[1].Deadline = at(3)

	for _, key := range append(models.SortKeys, models.SortNone) {
		out := Sort(in, key)
		assert.ElementsMatch(t, ids(in), ids(out), "key %q", key)
	}
}

func TestSortUnknownKeyIsNoop(t *testing.T) {
	in := []models.Task{task("b", models.PriorityLow, false), task("a", models.PriorityHigh, false)}

	assert.Equal(t, in, Sort(in, models.SortKey("color")))
	assert.Equal(t, in, Sort(in, models.SortNone))
	assert.Empty(t, Sort(nil, models.SortTitle))
}

func TestOverdue(t *testing.T) {
	now := base.Add(24 * time.Hour)
	tk := task("1", models.PriorityLow, false)
	assert.False(t, Overdue(tk, now))

	tk.Deadline = at(1)
	assert.True(t, Overdue(tk, now))

	tk.Completed = true
	assert.False(t, Overdue(tk, now))

	tk.Completed = false
	tk.Deadline = at(48)
	assert.False(t, Overdue(tk, now))
}

func TestCategories(t *testing.T) {
	in := []models.Task{{Category: "Work"}, {}, {Category: "Home"}, {Category: "Work"}}

	got := Categories(in)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"Work", "Home"}, got)
}

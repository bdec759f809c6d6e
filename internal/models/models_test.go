package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskDraftValidate(t *testing.T) {
	assert.ErrorIs(t, TaskDraft{Title: "   "}.Validate(), ErrTitleRequired)
	assert.ErrorIs(t, TaskDraft{Title: "x", Priority: "urgent"}.Validate(), ErrInvalidPriority)
	assert.NoError(t, TaskDraft{Title: "x"}.Validate())
}

func TestTaskDraftNormalized(t *testing.T) {
	d := TaskDraft{Title: "  Buy milk ", Category: " Shopping "}.Normalized()
	assert.Equal(t, "Buy milk", d.Title)
	assert.Equal(t, "Shopping", d.Category)
	assert.Equal(t, PriorityMedium, d.Priority)
}

func TestTaskPatchValidate(t *testing.T) {
	assert.ErrorIs(t, TaskPatch{Title: Ptr("")}.Validate(), ErrTitleRequired)
	assert.NoError(t, TaskPatch{Completed: Ptr(true)}.Validate())
	assert.True(t, TaskPatch{}.IsEmpty())
	assert.False(t, TaskPatch{ClearDeadline: true}.IsEmpty())
}

func TestFilterSetMatches(t *testing.T) {
	task := Task{Category: "Work", Completed: true, Priority: PriorityHigh}

	assert.True(t, FilterSet{}.Matches(task))
	assert.True(t, FilterSet{Category: Ptr("Work"), Completed: Ptr(true)}.Matches(task))
	assert.False(t, FilterSet{Category: Ptr("work")}.Matches(task))
	assert.False(t, FilterSet{Priority: Ptr(PriorityLow)}.Matches(task))
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey("createdat")
	assert.True(t, ok)
	assert.Equal(t, SortCreatedAt, k)

	k, ok = ParseSortKey("color")
	assert.False(t, ok)
	assert.Equal(t, SortNone, k)
}

func TestPriorityRank(t *testing.T) {
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Zero(t, Priority("").Rank())
}

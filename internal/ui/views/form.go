package views

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stmc/internal/models"
	"github.com/tgienger/stmc/internal/ui/styles"
)

const (
	editFocusTitle = iota
	editFocusDesc
	editFocusPriority
	editFocusDeadline
	editFocusCategory
	editFocusSave
	editFocusCount
)

const (
	deadlineDate     = "2006-01-02"
	deadlineDateTime = "2006-01-02 15:04"
)

var errBadDeadline = errors.New("deadline must look like 2025-01-31 or 2025-01-31 17:00")

func (v *TaskListView) startNewTask() {
	v.editing = true
	v.editingID = ""
	v.editFocusIdx = editFocusTitle
	v.editTitle.Reset()
	v.editDesc.Reset()
	v.editPriority = models.PriorityMedium
	v.editDeadline.Reset()
	v.editCategory.Reset()
	v.status = ""
	v.updateEditFocus()
}

func (v *TaskListView) startEditTask(task models.Task) {
	v.editing = true
	v.editingID = task.ID
	v.editFocusIdx = editFocusTitle
	v.editTitle.SetValue(task.Title)
	v.editDesc.SetValue(task.Description)
	v.editPriority = task.Priority
	v.editDeadline.SetValue(formatDeadline(task.Deadline))
	v.editCategory.SetValue(task.Category)
	v.status = ""
	v.updateEditFocus()
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if v.busy {
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		v.status = ""
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.saveTask()

	case key.Matches(msg, v.keys.Tab):
		// Tab on the category field accepts a suggestion first
		if v.editFocusIdx == editFocusCategory {
			if sug := v.suggestion(); sug != "" {
				v.editCategory.SetValue(sug)
				v.editCategory.CursorEnd()
				return v, nil
			}
		}
		v.editFocusIdx = (v.editFocusIdx + 1) % editFocusCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.BackTab):
		v.editFocusIdx = (v.editFocusIdx + editFocusCount - 1) % editFocusCount
		v.updateEditFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		switch v.editFocusIdx {
		case editFocusSave:
			return v, v.saveTask()
		case editFocusDesc:
			// let enter pass through for newlines
		default:
			v.editFocusIdx++
			v.updateEditFocus()
			return v, nil
		}

	case v.editFocusIdx == editFocusPriority:
		switch {
		case key.Matches(msg, v.keys.Left):
			v.editPriority = cyclePriority(v.editPriority, -1)
		case key.Matches(msg, v.keys.Right), msg.String() == " ":
			v.editPriority = cyclePriority(v.editPriority, 1)
		}
		return v, nil
	}

	var cmd tea.Cmd
	switch v.editFocusIdx {
	case editFocusTitle:
		v.editTitle, cmd = v.editTitle.Update(msg)
	case editFocusDesc:
		v.editDesc, cmd = v.editDesc.Update(msg)
	case editFocusDeadline:
		v.editDeadline, cmd = v.editDeadline.Update(msg)
	case editFocusCategory:
		v.editCategory, cmd = v.editCategory.Update(msg)
	}
	return v, cmd
}

func (v *TaskListView) updateEditFocus() {
	v.editTitle.Blur()
	v.editDesc.Blur()
	v.editDeadline.Blur()
	v.editCategory.Blur()

	switch v.editFocusIdx {
	case editFocusTitle:
		v.editTitle.Focus()
	case editFocusDesc:
		v.editDesc.Focus()
	case editFocusDeadline:
		v.editDeadline.Focus()
	case editFocusCategory:
		v.editCategory.Focus()
	}
}

func cyclePriority(p models.Priority, dir int) models.Priority {
	n := len(models.Priorities)
	i := slices.Index(models.Priorities, p)
	if i < 0 {
		i = 1
	}
	return models.Priorities[(i+dir+n)%n]
}

// suggestion returns the first known category that extends what has been
// typed, matching case-insensitively
func (v *TaskListView) suggestion() string {
	typed := strings.TrimSpace(v.editCategory.Value())
	if typed == "" {
		return ""
	}
	for _, c := range v.knownCategories() {
		if len(c) > len(typed) && strings.HasPrefix(strings.ToLower(c), strings.ToLower(typed)) {
			return c
		}
	}
	return ""
}

// knownCategories merges the local cache with categories already on tasks
func (v *TaskListView) knownCategories() []string {
	out := slices.Clone(v.categories)
	for _, c := range v.snap.Categories {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// saveTask validates the form and creates or updates the task. Only fields
// that changed are sent for an existing task.
func (v *TaskListView) saveTask() tea.Cmd {
	title := strings.TrimSpace(v.editTitle.Value())
	if title == "" {
		v.status, v.failed = "Please add a title", true
		v.editFocusIdx = editFocusTitle
		v.updateEditFocus()
		return nil
	}

	deadline, err := parseDeadline(v.editDeadline.Value())
	if err != nil {
		v.status, v.failed = errBadDeadline.Error(), true
		v.editFocusIdx = editFocusDeadline
		v.updateEditFocus()
		return nil
	}

	desc := strings.TrimSpace(v.editDesc.Value())
	category := strings.TrimSpace(v.editCategory.Value())

	if v.editingID == "" {
		draft := models.TaskDraft{
			Title:       title,
			Description: desc,
			Priority:    v.editPriority,
			Deadline:    deadline,
			Category:    category,
		}
		v.editing = false
		return v.run("Task created", func(ctx context.Context) error {
			v.rememberCategory(category)
			_, err := v.store.Create(ctx, draft)
			return err
		})
	}

	orig, ok := v.store.Task(v.editingID)
	if !ok {
		v.editing = false
		v.status, v.failed = "Task no longer exists", true
		return nil
	}

	var patch models.TaskPatch
	if title != orig.Title {
		patch.Title = &title
	}
	if desc != orig.Description {
		patch.Description = &desc
	}
	if v.editPriority != orig.Priority {
		patch.Priority = models.Ptr(v.editPriority)
	}
	if strings.TrimSpace(v.editDeadline.Value()) != formatDeadline(orig.Deadline) {
		if deadline == nil {
			patch.ClearDeadline = true
		} else {
			patch.Deadline = deadline
		}
	}
	if category != orig.Category {
		patch.Category = &category
	}

	v.editing = false
	if patch.IsEmpty() {
		return nil
	}
	id := v.editingID
	return v.run("Task updated", func(ctx context.Context) error {
		v.rememberCategory(category)
		_, err := v.store.Update(ctx, id, patch)
		return err
	})
}

// rememberCategory adds a category to the suggestion cache. Failures only
// cost a suggestion, so they are ignored.
func (v *TaskListView) rememberCategory(name string) {
	if name == "" {
		return
	}
	_, _ = v.prefs.AddCategory(name)
}

// parseDeadline reads a local date, optionally with a time. Blank means no
// deadline.
func parseDeadline(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{deadlineDateTime, deadlineDate} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, errBadDeadline
}

func formatDeadline(t *time.Time) string {
	if t == nil {
		return ""
	}
	local := t.Local()
	if local.Hour() == 0 && local.Minute() == 0 {
		return local.Format(deadlineDate)
	}
	return local.Format(deadlineDateTime)
}

func (v *TaskListView) renderEditForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	formTitle := "New Task"
	if v.editingID != "" {
		formTitle = "Edit Task"
	}

	titleStyle := s.Input
	descStyle := s.Input
	priorityStyle := s.Input
	deadlineStyle := s.Input
	categoryStyle := s.Input
	btnStyle := s.Button

	switch v.editFocusIdx {
	case editFocusTitle:
		titleStyle = s.InputFocused
	case editFocusDesc:
		descStyle = s.InputFocused
	case editFocusPriority:
		priorityStyle = s.InputFocused
	case editFocusDeadline:
		deadlineStyle = s.InputFocused
	case editFocusCategory:
		categoryStyle = s.InputFocused
	case editFocusSave:
		btnStyle = s.ButtonFocused
	}

	// Dynamic input width based on content width
	inputWidth := clamp(contentWidth-6, 20, 50)

	var priorities []string
	for _, p := range models.Priorities {
		label := string(p)
		if p == v.editPriority {
			label = s.Badge.Foreground(styles.PriorityColor(p)).Render("‹" + label + "›")
		} else {
			label = s.TitleMuted.Render(" " + label + " ")
		}
		priorities = append(priorities, label)
	}

	hint := ""
	if sug := v.suggestion(); sug != "" && v.editFocusIdx == editFocusCategory {
		hint = s.TitleMuted.Render("tab: " + sug)
	}

	status := ""
	if v.status != "" && v.failed {
		status = s.StatusError.Render(v.status)
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(formTitle),
		"",
		"Title:",
		titleStyle.Width(inputWidth).Render(v.editTitle.View()),
		"",
		"Description:",
		descStyle.Render(v.editDesc.View()),
		"",
		"Priority:",
		priorityStyle.Render(strings.Join(priorities, " ")),
		"",
		"Deadline:",
		deadlineStyle.Width(inputWidth).Render(v.editDeadline.View()),
		"",
		"Category:",
		categoryStyle.Width(inputWidth).Render(v.editCategory.View()),
		hint,
		btnStyle.Render(" Save "),
		"",
		status,
		s.TitleMuted.Render("Tab: next • ←→: priority • Ctrl+S: save • Esc: cancel"),
	)

	// Center within content width, then center that in terminal
	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

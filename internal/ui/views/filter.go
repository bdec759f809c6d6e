package views

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stmc/internal/models"
	"github.com/tgienger/stmc/internal/ui/styles"
)

const (
	filterRowCompletion = iota
	filterRowPriority
	filterRowCategory
	filterRowCount
)

var filterPriorities = []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow}

// filterOptions lists the choices per row. Index 0 is always "Any".
func (v *TaskListView) filterOptions(row int) []string {
	switch row {
	case filterRowCompletion:
		return []string{"Any", "Active", "Done"}
	case filterRowPriority:
		opts := []string{"Any"}
		for _, p := range filterPriorities {
			opts = append(opts, string(p))
		}
		return opts
	}
	return append([]string{"Any"}, v.filterCategories()...)
}

// filterCategories is every known category plus the active one, which may
// no longer be on any task
func (v *TaskListView) filterCategories() []string {
	cats := v.knownCategories()
	if c := v.snap.Filters.Category; c != nil && !slices.Contains(cats, *c) {
		cats = append(cats, *c)
	}
	return cats
}

// openFilter shows the panel preset to the active filters
func (v *TaskListView) openFilter() {
	f := v.snap.Filters
	v.filterOpen = true
	v.filterRow = filterRowCompletion
	v.filterSel = [3]int{}

	if f.Completed != nil {
		v.filterSel[filterRowCompletion] = 1
		if *f.Completed {
			v.filterSel[filterRowCompletion] = 2
		}
	}
	if f.Priority != nil {
		v.filterSel[filterRowPriority] = slices.Index(filterPriorities, *f.Priority) + 1
	}
	if f.Category != nil {
		v.filterSel[filterRowCategory] = slices.Index(v.filterCategories(), *f.Category) + 1
	}
}

// selectedFilters builds the filter set the panel currently describes
func (v *TaskListView) selectedFilters() models.FilterSet {
	var f models.FilterSet
	switch v.filterSel[filterRowCompletion] {
	case 1:
		f.Completed = models.Ptr(false)
	case 2:
		f.Completed = models.Ptr(true)
	}
	if i := v.filterSel[filterRowPriority]; i > 0 {
		f.Priority = models.Ptr(filterPriorities[i-1])
	}
	if i := v.filterSel[filterRowCategory]; i > 0 {
		cats := v.filterCategories()
		if i-1 < len(cats) {
			f.Category = models.Ptr(cats[i-1])
		}
	}
	return f
}

func (v *TaskListView) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.filterOpen = false
		return v, nil

	case key.Matches(msg, v.keys.Up), key.Matches(msg, v.keys.BackTab):
		v.filterRow = (v.filterRow + filterRowCount - 1) % filterRowCount
		return v, nil

	case key.Matches(msg, v.keys.Down), key.Matches(msg, v.keys.Tab):
		v.filterRow = (v.filterRow + 1) % filterRowCount
		return v, nil

	case key.Matches(msg, v.keys.Left):
		n := len(v.filterOptions(v.filterRow))
		v.filterSel[v.filterRow] = (v.filterSel[v.filterRow] + n - 1) % n
		return v, nil

	case key.Matches(msg, v.keys.Right), key.Matches(msg, v.keys.Toggle):
		n := len(v.filterOptions(v.filterRow))
		v.filterSel[v.filterRow] = (v.filterSel[v.filterRow] + 1) % n
		return v, nil

	case key.Matches(msg, v.keys.ClearFilters):
		v.filterSel = [3]int{}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		v.store.ApplyFilter(v.selectedFilters())
		v.filterOpen = false
		v.cursor = 0
		v.scrollY = 0
		v.setSnapshot(v.store.Snapshot())
		return v, nil
	}

	return v, nil
}

func (v *TaskListView) renderFilterPanel() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	labels := [filterRowCount]string{"Status", "Priority", "Category"}

	var rows []string
	for row := range filterRowCount {
		opts := v.filterOptions(row)
		sel := min(v.filterSel[row], len(opts)-1)

		itemStyle := s.ListItem
		if row == v.filterRow {
			itemStyle = s.ListSelected
		}
		value := "‹ " + opts[sel] + " ›"
		rows = append(rows, itemStyle.Width(36).Render(lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(10).Render(labels[row]),
			value,
		)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Filter Tasks"),
		"",
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		"",
		s.TitleMuted.Render("↑↓: row • ←→: value • x: any • ↵: apply • Esc: cancel"),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Panel.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

package views

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stmc/internal/api"
	"github.com/tgienger/stmc/internal/db"
	"github.com/tgienger/stmc/internal/models"
	"github.com/tgienger/stmc/internal/store"
	"github.com/tgienger/stmc/internal/tasks"
	"github.com/tgienger/stmc/internal/ui/keys"
	"github.com/tgienger/stmc/internal/ui/styles"
)

// TaskListView shows the signed in user's tasks
type TaskListView struct {
	store  TaskStore
	prefs  Preferences
	user   models.User
	styles *styles.Styles
	keys   keys.KeyMap
	now    func() time.Time

	width  int
	height int

	snap       store.Snapshot
	categories []string // suggestion cache
	cursor     int
	scrollY    int

	// An operation is in flight; mutation keys are ignored
	busy    bool
	spinner spinner.Model
	ticking bool
	status  string
	failed  bool

	// Task creation/editing
	editing      bool
	editingID    string // empty for a new task
	editTitle    textinput.Model
	editDesc     textarea.Model
	editPriority models.Priority
	editDeadline textinput.Model
	editCategory textinput.Model
	editFocusIdx int // 0=title, 1=desc, 2=priority, 3=deadline, 4=category, 5=save

	// Filter panel
	filterOpen bool
	filterRow  int
	filterSel  [3]int // option index per row: completion, priority, category

	// Task detail
	viewingTask bool
	viewingID   string

	// Delete confirmation
	confirmingDelete bool
	deleteTargetID   string
	deleteTargetName string

	// Help popup (shown with ?)
	showHelpPopup bool
}

type opDoneMsg struct {
	done string // status shown on success
	err  error
}

type categoriesLoadedMsg struct {
	names []string
}

// prefsFailedMsg reports a local settings error without ending a busy
// operation
type prefsFailedMsg struct {
	err error
}

// NewTaskListView creates the task screen and restores the remembered
// sort key
func NewTaskListView(ts TaskStore, prefs Preferences, user models.User) *TaskListView {
	editTitle := textinput.New()
	editTitle.Placeholder = "Task title"
	editTitle.CharLimit = 200

	editDesc := textarea.New()
	editDesc.Placeholder = "Description"
	editDesc.CharLimit = 1000
	editDesc.SetWidth(50)
	editDesc.SetHeight(3)
	editDesc.ShowLineNumbers = false

	editDeadline := textinput.New()
	editDeadline.Placeholder = "YYYY-MM-DD [HH:MM]"
	editDeadline.CharLimit = 16

	editCategory := textinput.New()
	editCategory.Placeholder = "Category (optional)"
	editCategory.CharLimit = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Primary)

	v := &TaskListView{
		store:        ts,
		prefs:        prefs,
		user:         user,
		styles:       styles.NewStyles(),
		keys:         keys.DefaultKeyMap(),
		now:          time.Now,
		editTitle:    editTitle,
		editDesc:     editDesc,
		editDeadline: editDeadline,
		editCategory: editCategory,
		spinner:      sp,
	}

	if saved, err := prefs.GetSetting(db.KeySortKey); err == nil {
		if k, ok := models.ParseSortKey(saved); ok {
			ts.ApplySort(k)
		}
	}
	v.snap = ts.Snapshot()
	return v
}

// Init loads the category cache. The store fetches tasks on its own when
// the identity changes.
func (v *TaskListView) Init() tea.Cmd {
	return tea.Batch(v.loadCategories, v.startSpin())
}

func (v *TaskListView) loadCategories() tea.Msg {
	names, err := v.prefs.ListCategories()
	if err != nil {
		return prefsFailedMsg{err: fmt.Errorf("load categories: %w", err)}
	}
	return categoriesLoadedMsg{names: names}
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		contentWidth := styles.ContentWidth(v.width)
		v.editDesc.SetWidth(clamp(contentWidth-10, 20, 50))
		v.ensureVisible()
		return v, nil

	case SnapshotMsg:
		v.setSnapshot(msg.Snapshot)
		return v, v.startSpin()

	case categoriesLoadedMsg:
		v.categories = msg.names
		return v, nil

	case prefsFailedMsg:
		v.status, v.failed = msg.err.Error(), true
		return v, nil

	case opDoneMsg:
		v.busy = false
		v.setSnapshot(v.store.Snapshot())
		switch {
		case api.IsNotFound(msg.err):
			v.status, v.failed = "Task no longer exists, press r to refresh", true
			return v, nil
		case msg.err != nil:
			v.status, v.failed = api.Message(msg.err), true
			return v, nil
		}
		v.status, v.failed = msg.done, false
		return v, v.loadCategories

	case spinner.TickMsg:
		if !v.working() {
			v.ticking = false
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		// Handle help popup first - any key closes it
		if v.showHelpPopup {
			v.showHelpPopup = false
			return v, nil
		}

		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}

		if v.editing {
			return v.updateEditing(msg)
		}

		if v.filterOpen {
			return v.updateFilter(msg)
		}

		if v.viewingTask {
			return v.updateViewingTask(msg)
		}

		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.snap.Visible)-1 {
			v.cursor++
			v.ensureVisible()
		}
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if t, ok := v.selected(); ok {
			v.viewingTask = true
			v.viewingID = t.ID
		}
		return v, nil

	case key.Matches(msg, v.keys.Help):
		v.showHelpPopup = true
		return v, nil

	case key.Matches(msg, v.keys.Filter):
		v.openFilter()
		return v, nil

	case key.Matches(msg, v.keys.ClearFilters):
		v.store.ClearFilters()
		v.setSnapshot(v.store.Snapshot())
		return v, nil

	case key.Matches(msg, v.keys.Sort):
		return v, v.cycleSort()

	case key.Matches(msg, v.keys.Logout):
		return v, func() tea.Msg { return LogoutRequested{} }
	}

	// Everything below reaches the task service
	if v.working() {
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Refresh):
		return v, v.refresh()

	case key.Matches(msg, v.keys.New):
		v.startNewTask()
		return v, textinput.Blink

	case key.Matches(msg, v.keys.Edit):
		if t, ok := v.selected(); ok {
			v.startEditTask(t)
			return v, textinput.Blink
		}

	case key.Matches(msg, v.keys.Toggle):
		if t, ok := v.selected(); ok {
			return v, v.toggle(t)
		}

	case key.Matches(msg, v.keys.Delete):
		if t, ok := v.selected(); ok {
			v.confirmDelete(t)
		}
	}

	return v, nil
}

func (v *TaskListView) updateViewingTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t, ok := v.viewed()
	if !ok {
		v.viewingTask = false
		return v, nil
	}

	switch {
	case key.Matches(msg, v.keys.Back):
		v.viewingTask = false
		return v, nil
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit
	case v.working():
		return v, nil
	case key.Matches(msg, v.keys.Edit):
		v.viewingTask = false
		v.startEditTask(t)
		return v, textinput.Blink
	case key.Matches(msg, v.keys.Toggle):
		return v, v.toggle(t)
	case key.Matches(msg, v.keys.Delete):
		v.confirmDelete(t)
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmingDelete = false
		v.viewingTask = false
		id := v.deleteTargetID
		return v, v.run("Task deleted", func(ctx context.Context) error {
			return v.store.Delete(ctx, id)
		})
	case "n", "N", "esc":
		v.confirmingDelete = false
		return v, nil
	}
	return v, nil
}

func (v *TaskListView) confirmDelete(t models.Task) {
	v.confirmingDelete = true
	v.deleteTargetID = t.ID
	v.deleteTargetName = t.Title
}

func (v *TaskListView) toggle(t models.Task) tea.Cmd {
	done := "Marked as done"
	if t.Completed {
		done = "Marked as not done"
	}
	patch := models.TaskPatch{Completed: models.Ptr(!t.Completed)}
	return v.run(done, func(ctx context.Context) error {
		_, err := v.store.Update(ctx, t.ID, patch)
		return err
	})
}

func (v *TaskListView) refresh() tea.Cmd {
	return v.run("", func(ctx context.Context) error {
		return v.store.Refresh(ctx)
	})
}

// cycleSort moves to the next sort key and remembers it
func (v *TaskListView) cycleSort() tea.Cmd {
	order := append([]models.SortKey{models.SortNone}, models.SortKeys...)
	i := slices.Index(order, v.snap.Sort)
	next := order[(i+1)%len(order)]

	v.store.ApplySort(next)
	v.setSnapshot(v.store.Snapshot())
	v.status, v.failed = "Sorted by "+next.Label(), false

	return func() tea.Msg {
		if err := v.prefs.SetSetting(db.KeySortKey, string(next)); err != nil {
			return prefsFailedMsg{err: fmt.Errorf("save sort: %w", err)}
		}
		return nil
	}
}

// run marks the view busy and performs op off the event loop
func (v *TaskListView) run(done string, op func(ctx context.Context) error) tea.Cmd {
	v.busy = true
	v.status = ""
	return tea.Batch(v.startSpin(), func() tea.Msg {
		return opDoneMsg{done: done, err: op(context.Background())}
	})
}

func (v *TaskListView) working() bool {
	return v.busy || v.snap.Loading
}

func (v *TaskListView) startSpin() tea.Cmd {
	if v.ticking || !v.working() {
		return nil
	}
	v.ticking = true
	return v.spinner.Tick
}

// setSnapshot ignores snapshots older than the one on screen
func (v *TaskListView) setSnapshot(snap store.Snapshot) {
	if snap.Seq < v.snap.Seq {
		return
	}
	v.snap = snap
	if v.cursor >= len(v.snap.Visible) {
		v.cursor = max(0, len(v.snap.Visible)-1)
	}
	v.ensureVisible()
}

func (v *TaskListView) selected() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.snap.Visible) {
		return models.Task{}, false
	}
	return v.snap.Visible[v.cursor], true
}

// viewed finds the task shown in the detail view. It may have been filtered
// out or deleted since it was opened.
func (v *TaskListView) viewed() (models.Task, bool) {
	i := slices.IndexFunc(v.snap.Visible, func(t models.Task) bool { return t.ID == v.viewingID })
	if i < 0 {
		return models.Task{}, false
	}
	return v.snap.Visible[i], true
}

// itemsPerPage is how many two line task items fit below the header
func (v *TaskListView) itemsPerPage() int {
	availableHeight := max(v.height-12, 3)
	return max(availableHeight/3, 1)
}

func (v *TaskListView) ensureVisible() {
	visibleItems := v.itemsPerPage()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visibleItems {
		v.scrollY = v.cursor - visibleItems + 1
	}
}

func (v *TaskListView) View() string {
	if v.showHelpPopup {
		return v.renderHelpPopup()
	}

	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}

	if v.editing {
		return v.renderEditForm()
	}

	if v.filterOpen {
		return v.renderFilterPanel()
	}

	if v.viewingTask {
		return v.renderTaskView()
	}

	var b strings.Builder

	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(v.renderTaskList())

	b.WriteString("\n")
	b.WriteString(v.renderStatus())
	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles

	title := lipgloss.JoinHorizontal(lipgloss.Bottom,
		s.Title.Render("Tasks"),
		"  ",
		s.TitleMuted.Render(v.user.Email),
	)

	count := fmt.Sprintf("%d of %d", len(v.snap.Visible), v.snap.Total)
	info := []string{
		s.HelpDesc.Render("sort: ") + s.HelpKey.Render(v.snap.Sort.Label()),
		s.HelpDesc.Render("filter: ") + s.HelpKey.Render(describeFilters(v.snap.Filters)),
		s.HelpDesc.Render(count),
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(info, s.HelpDesc.Render(" • ")))
}

func describeFilters(f models.FilterSet) string {
	if f.IsEmpty() {
		return "none"
	}
	var parts []string
	if f.Completed != nil {
		parts = append(parts, map[bool]string{true: "done", false: "active"}[*f.Completed])
	}
	if f.Priority != nil {
		parts = append(parts, string(*f.Priority))
	}
	if f.Category != nil {
		parts = append(parts, *f.Category)
	}
	return strings.Join(parts, ", ")
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if len(v.snap.Visible) == 0 {
		switch {
		case v.snap.Loading:
			return s.TitleMuted.Render("Loading tasks...")
		case v.snap.Total > 0:
			return s.TitleMuted.Render("No tasks match the filters. Press 'x' to clear them.")
		}
		return s.TitleMuted.Render("No tasks. Press 'n' to create one.")
	}

	var items []string
	endIdx := min(v.scrollY+v.itemsPerPage(), len(v.snap.Visible))

	for i := v.scrollY; i < endIdx; i++ {
		items = append(items, v.renderTaskItem(v.snap.Visible[i], i == v.cursor))
	}

	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	width := max(contentWidth-4, 20)

	box := "[ ]"
	if task.Completed {
		box = "[x]"
	}
	titleText := task.Title
	if task.Completed && !selected {
		titleText = s.Completed.Render(titleText)
	}
	titleLine := box + " " + s.PriorityBadge(task.Priority) + " " + titleText

	var meta []string
	if task.Category != "" {
		meta = append(meta, s.Category.Render(task.Category))
	}
	if task.Deadline != nil {
		due := "due " + formatWhen(*task.Deadline)
		if tasks.Overdue(task, v.now()) {
			due = s.Overdue.Render("overdue " + formatWhen(*task.Deadline))
		}
		meta = append(meta, due)
	}
	metaLine := s.TitleMuted.Render("no category or deadline")
	if len(meta) > 0 {
		metaLine = "    " + strings.Join(meta, " • ")
	}

	var lineStyle lipgloss.Style
	if selected {
		lineStyle = s.ListSelected.Width(width)
	} else {
		lineStyle = s.ListItem.Width(width)
	}

	// Return two-line item with margin
	return lipgloss.JoinVertical(lipgloss.Left, lineStyle.Render(titleLine), lineStyle.Render(metaLine)) + "\n"
}

func (v *TaskListView) renderStatus() string {
	s := v.styles
	switch {
	case v.working():
		return s.StatusBar.Render(v.spinner.View() + " Working...")
	case v.status != "" && v.failed:
		return s.StatusError.Render(v.status)
	case v.status != "":
		return s.StatusOK.Render(v.status)
	}
	return ""
}

func (v *TaskListView) renderHelp() string {
	contentWidth := styles.ContentWidth(v.width)
	// At narrow widths, show hint to press ? for help
	if contentWidth > 0 && contentWidth < 50 {
		return v.styles.Help.Render(v.styles.HelpKey.Render("?") + " help")
	}

	return v.styles.Help.Render(
		fmt.Sprintf("%s view • %s new • %s edit • %s done • %s del • %s filter • %s sort • %s help • %s quit",
			v.styles.HelpKey.Render("↵"),
			v.styles.HelpKey.Render("n"),
			v.styles.HelpKey.Render("e"),
			v.styles.HelpKey.Render("space"),
			v.styles.HelpKey.Render("d"),
			v.styles.HelpKey.Render("f"),
			v.styles.HelpKey.Render("s"),
			v.styles.HelpKey.Render("?"),
			v.styles.HelpKey.Render("q"),
		),
	)
}

func (v *TaskListView) renderHelpPopup() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	helpItems := []string{
		s.HelpKey.Render("↵") + "      view task",
		s.HelpKey.Render("n") + "      new task",
		s.HelpKey.Render("e") + "      edit task",
		s.HelpKey.Render("space") + "  toggle done",
		s.HelpKey.Render("d") + "      delete task",
		s.HelpKey.Render("f") + "      filter",
		s.HelpKey.Render("x") + "      clear filters",
		s.HelpKey.Render("s") + "      cycle sort",
		s.HelpKey.Render("r") + "      refresh",
		s.HelpKey.Render("L") + "      log out",
		s.HelpKey.Render("q") + "      quit",
		"",
		s.TitleMuted.Render("Press any key to close"),
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{s.Title.Render("Keyboard Shortcuts"), ""}, helpItems...)...,
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		s.Panel.Render(content),
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderDeleteConfirm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)

	content := lipgloss.JoinVertical(lipgloss.Center,
		s.Title.Foreground(styles.Current.Error).Render("Delete Task?"),
		"",
		s.TitleMuted.Render(fmt.Sprintf("%q will be removed for good.", v.deleteTargetName)),
		"",
		lipgloss.JoinHorizontal(lipgloss.Center,
			s.ButtonPrimary.Render(" Y - Yes "),
			"  ",
			s.Button.Render(" N - No "),
		),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		content,
	)
	return styles.CenterView(centered, v.width, v.height)
}

func (v *TaskListView) renderTaskView() string {
	task, ok := v.viewed()
	if !ok {
		return ""
	}

	s := v.styles
	maxContentWidth := styles.ContentWidth(v.width)
	textWidth := clamp(maxContentWidth-10, 20, 70)
	labelStyle := s.TitleMuted

	state := "Active"
	if task.Completed {
		state = "Done"
	}

	deadline := s.TitleMuted.Render("None")
	if task.Deadline != nil {
		deadline = formatWhen(*task.Deadline)
		if tasks.Overdue(task, v.now()) {
			deadline = s.Overdue.Render(deadline + " (overdue)")
		}
	}

	category := s.TitleMuted.Render("None")
	if task.Category != "" {
		category = s.Category.Render(task.Category)
	}

	descText := task.Description
	if descText == "" {
		descText = s.TitleMuted.Render("No description")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.MarginBottom(1).Render(task.Title),
		labelStyle.Render("Status"),
		state,
		"",
		labelStyle.Render("Priority"),
		s.PriorityBadge(task.Priority),
		"",
		labelStyle.Render("Deadline"),
		deadline,
		"",
		labelStyle.Render("Category"),
		category,
		"",
		labelStyle.Render("Created"),
		formatWhen(task.CreatedAt),
		"",
		labelStyle.Render("Description"),
		lipgloss.NewStyle().Width(textWidth).Render(descText),
		"",
		v.renderStatus(),
		s.Help.Render(fmt.Sprintf("%s edit • %s done • %s delete • %s back",
			s.HelpKey.Render("e"),
			s.HelpKey.Render("space"),
			s.HelpKey.Render("d"),
			s.HelpKey.Render("esc"),
		)),
	)

	// Return with padding, not centered vertically, but horizontally centered if wide
	padded := lipgloss.NewStyle().Padding(1, 2).Render(content)
	return styles.CenterView(padded, v.width, v.height)
}

// formatWhen renders a timestamp in local time, leaving out a midnight clock
func formatWhen(t time.Time) string {
	t = t.Local()
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/tgienger/stmc/internal/models"
	"github.com/tgienger/stmc/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewLogin View = iota
	ViewTasks
)

// Session is the identity side of the app. auth.Session implements it.
type Session interface {
	views.Authenticator
	CurrentUser() *models.User
	Logout() error
}

type App struct {
	session     Session
	store       views.TaskStore
	prefs       views.Preferences
	log         *log.Logger
	currentView View
	userID      string
	login       *views.LoginView
	taskList    *views.TaskListView
	width       int
	height      int
}

// Creates a new application
func NewApp(session Session, store views.TaskStore, prefs views.Preferences, logger *log.Logger) *App {
	return &App{
		session:     session,
		store:       store,
		prefs:       prefs,
		log:         logger,
		currentView: ViewLogin,
		login:       views.NewLoginView(session),
	}
}

func (a *App) Init() tea.Cmd {
	// A restored session skips the sign in screen
	if u := a.session.CurrentUser(); u != nil {
		return a.openTasks(*u)
	}
	return a.login.Init()
}

func (a *App) openTasks(u models.User) tea.Cmd {
	a.currentView = ViewTasks
	a.userID = u.ID
	a.taskList = views.NewTaskListView(a.store, a.prefs, u)
	a.log.WithField("user_id", u.ID).Debug("opening task list")

	// Initialize task list with window size
	return tea.Batch(
		a.taskList.Init(),
		a.resize,
	)
}

func (a *App) openLogin() tea.Cmd {
	a.currentView = ViewLogin
	a.userID = ""
	a.taskList = nil
	a.login = views.NewLoginView(a.session)
	return tea.Batch(
		a.login.Init(),
		a.resize,
	)
}

func (a *App) resize() tea.Msg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Always update the login view size since it persists
		a.login.Update(msg)

	case views.IdentityMsg:
		switch {
		case msg.User == nil && a.currentView != ViewLogin:
			return a, a.openLogin()
		case msg.User != nil && msg.User.ID != a.userID:
			return a, a.openTasks(*msg.User)
		}
		return a, nil

	case views.LogoutRequested:
		return a, func() tea.Msg {
			if err := a.session.Logout(); err != nil {
				a.log.WithError(err).Error("logout")
			}
			return nil
		}
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLogin:
		_, cmd = a.login.Update(msg)
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewTasks:
		if a.taskList != nil {
			return a.taskList.View()
		}
	}
	return a.login.View()
}

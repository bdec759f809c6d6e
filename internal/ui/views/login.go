package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/stmc/internal/api"
	"github.com/tgienger/stmc/internal/ui/keys"
	"github.com/tgienger/stmc/internal/ui/styles"
)

const (
	loginFocusEmail = iota
	loginFocusPassword
	loginFocusSubmit
	loginFocusCount
)

// LoginView is the sign in / register screen
type LoginView struct {
	auth   Authenticator
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	email    textinput.Model
	password textinput.Model
	focusIdx int
	register bool

	busy    bool
	spinner spinner.Model
	status  string
}

type authDoneMsg struct {
	err error
}

// NewLoginView creates the sign in screen
func NewLoginView(auth Authenticator) *LoginView {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Current.Primary)

	v := &LoginView{
		auth:     auth,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		email:    email,
		password: password,
		spinner:  sp,
	}
	v.updateFocus()
	return v
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case spinner.TickMsg:
		if !v.busy {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case authDoneMsg:
		v.busy = false
		if msg.err != nil {
			v.status = api.Message(msg.err)
			return v, nil
		}
		v.status = ""
		v.password.Reset()
		return v, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return v, tea.Quit
		}
		if v.busy {
			return v, nil
		}
		return v.updateForm(msg)
	}

	return v, nil
}

func (v *LoginView) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.SwitchMode):
		v.register = !v.register
		v.status = ""
		return v, nil

	case key.Matches(msg, v.keys.Save):
		return v, v.submit()

	case key.Matches(msg, v.keys.Tab), msg.String() == "down":
		v.focusIdx = (v.focusIdx + 1) % loginFocusCount
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.BackTab), msg.String() == "up":
		v.focusIdx = (v.focusIdx + loginFocusCount - 1) % loginFocusCount
		v.updateFocus()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		if v.focusIdx == loginFocusSubmit {
			return v, v.submit()
		}
		v.focusIdx++
		v.updateFocus()
		return v, nil
	}

	var cmd tea.Cmd
	switch v.focusIdx {
	case loginFocusEmail:
		v.email, cmd = v.email.Update(msg)
	case loginFocusPassword:
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) updateFocus() {
	v.email.Blur()
	v.password.Blur()

	switch v.focusIdx {
	case loginFocusEmail:
		v.email.Focus()
	case loginFocusPassword:
		v.password.Focus()
	}
}

// submit validates the form locally and exchanges the credentials
func (v *LoginView) submit() tea.Cmd {
	email := strings.TrimSpace(v.email.Value())
	password := v.password.Value()
	if email == "" || password == "" {
		v.status = "Please enter your email and password"
		return nil
	}

	v.busy = true
	v.status = ""
	exchange := v.auth.Login
	if v.register {
		exchange = v.auth.Register
	}
	return tea.Batch(v.spinner.Tick, func() tea.Msg {
		_, err := exchange(context.Background(), email, password)
		return authDoneMsg{err: err}
	})
}

func (v *LoginView) View() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 40)

	emailStyle := s.Input
	passwordStyle := s.Input
	btnStyle := s.Button
	switch v.focusIdx {
	case loginFocusEmail:
		emailStyle = s.InputFocused
	case loginFocusPassword:
		passwordStyle = s.InputFocused
	case loginFocusSubmit:
		btnStyle = s.ButtonFocused
	}

	heading, action, other := "Sign in", " Sign in ", "register"
	if v.register {
		heading, action, other = "Create an account", " Register ", "sign in"
	}

	status := ""
	switch {
	case v.busy:
		status = v.spinner.View() + " " + s.TitleMuted.Render("Contacting the task service...")
	case v.status != "":
		status = s.StatusError.Render(v.status)
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("stmc"),
		s.TitleMuted.Render(heading),
		"",
		"Email:",
		emailStyle.Width(inputWidth).Render(v.email.View()),
		"",
		"Password:",
		passwordStyle.Width(inputWidth).Render(v.password.View()),
		"",
		btnStyle.Render(action),
		"",
		status,
		"",
		s.Help.Render(fmt.Sprintf("%s next • %s submit • %s %s • %s quit",
			s.HelpKey.Render("tab"),
			s.HelpKey.Render("↵"),
			s.HelpKey.Render("ctrl+r"),
			other,
			s.HelpKey.Render("ctrl+c"),
		)),
	)

	centered := lipgloss.Place(contentWidth, v.height,
		lipgloss.Center, lipgloss.Center,
		form,
	)
	return styles.CenterView(centered, v.width, v.height)
}

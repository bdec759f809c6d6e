package views

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stmc/internal/api"
	"github.com/tgienger/stmc/internal/models"
)

type fakeAuth struct {
	calls []string // "login:email" or "register:email"
	err   error
}

func (a *fakeAuth) Login(_ context.Context, email, _ string) (models.User, error) {
	a.calls = append(a.calls, "login:"+email)
	return models.User{ID: "u1", Email: email}, a.err
}

func (a *fakeAuth) Register(_ context.Context, email, _ string) (models.User, error) {
	a.calls = append(a.calls, "register:"+email)
	return models.User{ID: "u1", Email: email}, a.err
}

// submitLogin fills the form, submits it and runs the exchange
func submitLogin(v *LoginView, email, password string, extra ...tea.KeyMsg) {
	for _, k := range extra {
		v.Update(k)
	}
	v.Update(runes(email))
	v.Update(keyTab)
	v.Update(runes(password))
	v.Update(keyEnter)
	_, cmd := v.Update(keyEnter)
	runLogin(v, cmd)
}

func runLogin(v *LoginView, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			runLogin(v, c)
		}
	case authDoneMsg:
		v.Update(msg)
	}
}

func TestLoginRequiresEmailAndPassword(t *testing.T) {
	auth := &fakeAuth{}
	v := NewLoginView(auth)

	v.Update(runes("ada@example.com"))
	_, cmd := v.Update(keySave)

	assert.Nil(t, cmd)
	assert.Empty(t, auth.calls)
	assert.Equal(t, "Please enter your email and password", v.status)
}

func TestLoginSubmits(t *testing.T) {
	auth := &fakeAuth{}
	v := NewLoginView(auth)

	v.Update(runes(" ada@example.com "))
	v.Update(keyTab)
	v.Update(runes("secret"))
	_, cmd := v.Update(keySave)
	require.NotNil(t, cmd)
	assert.True(t, v.busy)

	runLogin(v, cmd)

	assert.Equal(t, []string{"login:ada@example.com"}, auth.calls)
	assert.False(t, v.busy)
	assert.Empty(t, v.status)
	assert.Empty(t, v.password.Value())
}

func TestEnterSubmitsFromButton(t *testing.T) {
	auth := &fakeAuth{}
	v := NewLoginView(auth)

	submitLogin(v, "ada@example.com", "secret")

	assert.Equal(t, []string{"login:ada@example.com"}, auth.calls)
}

func TestRegisterMode(t *testing.T) {
	auth := &fakeAuth{}
	v := NewLoginView(auth)

	submitLogin(v, "ada@example.com", "secret", tea.KeyMsg{Type: tea.KeyCtrlR})

	assert.Equal(t, []string{"register:ada@example.com"}, auth.calls)
	assert.Contains(t, v.View(), "Create an account")
}

func TestLoginFailureShowsMessage(t *testing.T) {
	auth := &fakeAuth{err: &api.RemoteError{Op: "auth.login", Status: 401, Message: "Invalid credentials"}}
	v := NewLoginView(auth)

	submitLogin(v, "ada@example.com", "wrong")

	assert.Equal(t, "Invalid credentials", v.status)
	assert.False(t, v.busy)
}

func TestLoginIgnoresKeysWhileBusy(t *testing.T) {
	auth := &fakeAuth{}
	v := NewLoginView(auth)

	v.Update(runes("ada@example.com"))
	v.Update(keyTab)
	v.Update(runes("secret"))
	v.Update(keySave)
	v.Update(runes("more"))

	assert.Equal(t, "secret", v.password.Value())
}

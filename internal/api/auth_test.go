package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stmc/internal/devserver"
)

func devAuth(t *testing.T) (*AuthClient, string) {
	t.Helper()
	dev := devserver.New(devserver.Config{Secret: []byte("secret")}, nil)
	srv := httptest.NewServer(dev.Handler())
	t.Cleanup(srv.Close)
	return NewAuthClient(srv.URL + "/api/auth"), srv.URL
}

func TestAuthRegisterLoginMe(t *testing.T) {
	ctx := context.Background()
	c, base := devAuth(t)

	token, user, err := c.Register(ctx, " ada@example.com ", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)

	token2, user2, err := c.Login(ctx, "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token2)
	assert.Equal(t, user.ID, user2.ID)

	me, err := c.Me(ctx, token2)
	require.NoError(t, err)
	assert.Equal(t, user, me)

	// the issued token is accepted by the task endpoints
	tasks := NewClient(base+"/api/tasks", static(token2))
	list, err := tasks.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAuthFailures(t *testing.T) {
	ctx := context.Background()
	c, _ := devAuth(t)

	_, _, err := c.Login(ctx, "nobody@example.com", "x")
	require.ErrorIs(t, err, ErrRemoteRejected)
	assert.Equal(t, "Invalid credentials", Message(err))

	_, _, err = c.Register(ctx, "", "")
	assert.Equal(t, "Please add all fields", Message(err))

	_, err = c.Me(ctx, "not.a.token")
	var re *RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.Status)

	_, err = c.Me(ctx, "")
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestAuthFallbackMessages(t *testing.T) {
	srv, _ := stub(t, http.StatusServiceUnavailable, "")
	c := NewAuthClient(srv.URL)
	ctx := context.Background()

	_, _, err := c.Login(ctx, "a@b.c", "x")
	assert.Equal(t, "Login failed", Message(err))
	_, _, err = c.Register(ctx, "a@b.c", "x")
	assert.Equal(t, "Registration failed", Message(err))
}

func TestAuthMalformedReply(t *testing.T) {
	srv, _ := stub(t, http.StatusOK, `{"token":""}`)

	_, _, err := NewAuthClient(srv.URL).Login(context.Background(), "a@b.c", "x")

	assert.ErrorIs(t, err, ErrMalformedResponse)
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/stmc/internal/api"
	"github.com/tgienger/stmc/internal/models"
)

type memStore struct {
	token   string
	cleared int
}

func (m *memStore) Token() (string, error)      { return m.token, nil }
func (m *memStore) SetToken(token string) error { m.token = token; return nil }
func (m *memStore) ClearToken() error           { m.token = ""; m.cleared++; return nil }

type fakeRemote struct {
	token   string
	user    models.User
	err     error
	meCalls int
}

func (f *fakeRemote) Login(context.Context, string, string) (string, models.User, error) {
	return f.token, f.user, f.err
}

func (f *fakeRemote) Register(context.Context, string, string) (string, models.User, error) {
	return f.token, f.user, f.err
}

func (f *fakeRemote) Me(context.Context, string) (models.User, error) {
	f.meCalls++
	return f.user, f.err
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	raw, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)
	return raw
}

func newSession(store CredentialStore, remote Authenticator) *Session {
	logger, _ := test.NewNullLogger()
	return NewSession(store, remote, logger)
}

func TestRestoreWithoutToken(t *testing.T) {
	remote := &fakeRemote{}
	s := newSession(&memStore{}, remote)

	require.NoError(t, s.Restore(context.Background()))

	assert.Nil(t, s.CurrentUser())
	assert.Zero(t, remote.meCalls)
	_, err := s.Token()
	assert.ErrorIs(t, err, api.ErrAuthRequired)
}

func TestRestoreValidToken(t *testing.T) {
	token := signed(t, time.Now().Add(time.Hour))
	store := &memStore{token: token}
	remote := &fakeRemote{user: models.User{ID: "u1", Email: "ada@example.com"}}
	s := newSession(store, remote)

	var seen []*models.User
	s.Subscribe(func(u *models.User) { seen = append(seen, u) })

	require.NoError(t, s.Restore(context.Background()))

	require.NotNil(t, s.CurrentUser())
	assert.Equal(t, "u1", s.CurrentUser().ID)
	require.Len(t, seen, 1)
	assert.Equal(t, "ada@example.com", seen[0].Email)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, token, tok.AccessToken)
	assert.True(t, tok.Valid())
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Expiry, time.Minute)
}

func TestRestoreExpiredTokenSkipsNetwork(t *testing.T) {
	store := &memStore{token: signed(t, time.Now().Add(-time.Minute))}
	remote := &fakeRemote{user: models.User{ID: "u1"}}
	s := newSession(store, remote)

	require.NoError(t, s.Restore(context.Background()))

	assert.Zero(t, remote.meCalls)
	assert.Nil(t, s.CurrentUser())
	assert.Empty(t, store.token)
	assert.Equal(t, 1, store.cleared)
}

func TestRestoreRejectedTokenIsCleared(t *testing.T) {
	store := &memStore{token: signed(t, time.Now().Add(time.Hour))}
	remote := &fakeRemote{err: &api.RemoteError{Op: "auth.me", Status: 401, Message: "Not authorized"}}
	s := newSession(store, remote)

	require.NoError(t, s.Restore(context.Background()))

	assert.Equal(t, 1, remote.meCalls)
	assert.Nil(t, s.CurrentUser())
	assert.Empty(t, store.token)
}

func TestLoginPersistsAndNotifies(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{token: "opaque-token", user: models.User{ID: "u7", Email: "bob@example.com"}}
	s := newSession(store, remote)

	var seen []*models.User
	cancel := s.Subscribe(func(u *models.User) { seen = append(seen, u) })

	u, err := s.Login(context.Background(), "bob@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u7", u.ID)
	assert.Equal(t, "opaque-token", store.token)

	tok, err := s.Token()
	require.NoError(t, err)
	assert.True(t, tok.Expiry.IsZero(), "non-JWT tokens carry no expiry")

	require.NoError(t, s.Logout())
	assert.Empty(t, store.token)
	assert.Nil(t, s.CurrentUser())
	require.Len(t, seen, 2)
	assert.Equal(t, "u7", seen[0].ID)
	assert.Nil(t, seen[1])

	cancel()
	cancel()
	_, err = s.Register(context.Background(), "bob@example.com", "pw")
	require.NoError(t, err)
	assert.Len(t, seen, 2, "cancelled subscribers are not called")
}

func TestLoginFailureKeepsSignedOut(t *testing.T) {
	store := &memStore{}
	remote := &fakeRemote{err: errors.New("Invalid credentials")}
	s := newSession(store, remote)

	_, err := s.Login(context.Background(), "a@b.c", "x")
	assert.EqualError(t, err, "Invalid credentials")
	assert.Nil(t, s.CurrentUser())
	assert.Empty(t, store.token)

	_, err = s.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrCredentialsRequired)
}

func TestCurrentUserIsACopy(t *testing.T) {
	remote := &fakeRemote{token: "t", user: models.User{ID: "u1", Email: "a@b.c"}}
	s := newSession(&memStore{}, remote)
	_, err := s.Login(context.Background(), "a@b.c", "x")
	require.NoError(t, err)

	s.CurrentUser().Email = "changed"

	assert.Equal(t, "a@b.c", s.CurrentUser().Email)
}

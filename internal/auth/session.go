// Package auth owns the signed-in identity. Session persists the token,
// restores it on start-up and tells subscribers when the user changes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/tgienger/stmc/internal/api"
	"github.com/tgienger/stmc/internal/models"
)

// ErrCredentialsRequired is returned by Login and Register when the email
// or password is blank.
var ErrCredentialsRequired = errors.New("email and password are required")

// CredentialStore keeps the token between runs. db.DB implements it.
type CredentialStore interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
}

// Authenticator is the remote side of sign-in. api.AuthClient implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, models.User, error)
	Register(ctx context.Context, email, password string) (string, models.User, error)
	Me(ctx context.Context, token string) (models.User, error)
}

// Session is the current identity. It is safe for concurrent use.
type Session struct {
	store  CredentialStore
	remote Authenticator
	log    *log.Logger
	now    func() time.Time

	mu     sync.RWMutex
	token  string
	user   *models.User
	nextID int
	subs   map[int]func(*models.User)
}

// NewSession creates a signed-out session. Call Restore to pick up a
// token saved by a previous run.
func NewSession(store CredentialStore, remote Authenticator, logger *log.Logger) *Session {
	return &Session{
		store:  store,
		remote: remote,
		log:    logger,
		now:    time.Now,
		subs:   make(map[int]func(*models.User)),
	}
}

// Restore loads the saved token and confirms it with the service. An
// expired token is discarded without a network call; a token the service
// rejects is discarded too. Restore only returns storage errors.
func (s *Session) Restore(ctx context.Context) error {
	token, err := s.store.Token()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token == "" {
		return nil
	}

	if exp, ok := expiry(token); ok && !exp.After(s.now()) {
		s.log.WithField("expired_at", exp).Info("saved session expired")
		return s.forget()
	}

	u, err := s.remote.Me(ctx, token)
	if err != nil {
		s.log.WithError(err).Warn("saved session rejected")
		return s.forget()
	}
	s.set(token, &u)
	return nil
}

// Login signs in and persists the token
func (s *Session) Login(ctx context.Context, email, password string) (models.User, error) {
	return s.signIn(ctx, email, password, s.remote.Login)
}

// Register creates an account and signs in to it
func (s *Session) Register(ctx context.Context, email, password string) (models.User, error) {
	return s.signIn(ctx, email, password, s.remote.Register)
}

type exchangeFunc func(ctx context.Context, email, password string) (string, models.User, error)

func (s *Session) signIn(ctx context.Context, email, password string, exchange exchangeFunc) (models.User, error) {
	if email == "" || password == "" {
		return models.User{}, ErrCredentialsRequired
	}
	token, u, err := exchange(ctx, email, password)
	if err != nil {
		return models.User{}, err
	}
	if err := s.store.SetToken(token); err != nil {
		return models.User{}, fmt.Errorf("save token: %w", err)
	}
	s.log.WithField("user_id", u.ID).Info("signed in")
	s.set(token, &u)
	return u, nil
}

// Logout forgets the token and the user
func (s *Session) Logout() error {
	s.log.Info("signed out")
	return s.forget()
}

// CurrentUser returns a copy of the signed-in user, or nil
func (s *Session) CurrentUser() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Subscribe registers fn to be called after every identity transition.
// fn runs on the goroutine that caused the change.
func (s *Session) Subscribe(fn func(*models.User)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Token implements oauth2.TokenSource so the gateway can ask for the
// bearer credential on every call.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return nil, api.ErrAuthRequired
	}
	tok := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if exp, ok := expiry(token); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

func (s *Session) forget() error {
	s.set("", nil)
	if err := s.store.ClearToken(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

func (s *Session) set(token string, u *models.User) {
	s.mu.Lock()
	changed := !sameUser(s.user, u)
	s.token = token
	s.user = u
	subs := make([]func(*models.User), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	for _, fn := range subs {
		var cp *models.User
		if u != nil {
			v := *u
			cp = &v
		}
		fn(cp)
	}
}

func sameUser(a, b *models.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

// expiry reads the exp claim without verifying the signature
func expiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

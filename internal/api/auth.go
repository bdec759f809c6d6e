package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"golang.org/x/oauth2"

	"github.com/tgienger/stmc/internal/models"
)

const (
	opRegister = "auth.register"
	opLogin    = "auth.login"
	opMe       = "auth.me"
)

// AuthClient talks to the authentication endpoints. It holds no state;
// the caller keeps the token.
type AuthClient struct {
	baseURL string
	t       *transport
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type wireUser struct {
	MongoID string `json:"_id"`
	ID      string `json:"id"`
	Email   string `json:"email"`
}

func (w wireUser) user() models.User {
	id := w.MongoID
	if id == "" {
		id = w.ID
	}
	return models.User{ID: id, Email: w.Email}
}

type authReply struct {
	Token string    `json:"token"`
	User  *wireUser `json:"user"`
}

// NewAuthClient creates a client for the auth service at baseURL
// (for example http://localhost:5000/api/auth).
func NewAuthClient(baseURL string, opts ...Option) *AuthClient {
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		t:       newTransport(opts),
	}
}

// Register creates an account and returns its token and user
func (c *AuthClient) Register(ctx context.Context, email, password string) (string, models.User, error) {
	return c.exchange(ctx, opRegister, "/register", "Registration failed", email, password)
}

// Login exchanges credentials for a token
func (c *AuthClient) Login(ctx context.Context, email, password string) (string, models.User, error) {
	return c.exchange(ctx, opLogin, "/login", "Login failed", email, password)
}

// Me returns the user the token belongs to
func (c *AuthClient) Me(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, fmt.Errorf("%s: %w", opMe, ErrAuthRequired)
	}
	payload, err := c.t.send(ctx, request{
		op:       opMe,
		fallback: "Session expired",
		method:   http.MethodGet,
		url:      c.baseURL + "/me",
		token:    &oauth2.Token{AccessToken: token, TokenType: "Bearer"},
	})
	if err != nil {
		return models.User{}, err
	}
	var reply authReply
	if err := sonic.ConfigStd.Unmarshal(payload, &reply); err != nil {
		return models.User{}, fmt.Errorf("%s: %w: %v", opMe, ErrMalformedResponse, err)
	}
	if reply.User == nil {
		return models.User{}, fmt.Errorf("%s: missing user: %w", opMe, ErrMalformedResponse)
	}
	return reply.User.user(), nil
}

func (c *AuthClient) exchange(ctx context.Context, op, path, fallback, email, password string) (string, models.User, error) {
	payload, err := c.t.send(ctx, request{
		op:       op,
		fallback: fallback,
		method:   http.MethodPost,
		url:      c.baseURL + path,
		body:     credentials{Email: strings.TrimSpace(email), Password: password},
	})
	if err != nil {
		return "", models.User{}, err
	}
	var reply authReply
	if err := sonic.ConfigStd.Unmarshal(payload, &reply); err != nil {
		return "", models.User{}, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	if reply.Token == "" || reply.User == nil {
		return "", models.User{}, fmt.Errorf("%s: missing token or user: %w", op, ErrMalformedResponse)
	}
	return reply.Token, reply.User.user(), nil
}

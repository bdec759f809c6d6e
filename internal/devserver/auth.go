package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const userKey = "user"

type user struct {
	ID           string `json:"_id"`
	Email        string `json:"email"`
	passwordHash []byte
}

type claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authReply struct {
	Token string `json:"token,omitempty"`
	User  *user  `json:"user"`
}

var errBadAuthorization = errors.New("bad authorization header")

func (s *Server) registerUser(c echo.Context) error {
	var in credentials
	if err := c.Bind(&in); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return fail(http.StatusBadRequest, "Please add all fields")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		return fail(http.StatusBadRequest, "User already exists")
	}
	u := &user{ID: uuid.NewString(), Email: email, passwordHash: hash}
	s.users[email] = u
	s.byID[u.ID] = u
	s.mu.Unlock()

	token, err := s.issue(u.ID)
	if err != nil {
		return err
	}
	s.log.WithField("user_id", u.ID).Info("user registered")
	return c.JSON(http.StatusCreated, authReply{Token: token, User: u})
}

func (s *Server) login(c echo.Context) error {
	var in credentials
	if err := c.Bind(&in); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	s.mu.RLock()
	u := s.users[email]
	s.mu.RUnlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(in.Password)) != nil {
		return fail(http.StatusUnauthorized, "Invalid credentials")
	}

	token, err := s.issue(u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authReply{Token: token, User: u})
}

func (s *Server) me(c echo.Context) error {
	return c.JSON(http.StatusOK, authReply{User: c.Get(userKey).(*user)})
}

// Token signs a token for an existing user id. Tests use it to skip the
// register round trip.
func (s *Server) Token(userID string) (string, error) {
	return s.issue(userID)
}

// AddUser creates an account directly and returns its id
func (s *Server) AddUser(email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	u := &user{ID: uuid.NewString(), Email: strings.ToLower(email), passwordHash: hash}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Email] = u
	s.byID[u.ID] = u
	return u.ID, nil
}

func (s *Server) issue(userID string) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return tok.SignedString(s.secret)
}

// requireUser resolves the bearer token to a known user
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return func(c echo.Context) error {
		raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return fail(http.StatusUnauthorized, "Not authorized, no token")
		}
		var cl claims
		if _, err := parser.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}); err != nil {
			return fail(http.StatusUnauthorized, "Not authorized")
		}
		s.mu.RLock()
		u := s.byID[cl.ID]
		s.mu.RUnlock()
		if u == nil {
			return fail(http.StatusUnauthorized, "Not authorized")
		}
		c.Set(userKey, u)
		return next(c)
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errBadAuthorization
	}
	token := strings.TrimSpace(header[len(prefix):])
	if strings.Count(token, ".") != 2 {
		return "", errBadAuthorization
	}
	return token, nil
}

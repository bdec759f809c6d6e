// Package devserver is an in-memory stand-in for the remote task service.
// It speaks the same JSON contract as the real backend and is used by the
// gateway tests and the stmc-devserver binary.
package devserver

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// Config controls token signing
type Config struct {
	Secret   []byte
	TokenTTL time.Duration
}

// Server holds users and their tasks in memory
type Server struct {
	e      *echo.Echo
	log    *log.Logger
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	users map[string]*user // by lower-cased email
	byID  map[string]*user
	tasks map[string][]*task // by owner id, insertion order
}

// New builds a server with its routes registered
func New(cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	s := &Server{
		e:      echo.New(),
		log:    logger,
		secret: cfg.Secret,
		ttl:    cfg.TokenTTL,
		now:    time.Now,
		users:  make(map[string]*user),
		byID:   make(map[string]*user),
		tasks:  make(map[string][]*task),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.JSONSerializer = sonicSerializer{}
	s.e.HTTPErrorHandler = s.handleError
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.RequestID())
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := s.log.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"request_id": v.RequestID,
				"latency_ms": v.Latency.Milliseconds(),
			})
			if v.Error != nil {
				entry.WithError(v.Error).Info("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))
	s.register()
	return s
}

func (s *Server) register() {
	a := s.e.Group("/api/auth")
	a.POST("/register", s.registerUser)
	a.POST("/login", s.login)
	a.GET("/me", s.me, s.requireUser)

	t := s.e.Group("/api/tasks", s.requireUser)
	t.GET("", s.listTasks)
	t.POST("", s.createTask)
	t.GET("/:id", s.getTask)
	t.PUT("/:id", s.updateTask)
	t.DELETE("/:id", s.deleteTask)
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on addr until Close is called
func (s *Server) Start(addr string) error {
	s.log.WithField("addr", addr).Info("dev server listening")
	err := s.e.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops the listener immediately
func (s *Server) Close() error {
	return s.e.Close()
}

type reply struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, reply{Success: true, Data: data})
}

func fail(status int, message string) error {
	return echo.NewHTTPError(status, message)
}

// handleError renders every error in the service envelope
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "Server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, isString := he.Message.(string); isString {
			message = m
		} else {
			message = http.StatusText(status)
		}
	} else {
		s.log.WithError(err).Error("unhandled error")
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, reply{Success: false, Message: message})
	}
	if err != nil {
		s.log.WithError(err).Warn("write error response")
	}
}

// sonicSerializer swaps echo's encoding/json codec for sonic
type sonicSerializer struct{}

func (sonicSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (sonicSerializer) Deserialize(c echo.Context, i any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err == nil {
		err = sonic.ConfigStd.Unmarshal(body, i)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body").SetInternal(err)
	}
	return nil
}

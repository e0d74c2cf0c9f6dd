// Package httpapi exposes the task service over HTTP.
//
// Every route under /api/todos requires a bearer token. The caller ID is
// taken from the verified token only; request bodies cannot carry an owner.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/slackmgr/todos/task"
)

// Option is a functional option for configuring a Server.
type Option func(*options)

type options struct {
	logger        task.Logger
	publicListing bool
}

// WithLogger sets the base logger. Each request gets a child logger carrying
// its request ID.
func WithLogger(logger task.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPublicListing registers GET /api/public/todos.
func WithPublicListing(enabled bool) Option {
	return func(o *options) { o.publicListing = enabled }
}

// Server routes HTTP requests to a [task.Service].
type Server struct {
	echo     *echo.Echo
	service  *task.Service
	verifier IdentityVerifier
	opts     *options
}

func New(service *task.Service, verifier IdentityVerifier, opts ...Option) *Server {
	o := &options{logger: task.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		service:  service,
		verifier: verifier,
		opts:     o,
	}

	e.HTTPErrorHandler = s.handleError

	e.Use(s.requestID)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:     true,
		LogURI:        true,
		LogStatus:     true,
		LogLatency:    true,
		LogError:      true,
		HandleError:   true,
		LogValuesFunc: s.logRequest,
	}))
	e.Use(middleware.Recover())

	e.GET("/health", s.health)

	api := e.Group("/api/todos", s.authenticate)
	api.GET("", s.listTasks)
	api.POST("", s.createTask)
	api.GET("/:id", s.getTask)
	api.PUT("/:id", s.updateTask)
	api.DELETE("/:id", s.deleteTask)

	if o.publicListing {
		e.GET("/api/public/todos", s.listPublicTasks)
	}

	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr and blocks until the server stops. It returns nil
// after a call to [Server.Shutdown].
func (s *Server) Start(addr string) error {
	s.opts.logger.WithField("addr", addr).Info("HTTP server listening")

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	return nil
}

// requestID tags each request with a fresh ID. An X-Request-ID sent by the
// client is ignored.
func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := uuid.NewString()

		req := c.Request()
		req.Header.Del(echo.HeaderXRequestID)
		c.Response().Header().Set(echo.HeaderXRequestID, id)

		logger := s.opts.logger.WithField("request_id", id)
		c.SetRequest(req.WithContext(task.ContextWithLogger(req.Context(), logger)))

		return next(c)
	}
}

func (s *Server) logRequest(c echo.Context, v middleware.RequestLoggerValues) error {
	logger := s.logger(c.Request().Context()).WithFields(map[string]any{
		"method":     v.Method,
		"uri":        v.URI,
		"status":     v.Status,
		"latency_ms": v.Latency.Milliseconds(),
	})

	if v.Status >= http.StatusInternalServerError {
		logger.Error("Request failed")
		return nil
	}

	logger.Info("Request handled")

	return nil
}

//nolint:ireturn
func (s *Server) logger(ctx context.Context) task.Logger {
	return task.LoggerFromContext(ctx, s.opts.logger)
}

package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/slackmgr/todos/task"
)

// taskRequest is the body accepted by create and update. Only the fields a
// caller may change are bound.
type taskRequest struct {
	Description string `json:"task"`
	Completed   bool   `json:"completed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listTasks(c echo.Context) error {
	tasks, err := s.service.ListForCaller(c.Request().Context(), callerID(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) listPublicTasks(c echo.Context) error {
	tasks, err := s.service.ListPublic(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) createTask(c echo.Context) error {
	draft, err := bindTask(c)
	if err != nil {
		return err
	}

	t, err := s.service.Create(c.Request().Context(), callerID(c), draft)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, t)
}

func (s *Server) getTask(c echo.Context) error {
	t, err := s.service.Get(c.Request().Context(), callerID(c), c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, t)
}

func (s *Server) updateTask(c echo.Context) error {
	draft, err := bindTask(c)
	if err != nil {
		return err
	}

	t, err := s.service.Update(c.Request().Context(), callerID(c), c.Param("id"), draft)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, t)
}

func (s *Server) deleteTask(c echo.Context) error {
	if err := s.service.Delete(c.Request().Context(), callerID(c), c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func bindTask(c echo.Context) (*task.Task, error) {
	var req taskRequest

	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return nil, fmt.Errorf("%w: malformed request body", task.ErrInvalidTask)
	}

	return &task.Task{
		Description: req.Description,
		Completed:   req.Completed,
	}, nil
}

// handleError maps service errors to status codes. Store failures are
// logged and reported with a generic message.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := s.classify(c, err)

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, errorResponse{Error: message})
	}

	if writeErr != nil {
		s.logger(c.Request().Context()).Errorf("Failed to write error response: %s", writeErr)
	}
}

func (s *Server) classify(c echo.Context, err error) (int, string) {
	var httpErr *echo.HTTPError

	switch {
	case errors.Is(err, task.ErrInvalidTask):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, task.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, task.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, task.ErrNotFound):
		return http.StatusNotFound, "task not found"
	case errors.As(err, &httpErr):
		return httpErr.Code, http.StatusText(httpErr.Code)
	}

	s.logger(c.Request().Context()).Errorf("Request failed: %s", err)

	return http.StatusInternalServerError, "internal server error"
}

func nonNil(tasks []*task.Task) []*task.Task {
	if tasks == nil {
		return []*task.Task{}
	}

	return tasks
}

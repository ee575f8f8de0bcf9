package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// identityMiddleware places the upstream user on the request context. A
// missing header leaves the request anonymous and the managers reject it.
func (s *Server) identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := strings.TrimSpace(c.Request().Header.Get(s.deps.UserHeader)); id != "" {
			ctx := auth.WithUser(c.Request().Context(), &core.User{ID: id})
			c.SetRequest(c.Request().WithContext(ctx))
		}
		return next(c)
	}
}

// errorMiddleware renders domain errors as JSON with the mapped status.
func (s *Server) errorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil {
			return nil
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			return err
		}

		status := apperr.HTTPStatus(err)
		resp := errorResponse{Error: err.Error()}
		var pe *apperr.PersistenceError
		if errors.As(err, &pe) {
			resp.Code = pe.Code
		}

		log := s.deps.Logger.With("path", c.Request().URL.Path, "method", c.Request().Method, "status", status)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "Request failed", "error", err)
		} else {
			log.InfoContext(c.Request().Context(), "Request rejected", "error", err)
		}

		if err := c.JSON(status, resp); err != nil {
			return fmt.Errorf("failed to write error response: %w", err)
		}
		return nil
	}
}

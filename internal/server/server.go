// Package server exposes the field operation managers as the JSON API the
// browser dashboard talks to.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/agrosync/fieldops/internal/history"
	"github.com/agrosync/fieldops/internal/markers"
	"github.com/agrosync/fieldops/internal/placement"
	"github.com/agrosync/fieldops/internal/profile"
	"github.com/agrosync/fieldops/internal/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultUserHeader carries the user id set by the upstream identity proxy.
const DefaultUserHeader = "X-User-ID"

// Dependencies holds all dependencies for the Server.
type Dependencies struct {
	Sessions   *sessions.Manager
	Markers    *markers.Ledger
	History    *history.Aggregator
	Placement  *placement.Service
	Profile    *profile.Service
	Logger     *slog.Logger
	UserHeader string
}

// Server is the dashboard HTTP API.
type Server struct {
	echo *echo.Echo
	deps Dependencies
}

// New creates a Server with all routes registered.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.UserHeader == "" {
		deps.UserHeader = DefaultUserHeader
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, deps: deps}
	e.Use(s.errorMiddleware)
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.deps.Logger.Info("Starting server", "address", addr)
	return s.echo.Start(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Package profile stores the per-user data around field work: dashboard
// preferences, weather lookups and crop image analyses.
package profile

import (
	"context"
	"log/slog"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/jonboulle/clockwork"
)

// DefaultWeatherLimit is the number of weather records returned when no limit is given.
const DefaultWeatherLimit = 10

// ActiveSessionFinder resolves the session an analysis belongs to.
type ActiveSessionFinder interface {
	Active(ctx context.Context) (*core.Session, error)
}

// Dependencies holds all dependencies for the Service.
type Dependencies struct {
	Store    storage.Store
	Auth     auth.Provider
	Sessions ActiveSessionFinder
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Service implements preferences, weather history and analyses.
type Service struct {
	deps Dependencies
}

// New creates a Service. Nil Clock and Logger fall back to defaults.
func New(deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// SavePreferences inserts or replaces the current user's preferences.
func (s *Service) SavePreferences(ctx context.Context, p core.Preferences) (*core.Preferences, error) {
	user, err := auth.Require(ctx, s.deps.Auth, "save preferences")
	if err != nil {
		return nil, err
	}
	p.UserID = user.ID
	if err := s.deps.Store.UpsertPreferences(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPreferences returns the current user's preferences, or nil when none were saved.
func (s *Service) GetPreferences(ctx context.Context) (*core.Preferences, error) {
	user, err := auth.Require(ctx, s.deps.Auth, "get preferences")
	if err != nil {
		return nil, err
	}
	p, err := s.deps.Store.GetPreferences(ctx, user.ID)
	if apperr.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SaveWeather stores a weather lookup for the current user.
func (s *Service) SaveWeather(ctx context.Context, w core.WeatherRecord) (*core.WeatherRecord, error) {
	user, err := auth.Require(ctx, s.deps.Auth, "save weather")
	if err != nil {
		return nil, err
	}
	w.ID = ""
	w.UserID = user.ID
	w.CreatedAt = s.deps.Clock.Now()
	if err := s.deps.Store.InsertWeather(ctx, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWeather returns the newest weather records, DefaultWeatherLimit when limit <= 0.
func (s *Service) ListWeather(ctx context.Context, limit int) ([]core.WeatherRecord, error) {
	user, err := auth.Require(ctx, s.deps.Auth, "list weather")
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultWeatherLimit
	}
	return s.deps.Store.FindWeather(ctx, user.ID, limit)
}

// SaveAnalysis stores an image analysis linked to the active session. When
// the active session cannot be resolved the analysis is stored without one.
func (s *Service) SaveAnalysis(ctx context.Context, a core.ImageAnalysis) (*core.ImageAnalysis, error) {
	user, err := auth.Require(ctx, s.deps.Auth, "save analysis")
	if err != nil {
		return nil, err
	}

	a.ID = ""
	a.UserID = user.ID
	a.SessionID = nil
	a.CreatedAt = s.deps.Clock.Now()
	if s.deps.Sessions != nil {
		if session, err := s.deps.Sessions.Active(ctx); err != nil {
			s.deps.Logger.Warn("Saving analysis without session", "user", user.ID, "error", err)
		} else {
			id := session.ID
			a.SessionID = &id
		}
	}

	if err := s.deps.Store.InsertAnalysis(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAnalyses returns the current user's analyses newest first.
func (s *Service) ListAnalyses(ctx context.Context) ([]core.ImageAnalysis, error) {
	user, err := auth.Require(ctx, s.deps.Auth, "list analyses")
	if err != nil {
		return nil, err
	}
	return s.deps.Store.FindAnalyses(ctx, user.ID)
}

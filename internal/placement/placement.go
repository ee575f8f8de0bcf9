// Package placement implements "mark this map location": it resolves the
// active session, names the spot and appends it as the next marker.
package placement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agrosync/fieldops/internal/geo"
	"github.com/agrosync/fieldops/internal/markers"
	"github.com/agrosync/fieldops/internal/sessions"
	"github.com/agrosync/fieldops/pkg/core"
)

// LocationNamer names a position. Implementations must not fail; they fall
// back to a coordinate label instead.
type LocationNamer interface {
	LocationName(ctx context.Context, lat, lng float64) string
}

// ActivityRecorder receives field activity after it has been stored.
type ActivityRecorder interface {
	MarkerPlaced(ctx context.Context, m core.Marker) error
	SessionCompleted(ctx context.Context, s core.Session, markers int) error
}

// Dependencies holds all dependencies for the Service.
type Dependencies struct {
	Sessions *sessions.Manager
	Markers  *markers.Ledger
	Namer    LocationNamer
	Activity ActivityRecorder
	Logger   *slog.Logger
}

// Service coordinates the session manager and marker ledger for map clicks.
type Service struct {
	deps Dependencies
}

// New creates a Service. Namer, Activity and Logger are optional.
func New(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// AreaName is the default label of the n-th marker of a session.
func AreaName(n int) string {
	return fmt.Sprintf("Area %d", n)
}

// Place records a marker at lat/lng in the active session, creating that
// session first when the user has none.
func (s *Service) Place(ctx context.Context, lat, lng float64) (*core.Marker, error) {
	if err := geo.Validate(lat, lng); err != nil {
		return nil, err
	}

	session, err := s.deps.Sessions.Active(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.deps.Markers.Count(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	locationName := geo.FallbackLocationName(lat, lng)
	if s.deps.Namer != nil {
		locationName = s.deps.Namer.LocationName(ctx, lat, lng)
	}

	m, err := s.deps.Markers.Add(ctx, session.ID, core.MarkerInput{
		Position:     core.Position{lat, lng},
		Coordinates:  geo.FormatCoordinates(lat, lng),
		LocationName: locationName,
		AreaName:     AreaName(existing + 1),
	})
	if err != nil {
		return nil, err
	}

	if s.deps.Activity != nil {
		if err := s.deps.Activity.MarkerPlaced(ctx, *m); err != nil {
			s.deps.Logger.Warn("Failed to record marker activity", "marker", m.ID, "error", err)
		}
	}
	return m, nil
}

// ActiveMarkers returns the markers of the active session, creating the
// session when there is none.
func (s *Service) ActiveMarkers(ctx context.Context) (*core.Session, []core.Marker, error) {
	session, err := s.deps.Sessions.Active(ctx)
	if err != nil {
		return nil, nil, err
	}
	list, err := s.deps.Markers.List(ctx, session.ID)
	if err != nil {
		return nil, nil, err
	}
	return session, list, nil
}

// Rollover completes the session and returns the fresh active session that
// replaces it.
func (s *Service) Rollover(ctx context.Context, sessionID string) (completed, next *core.Session, err error) {
	completed, err = s.deps.Sessions.Complete(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	if s.deps.Activity != nil {
		n, cerr := s.deps.Markers.Count(ctx, sessionID)
		if cerr != nil {
			s.deps.Logger.Warn("Failed to count markers for activity", "session", sessionID, "error", cerr)
		} else if err := s.deps.Activity.SessionCompleted(ctx, *completed, n); err != nil {
			s.deps.Logger.Warn("Failed to record session activity", "session", sessionID, "error", err)
		}
	}

	next, err = s.deps.Sessions.Active(ctx)
	if err != nil {
		return completed, nil, err
	}
	return completed, next, nil
}

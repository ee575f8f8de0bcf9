// Package storage defines the persistence gateway shared by every backend.
package storage

import (
	"context"

	"github.com/agrosync/fieldops/pkg/core"
)

// Store is the interface all storage implementations must satisfy.
// Every method is scoped by the owning user id; backends never see a request
// without one. Failures are returned as *apperr.PersistenceError.
type Store interface {
	// Lifecycle
	Init() error
	Close() error

	// Sessions
	InsertSession(ctx context.Context, s *core.Session) error
	FindSessions(ctx context.Context, q core.SessionQuery) ([]core.Session, error)
	GetSession(ctx context.Context, userID, id string) (*core.Session, error)
	UpdateSession(ctx context.Context, userID, id string, upd core.SessionUpdate) (*core.Session, error)
	DeleteSession(ctx context.Context, userID, id string) error

	// Markers, returned ascending by order
	InsertMarker(ctx context.Context, m *core.Marker) error
	FindMarkers(ctx context.Context, q core.MarkerQuery) ([]core.Marker, error)
	CountMarkers(ctx context.Context, q core.MarkerQuery) (int, error)
	DeleteMarker(ctx context.Context, userID, id string) error
	DeleteMarkers(ctx context.Context, q core.MarkerQuery) error

	// Profile data
	UpsertPreferences(ctx context.Context, p *core.Preferences) error
	GetPreferences(ctx context.Context, userID string) (*core.Preferences, error)
	InsertWeather(ctx context.Context, w *core.WeatherRecord) error
	FindWeather(ctx context.Context, userID string, limit int) ([]core.WeatherRecord, error)
	InsertAnalysis(ctx context.Context, a *core.ImageAnalysis) error
	FindAnalyses(ctx context.Context, userID string) ([]core.ImageAnalysis, error)
}

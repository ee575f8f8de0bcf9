// Package markers is the Marker Ledger: it appends ordered markers to a
// session and removes them again.
//
// A new marker's order is the session's marker count plus one, read and
// written in two separate store calls. Deleting never renumbers, so orders can
// have gaps, and concurrent inserts into one session can repeat an order.
package markers

import (
	"context"
	"log/slog"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/internal/geo"
	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/internal/telemetry"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/jonboulle/clockwork"
)

// Dependencies holds all dependencies for the Ledger.
type Dependencies struct {
	Store   storage.Store
	Auth    auth.Provider
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Ledger implements the marker operations.
type Ledger struct {
	deps Dependencies
}

// New creates a Ledger. Nil Clock and Logger fall back to defaults.
func New(deps Dependencies) *Ledger {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Ledger{deps: deps}
}

func (l *Ledger) failed(ctx context.Context, op string, err error) error {
	l.deps.Metrics.StoreError(ctx, op)
	l.deps.Logger.Error("Marker store call failed", "op", op, "error", err)
	return err
}

// Add appends a marker to the session with order = current count + 1 and
// returns the stored record. An empty coordinate string is filled in from the
// position. The session must exist and belong to the signed-in user, otherwise
// the no-rows error is returned and nothing is written.
func (l *Ledger) Add(ctx context.Context, sessionID string, in core.MarkerInput) (*core.Marker, error) {
	const op = "add marker"
	user, err := auth.Require(ctx, l.deps.Auth, op)
	if err != nil {
		return nil, err
	}

	if _, err := l.deps.Store.GetSession(ctx, user.ID, sessionID); err != nil {
		if apperr.IsNoRows(err) {
			l.deps.Logger.Warn("Marker rejected, session not found", "session", sessionID, "user", user.ID)
			return nil, err
		}
		return nil, l.failed(ctx, op, err)
	}

	q := core.MarkerQuery{UserID: user.ID, SessionID: sessionID}
	count, err := l.deps.Store.CountMarkers(ctx, q)
	if err != nil {
		return nil, l.failed(ctx, op, err)
	}

	coords := in.Coordinates
	if coords == "" {
		coords = geo.FormatCoordinates(in.Position.Lat(), in.Position.Lng())
	}

	m := &core.Marker{
		SessionID:    sessionID,
		UserID:       user.ID,
		AreaName:     in.AreaName,
		LocationName: in.LocationName,
		Coordinates:  coords,
		Latitude:     in.Position.Lat(),
		Longitude:    in.Position.Lng(),
		Order:        count + 1,
		CreatedAt:    l.deps.Clock.Now(),
	}
	if err := l.deps.Store.InsertMarker(ctx, m); err != nil {
		return nil, l.failed(ctx, op, err)
	}

	l.deps.Metrics.MarkerAdded(ctx)
	l.deps.Logger.Debug("Marker added", "session", sessionID, "marker", m.ID, "order", m.Order)
	return m, nil
}

// List returns the session's markers ascending by order.
func (l *Ledger) List(ctx context.Context, sessionID string) ([]core.Marker, error) {
	const op = "get markers"
	user, err := auth.Require(ctx, l.deps.Auth, op)
	if err != nil {
		return nil, err
	}
	out, err := l.deps.Store.FindMarkers(ctx, core.MarkerQuery{UserID: user.ID, SessionID: sessionID})
	if err != nil {
		return nil, l.failed(ctx, op, err)
	}
	return out, nil
}

// Count returns how many markers the session holds.
func (l *Ledger) Count(ctx context.Context, sessionID string) (int, error) {
	const op = "count markers"
	user, err := auth.Require(ctx, l.deps.Auth, op)
	if err != nil {
		return 0, err
	}
	n, err := l.deps.Store.CountMarkers(ctx, core.MarkerQuery{UserID: user.ID, SessionID: sessionID})
	if err != nil {
		return 0, l.failed(ctx, op, err)
	}
	return n, nil
}

// Delete removes one marker. The remaining markers keep their order values.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	const op = "delete marker"
	user, err := auth.Require(ctx, l.deps.Auth, op)
	if err != nil {
		return err
	}
	if err := l.deps.Store.DeleteMarker(ctx, user.ID, id); err != nil {
		return l.failed(ctx, op, err)
	}
	l.deps.Metrics.MarkersDeleted(ctx, 1)
	return nil
}

// Clear removes every marker of the session in one store call.
func (l *Ledger) Clear(ctx context.Context, sessionID string) error {
	const op = "clear markers"
	user, err := auth.Require(ctx, l.deps.Auth, op)
	if err != nil {
		return err
	}
	if err := l.deps.Store.DeleteMarkers(ctx, core.MarkerQuery{UserID: user.ID, SessionID: sessionID}); err != nil {
		return l.failed(ctx, op, err)
	}
	l.deps.Logger.Info("Session markers cleared", "session", sessionID, "user", user.ID)
	return nil
}

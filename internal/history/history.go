// Package history is the History Aggregator. It lists every session of the
// signed-in user, newest first, joined with that session's ordered markers.
package history

import (
	"context"
	"log/slog"

	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/internal/telemetry"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Dependencies holds all dependencies for the Aggregator.
type Dependencies struct {
	Store   storage.Store
	Auth    auth.Provider
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *telemetry.Metrics

	// MaxConcurrency bounds the per-session marker fetches. Zero means unbounded.
	MaxConcurrency int
}

// Aggregator builds the read-only history view.
type Aggregator struct {
	deps Dependencies
}

// New creates an Aggregator. Nil Clock and Logger fall back to defaults.
func New(deps Dependencies) *Aggregator {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Aggregator{deps: deps}
}

// List returns every session with its markers. Marker fetches run
// concurrently, one per session; the first failure cancels the rest and is
// returned without partial results.
func (a *Aggregator) List(ctx context.Context) ([]core.SessionHistory, error) {
	const op = "list sessions with markers"
	user, err := auth.Require(ctx, a.deps.Auth, op)
	if err != nil {
		return nil, err
	}
	start := a.deps.Clock.Now()

	sessions, err := a.deps.Store.FindSessions(ctx, core.SessionQuery{UserID: user.ID})
	if err != nil {
		a.deps.Metrics.StoreError(ctx, op)
		return nil, err
	}

	out := make([]core.SessionHistory, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	if a.deps.MaxConcurrency > 0 {
		g.SetLimit(a.deps.MaxConcurrency)
	}

	for i := range sessions {
		g.Go(func() error {
			markers, err := a.deps.Store.FindMarkers(gctx, core.MarkerQuery{
				UserID:    user.ID,
				SessionID: sessions[i].ID,
			})
			if err != nil {
				return err
			}
			out[i] = summarize(sessions[i], markers)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.deps.Metrics.StoreError(ctx, op)
		a.deps.Logger.Error("History aggregation aborted", "user", user.ID, "sessions", len(sessions), "error", err)
		return nil, err
	}

	a.deps.Metrics.HistoryDuration(ctx, a.deps.Clock.Since(start).Seconds(), len(sessions))
	return out, nil
}

// summarize joins a session with its markers and derives the per-session
// totals. First and last marker times come from creation time, not order.
func summarize(s core.Session, markers []core.Marker) core.SessionHistory {
	if markers == nil {
		markers = []core.Marker{}
	}
	h := core.SessionHistory{
		Session:    s,
		Markers:    markers,
		TotalAreas: len(markers),
	}
	for i := range markers {
		t := markers[i].CreatedAt
		if h.FirstMarkerAt == nil || t.Before(*h.FirstMarkerAt) {
			h.FirstMarkerAt = &t
		}
		if h.LastMarkerAt == nil || t.After(*h.LastMarkerAt) {
			h.LastMarkerAt = &t
		}
	}
	return h
}

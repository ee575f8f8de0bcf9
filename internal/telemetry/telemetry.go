// Package telemetry owns the OTel instruments for field operations. Meters come
// from the global provider, which is a no-op until one is installed.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/agrosync/fieldops/internal/telemetry"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics groups the counters recorded by the session, marker and history components.
// A nil *Metrics records nothing.
type Metrics struct {
	sessionsCreated   metric.Int64Counter
	sessionsCompleted metric.Int64Counter
	markersAdded      metric.Int64Counter
	markersDeleted    metric.Int64Counter
	storeErrors       metric.Int64Counter
	geocodeLookups    metric.Int64Counter
	historyDuration   metric.Float64Histogram
}

// New creates the instruments on the global meter.
func New() (*Metrics, error) {
	return NewWithMeter(meter())
}

// NewWithMeter creates the instruments on m.
func NewWithMeter(m metric.Meter) (*Metrics, error) {
	var (
		t   Metrics
		err error
	)

	if t.sessionsCreated, err = m.Int64Counter(
		"fieldops.sessions.created",
		metric.WithDescription("Sessions created, explicitly or by find-or-create"),
	); err != nil {
		return nil, fmt.Errorf("creating sessions created counter: %w", err)
	}

	if t.sessionsCompleted, err = m.Int64Counter(
		"fieldops.sessions.completed",
		metric.WithDescription("Sessions marked completed"),
	); err != nil {
		return nil, fmt.Errorf("creating sessions completed counter: %w", err)
	}

	if t.markersAdded, err = m.Int64Counter(
		"fieldops.markers.added",
		metric.WithDescription("Markers appended to a session"),
	); err != nil {
		return nil, fmt.Errorf("creating markers added counter: %w", err)
	}

	if t.markersDeleted, err = m.Int64Counter(
		"fieldops.markers.deleted",
		metric.WithDescription("Markers removed one by one or by clearing a session"),
	); err != nil {
		return nil, fmt.Errorf("creating markers deleted counter: %w", err)
	}

	if t.storeErrors, err = m.Int64Counter(
		"fieldops.store.errors",
		metric.WithDescription("Store calls that returned an error"),
	); err != nil {
		return nil, fmt.Errorf("creating store errors counter: %w", err)
	}

	if t.geocodeLookups, err = m.Int64Counter(
		"fieldops.geocode.lookups",
		metric.WithDescription("Reverse geocoding lookups by result"),
	); err != nil {
		return nil, fmt.Errorf("creating geocode counter: %w", err)
	}

	if t.historyDuration, err = m.Float64Histogram(
		"fieldops.history.duration",
		metric.WithDescription("Time to assemble the session history"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating history histogram: %w", err)
	}

	return &t, nil
}

// SessionCreated counts a new session; auto is true for find-or-create.
func (t *Metrics) SessionCreated(ctx context.Context, auto bool) {
	if t == nil {
		return
	}
	t.sessionsCreated.Add(ctx, 1, metric.WithAttributes(attribute.Bool("auto", auto)))
}

// SessionCompleted counts a completed session.
func (t *Metrics) SessionCompleted(ctx context.Context) {
	if t == nil {
		return
	}
	t.sessionsCompleted.Add(ctx, 1)
}

// MarkerAdded counts an appended marker.
func (t *Metrics) MarkerAdded(ctx context.Context) {
	if t == nil {
		return
	}
	t.markersAdded.Add(ctx, 1)
}

// MarkersDeleted counts n removed markers.
func (t *Metrics) MarkersDeleted(ctx context.Context, n int) {
	if t == nil || n <= 0 {
		return
	}
	t.markersDeleted.Add(ctx, int64(n))
}

// StoreError counts a failed store call for op.
func (t *Metrics) StoreError(ctx context.Context, op string) {
	if t == nil {
		return
	}
	t.storeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// GeocodeLookup counts a lookup with result "hit", "miss" or "fallback".
func (t *Metrics) GeocodeLookup(ctx context.Context, result string) {
	if t == nil {
		return
	}
	t.geocodeLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// HistoryDuration records how long a history fetch took, in seconds.
func (t *Metrics) HistoryDuration(ctx context.Context, seconds float64, sessions int) {
	if t == nil {
		return
	}
	t.historyDuration.Record(ctx, seconds, metric.WithAttributes(attribute.Int("sessions", sessions)))
}

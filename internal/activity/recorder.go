package activity

import (
	"context"
	"fmt"

	"github.com/agrosync/fieldops/pkg/core"
)

// DefaultBufferSize is the queue length per event kind.
const DefaultBufferSize = 1024

// Sink stores activity, e.g. *influx.Manager.
type Sink interface {
	MarkerPlaced(ctx context.Context, m core.Marker) error
	SessionCompleted(ctx context.Context, s core.Session, markers int) error
}

// Recorder queues activity for a Sink through a Dispatcher.
type Recorder struct {
	d *Dispatcher
}

// NewRecorder registers buffered, non-blocking handlers for sink on d.
func NewRecorder(d *Dispatcher, sink Sink, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	d.Register(KindMarkerPlaced, func(ctx context.Context, e Event) error {
		if e.Marker == nil {
			return fmt.Errorf("%s without marker", e.Kind)
		}
		return sink.MarkerPlaced(ctx, *e.Marker)
	}, Buffered(bufferSize), Logged())

	d.Register(KindSessionCompleted, func(ctx context.Context, e Event) error {
		if e.Session == nil {
			return fmt.Errorf("%s without session", e.Kind)
		}
		return sink.SessionCompleted(ctx, *e.Session, e.Markers)
	}, Buffered(bufferSize), Logged())

	return &Recorder{d: d}
}

// MarkerPlaced queues a marker placement.
func (r *Recorder) MarkerPlaced(ctx context.Context, m core.Marker) error {
	return r.d.Dispatch(ctx, Event{Kind: KindMarkerPlaced, Time: m.CreatedAt, Marker: &m})
}

// SessionCompleted queues a session completion.
func (r *Recorder) SessionCompleted(ctx context.Context, s core.Session, markers int) error {
	t := s.CreatedAt
	if s.EndTime != nil {
		t = *s.EndTime
	}
	return r.d.Dispatch(ctx, Event{Kind: KindSessionCompleted, Time: t, Session: &s, Markers: markers})
}

package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agrosync/fieldops/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu       sync.Mutex
	markers  []core.Marker
	sessions []core.Session
	counts   []int
	err      error
}

func (s *fakeSink) MarkerPlaced(_ context.Context, m core.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append(s.markers, m)
	return s.err
}

func (s *fakeSink) SessionCompleted(_ context.Context, sess core.Session, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, sess)
	s.counts = append(s.counts, n)
	return s.err
}

func TestRecorder_ForwardsToSink(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sink := &fakeSink{}
	r := NewRecorder(d, sink, 0)

	ctx := context.Background()
	require.NoError(t, r.MarkerPlaced(ctx, core.Marker{ID: "m-1", AreaName: "Area 1"}))
	require.NoError(t, r.MarkerPlaced(ctx, core.Marker{ID: "m-2", AreaName: "Area 2"}))

	end := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	require.NoError(t, r.SessionCompleted(ctx, core.Session{ID: "s-1", EndTime: &end}, 2))

	d.Close()

	require.Len(t, sink.markers, 2)
	assert.Equal(t, "Area 1", sink.markers[0].AreaName)
	assert.Equal(t, "Area 2", sink.markers[1].AreaName)
	require.Len(t, sink.sessions, 1)
	assert.Equal(t, "s-1", sink.sessions[0].ID)
	assert.Equal(t, []int{2}, sink.counts)
}

func TestRecorder_SinkErrorsStayInWorker(t *testing.T) {
	d, logs := newTestDispatcher(t)
	sink := &fakeSink{err: errors.New("influx unreachable")}
	r := NewRecorder(d, sink, 4)

	require.NoError(t, r.MarkerPlaced(context.Background(), core.Marker{ID: "m-1"}))
	d.Close()

	assert.Len(t, sink.markers, 1)
	assert.Contains(t, logs.String(), "influx unreachable")
}

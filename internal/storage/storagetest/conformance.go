package storagetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunConformance exercises the Store contract against stores built by newStore.
func RunConformance(t *testing.T, newStore func(t *testing.T, clock clockwork.Clock) storage.Store) {
	t.Run("InsertSessionAssignsIDAndTime", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		s := newStore(t, clock)

		sess := &core.Session{UserID: "u1", Name: "North block"}
		require.NoError(t, s.InsertSession(context.Background(), sess))
		assert.NotEmpty(t, sess.ID)
		assert.True(t, sess.CreatedAt.Equal(clock.Now()))
		assert.Equal(t, core.SessionActive, sess.Status)
	})

	t.Run("FindSessionsNewestFirstScopedByUser", func(t *testing.T) {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		s := newStore(t, clock)

		var ids []string
		for _, name := range []string{"first", "second", "third"} {
			sess := &core.Session{UserID: "u1", Name: name}
			require.NoError(t, s.InsertSession(ctx, sess))
			ids = append(ids, sess.ID)
			clock.Advance(time.Minute)
		}
		require.NoError(t, s.InsertSession(ctx, &core.Session{UserID: "u2", Name: "other"}))

		got, err := s.FindSessions(ctx, core.SessionQuery{UserID: "u1"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{got[0].ID, got[1].ID, got[2].ID})

		limited, err := s.FindSessions(ctx, core.SessionQuery{UserID: "u1", Limit: 1})
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, ids[2], limited[0].ID)

		none, err := s.FindSessions(ctx, core.SessionQuery{UserID: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("FindSessionsByStatus", func(t *testing.T) {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		s := newStore(t, clock)

		done := &core.Session{UserID: "u1", Status: core.SessionCompleted}
		require.NoError(t, s.InsertSession(ctx, done))
		clock.Advance(time.Second)
		live := &core.Session{UserID: "u1"}
		require.NoError(t, s.InsertSession(ctx, live))

		got, err := s.FindSessions(ctx, core.SessionQuery{UserID: "u1", Status: core.SessionActive})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, live.ID, got[0].ID)
	})

	t.Run("UpdateSessionPartial", func(t *testing.T) {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		s := newStore(t, clock)

		sess := &core.Session{UserID: "u1", Name: "before"}
		require.NoError(t, s.InsertSession(ctx, sess))

		notes := "sprayed east rows"
		got, err := s.UpdateSession(ctx, "u1", sess.ID, core.SessionUpdate{Notes: &notes})
		require.NoError(t, err)
		assert.Equal(t, "before", got.Name)
		require.NotNil(t, got.Notes)
		assert.Equal(t, notes, *got.Notes)

		status := core.SessionCompleted
		end := clock.Now().Add(time.Hour)
		got, err = s.UpdateSession(ctx, "u1", sess.ID, core.SessionUpdate{Status: &status, EndTime: &end})
		require.NoError(t, err)
		assert.Equal(t, core.SessionCompleted, got.Status)
		require.NotNil(t, got.EndTime)
		assert.True(t, got.EndTime.Equal(end))
	})

	t.Run("UpdateSessionNoMatch", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, clockwork.NewFakeClock())

		sess := &core.Session{UserID: "u1"}
		require.NoError(t, s.InsertSession(ctx, sess))

		name := "x"
		_, err := s.UpdateSession(ctx, "u1", "missing", core.SessionUpdate{Name: &name})
		assert.True(t, apperr.IsNoRows(err))

		_, err = s.UpdateSession(ctx, "u2", sess.ID, core.SessionUpdate{Name: &name})
		assert.True(t, apperr.IsNoRows(err), "other users' sessions are invisible")
	})

	t.Run("GetSessionScopedByUser", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, clockwork.NewFakeClock())

		sess := &core.Session{UserID: "u1", Name: "East paddock"}
		require.NoError(t, s.InsertSession(ctx, sess))

		got, err := s.GetSession(ctx, "u1", sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, "East paddock", got.Name)
		assert.Equal(t, core.SessionActive, got.Status)

		_, err = s.GetSession(ctx, "u2", sess.ID)
		assert.True(t, apperr.IsNoRows(err), "other users' sessions are invisible")

		_, err = s.GetSession(ctx, "u1", "missing")
		assert.True(t, apperr.IsNoRows(err))
	})

	t.Run("DeleteSessionCascadesMarkers", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, clockwork.NewFakeClock())

		keep := &core.Session{UserID: "u1"}
		drop := &core.Session{UserID: "u1"}
		require.NoError(t, s.InsertSession(ctx, keep))
		require.NoError(t, s.InsertSession(ctx, drop))
		for i := 1; i <= 2; i++ {
			require.NoError(t, s.InsertMarker(ctx, &core.Marker{UserID: "u1", SessionID: drop.ID, Order: i}))
			require.NoError(t, s.InsertMarker(ctx, &core.Marker{UserID: "u1", SessionID: keep.ID, Order: i}))
		}

		require.NoError(t, s.DeleteSession(ctx, "u1", drop.ID))

		n, err := s.CountMarkers(ctx, core.MarkerQuery{UserID: "u1", SessionID: drop.ID})
		require.NoError(t, err)
		assert.Zero(t, n)
		n, err = s.CountMarkers(ctx, core.MarkerQuery{UserID: "u1", SessionID: keep.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		left, err := s.FindSessions(ctx, core.SessionQuery{UserID: "u1"})
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, keep.ID, left[0].ID)

		assert.NoError(t, s.DeleteSession(ctx, "u1", "missing"))
	})

	t.Run("MarkersAscendingByOrder", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, clockwork.NewFakeClock())

		sess := &core.Session{UserID: "u1"}
		require.NoError(t, s.InsertSession(ctx, sess))
		for _, order := range []int{3, 1, 2} {
			require.NoError(t, s.InsertMarker(ctx, &core.Marker{
				UserID:    "u1",
				SessionID: sess.ID,
				Order:     order,
				Latitude:  11.0168,
				Longitude: 76.9558,
			}))
		}

		q := core.MarkerQuery{UserID: "u1", SessionID: sess.ID}
		got, err := s.FindMarkers(ctx, q)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{got[0].Order, got[1].Order, got[2].Order})
		assert.InDelta(t, 11.0168, got[0].Latitude, 1e-9)

		other, err := s.FindMarkers(ctx, core.MarkerQuery{UserID: "u2", SessionID: sess.ID})
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("DeleteMarkerLeavesGap", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, clockwork.NewFakeClock())

		sess := &core.Session{UserID: "u1"}
		require.NoError(t, s.InsertSession(ctx, sess))
		var middle string
		for i := 1; i <= 3; i++ {
			m := &core.Marker{UserID: "u1", SessionID: sess.ID, Order: i}
			require.NoError(t, s.InsertMarker(ctx, m))
			if i == 2 {
				middle = m.ID
			}
		}

		require.NoError(t, s.DeleteMarker(ctx, "u1", middle))
		require.NoError(t, s.DeleteMarker(ctx, "u1", "missing"))

		q := core.MarkerQuery{UserID: "u1", SessionID: sess.ID}
		got, err := s.FindMarkers(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 3}, []int{got[0].Order, got[1].Order})

		require.NoError(t, s.DeleteMarkers(ctx, q))
		n, err := s.CountMarkers(ctx, q)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Preferences", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, clockwork.NewFakeClock())

		_, err := s.GetPreferences(ctx, "u1")
		assert.True(t, apperr.IsNoRows(err))

		require.NoError(t, s.UpsertPreferences(ctx, &core.Preferences{UserID: "u1", Theme: "light"}))
		require.NoError(t, s.UpsertPreferences(ctx, &core.Preferences{UserID: "u1", Theme: "dark", WeatherAlerts: true}))

		got, err := s.GetPreferences(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "dark", got.Theme)
		assert.True(t, got.WeatherAlerts)
	})

	t.Run("WeatherNewestFirstWithLimit", func(t *testing.T) {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		s := newStore(t, clock)

		for _, loc := range []string{"a", "b", "c"} {
			require.NoError(t, s.InsertWeather(ctx, &core.WeatherRecord{
				UserID:   "u1",
				Location: loc,
				Raw:      json.RawMessage(`{"ok":true}`),
			}))
			clock.Advance(time.Minute)
		}

		got, err := s.FindWeather(ctx, "u1", 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c", got[0].Location)
		assert.Equal(t, "b", got[1].Location)
		assert.JSONEq(t, `{"ok":true}`, string(got[0].Raw))
	})

	t.Run("AnalysesNewestFirst", func(t *testing.T) {
		ctx := context.Background()
		clock := clockwork.NewFakeClock()
		s := newStore(t, clock)

		sessionID := "s-1"
		require.NoError(t, s.InsertAnalysis(ctx, &core.ImageAnalysis{UserID: "u1", CropHealth: "good"}))
		clock.Advance(time.Minute)
		require.NoError(t, s.InsertAnalysis(ctx, &core.ImageAnalysis{
			UserID:          "u1",
			SessionID:       &sessionID,
			CropHealth:      "poor",
			Recommendations: []string{"irrigate"},
		}))

		got, err := s.FindAnalyses(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "poor", got[0].CropHealth)
		require.NotNil(t, got[0].SessionID)
		assert.Equal(t, sessionID, *got[0].SessionID)
		assert.Equal(t, []string{"irrigate"}, got[0].Recommendations)
		assert.Nil(t, got[1].SessionID)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := newStore(t, clockwork.NewFakeClock())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.FindSessions(ctx, core.SessionQuery{UserID: "u1"})
		require.Error(t, err)
		var pe *apperr.PersistenceError
		assert.ErrorAs(t, err, &pe)
	})
}

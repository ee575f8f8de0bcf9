package profile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/internal/sessions"
	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/internal/storage/storagetest"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var grower = auth.StaticProvider{User: &core.User{ID: "grower-1"}}

type failingFinder struct{}

func (failingFinder) Active(context.Context) (*core.Session, error) {
	return nil, errors.New("store unavailable")
}

func newService(t *testing.T, f storagetest.Factory) (*Service, storage.Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	store := f.New(t, clock)
	svc := New(Dependencies{
		Store:    store,
		Auth:     grower,
		Sessions: sessions.New(sessions.Dependencies{Store: store, Auth: grower, Clock: clock}),
		Clock:    clock,
	})
	return svc, store, clock
}

func TestPreferences(t *testing.T) {
	storagetest.ForEach(t, func(t *testing.T, f storagetest.Factory) {
		svc, _, _ := newService(t, f)
		ctx := context.Background()

		got, err := svc.GetPreferences(ctx)
		require.NoError(t, err, "missing preferences are not an error")
		assert.Nil(t, got)

		lat, lng := 11.0168, 76.9558
		saved, err := svc.SavePreferences(ctx, core.Preferences{
			UserID:           "someone-else",
			DefaultLocation:  "Coimbatore",
			DefaultLatitude:  &lat,
			DefaultLongitude: &lng,
			Theme:            "dark",
		})
		require.NoError(t, err)
		assert.Equal(t, "grower-1", saved.UserID)

		got, err = svc.GetPreferences(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Coimbatore", got.DefaultLocation)
		require.NotNil(t, got.DefaultLatitude)
		assert.Equal(t, lat, *got.DefaultLatitude)
	})
}

func TestGetPreferences_StoreErrorPropagates(t *testing.T) {
	spy := storagetest.NewSpy(storagetest.NewMemoryStore(t, clockwork.NewFakeClock()))
	rejected := &apperr.PersistenceError{Kind: apperr.KindStoreRejected, Code: "42P01", Message: "relation does not exist"}
	spy.Errs["GetPreferences"] = rejected

	_, err := New(Dependencies{Store: spy, Auth: grower}).GetPreferences(context.Background())
	assert.Same(t, rejected, err)
}

func TestWeather_DefaultLimit(t *testing.T) {
	storagetest.ForEach(t, func(t *testing.T, f storagetest.Factory) {
		svc, _, clock := newService(t, f)
		ctx := context.Background()

		for i := 0; i < 12; i++ {
			_, err := svc.SaveWeather(ctx, core.WeatherRecord{
				Location:    "Coimbatore",
				Temperature: 28 + float64(i),
				Raw:         json.RawMessage(`{"cod":200}`),
			})
			require.NoError(t, err)
			clock.Advance(time.Minute)
		}

		got, err := svc.ListWeather(ctx, 0)
		require.NoError(t, err)
		require.Len(t, got, DefaultWeatherLimit)
		assert.Equal(t, 39.0, got[0].Temperature)

		got, err = svc.ListWeather(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}

func TestSaveAnalysis_LinksActiveSession(t *testing.T) {
	storagetest.ForEach(t, func(t *testing.T, f storagetest.Factory) {
		svc, store, _ := newService(t, f)
		ctx := context.Background()

		a, err := svc.SaveAnalysis(ctx, core.ImageAnalysis{
			ImageURL:        "https://cdn.example.org/leaf.jpg",
			CropHealth:      "moderate",
			Recommendations: []string{"check for leaf blight"},
		})
		require.NoError(t, err)
		require.NotNil(t, a.SessionID)

		active, err := store.FindSessions(ctx, core.SessionQuery{UserID: "grower-1", Status: core.SessionActive})
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, active[0].ID, *a.SessionID)

		list, err := svc.ListAnalyses(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, []string{"check for leaf blight"}, list[0].Recommendations)
	})
}

func TestSaveAnalysis_StandaloneWhenSessionUnavailable(t *testing.T) {
	store := storagetest.NewMemoryStore(t, clockwork.NewFakeClock())
	svc := New(Dependencies{Store: store, Auth: grower, Sessions: failingFinder{}})

	a, err := svc.SaveAnalysis(context.Background(), core.ImageAnalysis{CropHealth: "good"})
	require.NoError(t, err)
	assert.Nil(t, a.SessionID)
}

func TestNotAuthenticated(t *testing.T) {
	spy := storagetest.NewSpy(storagetest.NewMemoryStore(t, clockwork.NewFakeClock()))
	svc := New(Dependencies{Store: spy, Auth: auth.StaticProvider{}})
	ctx := context.Background()

	_, err := svc.GetPreferences(ctx)
	assert.True(t, apperr.IsAuth(err))
	_, err = svc.SavePreferences(ctx, core.Preferences{})
	assert.True(t, apperr.IsAuth(err))
	_, err = svc.SaveWeather(ctx, core.WeatherRecord{})
	assert.True(t, apperr.IsAuth(err))
	_, err = svc.ListWeather(ctx, 0)
	assert.True(t, apperr.IsAuth(err))
	_, err = svc.SaveAnalysis(ctx, core.ImageAnalysis{})
	assert.True(t, apperr.IsAuth(err))
	_, err = svc.ListAnalyses(ctx)
	assert.True(t, apperr.IsAuth(err))

	assert.Empty(t, spy.Calls())
}

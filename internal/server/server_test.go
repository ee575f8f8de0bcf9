package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/internal/history"
	"github.com/agrosync/fieldops/internal/markers"
	"github.com/agrosync/fieldops/internal/placement"
	"github.com/agrosync/fieldops/internal/profile"
	"github.com/agrosync/fieldops/internal/sessions"
	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/internal/storage/storagetest"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedNamer string

func (n fixedNamer) LocationName(_ context.Context, _, _ float64) string { return string(n) }

type testServer struct {
	srv   *Server
	store storage.Store
	clock *clockwork.FakeClock
}

func newTestServer(t *testing.T, store storage.Store) *testServer {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	if store == nil {
		store = storagetest.NewMemoryStore(t, clock)
	}
	provider := auth.ContextProvider{}

	sm := sessions.New(sessions.Dependencies{Store: store, Auth: provider, Clock: clock})
	ml := markers.New(markers.Dependencies{Store: store, Auth: provider, Clock: clock})
	srv := New(Dependencies{
		Sessions:  sm,
		Markers:   ml,
		History:   history.New(history.Dependencies{Store: store, Auth: provider, Clock: clock}),
		Placement: placement.New(placement.Dependencies{Sessions: sm, Markers: ml, Namer: fixedNamer("Pollachi, Tamil Nadu")}),
		Profile:   profile.New(profile.Dependencies{Store: store, Auth: provider, Sessions: sm, Clock: clock}),
	})
	return &testServer{srv: srv, store: store, clock: clock}
}

func (ts *testServer) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(DefaultUserHeader, user)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMissingIdentity_Unauthorized(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/api/sessions", "/api/sessions/active", "/api/history", "/api/preferences"} {
		t.Run(path, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, path, "", "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, decode[errorResponse](t, rec).Error, "not authenticated")
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/sessions", "grower-1", `{"name":"North field spraying"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[core.Session](t, rec)
	assert.Equal(t, "North field spraying", created.Name)
	assert.Equal(t, core.SessionActive, created.Status)

	rec = ts.do(t, http.MethodGet, "/api/sessions/active", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decode[core.Session](t, rec).ID)

	rec = ts.do(t, http.MethodPatch, "/api/sessions/"+created.ID, "grower-1", `{"notes":"wind from the west"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[core.Session](t, rec)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "wind from the west", *updated.Notes)
	assert.Equal(t, "North field spraying", updated.Name)

	ts.clock.Advance(time.Hour)
	rec = ts.do(t, http.MethodPost, "/api/sessions/"+created.ID+"/complete", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[completeResponse](t, rec)
	require.NotNil(t, done.Completed)
	require.NotNil(t, done.Active)
	assert.Equal(t, core.SessionCompleted, done.Completed.Status)
	require.NotNil(t, done.Completed.EndTime)
	assert.True(t, done.Completed.EndTime.Equal(ts.clock.Now()))
	assert.NotEqual(t, created.ID, done.Active.ID)
	assert.Equal(t, "Operation 3/14/2026 10:30:00 AM", done.Active.Name)

	rec = ts.do(t, http.MethodGet, "/api/sessions", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Session](t, rec), 2)

	rec = ts.do(t, http.MethodDelete, "/api/sessions/"+created.ID, "grower-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestUpdateSession_Validation(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPatch, "/api/sessions/abc", "grower-1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/sessions/abc", "grower-1", `{"notes":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSession_OtherUserNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/sessions", "grower-1", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[core.Session](t, rec)

	rec = ts.do(t, http.MethodPatch, "/api/sessions/"+created.ID, "grower-2", `{"notes":"not mine"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperr.CodeNoRows, decode[errorResponse](t, rec).Code)
}

func TestPlaceMarkers(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/markers/place", "grower-1", `{"latitude":10.6609,"longitude":-77.0048}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[core.Marker](t, rec)
	assert.Equal(t, "Area 1", first.AreaName)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, "10.660900°N, 77.004800°W", first.Coordinates)
	assert.Equal(t, "Pollachi, Tamil Nadu", first.LocationName)

	ts.clock.Advance(time.Second)
	rec = ts.do(t, http.MethodPost, "/api/markers/place", "grower-1", `{"latitude":10.661,"longitude":-77.005}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[core.Marker](t, rec)
	assert.Equal(t, 2, second.Order)
	assert.Equal(t, first.SessionID, second.SessionID)

	rec = ts.do(t, http.MethodGet, "/api/markers/active", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	active := decode[activeMarkersResponse](t, rec)
	assert.Equal(t, first.SessionID, active.Session.ID)
	require.Len(t, active.Markers, 2)

	rec = ts.do(t, http.MethodDelete, "/api/markers/"+first.ID, "grower-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/sessions/"+first.SessionID+"/markers", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	left := decode[[]core.Marker](t, rec)
	require.Len(t, left, 1)
	assert.Equal(t, 2, left[0].Order, "orders are not renumbered")

	rec = ts.do(t, http.MethodDelete, "/api/sessions/"+first.SessionID+"/markers", "grower-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/sessions/"+first.SessionID+"/markers", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]core.Marker](t, rec))
}

func TestPlaceMarker_Validation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing longitude", `{"latitude":10.5}`},
		{"latitude out of range", `{"latitude":91,"longitude":10}`},
		{"longitude out of range", `{"latitude":10,"longitude":-181}`},
		{"malformed", `{"latitude":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/markers/place", "grower-1", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	list, err := ts.store.FindSessions(context.Background(), core.SessionQuery{UserID: "grower-1"})
	require.NoError(t, err)
	assert.Empty(t, list, "rejected placements create no session")
}

func TestAddMarker_Raw(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/sessions", "grower-1", `{"name":"Survey"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decode[core.Session](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/sessions/"+session.ID+"/markers", "grower-1",
		`{"position":[-33.8688,151.2093],"locationName":"Sydney","areaName":"Paddock 4"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	m := decode[core.Marker](t, rec)
	assert.Equal(t, "Paddock 4", m.AreaName)
	assert.Equal(t, "33.868800°S, 151.209300°E", m.Coordinates)
	assert.Equal(t, 1, m.Order)
}

func TestAddMarker_OtherUsersSessionNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/sessions", "grower-1", `{"name":"Survey"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	session := decode[core.Session](t, rec)

	body := `{"position":[11.0168,76.9558],"areaName":"Area 1"}`
	rec = ts.do(t, http.MethodPost, "/api/sessions/"+session.ID+"/markers", "grower-2", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/sessions/no-such-session/markers", "grower-1", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/sessions/"+session.ID+"/markers", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]core.Marker](t, rec))
}

func TestHistory(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/markers/place", "grower-1", `{"latitude":11,"longitude":77}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/history", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]core.SessionHistory](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].TotalAreas)
	require.Len(t, entries[0].Markers, 1)

	rec = ts.do(t, http.MethodGet, "/api/history", "grower-2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]core.SessionHistory](t, rec))
}

func TestPreferences(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/preferences", "grower-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/preferences", "grower-1", `{"default_location":"Erode","theme":"dark","weather_alerts":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/preferences", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[core.Preferences](t, rec)
	assert.Equal(t, "grower-1", p.UserID)
	assert.Equal(t, "Erode", p.DefaultLocation)
	assert.True(t, p.WeatherAlerts)
}

func TestWeather(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, temp := range []string{"27.5", "29", "31.2"} {
		rec := ts.do(t, http.MethodPost, "/api/weather", "grower-1", `{"location":"Erode","temperature":`+temp+`}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		ts.clock.Advance(time.Minute)
	}

	rec := ts.do(t, http.MethodGet, "/api/weather?limit=2", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]core.WeatherRecord](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, 31.2, list[0].Temperature)

	rec = ts.do(t, http.MethodGet, "/api/weather?limit=many", "grower-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyses(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/analyses", "grower-1",
		`{"image_url":"https://cdn.example.org/leaf.jpg","crop_health":"poor","recommendations":["apply fungicide"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[core.ImageAnalysis](t, rec)
	require.NotNil(t, saved.SessionID)

	rec = ts.do(t, http.MethodGet, "/api/analyses", "grower-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]core.ImageAnalysis](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "poor", list[0].CropHealth)
}

func TestStoreFailure_BadGateway(t *testing.T) {
	clock := clockwork.NewFakeClock()
	spy := storagetest.NewSpy(storagetest.NewMemoryStore(t, clock))
	spy.Errs["FindSessions"] = &apperr.PersistenceError{Kind: apperr.KindStoreRejected, Code: "57P01", Message: "terminating connection"}
	ts := newTestServer(t, spy)

	rec := ts.do(t, http.MethodGet, "/api/sessions", "grower-1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "57P01", decode[errorResponse](t, rec).Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/unknown", "grower-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

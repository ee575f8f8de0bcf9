package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agrosync/fieldops/internal/model"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCoreToMarker_ProjectsLocation(t *testing.T) {
	m := CoreToMarker(core.Marker{
		SessionID: "s-1",
		Latitude:  11.0168,
		Longitude: 76.9558,
		Order:     3,
	})

	assert.Equal(t, 3, m.MarkerOrder)
	coords, ok := m.Location.Coordinates()
	require.True(t, ok, "valid position must produce a point")
	assert.InDelta(t, 8566680, coords.X, 50)
}

func TestCoreToMarker_InvalidPositionKeepsEmptyPoint(t *testing.T) {
	m := CoreToMarker(core.Marker{Latitude: 120, Longitude: 0})
	assert.True(t, m.Location.IsEmpty())
	assert.Equal(t, 120.0, m.Latitude)
}

func TestSessionUpdateColumns(t *testing.T) {
	name := "North field"
	status := core.SessionCompleted
	end := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	cols := SessionUpdateColumns(core.SessionUpdate{Name: &name, Status: &status, EndTime: &end})
	assert.Equal(t, map[string]any{
		"session_name": "North field",
		"status":       "completed",
		"end_time":     end,
	}, cols)

	assert.Empty(t, SessionUpdateColumns(core.SessionUpdate{}))
}

func TestSessionToCore_OptionalFields(t *testing.T) {
	s := SessionToCore(model.DroneSession{ID: "s-1", Status: "active"})
	assert.Nil(t, s.EndTime)
	assert.Nil(t, s.Notes)
	assert.True(t, s.IsActive())
}

func TestAnalysisRecommendations(t *testing.T) {
	row := CoreToAnalysis(core.ImageAnalysis{Recommendations: []string{"irrigate", "scout for pests"}})
	assert.JSONEq(t, `["irrigate","scout for pests"]`, string(row.Recommendations))

	empty := CoreToAnalysis(core.ImageAnalysis{})
	assert.Equal(t, datatypes.JSON("[]"), empty.Recommendations)

	back := AnalysisToCore(model.ImageAnalysis{Recommendations: datatypes.JSON(`["a"]`)})
	assert.Equal(t, []string{"a"}, back.Recommendations)

	none := AnalysisToCore(model.ImageAnalysis{})
	assert.NotNil(t, none.Recommendations)
	assert.Empty(t, none.Recommendations)
}

func TestWeatherRaw(t *testing.T) {
	row := CoreToWeather(core.WeatherRecord{Location: "Thiruvallur,IN"})
	assert.Equal(t, datatypes.JSON("null"), row.Data)
	assert.Nil(t, WeatherToCore(row).Raw)

	raw := json.RawMessage(`{"main":{"temp":31.5}}`)
	back := WeatherToCore(CoreToWeather(core.WeatherRecord{Raw: raw}))
	assert.JSONEq(t, string(raw), string(back.Raw))
}

package convert

import (
	"encoding/json"

	"github.com/agrosync/fieldops/internal/model"
	"github.com/agrosync/fieldops/pkg/core"
)

// SessionToCore converts a GORM model.DroneSession to a core.Session.
func SessionToCore(s model.DroneSession) core.Session {
	return core.Session{
		ID:        s.ID,
		UserID:    s.UserID,
		Name:      s.SessionName,
		Status:    core.SessionStatus(s.Status),
		CreatedAt: s.CreatedAt,
		EndTime:   s.EndTime,
		Notes:     s.Notes,
	}
}

// SessionsToCore converts a slice of sessions, preserving order.
func SessionsToCore(rows []model.DroneSession) []core.Session {
	out := make([]core.Session, len(rows))
	for i, r := range rows {
		out[i] = SessionToCore(r)
	}
	return out
}

// MarkerToCore converts a GORM model.SessionMarker to a core.Marker.
// The geometry column is derived data and is not carried back.
func MarkerToCore(m model.SessionMarker) core.Marker {
	return core.Marker{
		ID:           m.ID,
		SessionID:    m.SessionID,
		UserID:       m.UserID,
		AreaName:     m.AreaName,
		LocationName: m.LocationName,
		Coordinates:  m.Coordinates,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		Order:        m.MarkerOrder,
		CreatedAt:    m.CreatedAt,
	}
}

// MarkersToCore converts a slice of markers, preserving order.
func MarkersToCore(rows []model.SessionMarker) []core.Marker {
	out := make([]core.Marker, len(rows))
	for i, r := range rows {
		out[i] = MarkerToCore(r)
	}
	return out
}

// PreferencesToCore converts a GORM model.UserPreferences to core.Preferences.
func PreferencesToCore(p model.UserPreferences) core.Preferences {
	return core.Preferences{
		UserID:           p.UserID,
		DefaultLocation:  p.DefaultLocation,
		DefaultLatitude:  p.DefaultLatitude,
		DefaultLongitude: p.DefaultLongitude,
		WeatherAlerts:    p.WeatherAlerts,
		Theme:            p.Theme,
		UpdatedAt:        p.UpdatedAt,
	}
}

// WeatherToCore converts a GORM model.WeatherHistory to a core.WeatherRecord.
func WeatherToCore(w model.WeatherHistory) core.WeatherRecord {
	var raw json.RawMessage
	if len(w.Data) > 0 && string(w.Data) != "null" {
		raw = json.RawMessage(w.Data)
	}
	return core.WeatherRecord{
		ID:          w.ID,
		UserID:      w.UserID,
		Location:    w.Location,
		Temperature: w.Temperature,
		Humidity:    w.Humidity,
		WindSpeed:   w.WindSpeed,
		Condition:   w.WeatherCondition,
		Raw:         raw,
		CreatedAt:   w.CreatedAt,
	}
}

// AnalysisToCore converts a GORM model.ImageAnalysis to a core.ImageAnalysis.
func AnalysisToCore(a model.ImageAnalysis) core.ImageAnalysis {
	var recs []string
	if len(a.Recommendations) > 0 {
		_ = json.Unmarshal(a.Recommendations, &recs)
	}
	if recs == nil {
		recs = []string{}
	}
	return core.ImageAnalysis{
		ID:              a.ID,
		UserID:          a.UserID,
		SessionID:       a.SessionID,
		ImageURL:        a.ImageURL,
		Result:          a.AnalysisResult,
		CropHealth:      a.CropHealth,
		Recommendations: recs,
		CreatedAt:       a.CreatedAt,
	}
}

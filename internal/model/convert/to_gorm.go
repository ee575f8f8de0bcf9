// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/agrosync/fieldops/internal/geo"
	"github.com/agrosync/fieldops/internal/model"
	"github.com/agrosync/fieldops/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// positionToPoint projects lat/lng into the 3857 geometry column.
// Out-of-range positions keep an empty point instead of failing the insert.
func positionToPoint(lat, lng float64) geom.Point {
	pt, err := geo.Coords3857From4326(lng, lat)
	if err != nil {
		return geom.Point{}
	}
	return pt
}

// stringsToJSON converts a []string to datatypes.JSON for DB storage.
func stringsToJSON(items []string) datatypes.JSON {
	if len(items) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(items)
	return datatypes.JSON(data)
}

// rawToJSON stores a raw payload, defaulting to JSON null.
func rawToJSON(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}

// CoreToSession converts a core.Session to a GORM model.DroneSession.
func CoreToSession(s core.Session) model.DroneSession {
	return model.DroneSession{
		ID:          s.ID,
		UserID:      s.UserID,
		SessionName: s.Name,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
		EndTime:     s.EndTime,
		Notes:       s.Notes,
	}
}

// SessionUpdateColumns maps the non-nil fields of an update to column names.
func SessionUpdateColumns(u core.SessionUpdate) map[string]any {
	cols := make(map[string]any, 4)
	if u.Name != nil {
		cols["session_name"] = *u.Name
	}
	if u.Notes != nil {
		cols["notes"] = *u.Notes
	}
	if u.Status != nil {
		cols["status"] = string(*u.Status)
	}
	if u.EndTime != nil {
		cols["end_time"] = *u.EndTime
	}
	return cols
}

// CoreToMarker converts a core.Marker to a GORM model.SessionMarker, filling the geometry column.
func CoreToMarker(m core.Marker) model.SessionMarker {
	return model.SessionMarker{
		ID:           m.ID,
		SessionID:    m.SessionID,
		UserID:       m.UserID,
		AreaName:     m.AreaName,
		LocationName: m.LocationName,
		Coordinates:  m.Coordinates,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		Location:     positionToPoint(m.Latitude, m.Longitude),
		MarkerOrder:  m.Order,
		CreatedAt:    m.CreatedAt,
	}
}

// CoreToPreferences converts core.Preferences to a GORM model.UserPreferences.
func CoreToPreferences(p core.Preferences) model.UserPreferences {
	return model.UserPreferences{
		UserID:           p.UserID,
		DefaultLocation:  p.DefaultLocation,
		DefaultLatitude:  p.DefaultLatitude,
		DefaultLongitude: p.DefaultLongitude,
		WeatherAlerts:    p.WeatherAlerts,
		Theme:            p.Theme,
		UpdatedAt:        p.UpdatedAt,
	}
}

// CoreToWeather converts a core.WeatherRecord to a GORM model.WeatherHistory.
func CoreToWeather(w core.WeatherRecord) model.WeatherHistory {
	return model.WeatherHistory{
		ID:               w.ID,
		UserID:           w.UserID,
		Location:         w.Location,
		Temperature:      w.Temperature,
		Humidity:         w.Humidity,
		WindSpeed:        w.WindSpeed,
		WeatherCondition: w.Condition,
		Data:             rawToJSON(w.Raw),
		CreatedAt:        w.CreatedAt,
	}
}

// CoreToAnalysis converts a core.ImageAnalysis to a GORM model.ImageAnalysis.
func CoreToAnalysis(a core.ImageAnalysis) model.ImageAnalysis {
	return model.ImageAnalysis{
		ID:              a.ID,
		UserID:          a.UserID,
		SessionID:       a.SessionID,
		ImageURL:        a.ImageURL,
		AnalysisResult:  a.Result,
		CropHealth:      a.CropHealth,
		Recommendations: stringsToJSON(a.Recommendations),
		CreatedAt:       a.CreatedAt,
	}
}

// pkg/core/profile.go
package core

import (
	"encoding/json"
	"time"
)

// Preferences are per-user dashboard defaults.
type Preferences struct {
	UserID           string    `json:"user_id"`
	DefaultLocation  string    `json:"default_location"`
	DefaultLatitude  *float64  `json:"default_latitude,omitempty"`
	DefaultLongitude *float64  `json:"default_longitude,omitempty"`
	WeatherAlerts    bool      `json:"weather_alerts"`
	Theme            string    `json:"theme"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// WeatherRecord is a saved weather observation.
type WeatherRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Location    string          `json:"location"`
	Temperature float64         `json:"temperature"`
	Humidity    float64         `json:"humidity"`
	WindSpeed   float64         `json:"wind_speed"`
	Condition   string          `json:"weather_condition"`
	Raw         json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ImageAnalysis is a stored crop image analysis result, optionally linked to a session.
type ImageAnalysis struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	SessionID       *string   `json:"session_id,omitempty"`
	ImageURL        string    `json:"image_url"`
	Result          string    `json:"analysis_result"`
	CropHealth      string    `json:"crop_health"`
	Recommendations []string  `json:"recommendations"`
	CreatedAt       time.Time `json:"created_at"`
}

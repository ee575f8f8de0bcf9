package model

import (
	"time"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema.
// Order matters for migration: parents before children.
var DatabaseModels = []interface{}{
	&DroneSession{},
	&SessionMarker{},
	&UserPreferences{},
	&WeatherHistory{},
	&ImageAnalysis{},
}

// newID assigns a random UUID when the row has none yet.
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

////////////////////////
// OPERATION MODELS
////////////////////////

// DroneSession is one drone operation owned by a user.
// At most one row per user should have status "active"; nothing in the schema enforces it.
type DroneSession struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	UserID      string     `json:"user_id" gorm:"size:64;not null;index:idx_drone_session_user_status,priority:1"`
	SessionName string     `json:"session_name" gorm:"size:200"`
	Status      string     `json:"status" gorm:"size:16;not null;default:active;index:idx_drone_session_user_status,priority:2"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index:idx_drone_session_created_at"`
	EndTime     *time.Time `json:"end_time"`
	Notes       *string    `json:"notes" gorm:"size:2000"`

	Markers []SessionMarker `json:"-" gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*DroneSession) TableName() string {
	return "drone_sessions"
}

// BeforeCreate assigns the primary key.
func (s *DroneSession) BeforeCreate(*gorm.DB) error {
	newID(&s.ID)
	return nil
}

// SessionMarker is one geotagged point inside a session.
// MarkerOrder is count+1 at insert time and is never renumbered.
type SessionMarker struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	SessionID    string     `json:"session_id" gorm:"size:36;not null;index:idx_session_marker_session_order,priority:1"`
	UserID       string     `json:"user_id" gorm:"size:64;not null;index:idx_session_marker_user_id"`
	AreaName     string     `json:"area_name" gorm:"size:128"`
	LocationName string     `json:"location_name" gorm:"size:512"`
	Coordinates  string     `json:"coordinates" gorm:"size:64"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Location     geom.Point `json:"-"` // web mercator projection of latitude/longitude
	MarkerOrder  int        `json:"marker_order" gorm:"not null;index:idx_session_marker_session_order,priority:2"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (*SessionMarker) TableName() string {
	return "session_markers"
}

// BeforeCreate assigns the primary key.
func (m *SessionMarker) BeforeCreate(*gorm.DB) error {
	newID(&m.ID)
	return nil
}

////////////////////////
// PROFILE MODELS
////////////////////////

// UserPreferences holds one row per user, upserted on save.
type UserPreferences struct {
	UserID           string    `json:"user_id" gorm:"primaryKey;size:64"`
	DefaultLocation  string    `json:"default_location" gorm:"size:255"`
	DefaultLatitude  *float64  `json:"default_latitude"`
	DefaultLongitude *float64  `json:"default_longitude"`
	WeatherAlerts    bool      `json:"weather_alerts" gorm:"default:false"`
	Theme            string    `json:"theme" gorm:"size:32"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (*UserPreferences) TableName() string {
	return "user_preferences"
}

// WeatherHistory is a saved weather lookup with the raw provider payload.
type WeatherHistory struct {
	ID               string         `json:"id" gorm:"primaryKey;size:36"`
	UserID           string         `json:"user_id" gorm:"size:64;not null;index:idx_weather_history_user_created,priority:1"`
	Location         string         `json:"location" gorm:"size:255"`
	Temperature      float64        `json:"temperature"`
	Humidity         float64        `json:"humidity"`
	WindSpeed        float64        `json:"wind_speed"`
	WeatherCondition string         `json:"weather_condition" gorm:"size:128"`
	Data             datatypes.JSON `json:"data"`
	CreatedAt        time.Time      `json:"created_at" gorm:"index:idx_weather_history_user_created,priority:2"`
}

func (*WeatherHistory) TableName() string {
	return "weather_history"
}

// BeforeCreate assigns the primary key.
func (w *WeatherHistory) BeforeCreate(*gorm.DB) error {
	newID(&w.ID)
	return nil
}

// ImageAnalysis is a crop image analysis, linked to the session active at the time when there was one.
type ImageAnalysis struct {
	ID              string         `json:"id" gorm:"primaryKey;size:36"`
	UserID          string         `json:"user_id" gorm:"size:64;not null;index:idx_image_analysis_user_id"`
	SessionID       *string        `json:"session_id" gorm:"size:36;index:idx_image_analysis_session_id"`
	ImageURL        string         `json:"image_url" gorm:"size:1024"`
	AnalysisResult  string         `json:"analysis_result" gorm:"size:4000"`
	CropHealth      string         `json:"crop_health" gorm:"size:64"`
	Recommendations datatypes.JSON `json:"recommendations"`
	CreatedAt       time.Time      `json:"created_at"`
}

func (*ImageAnalysis) TableName() string {
	return "image_analyses"
}

// BeforeCreate assigns the primary key.
func (a *ImageAnalysis) BeforeCreate(*gorm.DB) error {
	newID(&a.ID)
	return nil
}

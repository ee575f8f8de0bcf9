// pkg/core/marker.go
package core

import "time"

// Position is a [latitude, longitude] pair in WGS84 degrees.
type Position [2]float64

// Lat returns the latitude component.
func (p Position) Lat() float64 { return p[0] }

// Lng returns the longitude component.
func (p Position) Lng() float64 { return p[1] }

// Marker is one geotagged point recorded within a session.
type Marker struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	AreaName     string    `json:"area_name"`
	LocationName string    `json:"location_name"`
	Coordinates  string    `json:"coordinates"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Order        int       `json:"marker_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// Position returns the marker location as [lat, lng].
func (m Marker) Position() Position {
	return Position{m.Latitude, m.Longitude}
}

// MarkerInput carries the caller supplied fields of a new marker.
type MarkerInput struct {
	Position     Position `json:"position"`
	Coordinates  string   `json:"coordinates"`
	LocationName string   `json:"locationName"`
	AreaName     string   `json:"areaName"`
}

// pkg/core/session.go
package core

import "time"

// SessionStatus is the lifecycle state of an operation session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == SessionActive || s == SessionCompleted
}

// User is the authenticated identity every read and write is scoped by.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Session is one drone operation grouping markers.
type Session struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"session_name"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	Notes     *string       `json:"notes,omitempty"`
}

// IsActive reports whether the session still accepts markers as the active one.
func (s Session) IsActive() bool {
	return s.Status == SessionActive
}

// SessionUpdate is a partial update; nil fields are left untouched.
type SessionUpdate struct {
	Name    *string        `json:"session_name,omitempty"`
	Notes   *string        `json:"notes,omitempty"`
	Status  *SessionStatus `json:"status,omitempty"`
	EndTime *time.Time     `json:"end_time,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u SessionUpdate) Empty() bool {
	return u.Name == nil && u.Notes == nil && u.Status == nil && u.EndTime == nil
}

// SessionHistory is a session joined with its markers for the history view.
type SessionHistory struct {
	Session
	Markers       []Marker   `json:"markers"`
	TotalAreas    int        `json:"total_areas"`
	FirstMarkerAt *time.Time `json:"first_marker_at,omitempty"`
	LastMarkerAt  *time.Time `json:"last_marker_at,omitempty"`
}

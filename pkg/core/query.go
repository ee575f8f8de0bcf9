// pkg/core/query.go
package core

// SessionQuery selects sessions owned by a user. Results are ordered by
// creation time, newest first. Zero Status matches every status and zero
// Limit returns every match.
type SessionQuery struct {
	UserID string
	Status SessionStatus
	Limit  int
}

// MarkerQuery selects markers owned by a user within a session.
type MarkerQuery struct {
	UserID    string
	SessionID string
}

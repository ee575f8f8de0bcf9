// Package memory implements storage.Store in process memory. It backs the
// default "memory" storage type and the component tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// sessionRecord keeps the insertion sequence next to the session so equal
// creation times still order deterministically.
type sessionRecord struct {
	session core.Session
	seq     uint64
}

type markerRecord struct {
	marker core.Marker
	seq    uint64
}

// Store keeps all rows in maps guarded by a single RWMutex.
type Store struct {
	clock clockwork.Clock

	sessions map[string]*sessionRecord // keyed by session ID
	markers  map[string]*markerRecord  // keyed by marker ID
	prefs    map[string]core.Preferences
	weather  []core.WeatherRecord
	analyses []core.ImageAnalysis

	seq uint64
	mu  sync.RWMutex
}

// New creates a new memory store. A nil clock uses the real clock.
func New(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:    clock,
		sessions: make(map[string]*sessionRecord),
		markers:  make(map[string]*markerRecord),
		prefs:    make(map[string]core.Preferences),
	}
}

// Init initializes the store
func (s *Store) Init() error {
	return nil
}

// Close cleans up resources
func (s *Store) Close() error {
	return nil
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = s.clock.Now()
	}
}

// InsertSession stores a copy of sess, assigning ID and CreatedAt when unset.
func (s *Store) InsertSession(ctx context.Context, sess *core.Session) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("insert session", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&sess.ID, &sess.CreatedAt)
	if sess.Status == "" {
		sess.Status = core.SessionActive
	}
	s.sessions[sess.ID] = &sessionRecord{session: *sess, seq: s.nextSeq()}
	return nil
}

// FindSessions returns the user's sessions newest first.
func (s *Store) FindSessions(ctx context.Context, q core.SessionQuery) ([]core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("find sessions", "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*sessionRecord, 0)
	for _, rec := range s.sessions {
		if rec.session.UserID != q.UserID {
			continue
		}
		if q.Status != "" && rec.session.Status != q.Status {
			continue
		}
		matched = append(matched, rec)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.session.CreatedAt.Equal(b.session.CreatedAt) {
			return a.session.CreatedAt.After(b.session.CreatedAt)
		}
		return a.seq > b.seq
	})
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]core.Session, len(matched))
	for i, rec := range matched {
		out[i] = rec.session
	}
	return out, nil
}

// GetSession returns the user's session with id, or a no-rows error.
func (s *Store) GetSession(ctx context.Context, userID, id string) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("get session", "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok || rec.session.UserID != userID {
		return nil, apperr.NoRows("get session", "session")
	}
	out := rec.session
	return &out, nil
}

// UpdateSession applies the non-nil fields of upd and returns the stored row.
func (s *Store) UpdateSession(ctx context.Context, userID, id string, upd core.SessionUpdate) (*core.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("update session", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[id]
	if !ok || rec.session.UserID != userID {
		return nil, apperr.NoRows("update session", "session")
	}
	if upd.Name != nil {
		rec.session.Name = *upd.Name
	}
	if upd.Notes != nil {
		notes := *upd.Notes
		rec.session.Notes = &notes
	}
	if upd.Status != nil {
		rec.session.Status = *upd.Status
	}
	if upd.EndTime != nil {
		end := *upd.EndTime
		rec.session.EndTime = &end
	}
	out := rec.session
	return &out, nil
}

// DeleteSession removes the session's markers and then the session itself.
// Deleting a missing session is not an error.
func (s *Store) DeleteSession(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("delete session", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for markerID, rec := range s.markers {
		if rec.marker.SessionID == id && rec.marker.UserID == userID {
			delete(s.markers, markerID)
		}
	}
	if rec, ok := s.sessions[id]; ok && rec.session.UserID == userID {
		delete(s.sessions, id)
	}
	return nil
}

// InsertMarker stores a copy of m, assigning ID and CreatedAt when unset.
func (s *Store) InsertMarker(ctx context.Context, m *core.Marker) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("insert marker", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&m.ID, &m.CreatedAt)
	s.markers[m.ID] = &markerRecord{marker: *m, seq: s.nextSeq()}
	return nil
}

func (s *Store) matchMarkers(q core.MarkerQuery) []*markerRecord {
	matched := make([]*markerRecord, 0)
	for _, rec := range s.markers {
		if rec.marker.UserID == q.UserID && rec.marker.SessionID == q.SessionID {
			matched = append(matched, rec)
		}
	}
	return matched
}

// FindMarkers returns the session's markers ascending by order.
func (s *Store) FindMarkers(ctx context.Context, q core.MarkerQuery) ([]core.Marker, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("find markers", "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchMarkers(q)
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].marker.Order != matched[j].marker.Order {
			return matched[i].marker.Order < matched[j].marker.Order
		}
		return matched[i].seq < matched[j].seq
	})

	out := make([]core.Marker, len(matched))
	for i, rec := range matched {
		out[i] = rec.marker
	}
	return out, nil
}

// CountMarkers returns how many markers the session currently holds.
func (s *Store) CountMarkers(ctx context.Context, q core.MarkerQuery) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperr.Store("count markers", "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.matchMarkers(q)), nil
}

// DeleteMarker removes one marker. Missing markers are not an error.
func (s *Store) DeleteMarker(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("delete marker", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.markers[id]; ok && rec.marker.UserID == userID {
		delete(s.markers, id)
	}
	return nil
}

// DeleteMarkers removes every marker of the session.
func (s *Store) DeleteMarkers(ctx context.Context, q core.MarkerQuery) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("delete markers", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.matchMarkers(q) {
		delete(s.markers, rec.marker.ID)
	}
	return nil
}

// UpsertPreferences replaces the user's preferences row.
func (s *Store) UpsertPreferences(ctx context.Context, p *core.Preferences) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("upsert preferences", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = s.clock.Now()
	s.prefs[p.UserID] = *p
	return nil
}

// GetPreferences returns the user's preferences or a no-rows error.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*core.Preferences, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("get preferences", "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return nil, apperr.NoRows("get preferences", "preferences")
	}
	return &p, nil
}

// InsertWeather appends a weather record.
func (s *Store) InsertWeather(ctx context.Context, w *core.WeatherRecord) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("insert weather", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&w.ID, &w.CreatedAt)
	s.weather = append(s.weather, *w)
	return nil
}

// FindWeather returns the user's newest weather records, at most limit when limit > 0.
func (s *Store) FindWeather(ctx context.Context, userID string, limit int) ([]core.WeatherRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("find weather", "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.WeatherRecord, 0)
	for i := len(s.weather) - 1; i >= 0; i-- {
		if s.weather[i].UserID == userID {
			out = append(out, s.weather[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InsertAnalysis appends an image analysis.
func (s *Store) InsertAnalysis(ctx context.Context, a *core.ImageAnalysis) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("insert analysis", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stamp(&a.ID, &a.CreatedAt)
	s.analyses = append(s.analyses, *a)
	return nil
}

// FindAnalyses returns the user's analyses newest first.
func (s *Store) FindAnalyses(ctx context.Context, userID string) ([]core.ImageAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("find analyses", "", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.ImageAnalysis, 0)
	for i := len(s.analyses) - 1; i >= 0; i-- {
		if s.analyses[i].UserID == userID {
			out = append(out, s.analyses[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

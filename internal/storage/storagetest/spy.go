package storagetest

import (
	"context"
	"sync"

	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/pkg/core"
)

// Spy wraps a Store, records which methods were called and can inject failures.
type Spy struct {
	storage.Store

	// Errs fails the named method (e.g. "InsertMarker") with the given error.
	Errs map[string]error
	// BeforeFindMarkers runs before every FindMarkers call; a non-nil error is returned instead.
	BeforeFindMarkers func(ctx context.Context, q core.MarkerQuery) error

	mu    sync.Mutex
	calls []string
}

// NewSpy wraps s.
func NewSpy(s storage.Store) *Spy {
	return &Spy{Store: s, Errs: map[string]error{}}
}

// Calls returns the recorded method names in call order.
func (s *Spy) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Spy) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
	return s.Errs[name]
}

func (s *Spy) InsertSession(ctx context.Context, sess *core.Session) error {
	if err := s.record("InsertSession"); err != nil {
		return err
	}
	return s.Store.InsertSession(ctx, sess)
}

func (s *Spy) FindSessions(ctx context.Context, q core.SessionQuery) ([]core.Session, error) {
	if err := s.record("FindSessions"); err != nil {
		return nil, err
	}
	return s.Store.FindSessions(ctx, q)
}

func (s *Spy) GetSession(ctx context.Context, userID, id string) (*core.Session, error) {
	if err := s.record("GetSession"); err != nil {
		return nil, err
	}
	return s.Store.GetSession(ctx, userID, id)
}

func (s *Spy) UpdateSession(ctx context.Context, userID, id string, upd core.SessionUpdate) (*core.Session, error) {
	if err := s.record("UpdateSession"); err != nil {
		return nil, err
	}
	return s.Store.UpdateSession(ctx, userID, id, upd)
}

func (s *Spy) DeleteSession(ctx context.Context, userID, id string) error {
	if err := s.record("DeleteSession"); err != nil {
		return err
	}
	return s.Store.DeleteSession(ctx, userID, id)
}

func (s *Spy) InsertMarker(ctx context.Context, m *core.Marker) error {
	if err := s.record("InsertMarker"); err != nil {
		return err
	}
	return s.Store.InsertMarker(ctx, m)
}

func (s *Spy) FindMarkers(ctx context.Context, q core.MarkerQuery) ([]core.Marker, error) {
	if err := s.record("FindMarkers"); err != nil {
		return nil, err
	}
	if s.BeforeFindMarkers != nil {
		if err := s.BeforeFindMarkers(ctx, q); err != nil {
			return nil, err
		}
	}
	return s.Store.FindMarkers(ctx, q)
}

func (s *Spy) CountMarkers(ctx context.Context, q core.MarkerQuery) (int, error) {
	if err := s.record("CountMarkers"); err != nil {
		return 0, err
	}
	return s.Store.CountMarkers(ctx, q)
}

func (s *Spy) DeleteMarker(ctx context.Context, userID, id string) error {
	if err := s.record("DeleteMarker"); err != nil {
		return err
	}
	return s.Store.DeleteMarker(ctx, userID, id)
}

func (s *Spy) DeleteMarkers(ctx context.Context, q core.MarkerQuery) error {
	if err := s.record("DeleteMarkers"); err != nil {
		return err
	}
	return s.Store.DeleteMarkers(ctx, q)
}

func (s *Spy) UpsertPreferences(ctx context.Context, p *core.Preferences) error {
	if err := s.record("UpsertPreferences"); err != nil {
		return err
	}
	return s.Store.UpsertPreferences(ctx, p)
}

func (s *Spy) GetPreferences(ctx context.Context, userID string) (*core.Preferences, error) {
	if err := s.record("GetPreferences"); err != nil {
		return nil, err
	}
	return s.Store.GetPreferences(ctx, userID)
}

func (s *Spy) InsertWeather(ctx context.Context, w *core.WeatherRecord) error {
	if err := s.record("InsertWeather"); err != nil {
		return err
	}
	return s.Store.InsertWeather(ctx, w)
}

func (s *Spy) FindWeather(ctx context.Context, userID string, limit int) ([]core.WeatherRecord, error) {
	if err := s.record("FindWeather"); err != nil {
		return nil, err
	}
	return s.Store.FindWeather(ctx, userID, limit)
}

func (s *Spy) InsertAnalysis(ctx context.Context, a *core.ImageAnalysis) error {
	if err := s.record("InsertAnalysis"); err != nil {
		return err
	}
	return s.Store.InsertAnalysis(ctx, a)
}

func (s *Spy) FindAnalyses(ctx context.Context, userID string) ([]core.ImageAnalysis, error) {
	if err := s.record("FindAnalyses"); err != nil {
		return nil, err
	}
	return s.Store.FindAnalyses(ctx, userID)
}

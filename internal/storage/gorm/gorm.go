// Package gormstorage implements storage.Store on top of GORM. The postgres
// and sqlite backends both open a *gorm.DB and hand it to this package.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/model"
	"github.com/agrosync/fieldops/internal/model/convert"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Dependencies holds all dependencies for the GORM store.
type Dependencies struct {
	DB     *gorm.DB
	Clock  clockwork.Clock
	Logger *slog.Logger
}

// Store implements storage.Store using GORM.
type Store struct {
	deps Dependencies
}

// New creates a new GORM store. Nil Clock and Logger fall back to defaults.
func New(deps Dependencies) *Store {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Store{deps: deps}
}

// DB exposes the underlying connection for backend specific maintenance.
func (s *Store) DB() *gorm.DB {
	return s.deps.DB
}

// SetDB injects a connection opened after construction.
func (s *Store) SetDB(db *gorm.DB) {
	s.deps.DB = db
}

// Init migrates the schema.
func (s *Store) Init() error {
	if s.deps.DB == nil {
		return fmt.Errorf("gorm store: no database connection")
	}
	if err := s.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	s.deps.Logger.Debug("Schema migrated", "dialect", s.deps.DB.Dialector.Name())
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s.deps.DB == nil {
		return nil
	}
	sqlDB, err := s.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// storeErr converts a driver error into a PersistenceError, keeping the
// server's SQLSTATE code when the driver exposes one.
func storeErr(op, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NoRows(op, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &apperr.PersistenceError{
			Kind:    apperr.KindStoreRejected,
			Op:      op,
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Cause:   err,
		}
	}
	return apperr.Store(op, "", err)
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.deps.DB.WithContext(ctx)
}

func (s *Store) stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = s.deps.Clock.Now()
	}
}

// InsertSession writes sess, assigning ID and CreatedAt when unset.
func (s *Store) InsertSession(ctx context.Context, sess *core.Session) error {
	s.stamp(&sess.ID, &sess.CreatedAt)
	if sess.Status == "" {
		sess.Status = core.SessionActive
	}
	row := convert.CoreToSession(*sess)
	if err := s.db(ctx).Omit(clause.Associations).Create(&row).Error; err != nil {
		return storeErr("insert session", "session", err)
	}
	return nil
}

// FindSessions returns the user's sessions newest first.
func (s *Store) FindSessions(ctx context.Context, q core.SessionQuery) ([]core.Session, error) {
	tx := s.db(ctx).Where("user_id = ?", q.UserID)
	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	tx = tx.Order("created_at desc")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []model.DroneSession
	if err := tx.Find(&rows).Error; err != nil {
		return nil, storeErr("find sessions", "session", err)
	}
	return convert.SessionsToCore(rows), nil
}

func (s *Store) firstSession(ctx context.Context, op, userID, id string) (*model.DroneSession, error) {
	var row model.DroneSession
	err := s.db(ctx).Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if err != nil {
		return nil, storeErr(op, "session", err)
	}
	return &row, nil
}

// GetSession returns the user's session with id, or a no-rows error.
func (s *Store) GetSession(ctx context.Context, userID, id string) (*core.Session, error) {
	row, err := s.firstSession(ctx, "get session", userID, id)
	if err != nil {
		return nil, err
	}
	out := convert.SessionToCore(*row)
	return &out, nil
}

// UpdateSession applies the non-nil fields of upd and returns the stored row.
func (s *Store) UpdateSession(ctx context.Context, userID, id string, upd core.SessionUpdate) (*core.Session, error) {
	const op = "update session"
	if _, err := s.firstSession(ctx, op, userID, id); err != nil {
		return nil, err
	}

	if cols := convert.SessionUpdateColumns(upd); len(cols) > 0 {
		err := s.db(ctx).Model(&model.DroneSession{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(cols).Error
		if err != nil {
			return nil, storeErr(op, "session", err)
		}
	}

	row, err := s.firstSession(ctx, op, userID, id)
	if err != nil {
		return nil, err
	}
	out := convert.SessionToCore(*row)
	return &out, nil
}

// DeleteSession removes the session's markers and then the session in one transaction.
func (s *Store) DeleteSession(ctx context.Context, userID, id string) error {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND user_id = ?", id, userID).
			Delete(&model.SessionMarker{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", id, userID).
			Delete(&model.DroneSession{}).Error
	})
	return storeErr("delete session", "session", err)
}

// InsertMarker writes m, assigning ID and CreatedAt when unset.
func (s *Store) InsertMarker(ctx context.Context, m *core.Marker) error {
	s.stamp(&m.ID, &m.CreatedAt)
	row := convert.CoreToMarker(*m)
	if err := s.db(ctx).Create(&row).Error; err != nil {
		return storeErr("insert marker", "marker", err)
	}
	return nil
}

func (s *Store) markerScope(ctx context.Context, q core.MarkerQuery) *gorm.DB {
	return s.db(ctx).Where("user_id = ? AND session_id = ?", q.UserID, q.SessionID)
}

// FindMarkers returns the session's markers ascending by order.
func (s *Store) FindMarkers(ctx context.Context, q core.MarkerQuery) ([]core.Marker, error) {
	var rows []model.SessionMarker
	err := s.markerScope(ctx, q).
		Order("marker_order asc").
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("find markers", "marker", err)
	}
	return convert.MarkersToCore(rows), nil
}

// CountMarkers returns how many markers the session currently holds.
func (s *Store) CountMarkers(ctx context.Context, q core.MarkerQuery) (int, error) {
	var n int64
	err := s.markerScope(ctx, q).Model(&model.SessionMarker{}).Count(&n).Error
	if err != nil {
		return 0, storeErr("count markers", "marker", err)
	}
	return int(n), nil
}

// DeleteMarker removes one marker. Missing markers are not an error.
func (s *Store) DeleteMarker(ctx context.Context, userID, id string) error {
	err := s.db(ctx).Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.SessionMarker{}).Error
	return storeErr("delete marker", "marker", err)
}

// DeleteMarkers removes every marker of the session.
func (s *Store) DeleteMarkers(ctx context.Context, q core.MarkerQuery) error {
	err := s.markerScope(ctx, q).Delete(&model.SessionMarker{}).Error
	return storeErr("delete markers", "marker", err)
}

// UpsertPreferences inserts or replaces the user's preferences row.
func (s *Store) UpsertPreferences(ctx context.Context, p *core.Preferences) error {
	p.UpdatedAt = s.deps.Clock.Now()
	row := convert.CoreToPreferences(*p)
	err := s.db(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	return storeErr("upsert preferences", "preferences", err)
}

// GetPreferences returns the user's preferences or a no-rows error.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*core.Preferences, error) {
	var row model.UserPreferences
	if err := s.db(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, storeErr("get preferences", "preferences", err)
	}
	out := convert.PreferencesToCore(row)
	return &out, nil
}

// InsertWeather writes a weather record.
func (s *Store) InsertWeather(ctx context.Context, w *core.WeatherRecord) error {
	s.stamp(&w.ID, &w.CreatedAt)
	row := convert.CoreToWeather(*w)
	return storeErr("insert weather", "weather record", s.db(ctx).Create(&row).Error)
}

// FindWeather returns the user's newest weather records, at most limit when limit > 0.
func (s *Store) FindWeather(ctx context.Context, userID string, limit int) ([]core.WeatherRecord, error) {
	tx := s.db(ctx).Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []model.WeatherHistory
	if err := tx.Find(&rows).Error; err != nil {
		return nil, storeErr("find weather", "weather record", err)
	}
	out := make([]core.WeatherRecord, len(rows))
	for i, r := range rows {
		out[i] = convert.WeatherToCore(r)
	}
	return out, nil
}

// InsertAnalysis writes an image analysis.
func (s *Store) InsertAnalysis(ctx context.Context, a *core.ImageAnalysis) error {
	s.stamp(&a.ID, &a.CreatedAt)
	row := convert.CoreToAnalysis(*a)
	return storeErr("insert analysis", "analysis", s.db(ctx).Create(&row).Error)
}

// FindAnalyses returns the user's analyses newest first.
func (s *Store) FindAnalyses(ctx context.Context, userID string) ([]core.ImageAnalysis, error) {
	var rows []model.ImageAnalysis
	err := s.db(ctx).Where("user_id = ?", userID).Order("created_at desc").Find(&rows).Error
	if err != nil {
		return nil, storeErr("find analyses", "analysis", err)
	}
	out := make([]core.ImageAnalysis, len(rows))
	for i, r := range rows {
		out[i] = convert.AnalysisToCore(r)
	}
	return out, nil
}

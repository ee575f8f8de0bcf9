// Package sessions is the Session Manager: it finds or creates the single
// active operation session of the signed-in user and moves sessions through
// their active -> completed lifecycle.
//
// The active session is derived from the store on every call. Nothing is
// cached, so two concurrent find-or-create calls for a user without an active
// session may both create one. The store has no constraint preventing it.
package sessions

import (
	"context"
	"log/slog"
	"time"

	"github.com/agrosync/fieldops/internal/auth"
	"github.com/agrosync/fieldops/internal/storage"
	"github.com/agrosync/fieldops/internal/telemetry"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/jonboulle/clockwork"
)

const (
	dateLayout = "1/2/2006"
	timeLayout = "3:04:05 PM"
)

// DefaultName is the name given to an explicitly created session without one.
func DefaultName(t time.Time) string {
	return "Operation " + t.Format(dateLayout)
}

// ActiveName is the name given to a session created by find-or-create.
func ActiveName(t time.Time) string {
	return "Operation " + t.Format(dateLayout) + " " + t.Format(timeLayout)
}

// Dependencies holds all dependencies for the Manager.
type Dependencies struct {
	Store   storage.Store
	Auth    auth.Provider
	Clock   clockwork.Clock
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Manager implements the session operations.
type Manager struct {
	deps Dependencies
}

// New creates a Manager. Nil Clock and Logger fall back to defaults.
func New(deps Dependencies) *Manager {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{deps: deps}
}

func (m *Manager) failed(ctx context.Context, op string, err error) error {
	m.deps.Metrics.StoreError(ctx, op)
	m.deps.Logger.Error("Session store call failed", "op", op, "error", err)
	return err
}

// Create inserts a new active session for the current user. An empty name
// becomes "Operation <date>".
func (m *Manager) Create(ctx context.Context, name string) (*core.Session, error) {
	const op = "create session"
	user, err := auth.Require(ctx, m.deps.Auth, op)
	if err != nil {
		return nil, err
	}
	return m.create(ctx, user.ID, name, false)
}

func (m *Manager) create(ctx context.Context, userID, name string, auto bool) (*core.Session, error) {
	now := m.deps.Clock.Now()
	if name == "" {
		name = DefaultName(now)
	}

	sess := &core.Session{
		UserID:    userID,
		Name:      name,
		Status:    core.SessionActive,
		CreatedAt: now,
	}
	if err := m.deps.Store.InsertSession(ctx, sess); err != nil {
		return nil, m.failed(ctx, "create session", err)
	}

	m.deps.Metrics.SessionCreated(ctx, auto)
	m.deps.Logger.Debug("Session created", "session", sess.ID, "user", userID, "name", sess.Name, "auto", auto)
	return sess, nil
}

// List returns every session of the current user, newest first.
func (m *Manager) List(ctx context.Context) ([]core.Session, error) {
	const op = "list sessions"
	user, err := auth.Require(ctx, m.deps.Auth, op)
	if err != nil {
		return nil, err
	}
	out, err := m.deps.Store.FindSessions(ctx, core.SessionQuery{UserID: user.ID})
	if err != nil {
		return nil, m.failed(ctx, op, err)
	}
	return out, nil
}

// Active returns the newest active session of the current user, creating
// "Operation <date> <time>" when there is none.
func (m *Manager) Active(ctx context.Context) (*core.Session, error) {
	const op = "get active session"
	user, err := auth.Require(ctx, m.deps.Auth, op)
	if err != nil {
		return nil, err
	}

	found, err := m.deps.Store.FindSessions(ctx, core.SessionQuery{
		UserID: user.ID,
		Status: core.SessionActive,
		Limit:  1,
	})
	if err != nil {
		return nil, m.failed(ctx, op, err)
	}
	if len(found) > 0 {
		return &found[0], nil
	}

	return m.create(ctx, user.ID, ActiveName(m.deps.Clock.Now()), true)
}

// Complete marks the session completed and stamps its end time. Completing an
// already completed session stamps a new end time and is not an error.
func (m *Manager) Complete(ctx context.Context, id string) (*core.Session, error) {
	const op = "complete session"
	user, err := auth.Require(ctx, m.deps.Auth, op)
	if err != nil {
		return nil, err
	}

	status := core.SessionCompleted
	end := m.deps.Clock.Now()
	sess, err := m.deps.Store.UpdateSession(ctx, user.ID, id, core.SessionUpdate{
		Status:  &status,
		EndTime: &end,
	})
	if err != nil {
		return nil, m.failed(ctx, op, err)
	}

	m.deps.Metrics.SessionCompleted(ctx)
	m.deps.Logger.Info("Session completed", "session", id, "user", user.ID)
	return sess, nil
}

// Update applies a partial update. Field values are passed to the store as is.
func (m *Manager) Update(ctx context.Context, id string, upd core.SessionUpdate) (*core.Session, error) {
	const op = "update session"
	user, err := auth.Require(ctx, m.deps.Auth, op)
	if err != nil {
		return nil, err
	}
	sess, err := m.deps.Store.UpdateSession(ctx, user.ID, id, upd)
	if err != nil {
		return nil, m.failed(ctx, op, err)
	}
	return sess, nil
}

// Delete removes the session together with its markers.
func (m *Manager) Delete(ctx context.Context, id string) error {
	const op = "delete session"
	user, err := auth.Require(ctx, m.deps.Auth, op)
	if err != nil {
		return err
	}
	if err := m.deps.Store.DeleteSession(ctx, user.ID, id); err != nil {
		return m.failed(ctx, op, err)
	}
	m.deps.Logger.Info("Session deleted", "session", id, "user", user.ID)
	return nil
}

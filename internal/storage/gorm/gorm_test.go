package gormstorage_test

import (
	"context"
	"testing"

	"github.com/agrosync/fieldops/internal/apperr"
	"github.com/agrosync/fieldops/internal/model"
	gormstorage "github.com/agrosync/fieldops/internal/storage/gorm"
	"github.com/agrosync/fieldops/internal/storage/storagetest"
	"github.com/agrosync/fieldops/pkg/core"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConformance(t *testing.T) {
	storagetest.RunConformance(t, storagetest.NewSQLiteStore)
}

func TestInit_NoDB(t *testing.T) {
	s := gormstorage.New(gormstorage.Dependencies{})
	assert.Error(t, s.Init())
	assert.NoError(t, s.Close())
}

func TestInit_CreatesTables(t *testing.T) {
	db := storagetest.OpenSQLite(t)
	s := gormstorage.New(gormstorage.Dependencies{DB: db})
	require.NoError(t, s.Init())

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestInsertMarker_StoresProjectedLocation(t *testing.T) {
	ctx := context.Background()
	db := storagetest.OpenSQLite(t)
	s := gormstorage.New(gormstorage.Dependencies{DB: db, Clock: clockwork.NewFakeClock()})
	require.NoError(t, s.Init())

	m := &core.Marker{UserID: "u1", SessionID: "s1", Order: 1, Latitude: 11.0168, Longitude: 76.9558}
	require.NoError(t, s.InsertMarker(ctx, m))

	var row model.SessionMarker
	require.NoError(t, db.First(&row, "id = ?", m.ID).Error)
	coords, ok := row.Location.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 8566680, coords.X, 50)
}

func TestClosedDB_ReturnsPersistenceError(t *testing.T) {
	db := storagetest.OpenSQLite(t)
	s := gormstorage.New(gormstorage.Dependencies{DB: db})
	require.NoError(t, s.Init())
	require.NoError(t, s.Close())

	_, err := s.FindSessions(context.Background(), core.SessionQuery{UserID: "u1"})
	require.Error(t, err)
	var pe *apperr.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, apperr.KindStoreRejected, pe.Kind)
	assert.False(t, apperr.IsNoRows(err))
}

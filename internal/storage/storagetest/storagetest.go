// Package storagetest holds the behaviour every storage.Store must share,
// plus helpers that build stores for component tests.
package storagetest

import (
	"testing"

	"github.com/agrosync/fieldops/internal/storage"
	gormstorage "github.com/agrosync/fieldops/internal/storage/gorm"
	"github.com/agrosync/fieldops/internal/storage/memory"
	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Factory builds a fresh, initialized store for one test.
type Factory struct {
	Name string
	New  func(t *testing.T, clock clockwork.Clock) storage.Store
}

// Factories lists every backend that can run without external services.
var Factories = []Factory{
	{Name: "memory", New: NewMemoryStore},
	{Name: "sqlite", New: NewSQLiteStore},
}

// OpenSQLite opens a private in-memory SQLite database.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

// NewMemoryStore returns an initialized memory store.
func NewMemoryStore(t *testing.T, clock clockwork.Clock) storage.Store {
	t.Helper()
	s := memory.New(clock)
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// NewSQLiteStore returns an initialized GORM store on in-memory SQLite.
func NewSQLiteStore(t *testing.T, clock clockwork.Clock) storage.Store {
	t.Helper()
	s := gormstorage.New(gormstorage.Dependencies{DB: OpenSQLite(t), Clock: clock})
	require.NoError(t, s.Init())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ForEach runs fn once per backend in Factories as a subtest.
func ForEach(t *testing.T, fn func(t *testing.T, f Factory)) {
	for _, f := range Factories {
		t.Run(f.Name, func(t *testing.T) {
			fn(t, f)
		})
	}
}

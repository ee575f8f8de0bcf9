// Package postgres implements storage.Store on PostgreSQL through the shared
// GORM store. When the server cannot be reached the connection manager falls
// back to an in-memory SQLite database so the service keeps accepting writes.
package postgres

import (
	"fmt"
	"os"

	"github.com/agrosync/fieldops/internal/database"
	gormstorage "github.com/agrosync/fieldops/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Store wraps the GORM store with connection management.
type Store struct {
	*gormstorage.Store
	manager *database.Manager
}

// New creates a new PostgreSQL store. A DB in deps skips connecting in Init.
func New(deps gormstorage.Dependencies) *Store {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("component", "database").Logger()
	return &Store{
		Store:   gormstorage.New(deps),
		manager: database.NewManager(log),
	}
}

// Init connects when no DB was injected, then migrates the schema.
func (s *Store) Init() error {
	if s.DB() == nil {
		if err := s.manager.Connect(); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		s.SetDB(s.manager.DB)
	}
	return s.Store.Init()
}

// Local reports whether the store fell back to in-memory SQLite.
func (s *Store) Local() bool {
	return s.manager.ShouldSaveLocal
}

// Package sqlitestorage implements storage.Store on SQLite, either a file or
// an in-memory database with periodic disk dumps via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agrosync/fieldops/internal/database"
	gormstorage "github.com/agrosync/fieldops/internal/storage/gorm"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Path         string // empty for an in-memory database
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Store wraps the GORM store for SQLite-specific behavior.
type Store struct {
	*gormstorage.Store
	db       *gorm.DB
	cfg      Config
	clock    clockwork.Clock
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New opens the SQLite database and creates the store.
func New(cfg Config, clock clockwork.Clock, logger *slog.Logger) (*Store, error) {
	db, err := database.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		Store:    gormstorage.New(gormstorage.Dependencies{DB: db, Clock: clock, Logger: logger}),
		db:       db,
		cfg:      cfg,
		clock:    clock,
		log:      logger,
		stopChan: make(chan struct{}),
	}, nil
}

func (s *Store) dumpEnabled() bool {
	return s.cfg.DumpPath != "" && s.cfg.DumpInterval > 0
}

// Init migrates the schema and starts the dump goroutine.
func (s *Store) Init() error {
	if err := s.Store.Init(); err != nil {
		return err
	}

	if s.dumpEnabled() {
		s.done = make(chan struct{})
		go s.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the database.
func (s *Store) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.done != nil {
			<-s.done
			s.Dump()
		}
	})
	return s.Store.Close()
}

// Dump writes a point-in-time snapshot to DumpPath.
func (s *Store) Dump() {
	start := s.clock.Now()
	if err := database.DumpMemoryDBToDisk(s.db, s.cfg.DumpPath); err != nil {
		s.log.Error("Error dumping to disk", "path", s.cfg.DumpPath, "error", err)
		return
	}
	s.log.Debug("Dumped to disk", "path", s.cfg.DumpPath, "duration", s.clock.Since(start))
}

// dumpLoop periodically dumps the database to disk via VACUUM INTO.
func (s *Store) dumpLoop() {
	defer close(s.done)
	ticker := s.clock.NewTicker(s.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.Chan():
			s.Dump()
		}
	}
}

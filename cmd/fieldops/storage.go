package main

import (
	"fmt"
	"log/slog"

	"github.com/agrosync/fieldops/internal/config"
	"github.com/agrosync/fieldops/internal/storage"
	gormstorage "github.com/agrosync/fieldops/internal/storage/gorm"
	"github.com/agrosync/fieldops/internal/storage/memory"
	pgstorage "github.com/agrosync/fieldops/internal/storage/postgres"
	sqlitestorage "github.com/agrosync/fieldops/internal/storage/sqlite"
	"github.com/jonboulle/clockwork"
)

// createStorageBackend picks the backend named by storageCfg.Type.
// The returned store has not been initialized yet.
func createStorageBackend(storageCfg config.StorageConfig, clock clockwork.Clock, logger *slog.Logger) (storage.Store, error) {
	switch storageCfg.Type {
	case "postgres":
		return pgstorage.New(gormstorage.Dependencies{Clock: clock, Logger: logger}), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			Path:         storageCfg.SQLite.Path,
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     storageCfg.SQLite.DumpPath,
		}, clock, logger)
	case "memory", "":
		return memory.New(clock), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageCfg.Type)
	}
}

package storage

import (
	"fmt"
	"log/slog"

	"github.com/AIAI/extension/internal/config"
	"github.com/AIAI/extension/internal/database"
	gormstorage "github.com/AIAI/extension/internal/storage/gorm"
	"github.com/AIAI/extension/internal/storage/memory"
	"github.com/AIAI/extension/internal/storage/postgres"
	sqlitestorage "github.com/AIAI/extension/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration. dbLog receives
// connection messages of the postgres backend.
func NewBackend(cfg config.StorageConfig, log *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	switch cfg.Type {
	case "postgres":
		return postgres.New(database.NewManager(dbLog), log), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, log)
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

var (
	_ Backend  = (*memory.Backend)(nil)
	_ Exporter = (*memory.Backend)(nil)
	_ Backend  = (*gormstorage.Backend)(nil)
	_ Backend  = (*sqlitestorage.Backend)(nil)
	_ Exporter = (*sqlitestorage.Backend)(nil)
	_ Backend  = (*postgres.Backend)(nil)
)

// Package postgres runs the GORM backend against PostgreSQL, falling back to an
// in-memory SQLite database when the server cannot be reached.
package postgres

import (
	"errors"
	"log/slog"

	"github.com/AIAI/extension/internal/database"
	gormstorage "github.com/AIAI/extension/internal/storage/gorm"
	"github.com/AIAI/extension/pkg/core"
)

var errNotConnected = errors.New("postgres backend not connected")

// Backend wraps the GORM backend with a connection opened at Init.
type Backend struct {
	*gormstorage.Backend
	db  *database.Manager
	log *slog.Logger
}

// New creates a postgres backend. The connection is opened by Init.
func New(db *database.Manager, log *slog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// Init connects using the db.* settings, migrates and starts the writer.
func (b *Backend) Init() error {
	if err := b.db.Connect("postgres", ""); err != nil {
		return err
	}
	if b.db.Local {
		b.log.Warn("Postgres unavailable, snapshots are kept in an in-memory SQLite database")
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: b.db.DB, Logger: b.log})
	return b.Backend.Init()
}

// Close flushes and closes the connection. A no-op until Init has succeeded.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.db.Close()
}

// SaveSnapshot fails until Init has succeeded.
func (b *Backend) SaveSnapshot(s core.Snapshot) error {
	if b.Backend == nil {
		return errNotConnected
	}
	return b.Backend.SaveSnapshot(s)
}

// SaveOrders fails until Init has succeeded.
func (b *Backend) SaveOrders(side core.Side, tick uint64, orders []core.Order) error {
	if b.Backend == nil {
		return errNotConnected
	}
	return b.Backend.SaveOrders(side, tick, orders)
}

// Flush fails until Init has succeeded.
func (b *Backend) Flush() error {
	if b.Backend == nil {
		return errNotConnected
	}
	return b.Backend.Flush()
}

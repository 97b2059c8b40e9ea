// Package sqlitestorage runs the GORM backend on an in-memory SQLite database
// with periodic disk dumps via VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AIAI/extension/internal/config"
	"github.com/AIAI/extension/internal/database"
	gormstorage "github.com/AIAI/extension/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg      config.SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}

	mu       sync.Mutex
	lastDump time.Time
}

// New creates a new SQLite storage backend.
func New(cfg config.SQLiteConfig, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := database.OpenSqlite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		cfg:     cfg,
		log:     log,
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}
	if b.cfg.Path != "" && b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// Flush writes the queues and dumps the database to disk.
func (b *Backend) Flush() error {
	if err := b.Backend.Flush(); err != nil {
		return err
	}
	return b.dump()
}

// Close stops the dump goroutine, closes the embedded backend and writes a final dump.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.dump()
}

func (b *Backend) dump() error {
	if b.cfg.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.Path), 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := database.DumpToDisk(b.DB(), b.cfg.Path); err != nil {
		return err
	}
	b.lastDump = time.Now()
	return nil
}

// LastExportPath returns the dump file once a dump has been written
func (b *Backend) LastExportPath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastDump.IsZero() {
		return ""
	}
	return b.cfg.Path
}

func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			} else {
				b.log.Debug("Dumped to disk", "duration", time.Since(start))
			}
		}
	}
}

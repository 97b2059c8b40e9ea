// Package gormstorage implements the storage.Backend interface on top of GORM
// with internal queues and a background writer goroutine.
package gormstorage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AIAI/extension/internal/queue"
	"github.com/AIAI/extension/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultWriteInterval is how often the writer drains the queues
const DefaultWriteInterval = 2 * time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	WriteInterval time.Duration
}

// Backend writes snapshots and orders through GORM in batches.
type Backend struct {
	deps Dependencies
	now  func() time.Time

	snapshots *queue.Queue[SnapshotRecord]
	orders    *queue.Queue[OrderRecord]

	writeMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps:      deps,
		now:       time.Now,
		snapshots: queue.New[SnapshotRecord](),
		orders:    queue.New[OrderRecord](),
	}
}

// DB returns the underlying connection
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if err := b.deps.DB.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer and writes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	return b.Flush()
}

// SaveSnapshot converts and queues a snapshot.
func (b *Backend) SaveSnapshot(s core.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	t := s.TakenAt
	if t.IsZero() {
		t = b.now()
	}
	b.snapshots.Push(SnapshotRecord{
		Time:    t,
		Session: s.Session,
		Side:    string(s.Config.Side),
		Tick:    s.State.Tick,
		Phase:   string(s.State.Phase),
		Units:   len(s.Units),
		Squads:  len(s.Squads),
		Zones:   len(s.Zones),
		Orders:  len(s.Orders),
		Errors:  s.State.ErrorCount,
		Data:    datatypes.JSON(data),
	})
	return nil
}

// SaveOrders converts and queues orders.
func (b *Backend) SaveOrders(side core.Side, tick uint64, orders []core.Order) error {
	now := b.now()
	for _, o := range orders {
		b.orders.Push(OrderRecord{
			Time:     now,
			Side:     string(side),
			Tick:     tick,
			SquadID:  o.SquadID,
			ZoneID:   o.ZoneID,
			ZoneKey:  o.ZoneKey,
			Action:   string(o.Action),
			Priority: o.Priority,
			Manual:   o.Manual,
			TargetX:  o.Target.X,
			TargetY:  o.Target.Y,
			TargetZ:  o.Target.Z,
		})
	}
	return nil
}

// Flush drains both queues into the database.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if items := b.snapshots.GetAndEmpty(); len(items) > 0 {
		if err := b.deps.DB.CreateInBatches(&items, 100).Error; err != nil {
			return fmt.Errorf("failed to write %d snapshots: %w", len(items), err)
		}
	}
	if items := b.orders.GetAndEmpty(); len(items) > 0 {
		if err := b.deps.DB.CreateInBatches(&items, 500).Error; err != nil {
			return fmt.Errorf("failed to write %d orders: %w", len(items), err)
		}
	}
	return nil
}

// Latest loads the most recent snapshot stored for side
func (b *Backend) Latest(side core.Side) (core.Snapshot, error) {
	var rec SnapshotRecord
	var snap core.Snapshot
	err := b.deps.DB.Where("side = ?", string(side)).Order("tick desc, id desc").First(&rec).Error
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(rec.Data, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot %d: %w", rec.ID, err)
	}
	return snap, nil
}

// Pending returns the number of queued, unwritten records
func (b *Backend) Pending() int {
	return b.snapshots.Len() + b.orders.Len()
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			pending := b.Pending()
			if pending == 0 {
				continue
			}
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("Error writing to database", "error", err)
				continue
			}
			b.deps.Logger.Debug("Wrote queued records", "records", pending, "duration", time.Since(start))
		}
	}
}

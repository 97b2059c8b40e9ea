// Package memory keeps snapshots in memory and exports them as JSON files.
package memory

import (
	"sync"
	"time"

	"github.com/AIAI/extension/internal/config"
	"github.com/AIAI/extension/pkg/core"
)

// maxOrderHistory bounds the orders kept per side between exports
const maxOrderHistory = 5000

// OrderEntry is one dispatched order and the tick it was recorded at
type OrderEntry struct {
	Tick     uint64     `json:"tick"`
	Recorded time.Time  `json:"recorded"`
	Order    core.Order `json:"order"`
}

// SideRecord groups the latest snapshot of a side with its order history
type SideRecord struct {
	Snapshot  core.Snapshot `json:"snapshot"`
	Snapshots int           `json:"snapshots"`
	Orders    []OrderEntry  `json:"orders"`
}

// Backend stores commander data in memory and exports to JSON
type Backend struct {
	cfg   config.MemoryConfig
	sides map[core.Side]*SideRecord
	now   func() time.Time

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		sides: make(map[core.Side]*SideRecord),
		now:   time.Now,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close exports whatever is still held
func (b *Backend) Close() error {
	return b.Flush()
}

func (b *Backend) record(side core.Side) *SideRecord {
	r, ok := b.sides[side]
	if !ok {
		r = &SideRecord{}
		b.sides[side] = r
	}
	return r
}

// SaveSnapshot replaces the held snapshot of the snapshot's side
func (b *Backend) SaveSnapshot(s core.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.record(s.Config.Side)
	r.Snapshot = s
	r.Snapshots++
	return nil
}

// SaveOrders appends orders to the side's history, dropping the oldest past the bound
func (b *Backend) SaveOrders(side core.Side, tick uint64, orders []core.Order) error {
	if len(orders) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.record(side)
	now := b.now()
	for _, o := range orders {
		r.Orders = append(r.Orders, OrderEntry{Tick: tick, Recorded: now, Order: o})
	}
	if over := len(r.Orders) - maxOrderHistory; over > 0 {
		r.Orders = append([]OrderEntry(nil), r.Orders[over:]...)
	}
	return nil
}

// Side returns a copy of the record held for side
func (b *Backend) Side(side core.Side) (SideRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.sides[side]
	if !ok {
		return SideRecord{}, false
	}
	out := *r
	out.Orders = append([]OrderEntry(nil), r.Orders...)
	return out, true
}

// Flush writes the held records to a file and resets the order histories
func (b *Backend) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sides) == 0 {
		return nil
	}
	if err := b.export(); err != nil {
		return err
	}
	for _, r := range b.sides {
		r.Orders = nil
	}
	return nil
}

// LastExportPath returns the file written by the last Flush
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// Package storage persists commander snapshots and the orders they issue.
package storage

import "github.com/AIAI/extension/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Recording. Implementations may buffer; Flush makes everything durable.
	SaveSnapshot(s core.Snapshot) error
	SaveOrders(side core.Side, tick uint64, orders []core.Order) error
	Flush() error
}

// Exporter is implemented by backends that write files the host can pick up
type Exporter interface {
	LastExportPath() string
}

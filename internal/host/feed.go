// Package host adapts the push-style Arma surface to the pull-style queries the
// commander makes. SQF pushes roster and terrain snapshots before each tick; the
// commander reads the latest one when it syncs.
package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AIAI/extension/internal/terrain"
	"github.com/AIAI/extension/pkg/core"
)

// ErrNoData is returned by a query before the host pushed anything for the side
var ErrNoData = errors.New("no data received from host")

// Feed holds the latest roster and terrain pushed for one side. It implements
// roster.Query and terrain.Query.
type Feed struct {
	side core.Side

	mu           sync.RWMutex
	units        []core.Unit
	unitsErr     error
	unitsSeen    bool
	samples      []terrain.Sample
	terrainErr   error
	terrainSeen  bool
	rosterPushes uint64
}

// NewFeed creates an empty feed for side
func NewFeed(side core.Side) *Feed {
	return &Feed{side: side}
}

// Side returns the side the feed serves
func (f *Feed) Side() core.Side { return f.side }

// PushUnits replaces the roster and clears a previous roster failure
func (f *Feed) PushUnits(units []core.Unit) {
	cp := make([]core.Unit, len(units))
	copy(cp, units)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.units = cp
	f.unitsErr = nil
	f.unitsSeen = true
	f.rosterPushes++
}

// FailUnits makes roster queries fail with reason until the next PushUnits
func (f *Feed) FailUnits(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unitsErr = fmt.Errorf("host reported roster failure: %s", reason)
	f.unitsSeen = true
}

// PushTerrain replaces the terrain samples and clears a previous terrain failure
func (f *Feed) PushTerrain(samples []terrain.Sample) {
	cp := make([]terrain.Sample, len(samples))
	copy(cp, samples)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples = cp
	f.terrainErr = nil
	f.terrainSeen = true
}

// FailTerrain makes terrain queries fail with reason until the next PushTerrain
func (f *Feed) FailTerrain(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terrainErr = fmt.Errorf("host reported terrain unavailable: %s", reason)
	f.terrainSeen = true
}

// RosterPushes is the number of rosters received
func (f *Feed) RosterPushes() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rosterPushes
}

func (f *Feed) QueryUnits(side core.Side) ([]core.Unit, error) {
	if side != f.side {
		return nil, fmt.Errorf("feed serves %s, queried for %s", f.side, side)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.unitsSeen {
		return nil, fmt.Errorf("roster for %s: %w", side, ErrNoData)
	}
	if f.unitsErr != nil {
		return nil, f.unitsErr
	}
	out := make([]core.Unit, len(f.units))
	copy(out, f.units)
	return out, nil
}

// QueryTerrain returns every pushed sample. Area filtering happens in the analyzer,
// which knows the extents.
func (f *Feed) QueryTerrain(core.Area) ([]terrain.Sample, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.terrainSeen {
		return nil, fmt.Errorf("terrain for %s: %w", f.side, ErrNoData)
	}
	if f.terrainErr != nil {
		return nil, f.terrainErr
	}
	out := make([]terrain.Sample, len(f.samples))
	copy(out, f.samples)
	return out, nil
}

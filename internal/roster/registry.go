// Package roster tracks the live set of units a commander controls.
package roster

import (
	"fmt"
	"sort"

	"github.com/AIAI/extension/internal/geo"
	"github.com/AIAI/extension/pkg/core"
)

// Query returns the current controllable units of a side
type Query interface {
	QueryUnits(side core.Side) ([]core.Unit, error)
}

// QueryFunc adapts a function to the Query interface
type QueryFunc func(side core.Side) ([]core.Unit, error)

func (f QueryFunc) QueryUnits(side core.Side) ([]core.Unit, error) { return f(side) }

// Delta describes how a sync changed the roster. IDs are sorted ascending.
type Delta struct {
	Added         []int `json:"added"`
	Removed       []int `json:"removed"`
	StatusChanged []int `json:"statusChanged"`
}

// Empty reports whether the sync changed nothing relevant to squad planning
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.StatusChanged) == 0
}

// Registry owns the units of one side
type Registry struct {
	side   core.Side
	units  map[int]core.Unit
	synced bool
}

// NewRegistry creates an empty registry for side
func NewRegistry(side core.Side) *Registry {
	return &Registry{
		side:  side,
		units: make(map[int]core.Unit),
	}
}

// Sync replaces the roster with the host's answer and reports the delta. Units that
// disappeared or are reported Lost are listed in Removed and dropped. On a host error
// the last known roster is kept.
func (r *Registry) Sync(query Query) (Delta, error) {
	if query == nil {
		return Delta{}, fmt.Errorf("%w: no unit query", core.ErrRosterQueryFailed)
	}
	reported, err := query.QueryUnits(r.side)
	if err != nil {
		return Delta{}, fmt.Errorf("%w: %w", core.ErrRosterQueryFailed, err)
	}

	var delta Delta
	next := make(map[int]core.Unit, len(reported))
	for _, u := range reported {
		if u.Status == core.StatusLost {
			continue
		}
		next[u.ID] = u
	}

	for id, u := range next {
		prev, ok := r.units[id]
		switch {
		case !ok:
			delta.Added = append(delta.Added, id)
		case prev.Status != u.Status:
			delta.StatusChanged = append(delta.StatusChanged, id)
		}
	}
	for id := range r.units {
		if _, ok := next[id]; !ok {
			delta.Removed = append(delta.Removed, id)
		}
	}

	sort.Ints(delta.Added)
	sort.Ints(delta.Removed)
	sort.Ints(delta.StatusChanged)

	r.units = next
	r.synced = true
	return delta, nil
}

// Synced reports whether at least one sync succeeded
func (r *Registry) Synced() bool { return r.synced }

// Side returns the side the registry queries for
func (r *Registry) Side() core.Side { return r.side }

// Units returns copies of all tracked units sorted by ID
func (r *Registry) Units() []core.Unit {
	out := make([]core.Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Available returns copies of the Available units sorted by ID
func (r *Registry) Available() []core.Unit {
	out := make([]core.Unit, 0, len(r.units))
	for _, u := range r.Units() {
		if u.Status == core.StatusAvailable {
			out = append(out, u)
		}
	}
	return out
}

// Get returns a copy of a unit by ID
func (r *Registry) Get(id int) (core.Unit, bool) {
	u, ok := r.units[id]
	return u, ok
}

// Len is the number of tracked units
func (r *Registry) Len() int { return len(r.units) }

// Area returns the bounding box of the roster grown by margin metres.
// An empty roster yields the unbounded area.
func (r *Registry) Area(margin float64) core.Area {
	positions := make([]core.Position3D, 0, len(r.units))
	for _, u := range r.Units() {
		positions = append(positions, u.Position)
	}
	return geo.BoundingArea(positions, margin)
}

// Centroid returns the mean position of the given units. Unknown IDs are skipped.
func (r *Registry) Centroid(ids []int) core.Position3D {
	var c core.Position3D
	n := 0
	for _, id := range ids {
		u, ok := r.units[id]
		if !ok {
			continue
		}
		c.X += u.Position.X
		c.Y += u.Position.Y
		c.Z += u.Position.Z
		n++
	}
	if n == 0 {
		return c
	}
	return core.Position3D{X: c.X / float64(n), Y: c.Y / float64(n), Z: c.Z / float64(n)}
}

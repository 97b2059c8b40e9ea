// pkg/core/entities.go
package core

import "slices"

// Unit is a controllable unit reported by the host
type Unit struct {
	ID       int        `json:"id"`
	Position Position3D `json:"position"`
	Status   UnitStatus `json:"status"`
	Skill    float64    `json:"skill"`
}

// Squad is a group of units sharing one order.
// UnitIDs reference units owned by the registry and are kept sorted ascending.
type Squad struct {
	ID      int    `json:"id"`
	UnitIDs []int  `json:"unitIds"`
	Role    Role   `json:"role"`
	Order   *Order `json:"order,omitempty"`
}

// Clone returns a deep copy of the squad
func (s Squad) Clone() Squad {
	c := s
	c.UnitIDs = slices.Clone(s.UnitIDs)
	if s.Order != nil {
		o := *s.Order
		c.Order = &o
	}
	return c
}

// TacticalZone is a scored region of terrain. A zone set is an immutable snapshot of one refresh cycle.
type TacticalZone struct {
	ID        int                      `json:"id"`
	Key       string                   `json:"key"`
	Extent    string                   `json:"extent,omitempty"` // host geometry, opaque to the core
	Centroid  Position3D               `json:"centroid"`
	Scores    map[ZoneCategory]float64 `json:"scores"`
	Category  ZoneCategory             `json:"category"`
	Score     float64                  `json:"score"`
	Contested bool                     `json:"contested"`
}

// Clone returns a deep copy of the zone
func (z TacticalZone) Clone() TacticalZone {
	c := z
	if z.Scores != nil {
		c.Scores = make(map[ZoneCategory]float64, len(z.Scores))
		for k, v := range z.Scores {
			c.Scores[k] = v
		}
	}
	return c
}

// Order is a directive issued to a squad. Orders are superseded, never mutated.
type Order struct {
	SquadID  int        `json:"squadId"`
	ZoneID   int        `json:"zoneId"`  // 0 when the order targets an explicit point
	ZoneKey  string     `json:"zoneKey"` // stable key of the targeted zone, empty for points
	Target   Position3D `json:"target"`
	Action   Action     `json:"action"`
	Priority int        `json:"priority"`
	IssuedAt uint64     `json:"issuedAt"`
	Manual   bool       `json:"manual"`
}

// SameDirective reports whether two orders tell the squad the same thing, ignoring issuance
func (o Order) SameDirective(other Order) bool {
	return o.SquadID == other.SquadID &&
		o.ZoneKey == other.ZoneKey &&
		o.Target == other.Target &&
		o.Action == other.Action &&
		o.Priority == other.Priority &&
		o.Manual == other.Manual
}

// World is the terrain the session runs on. Location is the world's anchor
// projected to web mercator (EPSG:3857).
type World struct {
	Name      string  `json:"name"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	LocationX float64 `json:"locationX"`
	LocationY float64 `json:"locationY"`
}

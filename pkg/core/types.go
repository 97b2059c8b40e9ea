// pkg/core/types.go
package core

import (
	"fmt"
	"math"
	"strings"
)

// Side is the faction a commander controls
type Side string

const (
	SideWest Side = "WEST"
	SideEast Side = "EAST"
	SideGuer Side = "GUER"
)

// Sides lists every side a commander can be created for
var Sides = []Side{SideWest, SideEast, SideGuer}

// ParseSide converts an attribute value into a Side
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideWest:
		return SideWest, nil
	case SideEast:
		return SideEast, nil
	case SideGuer:
		return SideGuer, nil
	}
	return "", fmt.Errorf("%w: unknown side %q", ErrInvalidConfig, s)
}

// Valid reports whether s is one of the enumerated sides
func (s Side) Valid() bool {
	return s == SideWest || s == SideEast || s == SideGuer
}

// TacticStyle biases squad composition and zone prioritization
type TacticStyle string

const (
	StyleBalanced   TacticStyle = "BALANCED"
	StyleAggressive TacticStyle = "AGGRESSIVE"
	StyleDefensive  TacticStyle = "DEFENSIVE"
)

// ParseTacticStyle converts an attribute value into a TacticStyle
func ParseTacticStyle(s string) (TacticStyle, error) {
	switch TacticStyle(strings.ToUpper(strings.TrimSpace(s))) {
	case StyleBalanced:
		return StyleBalanced, nil
	case StyleAggressive:
		return StyleAggressive, nil
	case StyleDefensive:
		return StyleDefensive, nil
	}
	return "", fmt.Errorf("%w: unknown tactic style %q", ErrInvalidConfig, s)
}

// Valid reports whether t is one of the enumerated styles
func (t TacticStyle) Valid() bool {
	return t == StyleBalanced || t == StyleAggressive || t == StyleDefensive
}

// Role is the composition role of a squad
type Role string

const (
	RoleAssault Role = "ASSAULT"
	RoleSupport Role = "SUPPORT"
	RoleReserve Role = "RESERVE"
)

// Roles in their canonical order
var Roles = []Role{RoleAssault, RoleSupport, RoleReserve}

// UnitStatus is the availability of a unit as seen by the registry
type UnitStatus string

const (
	StatusAvailable UnitStatus = "AVAILABLE"
	StatusTasked    UnitStatus = "TASKED"
	StatusLost      UnitStatus = "LOST"
)

// ParseUnitStatus converts a host status string, defaulting unknown values to an error
func ParseUnitStatus(s string) (UnitStatus, error) {
	switch UnitStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusAvailable:
		return StatusAvailable, nil
	case StatusTasked:
		return StatusTasked, nil
	case StatusLost:
		return StatusLost, nil
	}
	return "", fmt.Errorf("unknown unit status %q", s)
}

// Action is what an order tells a squad to do
type Action string

const (
	ActionMove     Action = "MOVE"
	ActionHold     Action = "HOLD"
	ActionFlank    Action = "FLANK"
	ActionSuppress Action = "SUPPRESS"
)

// ParseAction converts an operator supplied action
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionMove:
		return ActionMove, nil
	case ActionHold:
		return ActionHold, nil
	case ActionFlank:
		return ActionFlank, nil
	case ActionSuppress:
		return ActionSuppress, nil
	}
	return "", fmt.Errorf("unknown order action %q", s)
}

// ZoneCategory classifies a tactical zone
type ZoneCategory string

const (
	CategoryCover      ZoneCategory = "COVER"
	CategoryChokepoint ZoneCategory = "CHOKEPOINT"
	CategoryVantage    ZoneCategory = "VANTAGE"
	CategoryOpen       ZoneCategory = "OPEN"
)

// Categories in tie-break order
var Categories = []ZoneCategory{CategoryCover, CategoryChokepoint, CategoryVantage, CategoryOpen}

// Position3D represents a 3D coordinate without GIS dependencies
type Position3D struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // northing
	Z float64 `json:"z"` // elevation ASL
}

// DistanceTo returns the 2D distance between two positions
func (p Position3D) DistanceTo(o Position3D) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Area is an axis-aligned rectangle in world coordinates. The zero Area means "everywhere".
type Area struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// IsZero reports whether the area is unbounded
func (a Area) IsZero() bool {
	return a == Area{}
}

// Contains reports whether p lies inside the area. An unbounded area contains everything.
func (a Area) Contains(p Position3D) bool {
	if a.IsZero() {
		return true
	}
	return p.X >= a.MinX && p.X <= a.MaxX && p.Y >= a.MinY && p.Y <= a.MaxY
}

// pkg/core/commander.go
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Named skill levels exposed by the module attributes
const (
	SkillLow    = 0.3
	SkillMedium = 0.6
	SkillHigh   = 0.9
)

// SkillFromLabel maps a skill attribute to its numeric value.
// Accepts Low/Medium/High (any case) or a number in [0,1].
func SkillFromLabel(label string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low":
		return SkillLow, nil
	case "medium":
		return SkillMedium, nil
	case "high":
		return SkillHigh, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(label), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown skill level %q", ErrInvalidConfig, label)
	}
	return v, nil
}

// CommanderConfig holds the module attributes of a commander. Immutable after init.
type CommanderConfig struct {
	Side        Side        `json:"side"`
	DebugMode   bool        `json:"debugMode"`
	SkillLevel  float64     `json:"skillLevel"`
	TacticStyle TacticStyle `json:"tacticStyle"`
}

// Validate checks the config against the enumerated values
func (c CommanderConfig) Validate() error {
	if !c.Side.Valid() {
		return fmt.Errorf("%w: side %q", ErrInvalidConfig, c.Side)
	}
	if !c.TacticStyle.Valid() {
		return fmt.Errorf("%w: tactic style %q", ErrInvalidConfig, c.TacticStyle)
	}
	if math.IsNaN(c.SkillLevel) || c.SkillLevel < 0 || c.SkillLevel > 1 {
		return fmt.Errorf("%w: skill level %v outside [0,1]", ErrInvalidConfig, c.SkillLevel)
	}
	return nil
}

// Phase is the lifecycle state of a commander
type Phase string

const (
	PhaseUninitialized Phase = "UNINITIALIZED"
	PhaseInitializing  Phase = "INITIALIZING"
	PhaseActive        Phase = "ACTIVE"
	PhaseSuspended     Phase = "SUSPENDED"
	PhaseTerminated    Phase = "TERMINATED"
)

// CommanderState is the mutable runtime state of a commander
type CommanderState struct {
	Phase                     Phase  `json:"phase"`
	Tick                      uint64 `json:"tick"`
	LastTerrainRefresh        uint64 `json:"lastTerrainRefresh"`
	LastRosterSync            uint64 `json:"lastRosterSync"`
	ErrorCount                int    `json:"errorCount"`
	ConsecutiveRosterFailures int    `json:"consecutiveRosterFailures"`
	InitAttempts              int    `json:"initAttempts"`
	TerminationReason         string `json:"terminationReason,omitempty"`
}

// Snapshot is a deep-copied view of a commander at one point in time
type Snapshot struct {
	Session string          `json:"session,omitempty"`
	Config  CommanderConfig `json:"config"`
	State   CommanderState  `json:"state"`
	Units   []Unit          `json:"units"`
	Squads  []Squad         `json:"squads"`
	Zones   []TacticalZone  `json:"zones"`
	Orders  []Order         `json:"orders"`
	TakenAt time.Time       `json:"takenAt"`
}

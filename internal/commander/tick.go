package commander

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/AIAI/extension/internal/diagnostics"
	"github.com/AIAI/extension/internal/orders"
	"github.com/AIAI/extension/internal/queue"
	"github.com/AIAI/extension/internal/squad"
	"github.com/AIAI/extension/pkg/core"
)

// Tick runs one simulation step and returns the phase after it. Pending lifecycle
// requests are applied first. The returned error is non-nil only when the commander
// is, or became, Terminated.
func (c *Commander) Tick() (core.Phase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase == core.PhaseTerminated {
		return c.state.Phase, core.ErrTerminated
	}
	c.applyPending()

	switch c.state.Phase {
	case core.PhaseInitializing:
		c.initTick()
	case core.PhaseActive:
		c.activeTick()
	}

	if c.state.Phase == core.PhaseTerminated {
		return c.state.Phase, fmt.Errorf("%w: %s", core.ErrTerminated, c.state.TerminationReason)
	}
	return c.state.Phase, nil
}

func (c *Commander) applyPending() {
	reqs := c.pending
	c.pending = nil
	for _, r := range reqs {
		switch {
		case r == requestTerminate:
			c.terminate("terminated by host", nil)
			return
		case r == requestSuspend && c.state.Phase == core.PhaseActive:
			c.setPhase(core.PhaseSuspended, "commander suspended")
		case r == requestResume && c.state.Phase == core.PhaseSuspended:
			c.setPhase(core.PhaseActive, "commander resumed")
		default:
			c.emit(diagnostics.Event{
				Kind:    diagnostics.KindLifecycle,
				Message: "lifecycle request ignored",
				Fields:  map[string]any{"request": r.String(), "phase": string(c.state.Phase)},
			})
		}
	}
}

func (c *Commander) initTick() {
	start := c.now()
	c.state.Tick++
	c.state.InitAttempts++
	c.publish()
	tick := c.state.Tick

	if !c.registry.Synced() {
		if _, err := c.registry.Sync(c.deps.Units); err != nil {
			c.emitError("initial roster sync failed", err, map[string]any{"attempt": c.state.InitAttempts})
		} else {
			c.state.LastRosterSync = tick
		}
	}
	if !c.analyzer.Ready() {
		area := c.registry.Area(c.tuning.AreaMargin)
		if _, err := c.analyzer.Refresh(tick, c.deps.Terrain, area); err != nil {
			c.emitError("initial terrain refresh failed", err, map[string]any{"attempt": c.state.InitAttempts})
		} else {
			c.state.LastTerrainRefresh = tick
		}
	}

	if c.registry.Synced() && c.analyzer.Ready() {
		c.setPhase(core.PhaseActive, "commander active")
		c.forceReplan = true
		c.plan(tick)
		c.emitTick(start)
		return
	}

	if c.state.InitAttempts >= c.tuning.MaxInitRetries {
		c.terminate("initialization failed", fmt.Errorf("%w: no successful roster and terrain sync after %d attempts",
			core.ErrInitializationFailed, c.state.InitAttempts))
	}
}

func (c *Commander) activeTick() {
	start := c.now()
	c.state.Tick++
	c.publish()
	tick := c.state.Tick

	if c.analyzer.Due(tick) {
		area := c.registry.Area(c.tuning.AreaMargin)
		if _, err := c.analyzer.Refresh(tick, c.deps.Terrain, area); err != nil {
			c.emitError("terrain refresh failed, keeping previous zones", err, nil)
		} else {
			c.state.LastTerrainRefresh = tick
		}
	}

	delta, err := c.registry.Sync(c.deps.Units)
	if err != nil {
		c.state.ConsecutiveRosterFailures++
		if c.state.ConsecutiveRosterFailures >= c.tuning.RosterFailureThreshold {
			c.terminate("roster unavailable", fmt.Errorf("%w: %d consecutive failures: %w",
				core.ErrRosterQueryFailed, c.state.ConsecutiveRosterFailures, err))
			return
		}
		c.emitError("roster sync failed, keeping last known roster", err,
			map[string]any{"consecutive": c.state.ConsecutiveRosterFailures})
		c.emitTick(start)
		return
	}
	c.state.ConsecutiveRosterFailures = 0
	c.state.LastRosterSync = tick

	if !delta.Empty() {
		c.forceReplan = true
		c.emitDecision("roster changed", map[string]any{
			"added":         delta.Added,
			"removed":       delta.Removed,
			"statusChanged": delta.StatusChanged,
		})
	}
	c.plan(tick)
	c.emitTick(start)
}

// plan runs replan, assignment, override merge and dispatch for the current roster and zones
func (c *Commander) plan(tick uint64) {
	available := c.registry.Available()

	if !c.forceReplan {
		if err := squad.Verify(c.squads, available); err != nil {
			c.emitError("squad membership conflict, forcing repartition", err, nil)
			c.forceReplan = true
		}
	}
	if c.forceReplan {
		c.replan(available)
	}

	zones := c.analyzer.Zones()
	fp := orders.Fingerprint(c.squads, zones)
	failed := queue.DrainUnique(c.failures)
	if c.assigned && fp == c.fingerprint && len(failed) == 0 && !c.overridesDirty {
		return
	}

	previous := c.book.ByID()
	for _, id := range failed {
		delete(previous, id)
		c.book.Forget(id)
	}

	exclude := make(map[string]bool, len(c.overrides))
	for _, o := range c.overrides {
		if o.ZoneKey != "" {
			exclude[o.ZoneKey] = true
		}
	}
	automatic := make([]core.Squad, 0, len(c.squads))
	for _, s := range c.squads {
		if _, manual := c.overrides[s.ID]; !manual {
			automatic = append(automatic, s)
		}
	}

	computed := c.assigner.Assign(tick, automatic, zones, c.cfg.TacticStyle, previous, exclude)
	for _, o := range c.overrides {
		computed = append(computed, o)
	}
	sortOrders(computed)

	changed := c.book.Apply(computed)
	c.attachOrders()
	c.fingerprint = fp
	c.assigned = true
	c.overridesDirty = false

	c.emitDecision("orders recomputed", map[string]any{
		"zones":      len(zones),
		"squads":     len(c.squads),
		"orders":     c.book.Len(),
		"changed":    len(changed),
		"zoneScores": zoneScores(zones),
		"assignment": assignment(c.book.All()),
	})

	if len(changed) == 0 || c.deps.Orders == nil {
		return
	}
	if err := c.deps.Orders.Dispatch(c.cfg.Side, changed); err != nil {
		retry := failedSquads(err, changed)
		c.emitError("order dispatch failed, retrying next tick", err, map[string]any{"orders": len(retry)})
		c.failures.Push(retry...)
	}
}

func (c *Commander) replan(available []core.Unit) {
	c.squads = c.planner.Replan(available, c.cfg.TacticStyle, c.cfg.SkillLevel)
	c.forceReplan = false

	c.book.Retain(c.squads)
	alive := make(map[int]bool, len(c.squads))
	for _, s := range c.squads {
		alive[s.ID] = true
	}
	for id := range c.overrides {
		if !alive[id] {
			delete(c.overrides, id)
		}
	}

	if err := squad.Verify(c.squads, available); err != nil {
		c.emitError("repartition left a membership conflict", err, nil)
	}

	composition := make(map[string]any, len(c.squads))
	for _, s := range c.squads {
		composition[fmt.Sprintf("squad_%d", s.ID)] = map[string]any{"role": string(s.Role), "units": s.UnitIDs}
	}
	c.emitDecision("squads replanned", map[string]any{
		"units":       len(available),
		"squads":      len(c.squads),
		"composition": composition,
	})
}

func (c *Commander) attachOrders() {
	for i := range c.squads {
		if o, ok := c.book.Get(c.squads[i].ID); ok {
			o := o
			c.squads[i].Order = &o
		} else {
			c.squads[i].Order = nil
		}
	}
}

func (c *Commander) emitTick(start time.Time) {
	c.emit(diagnostics.Event{
		Kind:     diagnostics.KindTick,
		Message:  "tick",
		Duration: c.now().Sub(start),
		Fields: map[string]any{
			"phase":  string(c.state.Phase),
			"squads": len(c.squads),
			"orders": c.book.Len(),
		},
	})
}

// failedSquads narrows a dispatch error to the squads it names, or every dispatched
// squad when the sink cannot tell
func failedSquads(err error, dispatched []core.Order) []int {
	var partial interface{ SquadIDs() []int }
	if errors.As(err, &partial) {
		return partial.SquadIDs()
	}
	ids := make([]int, len(dispatched))
	for i, o := range dispatched {
		ids[i] = o.SquadID
	}
	return ids
}

func sortOrders(o []core.Order) {
	sort.Slice(o, func(i, j int) bool { return o[i].SquadID < o[j].SquadID })
}

func zoneScores(zones []core.TacticalZone) map[string]any {
	out := make(map[string]any, len(zones))
	for _, z := range zones {
		out[fmt.Sprintf("zone_%d", z.ID)] = map[string]any{
			"category":  string(z.Category),
			"score":     z.Score,
			"contested": z.Contested,
		}
	}
	return out
}

func assignment(all []core.Order) map[string]any {
	out := make(map[string]any, len(all))
	for _, o := range all {
		out[fmt.Sprintf("squad_%d", o.SquadID)] = map[string]any{
			"zone":     o.ZoneID,
			"action":   string(o.Action),
			"priority": o.Priority,
			"manual":   o.Manual,
		}
	}
	return out
}

package commander

import (
	"fmt"

	"github.com/AIAI/extension/internal/orders"
	"github.com/AIAI/extension/pkg/core"
)

// SetOrders installs manual orders. Each must name an existing squad and either a
// current zone (ZoneID) or an explicit point (ZoneID 0, Target). Two overrides may not
// claim the same zone. Overrides replace the computed order at the next tick and stay
// in force until cleared or the squad is dissolved.
func (c *Commander) SetOrders(overrides []core.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != core.PhaseActive && c.state.Phase != core.PhaseSuspended {
		return fmt.Errorf("cannot set orders while %s", c.state.Phase)
	}

	squads := make(map[int]bool, len(c.squads))
	for _, s := range c.squads {
		squads[s.ID] = true
	}
	zones := make(map[int]core.TacticalZone)
	for _, z := range c.analyzer.Zones() {
		zones[z.ID] = z
	}

	// squads named in the batch give up their current override
	replaced := make(map[int]bool, len(overrides))
	for _, o := range overrides {
		replaced[o.SquadID] = true
	}
	claimed := make(map[string]int)
	for id, o := range c.overrides {
		if o.ZoneKey != "" && !replaced[id] {
			claimed[o.ZoneKey] = id
		}
	}
	held := make(map[int]string, len(overrides))

	resolved := make([]core.Order, 0, len(overrides))
	for _, o := range overrides {
		if !squads[o.SquadID] {
			return fmt.Errorf("unknown squad %d", o.SquadID)
		}
		if o.Action == "" {
			o.Action = core.ActionMove
		}
		if _, err := core.ParseAction(string(o.Action)); err != nil {
			return err
		}
		if o.ZoneID != 0 {
			z, ok := zones[o.ZoneID]
			if !ok {
				return fmt.Errorf("unknown zone %d", o.ZoneID)
			}
			o.ZoneKey = orders.ZoneKey(z)
			o.Target = z.Centroid
			if owner, taken := claimed[o.ZoneKey]; taken && owner != o.SquadID {
				return fmt.Errorf("%w: zone %d already claimed by squad %d", core.ErrAssignmentConflict, o.ZoneID, owner)
			}
		} else {
			o.ZoneKey = ""
		}
		if prev, ok := held[o.SquadID]; ok && prev != o.ZoneKey {
			delete(claimed, prev)
		}
		held[o.SquadID] = o.ZoneKey
		if o.ZoneKey != "" {
			claimed[o.ZoneKey] = o.SquadID
		}
		if o.Priority <= 0 {
			o.Priority = 1
		}
		o.Manual = true
		o.IssuedAt = c.state.Tick
		resolved = append(resolved, o)
	}

	for _, o := range resolved {
		c.overrides[o.SquadID] = o
	}
	c.overridesDirty = true
	c.emitDecision("manual orders set", map[string]any{"orders": len(resolved)})
	return nil
}

// ClearOrders removes the overrides of the given squads, or all of them when none are
// given. Cleared squads get computed orders at the next tick.
func (c *Commander) ClearOrders(squadIDs ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(squadIDs) == 0 {
		if len(c.overrides) > 0 {
			c.overridesDirty = true
		}
		c.overrides = make(map[int]core.Order)
		return
	}
	for _, id := range squadIDs {
		if _, ok := c.overrides[id]; ok {
			delete(c.overrides, id)
			c.overridesDirty = true
		}
	}
}

// Overrides returns the manual orders in force
func (c *Commander) Overrides() []core.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Order, 0, len(c.overrides))
	for _, o := range c.overrides {
		out = append(out, o)
	}
	sortOrders(out)
	return out
}

// Package orders maps squads onto tactical zones.
package orders

import (
	"math"
	"sort"
	"strconv"

	"github.com/AIAI/extension/internal/squad"
	"github.com/AIAI/extension/pkg/core"
)

// DefaultChurnThreshold is the minimum score improvement required to replace an order
const DefaultChurnThreshold = 1.0

const (
	aggressiveContestedFactor = 1.25
	defensiveContestedFactor  = 0.5
)

// Locator resolves the position a squad holds when no zone is left for it
type Locator func(unitIDs []int) core.Position3D

// Assigner runs the greedy squad to zone matching
type Assigner struct {
	churnThreshold float64
	locate         Locator
}

// NewAssigner creates an assigner. A negative threshold is treated as 0.
func NewAssigner(churnThreshold float64, locate Locator) *Assigner {
	if churnThreshold < 0 {
		churnThreshold = 0
	}
	if locate == nil {
		locate = func([]int) core.Position3D { return core.Position3D{} }
	}
	return &Assigner{churnThreshold: churnThreshold, locate: locate}
}

type candidate struct {
	zone      core.TacticalZone
	key       string
	effective float64
}

// ZoneKey is the identity used to match a zone across refreshes. Zones without a
// host key fall back to their ID.
func ZoneKey(z core.TacticalZone) string {
	if z.Key != "" {
		return z.Key
	}
	return "#" + strconv.Itoa(z.ID)
}

// EffectiveScore applies the style's contested-zone bias to a zone's primary score
func EffectiveScore(z core.TacticalZone, style core.TacticStyle) float64 {
	if !z.Contested {
		return z.Score
	}
	switch style {
	case core.StyleAggressive:
		return z.Score * aggressiveContestedFactor
	case core.StyleDefensive:
		return z.Score * defensiveContestedFactor
	}
	return z.Score
}

// Compatible reports whether a role prefers a zone category
func Compatible(role core.Role, category core.ZoneCategory) bool {
	switch role {
	case core.RoleAssault:
		return category == core.CategoryVantage || category == core.CategoryChokepoint
	case core.RoleSupport:
		return category == core.CategoryCover
	case core.RoleReserve:
		return category == core.CategoryOpen
	}
	return false
}

// Assign computes one order per squad. previous holds the orders currently in force by
// squad ID; non-manual ones are kept when nothing better by at least the churn threshold
// is available, with the zone ID updated to the held zone's current one. Zones whose key is in exclude are never assigned.
// The result is sorted by squad ID and never assigns one zone to two squads.
func (a *Assigner) Assign(
	tick uint64,
	squads []core.Squad,
	zones []core.TacticalZone,
	style core.TacticStyle,
	previous map[int]core.Order,
	exclude map[string]bool,
) []core.Order {
	ranked := make([]candidate, 0, len(zones))
	for _, z := range zones {
		key := ZoneKey(z)
		if exclude[key] {
			continue
		}
		ranked = append(ranked, candidate{zone: z, key: key, effective: EffectiveScore(z, style)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].effective != ranked[j].effective {
			return ranked[i].effective > ranked[j].effective
		}
		return ranked[i].zone.ID < ranked[j].zone.ID
	})

	ordered := sortSquads(squads, style)
	claimed := make(map[string]bool, len(ranked))
	result := make(map[int]core.Order, len(squads))

	match := func(s core.Squad, accept func(core.ZoneCategory) bool) {
		var best *candidate
		for i := range ranked {
			c := &ranked[i]
			if !claimed[c.key] && accept(c.zone.Category) {
				best = c
				break
			}
		}

		if prev, ok := previous[s.ID]; ok && !prev.Manual && prev.ZoneKey != "" {
			if held := find(ranked, prev.ZoneKey); held != nil && !claimed[held.key] && accept(held.zone.Category) {
				if best == nil || best.effective-held.effective < a.churnThreshold {
					claimed[held.key] = true
					// zone ids are only stable within one refresh
					prev.ZoneID = held.zone.ID
					result[s.ID] = prev
					return
				}
			}
		}

		if best == nil {
			return
		}
		claimed[best.key] = true
		result[s.ID] = core.Order{
			SquadID:  s.ID,
			ZoneID:   best.zone.ID,
			ZoneKey:  best.key,
			Target:   best.zone.Centroid,
			Action:   actionFor(s.Role, best.zone.Contested),
			Priority: int(math.Round(best.effective)),
			IssuedAt: tick,
		}
	}

	for _, s := range ordered {
		role := s.Role
		match(s, func(c core.ZoneCategory) bool { return Compatible(role, c) })
	}
	for _, s := range ordered {
		if _, ok := result[s.ID]; ok {
			continue
		}
		match(s, func(core.ZoneCategory) bool { return true })
	}
	for _, s := range ordered {
		if _, ok := result[s.ID]; ok {
			continue
		}
		if prev, ok := previous[s.ID]; ok && !prev.Manual && prev.Action == core.ActionHold && prev.ZoneKey == "" {
			result[s.ID] = prev
			continue
		}
		result[s.ID] = core.Order{
			SquadID:  s.ID,
			Target:   a.locate(s.UnitIDs),
			Action:   core.ActionHold,
			IssuedAt: tick,
		}
	}

	out := make([]core.Order, 0, len(result))
	for _, o := range result {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SquadID < out[j].SquadID })
	return out
}

func find(ranked []candidate, key string) *candidate {
	for i := range ranked {
		if ranked[i].key == key {
			return &ranked[i]
		}
	}
	return nil
}

// sortSquads orders squads by the style's role emphasis, ties by squad ID
func sortSquads(squads []core.Squad, style core.TacticStyle) []core.Squad {
	rank := make(map[core.Role]int, len(core.Roles))
	for i, r := range squad.EmphasisOrder(style) {
		rank[r] = i
	}
	out := make([]core.Squad, len(squads))
	copy(out, squads)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank[out[i].Role], rank[out[j].Role]
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func actionFor(role core.Role, contested bool) core.Action {
	switch role {
	case core.RoleAssault:
		if contested {
			return core.ActionFlank
		}
	case core.RoleSupport:
		if contested {
			return core.ActionSuppress
		}
	}
	return core.ActionMove
}

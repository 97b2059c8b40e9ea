// Package squad partitions available units into squads.
package squad

import (
	"fmt"
	"math"
	"sort"

	"github.com/AIAI/extension/pkg/core"
)

// DefaultSize is the Balanced squad size
const DefaultSize = 4

// minSize is the smallest squad size any style plans for
const minSize = 2

// skillShift is the weight moved from Reserve to Assault per unit of skill above 0.5
const skillShift = 0.2

type weights struct {
	assault, support, reserve float64
}

var styleWeights = map[core.TacticStyle]weights{
	core.StyleAggressive: {0.6, 0.3, 0.1},
	core.StyleBalanced:   {0.4, 0.4, 0.2},
	core.StyleDefensive:  {0.2, 0.45, 0.35},
}

// Planner performs full repartitions. Squad IDs are handed out from a counter and never reused.
type Planner struct {
	defaultSize int
	nextID      int
}

// NewPlanner creates a planner. A defaultSize below minSize falls back to DefaultSize.
func NewPlanner(defaultSize int) *Planner {
	if defaultSize < minSize {
		defaultSize = DefaultSize
	}
	return &Planner{defaultSize: defaultSize, nextID: 1}
}

// SizeFor returns the target squad size for a style
func (p *Planner) SizeFor(style core.TacticStyle) int {
	switch style {
	case core.StyleAggressive:
		return p.defaultSize + 1
	case core.StyleDefensive:
		return max(minSize, p.defaultSize-1)
	}
	return p.defaultSize
}

// Replan partitions the Available units into fresh squads. Identical inputs give
// identical memberships and roles; only the squad IDs advance.
func (p *Planner) Replan(units []core.Unit, style core.TacticStyle, skill float64) []core.Squad {
	ids := make([]int, 0, len(units))
	for _, u := range units {
		if u.Status == core.StatusAvailable {
			ids = append(ids, u.ID)
		}
	}
	sort.Ints(ids)

	n := len(ids)
	squads := []core.Squad{}
	if n == 0 {
		return squads
	}

	size := p.SizeFor(style)
	k := (n + size - 1) / size
	roles := RoleMix(k, style, skill)

	base, rem := n/k, n%k
	start := 0
	for i := 0; i < k; i++ {
		chunk := base
		if i < rem {
			chunk++
		}
		members := make([]int, chunk)
		copy(members, ids[start:start+chunk])
		start += chunk

		squads = append(squads, core.Squad{
			ID:      p.nextID,
			UnitIDs: members,
			Role:    roles[i],
		})
		p.nextID++
	}
	return squads
}

// RoleMix returns the roles for k squads in hand-out order. Counts follow the
// style weights, shifted by skill, rounded with the largest remainder method.
func RoleMix(k int, style core.TacticStyle, skill float64) []core.Role {
	if k <= 0 {
		return nil
	}
	w, ok := styleWeights[style]
	if !ok {
		w = styleWeights[core.StyleBalanced]
	}
	shift := (skill - 0.5) * skillShift
	w.assault = math.Max(0, w.assault+shift)
	w.reserve = math.Max(0, w.reserve-shift)

	byRole := map[core.Role]float64{
		core.RoleAssault: w.assault,
		core.RoleSupport: w.support,
		core.RoleReserve: w.reserve,
	}
	total := w.assault + w.support + w.reserve

	counts := make(map[core.Role]int, len(core.Roles))
	type remainder struct {
		role core.Role
		frac float64
		idx  int
	}
	rems := make([]remainder, 0, len(core.Roles))
	assigned := 0
	for i, r := range core.Roles {
		quota := byRole[r] / total * float64(k)
		whole := int(math.Floor(quota))
		counts[r] = whole
		assigned += whole
		rems = append(rems, remainder{role: r, frac: quota - float64(whole), idx: i})
	}
	sort.SliceStable(rems, func(i, j int) bool {
		if rems[i].frac != rems[j].frac {
			return rems[i].frac > rems[j].frac
		}
		return rems[i].idx < rems[j].idx
	})
	for i := 0; assigned < k; i++ {
		counts[rems[i%len(rems)].role]++
		assigned++
	}

	out := make([]core.Role, 0, k)
	for _, r := range EmphasisOrder(style) {
		for j := 0; j < counts[r]; j++ {
			out = append(out, r)
		}
	}
	return out
}

// EmphasisOrder is the order in which roles are handed out and prioritised for a style
func EmphasisOrder(style core.TacticStyle) []core.Role {
	if style == core.StyleDefensive {
		return []core.Role{core.RoleReserve, core.RoleSupport, core.RoleAssault}
	}
	return []core.Role{core.RoleAssault, core.RoleSupport, core.RoleReserve}
}

// Verify checks that no unit is in two squads and that every available unit is in one
func Verify(squads []core.Squad, available []core.Unit) error {
	owner := make(map[int]int)
	for _, s := range squads {
		for _, id := range s.UnitIDs {
			if other, ok := owner[id]; ok {
				return fmt.Errorf("%w: unit %d in squads %d and %d", core.ErrAssignmentConflict, id, other, s.ID)
			}
			owner[id] = s.ID
		}
	}
	for _, u := range available {
		if _, ok := owner[u.ID]; !ok {
			return fmt.Errorf("%w: available unit %d has no squad", core.ErrAssignmentConflict, u.ID)
		}
	}
	return nil
}

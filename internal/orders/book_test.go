package orders

import (
	"testing"

	"github.com/AIAI/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_ApplyReportsChanges(t *testing.T) {
	b := NewBook()
	first := []core.Order{
		{SquadID: 2, ZoneID: 1, Action: core.ActionMove, IssuedAt: 1},
		{SquadID: 1, ZoneID: 2, Action: core.ActionMove, IssuedAt: 1},
	}
	changed := b.Apply(first)
	require.Len(t, changed, 2)
	assert.Equal(t, 1, changed[0].SquadID)

	assert.Empty(t, b.Apply(first), "same orders are not changes")

	changed = b.Apply([]core.Order{{SquadID: 1, ZoneID: 3, Action: core.ActionFlank, IssuedAt: 4}})
	require.Len(t, changed, 1)
	assert.Equal(t, 3, changed[0].ZoneID)
}

func TestBook_RejectsOlderOrders(t *testing.T) {
	b := NewBook()
	b.Apply([]core.Order{{SquadID: 1, ZoneID: 5, IssuedAt: 10}})

	changed := b.Apply([]core.Order{{SquadID: 1, ZoneID: 6, IssuedAt: 9}})
	assert.Empty(t, changed)
	o, ok := b.Get(1)
	require.True(t, ok)
	assert.Equal(t, 5, o.ZoneID)
}

func TestBook_RetainAndForget(t *testing.T) {
	b := NewBook()
	b.Apply([]core.Order{{SquadID: 1, IssuedAt: 1}, {SquadID: 2, IssuedAt: 1}, {SquadID: 3, IssuedAt: 1}})

	dropped := b.Retain([]core.Squad{{ID: 2}})
	assert.Equal(t, []int{1, 3}, dropped)
	assert.Equal(t, 1, b.Len())

	b.Forget(2)
	assert.Equal(t, 0, b.Len())
	changed := b.Apply([]core.Order{{SquadID: 2, IssuedAt: 1}})
	assert.Len(t, changed, 1, "forgotten orders are re-dispatched")
}

func TestBook_CopiesAreIndependent(t *testing.T) {
	b := NewBook()
	b.Apply([]core.Order{{SquadID: 1, ZoneID: 1, IssuedAt: 1}})

	m := b.ByID()
	m[1] = core.Order{SquadID: 1, ZoneID: 99}
	all := b.All()
	all[0].ZoneID = 42

	o, _ := b.Get(1)
	assert.Equal(t, 1, o.ZoneID)
}

func TestFingerprint(t *testing.T) {
	squads := []core.Squad{
		{ID: 1, UnitIDs: []int{1, 2}, Role: core.RoleAssault},
		{ID: 2, UnitIDs: []int{3}, Role: core.RoleSupport},
	}
	zones := []core.TacticalZone{zone(1, core.CategoryVantage, 9), zone(2, core.CategoryCover, 5)}
	base := Fingerprint(squads, zones)

	reordered := Fingerprint(
		[]core.Squad{squads[1], squads[0]},
		[]core.TacticalZone{zones[1], zones[0]},
	)
	assert.Equal(t, base, reordered)

	moved := zones[0]
	moved.Centroid = core.Position3D{X: 1}
	assert.Equal(t, base, Fingerprint(squads, []core.TacticalZone{moved, zones[1]}))

	rescored := zones[0]
	rescored.Score = 8
	assert.NotEqual(t, base, Fingerprint(squads, []core.TacticalZone{rescored, zones[1]}))

	contested := zones[1]
	contested.Contested = true
	assert.NotEqual(t, base, Fingerprint(squads, []core.TacticalZone{zones[0], contested}))

	regrouped := []core.Squad{
		{ID: 1, UnitIDs: []int{1}, Role: core.RoleAssault},
		{ID: 2, UnitIDs: []int{2, 3}, Role: core.RoleSupport},
	}
	assert.NotEqual(t, base, Fingerprint(regrouped, zones))
	assert.NotEqual(t, base, Fingerprint(nil, zones))
}

package orders

import (
	"sort"
	"strconv"

	"github.com/AIAI/extension/pkg/core"
	"github.com/cespare/xxhash/v2"
)

// Fingerprint hashes the parts of the squad and zone sets that affect assignment.
// Input order does not matter; unit positions are not included.
func Fingerprint(squads []core.Squad, zones []core.TacticalZone) uint64 {
	ss := make([]core.Squad, len(squads))
	copy(ss, squads)
	sort.Slice(ss, func(i, j int) bool { return ss[i].ID < ss[j].ID })

	zs := make([]core.TacticalZone, len(zones))
	copy(zs, zones)
	sort.Slice(zs, func(i, j int) bool { return zs[i].ID < zs[j].ID })

	d := xxhash.New()
	buf := make([]byte, 0, 64)
	for _, s := range ss {
		buf = buf[:0]
		buf = append(buf, 's')
		buf = strconv.AppendInt(buf, int64(s.ID), 10)
		buf = append(buf, '|')
		buf = append(buf, string(s.Role)...)
		for _, id := range s.UnitIDs {
			buf = append(buf, ',')
			buf = strconv.AppendInt(buf, int64(id), 10)
		}
		buf = append(buf, ';')
		_, _ = d.Write(buf)
	}
	for _, z := range zs {
		buf = buf[:0]
		buf = append(buf, 'z')
		buf = strconv.AppendInt(buf, int64(z.ID), 10)
		buf = append(buf, '|')
		buf = append(buf, ZoneKey(z)...)
		buf = append(buf, '|')
		buf = append(buf, string(z.Category)...)
		buf = append(buf, '|')
		buf = strconv.AppendFloat(buf, z.Score, 'f', 3, 64)
		buf = append(buf, '|')
		buf = strconv.AppendBool(buf, z.Contested)
		buf = append(buf, ';')
		_, _ = d.Write(buf)
	}
	return d.Sum64()
}

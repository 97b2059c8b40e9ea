package parser

import (
	"fmt"
	"strings"

	"github.com/AIAI/extension/internal/geo"
	"github.com/AIAI/extension/internal/util"
	"github.com/AIAI/extension/pkg/core"
)

// ParseOrderOverride parses [side, squadId, action, target, priority]. target is a
// zone id or an "[x,y,z]" point; priority is optional.
func (p *Parser) ParseOrderOverride(data []string) (core.Side, core.Order, error) {
	var o core.Order
	if err := want(data, 4, "order override"); err != nil {
		return "", o, err
	}
	util.CleanArgs(data)

	side, err := core.ParseSide(data[0])
	if err != nil {
		return "", o, err
	}

	if o.SquadID, err = util.ParseInt(data[1]); err != nil {
		return side, o, fmt.Errorf("squad id: %w", err)
	}
	if o.Action, err = core.ParseAction(data[2]); err != nil {
		return side, o, err
	}

	target := strings.TrimSpace(data[3])
	switch {
	case strings.HasPrefix(target, "["):
		if o.Target, err = geo.PositionFromJSON(target); err != nil {
			return side, o, fmt.Errorf("target: %w", err)
		}
	case strings.Contains(target, ","):
		if o.Target, err = geo.Position3DFromString(target); err != nil {
			return side, o, fmt.Errorf("target: %w", err)
		}
	default:
		if o.ZoneID, err = util.ParseInt(target); err != nil {
			return side, o, fmt.Errorf("zone id: %w", err)
		}
		if o.ZoneID == 0 {
			return side, o, fmt.Errorf("zone id 0 is reserved for point targets")
		}
	}

	if len(data) > 4 && data[4] != "" {
		if o.Priority, err = util.ParseInt(data[4]); err != nil {
			return side, o, fmt.Errorf("priority: %w", err)
		}
	}
	return side, o, nil
}

// ParseSquadIDs parses [side, squadId...]. No ids means all squads.
func (p *Parser) ParseSquadIDs(data []string) (core.Side, []int, error) {
	side, err := p.ParseSide(data)
	if err != nil {
		return "", nil, err
	}
	ids := make([]int, 0, len(data)-1)
	for _, raw := range data[1:] {
		if raw == "" {
			continue
		}
		id, err := util.ParseInt(raw)
		if err != nil {
			return side, nil, fmt.Errorf("squad id: %w", err)
		}
		ids = append(ids, id)
	}
	return side, ids, nil
}

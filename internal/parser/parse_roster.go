package parser

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/AIAI/extension/internal/geo"
	"github.com/AIAI/extension/internal/util"
	"github.com/AIAI/extension/pkg/core"
)

// ParseRoster parses [side, units] where units is
// [[id, [x,y,z], "AVAILABLE", skill], ...]. Skill is optional and defaults to 0.5.
// Duplicate IDs are rejected.
func (p *Parser) ParseRoster(data []string) (core.Side, []core.Unit, error) {
	if err := want(data, 2, "roster"); err != nil {
		return "", nil, err
	}
	util.CleanArgs(data)

	side, err := core.ParseSide(data[0])
	if err != nil {
		return "", nil, err
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal([]byte(data[1]), &rows); err != nil {
		return side, nil, fmt.Errorf("error unmarshalling roster: %w", err)
	}

	units := make([]core.Unit, 0, len(rows))
	seen := make(map[int]bool, len(rows))
	for i, row := range rows {
		u, err := parseUnitRow(row)
		if err != nil {
			return side, nil, fmt.Errorf("roster row %d: %w", i, err)
		}
		if seen[u.ID] {
			return side, nil, fmt.Errorf("roster row %d: duplicate unit id %d", i, u.ID)
		}
		seen[u.ID] = true
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].ID < units[j].ID })

	p.logger.Debug("Parsed roster", "side", side, "units", len(units))
	return side, units, nil
}

func parseUnitRow(row []json.RawMessage) (core.Unit, error) {
	u := core.Unit{Skill: 0.5}
	if len(row) < 3 {
		return u, fmt.Errorf("expected [id, position, status(, skill)], got %d fields", len(row))
	}

	var id float64
	if err := json.Unmarshal(row[0], &id); err != nil {
		return u, fmt.Errorf("unit id: %w", err)
	}
	if id != float64(int(id)) || id < 0 {
		return u, fmt.Errorf("unit id %v is not a non-negative integer", id)
	}
	u.ID = int(id)

	var pos []float64
	if err := json.Unmarshal(row[1], &pos); err != nil {
		return u, fmt.Errorf("unit %d position: %w", u.ID, err)
	}
	position, err := geo.PositionFromArray(pos)
	if err != nil {
		return u, fmt.Errorf("unit %d position: %w", u.ID, err)
	}
	u.Position = position

	var status string
	if err := json.Unmarshal(row[2], &status); err != nil {
		return u, fmt.Errorf("unit %d status: %w", u.ID, err)
	}
	if u.Status, err = core.ParseUnitStatus(status); err != nil {
		return u, fmt.Errorf("unit %d: %w", u.ID, err)
	}

	if len(row) > 3 {
		if err := json.Unmarshal(row[3], &u.Skill); err != nil {
			return u, fmt.Errorf("unit %d skill: %w", u.ID, err)
		}
		if u.Skill < 0 || u.Skill > 1 {
			return u, fmt.Errorf("unit %d skill %v outside [0,1]", u.ID, u.Skill)
		}
	}
	return u, nil
}

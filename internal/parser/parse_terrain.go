package parser

import (
	"encoding/json"
	"fmt"

	"github.com/AIAI/extension/internal/geo"
	"github.com/AIAI/extension/internal/terrain"
	"github.com/AIAI/extension/internal/util"
	"github.com/AIAI/extension/pkg/core"
)

// rawSample mirrors terrain.Sample with SQF-friendly position and extent encodings
type rawSample struct {
	ID                   int             `json:"id"`
	Key                  string          `json:"key"`
	Extent               json.RawMessage `json:"extent"`
	Centroid             []float64       `json:"centroid"`
	Elevation            float64         `json:"elevation"`
	SurroundingElevation float64         `json:"surroundingElevation"`
	Obstructions         int             `json:"obstructions"`
	VisibilityRange      float64         `json:"visibilityRange"`
	PassageWidth         float64         `json:"passageWidth"`
	Contested            bool            `json:"contested"`
}

// ParseTerrain parses [side, samples] where samples is a JSON array of objects with
// a [x,y,z] centroid and an optional extent given as WKT or a [[x,y],...] ring.
func (p *Parser) ParseTerrain(data []string) (core.Side, []terrain.Sample, error) {
	if err := want(data, 2, "terrain"); err != nil {
		return "", nil, err
	}
	util.CleanArgs(data)

	side, err := core.ParseSide(data[0])
	if err != nil {
		return "", nil, err
	}

	var raws []rawSample
	if err := json.Unmarshal([]byte(data[1]), &raws); err != nil {
		return side, nil, fmt.Errorf("error unmarshalling terrain samples: %w", err)
	}

	samples := make([]terrain.Sample, 0, len(raws))
	seen := make(map[int]bool, len(raws))
	for _, r := range raws {
		if seen[r.ID] {
			return side, nil, fmt.Errorf("duplicate terrain sample id %d", r.ID)
		}
		seen[r.ID] = true

		s, err := r.sample()
		if err != nil {
			return side, nil, fmt.Errorf("terrain sample %d: %w", r.ID, err)
		}
		samples = append(samples, s)
	}

	p.logger.Debug("Parsed terrain samples", "side", side, "samples", len(samples))
	return side, samples, nil
}

func (r rawSample) sample() (terrain.Sample, error) {
	centroid, err := geo.PositionFromArray(r.Centroid)
	if err != nil {
		return terrain.Sample{}, fmt.Errorf("centroid: %w", err)
	}

	extent, err := extentString(r.Extent)
	if err != nil {
		return terrain.Sample{}, err
	}
	if extent != "" {
		if _, err := geo.ParseExtent(extent); err != nil {
			return terrain.Sample{}, err
		}
	}

	return terrain.Sample{
		ID:                   r.ID,
		Key:                  r.Key,
		Extent:               extent,
		Centroid:             centroid,
		Elevation:            r.Elevation,
		SurroundingElevation: r.SurroundingElevation,
		Obstructions:         r.Obstructions,
		VisibilityRange:      r.VisibilityRange,
		PassageWidth:         r.PassageWidth,
		Contested:            r.Contested,
	}, nil
}

// extentString accepts a JSON string (WKT) or an inline ring array
func extentString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("extent: %w", err)
		}
		return s, nil
	}
	return string(raw), nil
}

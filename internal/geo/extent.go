package geo

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/AIAI/extension/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// DefaultZoneRadius is the radius of the disc assumed for zones reported without an extent
const DefaultZoneRadius = 50.0

// ParseExtent parses a zone extent reported by the host. Accepted forms are WKT
// ("POLYGON((...))") and a JSON ring "[[x1,y1],[x2,y2],...]" that is closed if needed.
func ParseExtent(input string) (geom.Geometry, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return geom.Geometry{}, fmt.Errorf("empty extent")
	}
	if strings.HasPrefix(input, "[") {
		wkt, err := ringToWKT(input)
		if err != nil {
			return geom.Geometry{}, err
		}
		input = wkt
	}
	g, err := geom.UnmarshalWKT(input)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("failed to parse extent: %w", err)
	}
	return g, nil
}

func ringToWKT(input string) (string, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return "", fmt.Errorf("failed to parse extent JSON: %w", err)
	}
	if len(coords) < 3 {
		return "", fmt.Errorf("extent ring must have at least 3 points, got %d", len(coords))
	}
	for i, c := range coords {
		if len(c) < 2 {
			return "", fmt.Errorf("coordinate %d has insufficient values", i)
		}
	}
	first, last := coords[0], coords[len(coords)-1]
	if first[0] != last[0] || first[1] != last[1] {
		coords = append(coords, first)
	}

	var sb strings.Builder
	sb.WriteString("POLYGON((")
	for i, c := range coords {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "%g %g", c[0], c[1])
	}
	sb.WriteString("))")
	return sb.String(), nil
}

// ExtentArea returns the planar area of a zone extent in square metres. Missing or
// unparseable extents, and degenerate ones, fall back to a DefaultZoneRadius disc.
func ExtentArea(extent string) float64 {
	fallback := math.Pi * DefaultZoneRadius * DefaultZoneRadius
	if strings.TrimSpace(extent) == "" {
		return fallback
	}
	g, err := ParseExtent(extent)
	if err != nil {
		return fallback
	}
	a := g.Area()
	if a <= 0 {
		return fallback
	}
	return a
}

// AreaEnvelope converts a core.Area into a simplefeatures envelope. Non-finite bounds
// are rejected.
func AreaEnvelope(a core.Area) (geom.Envelope, error) {
	return geom.NewEnvelope([]geom.XY{
		{X: a.MinX, Y: a.MinY},
		{X: a.MaxX, Y: a.MaxY},
	})
}

// InArea reports whether a zone with the given extent and centroid overlaps the area.
// An unbounded area matches everything; zones without a usable extent are tested by centroid.
func InArea(a core.Area, extent string, centroid core.Position3D) bool {
	if a.IsZero() {
		return true
	}
	env, err := AreaEnvelope(a)
	if err != nil {
		return false
	}
	if strings.TrimSpace(extent) != "" {
		if g, err := ParseExtent(extent); err == nil && !g.IsEmpty() {
			return env.Intersects(g.Envelope())
		}
	}
	return env.Contains(geom.XY{X: centroid.X, Y: centroid.Y})
}

// BoundingArea returns the bounding box of the positions grown by margin on every side.
// No positions, or a non-finite one, yields the zero (unbounded) area.
func BoundingArea(positions []core.Position3D, margin float64) core.Area {
	if len(positions) == 0 {
		return core.Area{}
	}
	xys := make([]geom.XY, len(positions))
	for i, p := range positions {
		xys[i] = geom.XY{X: p.X, Y: p.Y}
	}
	env, err := geom.NewEnvelope(xys)
	if err != nil {
		return core.Area{}
	}
	minXY, maxXY, ok := env.MinMaxXYs()
	if !ok {
		return core.Area{}
	}
	return core.Area{
		MinX: minXY.X - margin,
		MinY: minXY.Y - margin,
		MaxX: maxXY.X + margin,
		MaxY: maxXY.Y + margin,
	}
}

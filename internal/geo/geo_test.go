package geo

import (
	"math"
	"testing"

	"github.com/AIAI/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition3DFromString_WithElevation(t *testing.T) {
	pos, err := Position3DFromString("100.5,200.25,50.0")
	require.NoError(t, err)
	assert.Equal(t, core.Position3D{X: 100.5, Y: 200.25, Z: 50}, pos)
}

func TestPosition3DFromString_WithoutElevation(t *testing.T) {
	pos, err := Position3DFromString("100.5, 200.25")
	require.NoError(t, err)
	assert.Equal(t, core.Position3D{X: 100.5, Y: 200.25}, pos)
}

func TestPosition3DFromString_Invalid(t *testing.T) {
	tests := []string{"", "100", "abc,200", "100,abc", "100,200,abc"}
	for _, in := range tests {
		_, err := Position3DFromString(in)
		assert.ErrorIs(t, err, ErrInvalidCoordinates, "input %q", in)
	}
}

func TestPositionFromJSON(t *testing.T) {
	pos, err := PositionFromJSON("[1200,3400.5,12]")
	require.NoError(t, err)
	assert.Equal(t, core.Position3D{X: 1200, Y: 3400.5, Z: 12}, pos)

	pos, err = PositionFromJSON("[1,2]")
	require.NoError(t, err)
	assert.Equal(t, 0.0, pos.Z)

	_, err = PositionFromJSON("[1]")
	assert.ErrorIs(t, err, ErrInvalidCoordinates)

	_, err = PositionFromJSON("nope")
	assert.Error(t, err)
}

func TestCoords3857From4326_Origin(t *testing.T) {
	point, err := Coords3857From4326(0, 0)
	require.NoError(t, err)
	c, ok := point.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 0.0, c.X, 0.001)
	assert.InDelta(t, 0.0, c.Y, 0.001)
}

func TestCoords3857From4326_NonZero(t *testing.T) {
	point, err := Coords3857From4326(10, 50)
	require.NoError(t, err)
	c, ok := point.Coordinates()
	require.True(t, ok)
	assert.Greater(t, c.X, 1_000_000.0)
	assert.Greater(t, c.Y, 6_000_000.0)
}

func TestCoords3857From4326_OutOfRange(t *testing.T) {
	_, err := Coords3857From4326(0, 95)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestParseExtent_JSONRing(t *testing.T) {
	g, err := ParseExtent("[[0,0],[100,0],[100,50],[0,50]]")
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, g.Area(), 0.001)
}

func TestParseExtent_WKT(t *testing.T) {
	g, err := ParseExtent("POLYGON((0 0,10 0,10 10,0 10,0 0))")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, g.Area(), 0.001)
}

func TestParseExtent_Invalid(t *testing.T) {
	for _, in := range []string{"", "[[0,0],[1,1]]", "[[0],[1,1],[2,2]]", "[not json", "POLYGON((oops))"} {
		_, err := ParseExtent(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestExtentArea_Fallback(t *testing.T) {
	disc := math.Pi * DefaultZoneRadius * DefaultZoneRadius
	assert.InDelta(t, disc, ExtentArea(""), 0.001)
	assert.InDelta(t, disc, ExtentArea("garbage"), 0.001)
	assert.InDelta(t, 400.0, ExtentArea("[[0,0],[20,0],[20,20],[0,20]]"), 0.001)
}

func TestInArea(t *testing.T) {
	area := core.Area{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

	assert.True(t, InArea(core.Area{}, "", core.Position3D{X: 9999, Y: 9999}))
	assert.True(t, InArea(area, "", core.Position3D{X: 50, Y: 50}))
	assert.False(t, InArea(area, "", core.Position3D{X: 150, Y: 50}))
	// centroid outside, extent overlapping
	assert.True(t, InArea(area, "[[90,90],[200,90],[200,200],[90,200]]", core.Position3D{X: 150, Y: 150}))
	assert.False(t, InArea(area, "[[190,190],[200,190],[200,200],[190,200]]", core.Position3D{X: 195, Y: 195}))
}

func TestBoundingArea(t *testing.T) {
	assert.True(t, BoundingArea(nil, 100).IsZero())

	area := BoundingArea([]core.Position3D{{X: 10, Y: 20}, {X: -5, Y: 40}, {X: 3, Y: 0}}, 10)
	assert.Equal(t, core.Area{MinX: -15, MinY: -10, MaxX: 20, MaxY: 50}, area)
}

func TestAreaEnvelope(t *testing.T) {
	env, err := AreaEnvelope(core.Area{MinX: -5, MinY: 0, MaxX: 20, MaxY: 50})
	require.NoError(t, err)
	minXY, maxXY, ok := env.MinMaxXYs()
	require.True(t, ok)
	assert.Equal(t, -5.0, minXY.X)
	assert.Equal(t, 50.0, maxXY.Y)

	_, err = AreaEnvelope(core.Area{MinX: math.NaN(), MaxX: 10, MaxY: 10})
	assert.Error(t, err)
	assert.False(t, InArea(core.Area{MinX: math.Inf(-1), MaxX: 10, MaxY: 10}, "", core.Position3D{X: 1, Y: 1}))
}

func TestBoundingArea_NonFinite(t *testing.T) {
	area := BoundingArea([]core.Position3D{{X: 10, Y: 20}, {X: math.NaN(), Y: 40}}, 10)
	assert.True(t, area.IsZero())
}

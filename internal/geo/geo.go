package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AIAI/extension/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Position3DFromString parses a "x,y" or "x,y,z" string into a core.Position3D.
func Position3DFromString(coords string) (core.Position3D, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var z float64
	if len(coordsSplit) > 2 {
		z, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.Position3D{}, ErrInvalidCoordinates
		}
	}
	return core.Position3D{X: x, Y: y, Z: z}, nil
}

// PositionFromArray converts an SQF position array ([x,y] or [x,y,z]) into a core.Position3D
func PositionFromArray(arr []float64) (core.Position3D, error) {
	switch len(arr) {
	case 2:
		return core.Position3D{X: arr[0], Y: arr[1]}, nil
	case 3:
		return core.Position3D{X: arr[0], Y: arr[1], Z: arr[2]}, nil
	}
	return core.Position3D{}, ErrInvalidCoordinates
}

// PositionFromJSON parses "[x,y,z]" into a core.Position3D
func PositionFromJSON(input string) (core.Position3D, error) {
	var arr []float64
	if err := json.Unmarshal([]byte(input), &arr); err != nil {
		return core.Position3D{}, fmt.Errorf("failed to parse position JSON: %w", err)
	}
	return PositionFromArray(arr)
}

// Coords3857From4326 projects a longitude and latitude into web mercator
func Coords3857From4326(
	longitude float64,
	latitude float64,
) (
	point geom.Point,
	err error,
) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	point, err = geom.NewPoint(
		geom.Coordinates{
			XY: geom.XY{X: x, Y: y},
		},
	)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXY), err
	}
	return point, nil
}

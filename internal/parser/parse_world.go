package parser

import (
	"fmt"
	"strconv"

	"github.com/AIAI/extension/internal/geo"
	"github.com/AIAI/extension/internal/util"
	"github.com/AIAI/extension/pkg/core"
)

// ParseWorld parses [worldName, longitude, latitude] and projects the location
func (p *Parser) ParseWorld(data []string) (core.World, error) {
	var world core.World
	if err := want(data, 3, "world"); err != nil {
		return world, err
	}
	util.CleanArgs(data)

	world.Name = data[0]
	lon, err := strconv.ParseFloat(data[1], 64)
	if err != nil {
		return world, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(data[2], 64)
	if err != nil {
		return world, fmt.Errorf("latitude: %w", err)
	}
	world.Longitude, world.Latitude = lon, lat

	point, err := geo.Coords3857From4326(lon, lat)
	if err != nil {
		return world, fmt.Errorf("error converting world location to geopoint: %w", err)
	}
	xy, ok := point.XY()
	if !ok {
		return world, fmt.Errorf("world location is empty")
	}
	world.LocationX, world.LocationY = xy.X, xy.Y

	p.logger.Debug("Parsed world", "worldName", world.Name)
	return world, nil
}

// Package terrain converts host terrain queries into scored tactical zones.
package terrain

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/AIAI/extension/internal/geo"
	"github.com/AIAI/extension/pkg/core"
)

// DefaultRefreshInterval is the minimum number of ticks between terrain refreshes
const DefaultRefreshInterval = 30

// Sample is one queryable terrain feature returned by the host
type Sample struct {
	ID                   int             `json:"id"`
	Key                  string          `json:"key,omitempty"`
	Extent               string          `json:"extent,omitempty"`
	Centroid             core.Position3D `json:"centroid"`
	Elevation            float64         `json:"elevation"`
	SurroundingElevation float64         `json:"surroundingElevation"`
	Obstructions         int             `json:"obstructions"`
	VisibilityRange      float64         `json:"visibilityRange"`
	PassageWidth         float64         `json:"passageWidth"`
	Contested            bool            `json:"contested"`
}

// Query answers terrain queries for an area
type Query interface {
	QueryTerrain(area core.Area) ([]Sample, error)
}

// QueryFunc adapts a function to the Query interface
type QueryFunc func(area core.Area) ([]Sample, error)

func (f QueryFunc) QueryTerrain(area core.Area) ([]Sample, error) { return f(area) }

// Analyzer owns the current zone set
type Analyzer struct {
	refreshInterval uint64
	scorer          Scorer

	zones       []core.TacticalZone
	version     uint64
	lastRefresh uint64
	refreshed   bool
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithScorer replaces the DefaultScorer
func WithScorer(s Scorer) Option {
	return func(a *Analyzer) {
		if s != nil {
			a.scorer = s
		}
	}
}

// WithRefreshInterval sets the throttle in ticks. Values below 1 are treated as 1.
func WithRefreshInterval(ticks int) Option {
	return func(a *Analyzer) {
		if ticks < 1 {
			ticks = 1
		}
		a.refreshInterval = uint64(ticks)
	}
}

// NewAnalyzer creates an Analyzer with no zones
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		refreshInterval: DefaultRefreshInterval,
		scorer:          DefaultScorer{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Due reports whether a refresh may run at tick. The first refresh is always due;
// afterwards at most one refresh runs per refresh interval.
func (a *Analyzer) Due(tick uint64) bool {
	if !a.refreshed {
		return true
	}
	return tick >= a.lastRefresh+a.refreshInterval
}

// Refresh queries the host and replaces the zone set. On failure the previous zone set is kept.
func (a *Analyzer) Refresh(tick uint64, query Query, area core.Area) ([]core.TacticalZone, error) {
	if query == nil {
		return nil, fmt.Errorf("%w: no terrain query", core.ErrTerrainUnavailable)
	}
	samples, err := query.QueryTerrain(area)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTerrainUnavailable, err)
	}

	zones := make([]core.TacticalZone, 0, len(samples))
	for _, s := range samples {
		if !geo.InArea(area, s.Extent, s.Centroid) {
			continue
		}
		zones = append(zones, a.zone(s))
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("%w: no terrain samples for area", core.ErrTerrainUnavailable)
	}
	uniqueKeys(zones)

	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].Score != zones[j].Score {
			return zones[i].Score > zones[j].Score
		}
		return zones[i].ID < zones[j].ID
	})

	a.zones = zones
	a.version++
	a.lastRefresh = tick
	a.refreshed = true
	return a.Zones(), nil
}

func (a *Analyzer) zone(s Sample) core.TacticalZone {
	scores := a.scorer.Score(s)
	category, score := primary(scores)
	key := s.Key
	if key == "" {
		key = gridKey(s.Centroid)
	}
	return core.TacticalZone{
		ID:        s.ID,
		Key:       key,
		Extent:    s.Extent,
		Centroid:  s.Centroid,
		Scores:    scores,
		Category:  category,
		Score:     score,
		Contested: s.Contested,
	}
}

// gridKey identifies a zone by its centroid snapped to a 10 m grid, so the same
// terrain feature keeps its key across refreshes even when host ids change.
func gridKey(p core.Position3D) string {
	return fmt.Sprintf("%d:%d", int64(math.Round(p.X/10)), int64(math.Round(p.Y/10)))
}

// uniqueKeys suffixes repeated keys with the zone id. The zone with the smallest id
// keeps the plain key.
func uniqueKeys(zones []core.TacticalZone) {
	byID := make([]int, len(zones))
	for i := range byID {
		byID[i] = i
	}
	sort.Slice(byID, func(i, j int) bool { return zones[byID[i]].ID < zones[byID[j]].ID })

	seen := make(map[string]bool, len(zones))
	for _, i := range byID {
		key := zones[i].Key
		if seen[key] {
			key = key + "/" + strconv.Itoa(zones[i].ID)
		}
		seen[key] = true
		zones[i].Key = key
	}
}

// Zones returns a copy of the current zone set
func (a *Analyzer) Zones() []core.TacticalZone {
	out := make([]core.TacticalZone, len(a.zones))
	for i, z := range a.zones {
		out[i] = z.Clone()
	}
	return out
}

// Version is incremented on every successful refresh
func (a *Analyzer) Version() uint64 { return a.version }

// LastRefresh is the tick of the last successful refresh
func (a *Analyzer) LastRefresh() uint64 { return a.lastRefresh }

// Ready reports whether at least one refresh succeeded
func (a *Analyzer) Ready() bool { return a.refreshed }

package terrain

import (
	"math"

	"github.com/AIAI/extension/internal/geo"
	"github.com/AIAI/extension/pkg/core"
)

// Scorer turns a terrain sample into per-category scores in [0,10]
type Scorer interface {
	Score(s Sample) map[core.ZoneCategory]float64
}

// ScorerFunc adapts a function to the Scorer interface
type ScorerFunc func(s Sample) map[core.ZoneCategory]float64

func (f ScorerFunc) Score(s Sample) map[core.ZoneCategory]float64 { return f(s) }

const (
	maxScore = 10.0

	// obstructions per 1000 m² at which cover saturates
	coverSaturation = 2.0

	vantageElevationSaturation  = 40.0
	vantageVisibilitySaturation = 1500.0
	vantageElevationWeight      = 0.6
	vantageVisibilityWeight     = 0.4

	chokepointNarrow = 10.0
	chokepointWide   = 60.0

	// share of the elevation score subtracted from open ground
	openElevationPenalty = 0.5
)

// DefaultScorer is a deterministic weighted combination of the sample measurements
type DefaultScorer struct{}

func (DefaultScorer) Score(s Sample) map[core.ZoneCategory]float64 {
	cover := coverScore(s)
	elevation := saturate(math.Max(0, s.Elevation-s.SurroundingElevation), vantageElevationSaturation)
	visibility := saturate(s.VisibilityRange, vantageVisibilitySaturation)

	return map[core.ZoneCategory]float64{
		core.CategoryCover:      cover,
		core.CategoryChokepoint: chokepointScore(s.PassageWidth),
		core.CategoryVantage:    vantageElevationWeight*elevation + vantageVisibilityWeight*visibility,
		core.CategoryOpen:       clamp(maxScore - cover - openElevationPenalty*elevation),
	}
}

func coverScore(s Sample) float64 {
	if s.Obstructions <= 0 {
		return 0
	}
	density := float64(s.Obstructions) / (geo.ExtentArea(s.Extent) / 1000)
	return saturate(density, coverSaturation)
}

// chokepointScore is 10 for passages at most chokepointNarrow wide, falling linearly to 0
// at chokepointWide. Samples without a passage score 0.
func chokepointScore(width float64) float64 {
	switch {
	case width <= 0:
		return 0
	case width <= chokepointNarrow:
		return maxScore
	case width >= chokepointWide:
		return 0
	}
	return maxScore * (chokepointWide - width) / (chokepointWide - chokepointNarrow)
}

// saturate maps v linearly onto [0,10], reaching 10 at limit
func saturate(v, limit float64) float64 {
	if v <= 0 || limit <= 0 {
		return 0
	}
	return clamp(maxScore * v / limit)
}

func clamp(v float64) float64 {
	return math.Min(maxScore, math.Max(0, v))
}

// primary returns the best category of a score map. Equal scores resolve in core.Categories order.
func primary(scores map[core.ZoneCategory]float64) (core.ZoneCategory, float64) {
	best, bestScore := core.CategoryCover, math.Inf(-1)
	for _, c := range core.Categories {
		if v := scores[c]; v > bestScore {
			best, bestScore = c, v
		}
	}
	return best, bestScore
}

package diagnostics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/AIAI/extension/internal/diagnostics"

// MetricsSink records decision and error counts and tick durations through the global OTel meter.
type MetricsSink struct {
	decisions    metric.Int64Counter
	errors       metric.Int64Counter
	tickDuration metric.Float64Histogram
}

// NewMetricsSink creates the instruments. Uses the global meter provider (no-op if not configured).
func NewMetricsSink() (*MetricsSink, error) {
	m := otel.Meter(instrumentationName)
	s := &MetricsSink{}

	var err error
	s.decisions, err = m.Int64Counter(
		"aiai.commander.decisions",
		metric.WithDescription("Order recomputations and squad replans"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decisions counter: %w", err)
	}

	s.errors, err = m.Int64Counter(
		"aiai.commander.errors",
		metric.WithDescription("Transient and fatal commander errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating errors counter: %w", err)
	}

	s.tickDuration, err = m.Float64Histogram(
		"aiai.commander.tick.duration",
		metric.WithDescription("Wall time of one commander tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	return s, nil
}

func (s *MetricsSink) Emit(e Event) {
	ctx := context.Background()
	side := attribute.String("side", string(e.Side))

	switch e.Kind {
	case KindDecision:
		s.decisions.Add(ctx, 1, metric.WithAttributes(side))
	case KindError:
		s.errors.Add(ctx, 1, metric.WithAttributes(side, attribute.Bool("fatal", e.Fatal)))
	case KindTick:
		s.tickDuration.Record(ctx, float64(e.Duration.Microseconds())/1000, metric.WithAttributes(side))
	}
}

package diagnostics

import (
	"context"
	"log/slog"

	"github.com/AIAI/extension/internal/influx"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// PointWriter is satisfied by influx.Manager
type PointWriter interface {
	WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error
}

// InfluxSink writes tick durations and errors to the performance bucket and
// decisions to the decisions bucket.
type InfluxSink struct {
	w      PointWriter
	logger *slog.Logger
}

// NewInfluxSink wraps w. Write failures are logged to logger.
func NewInfluxSink(w PointWriter, logger *slog.Logger) *InfluxSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &InfluxSink{w: w, logger: logger}
}

func (s *InfluxSink) Emit(e Event) {
	bucket := influx.BucketPerformance
	point := influxdb2_write.NewPointWithMeasurement(string(e.Kind)).
		AddTag("side", string(e.Side)).
		AddField("tick", int64(e.Tick)).
		SetTime(e.Time)

	switch e.Kind {
	case KindTick:
		point.AddField("duration_ms", float64(e.Duration.Microseconds())/1000)
	case KindError:
		point.AddTag("fatal", boolTag(e.Fatal))
		point.AddField("message", e.Message)
		point.AddField("error", e.Error())
	case KindDecision:
		bucket = influx.BucketDecisions
		point.AddField("message", e.Message)
		for _, k := range []string{"squads", "orders", "changed", "zones", "units"} {
			if v, ok := e.Fields[k].(int); ok {
				point.AddField(k, v)
			}
		}
	default:
		point.AddField("message", e.Message)
	}

	if err := s.w.WritePoint(context.Background(), bucket, point); err != nil {
		s.logger.Warn("failed to write diagnostics point", "bucket", bucket, "error", err)
	}
}

func boolTag(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

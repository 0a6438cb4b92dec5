package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricBeamsTotal      = "polcal.beams.total"
	metricChannelsTotal   = "polcal.channels.total"
	metricFlaggedTotal    = "polcal.flagged.channels.total"
	metricSuspectTotal    = "polcal.suspect.channels.total"
	metricRunDuration     = "polcal.run.duration.seconds"
	metricWriteBacksTotal = "polcal.writebacks.total"

	attrPipeline = "pipeline"
	attrOutcome  = "outcome"
	attrStatus   = "status"

	statusOK     = "ok"
	statusFailed = "failed"
)

// Pipelines, used as the pipeline attribute.
const (
	PipelineCorrect = "correct"
	PipelineFlag    = "flag"
)

// Channel outcomes of the correction pipeline.
const (
	OutcomeDerived  = "derived"
	OutcomeHeld     = "held"
	OutcomeSentinel = "sentinel"
)

// durationBucketBoundaries covers a single small beam up to a full 36-beam
// table read from a slow filesystem.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// RunMetrics holds the instruments recorded by the correct and flag pipelines.
type RunMetrics struct {
	beamsTotal    metric.Int64Counter
	channelsTotal metric.Int64Counter
	flaggedTotal  metric.Int64Counter
	suspectTotal  metric.Int64Counter
	runDuration   metric.Float64Histogram
	writeBacks    metric.Int64Counter
}

// CorrectionStats summarizes one correction run.
type CorrectionStats struct {
	Beams    int
	Duration time.Duration
	Derived  int64
	Held     int64
	Sentinel int64
	// Suspect counts channels of any outcome whose multiplier amplitude is
	// out of range.
	Suspect int64
}

// FlaggingStats summarizes the flagging of one beam.
type FlaggingStats struct {
	Beam     int
	Channels int
	Flagged  int
	Duration time.Duration
}

// NewRunMetrics creates the run instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	beams, err := mt.Int64Counter(metricBeamsTotal,
		metric.WithDescription("Beams processed"),
		metric.WithUnit("{beam}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBeamsTotal, err)
	}

	channels, err := mt.Int64Counter(metricChannelsTotal,
		metric.WithDescription("1 MHz channels processed by outcome"),
		metric.WithUnit("{channel}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChannelsTotal, err)
	}

	flagged, err := mt.Int64Counter(metricFlaggedTotal,
		metric.WithDescription("1 MHz channels flagged for bad leakage"),
		metric.WithUnit("{channel}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFlaggedTotal, err)
	}

	suspect, err := mt.Int64Counter(metricSuspectTotal,
		metric.WithDescription("Corrected 1 MHz channels with a suspect multiplier amplitude"),
		metric.WithUnit("{channel}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSuspectTotal, err)
	}

	duration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	writeBacks, err := mt.Int64Counter(metricWriteBacksTotal,
		metric.WithDescription("Table write-backs by status"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWriteBacksTotal, err)
	}

	return &RunMetrics{
		beamsTotal:    beams,
		channelsTotal: channels,
		flaggedTotal:  flagged,
		suspectTotal:  suspect,
		runDuration:   duration,
		writeBacks:    writeBacks,
	}, nil
}

// RecordCorrection records a completed correction. Safe on a nil receiver.
func (rm *RunMetrics) RecordCorrection(ctx context.Context, stats CorrectionStats) {
	if rm == nil {
		return
	}

	pipeline := attribute.String(attrPipeline, PipelineCorrect)

	rm.beamsTotal.Add(ctx, int64(stats.Beams), metric.WithAttributes(pipeline))
	rm.runDuration.Record(ctx, stats.Duration.Seconds(), metric.WithAttributes(pipeline))

	outcomes := []struct {
		name  string
		count int64
	}{
		{OutcomeDerived, stats.Derived},
		{OutcomeHeld, stats.Held},
		{OutcomeSentinel, stats.Sentinel},
	}

	for _, o := range outcomes {
		rm.channelsTotal.Add(ctx, o.count, metric.WithAttributes(pipeline, attribute.String(attrOutcome, o.name)))
	}

	rm.suspectTotal.Add(ctx, stats.Suspect, metric.WithAttributes(pipeline))
}

// RecordFlagging records the flagging of one beam. Safe on a nil receiver.
func (rm *RunMetrics) RecordFlagging(ctx context.Context, stats FlaggingStats) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrPipeline, PipelineFlag))

	rm.beamsTotal.Add(ctx, 1, attrs)
	rm.channelsTotal.Add(ctx, int64(stats.Channels), attrs)
	rm.flaggedTotal.Add(ctx, int64(stats.Flagged), attrs)
	rm.runDuration.Record(ctx, stats.Duration.Seconds(), attrs)
}

// RecordWriteBack records whether a table write-back changed the data.
// Safe on a nil receiver.
func (rm *RunMetrics) RecordWriteBack(ctx context.Context, pipeline string, ok bool) {
	if rm == nil {
		return
	}

	status := statusOK
	if !ok {
		status = statusFailed
	}

	rm.writeBacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrPipeline, pipeline),
		attribute.String(attrStatus, status),
	))
}

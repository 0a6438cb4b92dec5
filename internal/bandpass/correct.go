// Package bandpass applies leakage-derived XY-phase corrections to a bandpass
// calibration table.
package bandpass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/cmplx"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/candersoncsiro/process-polcal/internal/channel"
	"github.com/candersoncsiro/process-polcal/internal/leakage"
	"github.com/candersoncsiro/process-polcal/internal/phase"
	"github.com/candersoncsiro/process-polcal/pkg/alg/stats"
	"github.com/candersoncsiro/process-polcal/pkg/table"
)

const (
	tracerName = "polcal"

	// bandpassAxes is (pol-group, beam, row, frequency).
	bandpassAxes = 4
	axisBeam     = 1
	axisRow      = 2
	axisFreq     = 3

	// polGroup is the pol-group slice the correction is written to.
	polGroup = 0

	// amplitudeWarnLimit flags an applied multiplier that is not unit amplitude.
	amplitudeWarnLimit = 1.01
)

// Sentinel errors.
var (
	ErrShapeMismatch    = errors.New("bandpass shape does not match configuration")
	ErrUnsupportedSense = errors.New("counter-clockwise rotation sense is not supported")
	ErrInvalidSense     = errors.New("rotation sense must be 1 (clockwise) or -1 (counter-clockwise)")
)

// Sense is the rotation sense of the rotated PAF.
type Sense int

// Rotation senses.
const (
	CounterClockwise Sense = -1
	Clockwise        Sense = 1
)

// Validate checks that s is a sense the corrector can apply.
func (s Sense) Validate() error {
	switch s {
	case Clockwise:
		return nil
	case CounterClockwise:
		return ErrUnsupportedSense
	default:
		return fmt.Errorf("%w: got %d", ErrInvalidSense, int(s))
	}
}

// Options configures Correct.
type Options struct {
	Beams        int
	Channels     int
	ChannelWidth int
	// Antenna is the rotated antenna whose leakage drives the correction.
	Antenna int
	Sense   Sense
	Logger  *slog.Logger
}

// ChannelStat records the correction applied to one 1 MHz channel.
type ChannelStat struct {
	Channel    int
	PhaseDeg   float64
	Multiplier complex128
	D12        phase.Outcome
	D21        phase.Outcome
	// Suspect is set when |Multiplier| >= 1.01.
	Suspect bool
}

// BeamStats summarizes the per-channel XY phases of one beam.
type BeamStats struct {
	Beam     int
	MeanDeg  float64
	StdDeg   float64
	Channels []ChannelStat
}

// Counts returns how many channels had d12 corrections derived, held, or
// left at the no-op sentinel.
func (b BeamStats) Counts() (derived, held, sentinel int) {
	for _, c := range b.Channels {
		switch c.D12 {
		case phase.OutcomeDerived:
			derived++
		case phase.OutcomeHeld:
			held++
		default:
			sentinel++
		}
	}

	return derived, held, sentinel
}

// Result is the output of Correct.
type Result struct {
	Corrected *table.Array[complex64]
	Beams     []BeamStats
}

// CheckShape verifies the bandpass array against the beam and channel layout.
func CheckShape(bp *table.Array[complex64], beams, channels, width int) error {
	if len(bp.Shape) != bandpassAxes {
		return fmt.Errorf("%w: want %d axes, got shape %v", ErrShapeMismatch, bandpassAxes, bp.Shape)
	}

	if bp.Shape[0] < 1 {
		return fmt.Errorf("%w: empty pol-group axis in shape %v", ErrShapeMismatch, bp.Shape)
	}

	want := channel.BandpassLength(channels, width)
	if bp.Shape[axisFreq] != want {
		return fmt.Errorf("%w: frequency axis is %d, want %d (%d channels x %d x 2)",
			ErrShapeMismatch, bp.Shape[axisFreq], want, channels, width)
	}

	if beams > bp.Shape[axisBeam] {
		return fmt.Errorf("%w: %d beams requested, table holds %d", ErrShapeMismatch, beams, bp.Shape[axisBeam])
	}

	return nil
}

// Correct multiplies one polarization of every 1 MHz channel of every beam by
// the d12-derived correction and returns the corrected copy with per-beam
// phase statistics. bp is not modified.
func Correct(ctx context.Context, bp *table.Array[complex64], src leakage.Source, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	senseErr := opts.Sense.Validate()
	if senseErr != nil {
		return Result{}, senseErr
	}

	shapeErr := CheckShape(bp, opts.Beams, opts.Channels, opts.ChannelWidth)
	if shapeErr != nil {
		return Result{}, shapeErr
	}

	tr := otel.Tracer(tracerName)

	ctx, span := tr.Start(ctx, "polcal.bandpass.correct",
		trace.WithAttributes(
			attribute.Int("polcal.beams", opts.Beams),
			attribute.Int("polcal.channels", opts.Channels),
			attribute.Int("polcal.antenna", opts.Antenna),
		))
	defer span.End()

	out := bp.Clone()
	beams := make([]BeamStats, 0, opts.Beams)

	for beam := range opts.Beams {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("beam %d: %w", beam, ctxErr)
		}

		stat := correctBeam(ctx, out, src, beam, opts, logger)
		beams = append(beams, stat)

		logger.InfoContext(ctx, "beam corrected",
			"beam", fmt.Sprintf("b%02d", beam),
			"mean_deg", stat.MeanDeg,
			"std_deg", stat.StdDeg)
	}

	return Result{Corrected: out, Beams: beams}, nil
}

func correctBeam(
	ctx context.Context,
	out *table.Array[complex64],
	src leakage.Source,
	beam int,
	opts Options,
	logger *slog.Logger,
) BeamStats {
	state := phase.NewBeamState()
	chans := make([]ChannelStat, 0, opts.Channels)
	phases := make([]float64, 0, opts.Channels)

	for i := range opts.Channels {
		key := leakage.Key{Beam: beam, Channel: i, Antenna: opts.Antenna}

		pair, loadErr := src.Load(ctx, key)
		if loadErr != nil {
			logger.WarnContext(ctx, "leakage unavailable, holding previous correction",
				"key", key.String(), "error", loadErr)
		}

		c12 := phase.Resolve(pair.D12, state.D12)
		c21 := phase.Resolve(pair.D21, state.D21)

		xyPhase := stats.Degrees(cmplx.Phase(stats.ComplexMean(c12.Multiplier, cmplx.Conj(c21.Multiplier))))
		phases = append(phases, xyPhase)

		rng := channel.BandpassRange(i, opts.ChannelWidth)
		applyToSlice(out, beam, rng, complex64(c12.Multiplier))

		amp := cmplx.Abs(c12.Multiplier)
		suspect := amp >= amplitudeWarnLimit

		if suspect {
			logger.WarnContext(ctx, "bad channel detected, using correction from last good channel",
				"key", key.String(), "amplitude", amp)
		} else {
			logger.DebugContext(ctx, "applying XY phase correction",
				"key", key.String(),
				"phase_deg", stats.Degrees(cmplx.Phase(c12.Multiplier)),
				"amplitude", amp,
				"range_start", rng.Start,
				"range_stop", rng.Stop,
				"d12", c12.Outcome.String(),
				"d21", c21.Outcome.String())
		}

		chans = append(chans, ChannelStat{
			Channel:    i,
			PhaseDeg:   xyPhase,
			Multiplier: c12.Multiplier,
			D12:        c12.Outcome,
			D21:        c21.Outcome,
			Suspect:    suspect,
		})
	}

	mean, std := stats.MeanStdDev(phases)

	return BeamStats{Beam: beam, MeanDeg: mean, StdDeg: std, Channels: chans}
}

// applyToSlice multiplies out[polGroup, beam, :, rng] by m in place.
func applyToSlice(out *table.Array[complex64], beam int, rng channel.Range, m complex64) {
	rows := out.Shape[axisRow]

	for row := range rows {
		for _, f := range rng.Indices() {
			out.Set(out.At(polGroup, beam, row, f)*m, polGroup, beam, row, f)
		}
	}
}

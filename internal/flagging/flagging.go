// Package flagging finds 1 MHz channels with anomalous leakage amplitudes and
// flags the fine channels they cover in a visibility flag column.
package flagging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/candersoncsiro/process-polcal/internal/channel"
	"github.com/candersoncsiro/process-polcal/internal/leakage"
	"github.com/candersoncsiro/process-polcal/pkg/alg/stats"
	"github.com/candersoncsiro/process-polcal/pkg/table"
)

const (
	// flagAxes is (row, fine channel, pol).
	flagAxes    = 3
	axisFine    = 1
	axisPol     = 2
	axisRowFlag = 0
)

// Sentinel errors.
var (
	ErrShapeMismatch     = errors.New("flag column shape does not match channel layout")
	ErrChannelOutOfRange = errors.New("bad channel index out of range")
	ErrNoAntennas        = errors.New("antenna selector lists no antennas")
)

// ChannelSet is a set of 1 MHz channel indices.
type ChannelSet map[int]struct{}

// NewChannelSet builds a set from indices.
func NewChannelSet(channels ...int) ChannelSet {
	s := make(ChannelSet, len(channels))
	for _, c := range channels {
		s.Add(c)
	}

	return s
}

// Add inserts a channel.
func (s ChannelSet) Add(ch int) {
	s[ch] = struct{}{}
}

// Has reports membership.
func (s ChannelSet) Has(ch int) bool {
	_, ok := s[ch]

	return ok
}

// Sorted returns the channels in increasing order.
func (s ChannelSet) Sorted() []int {
	return slices.Sorted(maps.Keys(s))
}

// AntennaSelector chooses which antennas' leakages are inspected.
type AntennaSelector struct {
	antennas []int
	any      bool
}

// Single selects the rotated antenna only.
func Single(antenna int) AntennaSelector {
	return AntennaSelector{antennas: []int{antenna}}
}

// AnyOf selects every listed antenna; a channel is bad if any of them is.
func AnyOf(antennas []int) AntennaSelector {
	return AntennaSelector{antennas: slices.Clone(antennas), any: true}
}

// Antennas returns the selected antenna indices.
func (a AntennaSelector) Antennas() []int {
	return slices.Clone(a.antennas)
}

// IsAny reports whether the selector is in any-antenna mode.
func (a AntennaSelector) IsAny() bool {
	return a.any
}

// Thresholds bound acceptable leakage amplitudes.
type Thresholds struct {
	Lower float64
	Upper float64
}

// Breached reports whether an amplitude range violates the thresholds.
// NaN bounds never breach.
func (t Thresholds) Breached(minAmp, maxAmp float64) bool {
	return maxAmp > t.Upper || minAmp < t.Lower
}

// BadChannels returns the 1 MHz channels of beam whose leakage amplitudes
// breach the thresholds. Channels without any usable leakage are skipped.
func BadChannels(
	ctx context.Context,
	src leakage.Source,
	beam, channelCount int,
	sel AntennaSelector,
	th Thresholds,
	logger *slog.Logger,
) (ChannelSet, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if len(sel.antennas) == 0 {
		return nil, ErrNoAntennas
	}

	bad := NewChannelSet()

	for ch := range channelCount {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, ctxErr)
		}

		minAmp, maxAmp, ok, err := channelAmplitudes(ctx, src, beam, ch, sel)
		if err != nil {
			logger.WarnContext(ctx, "skipping channel without leakage solutions",
				"beam", beam, "channel", ch, "error", err)

			continue
		}

		if !ok {
			logger.DebugContext(ctx, "no leakage values for channel", "beam", beam, "channel", ch)

			continue
		}

		if th.Breached(minAmp, maxAmp) {
			logger.DebugContext(ctx, "leakage amplitude out of bounds",
				"beam", beam, "channel", ch, "min", minAmp, "max", maxAmp)
			bad.Add(ch)
		}
	}

	return bad, nil
}

// channelAmplitudes returns the NaN-ignoring min and max of |d12| and |d21|
// over the selected antennas. ok is false when no value is present.
func channelAmplitudes(
	ctx context.Context,
	src leakage.Source,
	beam, ch int,
	sel AntennaSelector,
) (minAmp, maxAmp float64, ok bool, err error) {
	var pairs map[int]leakage.Pair

	if sel.any {
		pairs, err = src.LoadAll(ctx, beam, ch)
		if err != nil {
			return 0, 0, false, err
		}
	} else {
		ant := sel.antennas[0]

		pair, loadErr := src.Load(ctx, leakage.Key{Beam: beam, Channel: ch, Antenna: ant})
		if loadErr != nil {
			return 0, 0, false, loadErr
		}

		pairs = map[int]leakage.Pair{ant: pair}
	}

	d12 := make([]float64, 0, len(sel.antennas))
	d21 := make([]float64, 0, len(sel.antennas))

	for _, ant := range sel.antennas {
		pair := pairs[ant]
		d12 = append(d12, pair.D12.Amplitude())
		d21 = append(d21, pair.D21.Amplitude())
	}

	// Either direction breaching is enough, so reduce both together.
	maxAmp = stats.NaNMax([]float64{stats.NaNMax(d12), stats.NaNMax(d21)})
	minAmp = stats.NaNMin([]float64{stats.NaNMin(d12), stats.NaNMin(d21)})

	if math.IsNaN(maxAmp) {
		return 0, 0, false, nil
	}

	return minAmp, maxAmp, true, nil
}

// CheckShape verifies the flag column against the channel layout.
func CheckShape(flags *table.Array[bool], channelCount, width int) error {
	if len(flags.Shape) != flagAxes {
		return fmt.Errorf("%w: want %d axes, got shape %v", ErrShapeMismatch, flagAxes, flags.Shape)
	}

	want := channel.FlagLength(channelCount, width)
	if flags.Shape[axisFine] != want {
		return fmt.Errorf("%w: %d fine channels, want %d (%d channels x %d)",
			ErrShapeMismatch, flags.Shape[axisFine], want, channelCount, width)
	}

	return nil
}

// ApplyFlags sets every flag of the fine channels covered by bad, for all
// rows and polarizations. Existing flags are never cleared.
func ApplyFlags(flags *table.Array[bool], bad ChannelSet, channelCount, width int) error {
	shapeErr := CheckShape(flags, channelCount, width)
	if shapeErr != nil {
		return shapeErr
	}

	channels := bad.Sorted()

	for _, k := range channels {
		if k < 0 || k >= channelCount {
			return fmt.Errorf("%w: %d not in [0, %d)", ErrChannelOutOfRange, k, channelCount)
		}
	}

	rows := flags.Shape[axisRowFlag]
	pols := flags.Shape[axisPol]
	fine := flags.Shape[axisFine]

	for _, k := range channels {
		rng := channel.FlagRange(k, width)

		for row := range rows {
			rowBase := row * fine * pols

			// Fine channels of one 1 MHz channel are contiguous, and so are
			// their polarizations, in row-major layout.
			lo := rowBase + rng.Start*pols
			hi := lo + rng.Len()*pols

			for i := lo; i < hi; i++ {
				flags.Data[i] = true
			}
		}
	}

	return nil
}

// Package phase derives unit-amplitude XY-phase correction factors from
// leakage solutions, holding the last good factor across failed channels.
package phase

import (
	"math"
	"math/cmplx"

	"github.com/candersoncsiro/process-polcal/internal/leakage"
	"github.com/candersoncsiro/process-polcal/pkg/alg/stats"
)

// Sentinel is the no-op correction every beam starts from.
const Sentinel complex128 = 1 + 0i

// Outcome classifies how a correction was obtained.
type Outcome int

const (
	// OutcomeSentinel means nothing was derived yet in this beam; no-op applied.
	OutcomeSentinel Outcome = iota
	// OutcomeDerived means the factor came from the channel's own leakage.
	OutcomeDerived
	// OutcomeHeld means the factor was carried over from an earlier channel.
	OutcomeHeld
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeDerived:
		return "derived"
	case OutcomeHeld:
		return "held"
	default:
		return "zero-correction"
	}
}

// State is the last successfully derived correction for one beam and direction.
type State struct {
	multiplier complex128
	angleDeg   float64
	derived    bool
}

// NewState returns a state at the sentinel.
func NewState() *State {
	return &State{multiplier: Sentinel}
}

// Multiplier returns the stored correction.
func (s *State) Multiplier() complex128 {
	return s.multiplier
}

// AngleDeg returns the stored angle in degrees.
func (s *State) AngleDeg() float64 {
	return s.angleDeg
}

// BeamState holds the independent d12 and d21 states of one beam.
type BeamState struct {
	D12 *State
	D21 *State
}

// NewBeamState returns both directions at the sentinel. Call once per beam.
func NewBeamState() BeamState {
	return BeamState{D12: NewState(), D21: NewState()}
}

// For returns the state of direction d.
func (b BeamState) For(d leakage.Direction) *State {
	if d == leakage.D21 {
		return b.D21
	}

	return b.D12
}

// Correction is the factor to apply for one channel and direction.
type Correction struct {
	Multiplier complex128
	AngleDeg   float64
	Outcome    Outcome
}

// Resolve returns conj(v)/|v| for a usable leakage value and records it in st.
// For a missing, zero or non-finite value it returns the value held in st and
// leaves st unchanged.
func Resolve(sol leakage.Solution, st *State) Correction {
	mult, angle, ok := derive(sol)
	if !ok {
		outcome := OutcomeHeld
		if !st.derived {
			outcome = OutcomeSentinel
		}

		return Correction{Multiplier: st.multiplier, AngleDeg: st.angleDeg, Outcome: outcome}
	}

	st.multiplier = mult
	st.angleDeg = angle
	st.derived = true

	return Correction{Multiplier: mult, AngleDeg: angle, Outcome: OutcomeDerived}
}

func derive(sol leakage.Solution) (mult complex128, angleDeg float64, ok bool) {
	if sol.Missing() || cmplx.IsNaN(sol.Value) || cmplx.IsInf(sol.Value) {
		return 0, 0, false
	}

	amp := cmplx.Abs(sol.Value)
	if amp == 0 || math.IsInf(amp, 0) {
		return 0, 0, false
	}

	unit := sol.Value / complex(amp, 0)

	// The reported angle is that of the leakage itself, not of its conjugate.
	return cmplx.Conj(unit), stats.Degrees(cmplx.Phase(unit)), true
}

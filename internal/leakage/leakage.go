// Package leakage reads per-antenna polarization leakage solutions from the
// parset files written by the leakage calibration step.
package leakage

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"
	"regexp"
	"strconv"
	"strings"
)

// Direction selects one of the two cross-polarization leakage terms.
type Direction int

// Leakage directions.
const (
	D12 Direction = iota
	D21
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == D21 {
		return "d21"
	}

	return "d12"
}

// ErrFileAccess reports a leakage parset that could not be opened or read.
var ErrFileAccess = errors.New("leakage file not accessible")

// Key identifies one antenna's solution in one parset file.
type Key struct {
	Beam    int
	Channel int
	Antenna int
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return fmt.Sprintf("b%02d/c%d/a%d", k.Beam, k.Channel, k.Antenna)
}

// Solution is either a parsed leakage value or a recoverable absence.
type Solution struct {
	Value   complex128
	Present bool
}

// Found wraps a parsed leakage value.
func Found(v complex128) Solution {
	return Solution{Value: v, Present: true}
}

// Missing reports whether no value was parsed.
func (s Solution) Missing() bool {
	return !s.Present
}

// Amplitude returns |v|, or NaN when the solution is missing.
func (s Solution) Amplitude() float64 {
	if !s.Present {
		return math.NaN()
	}

	return cmplx.Abs(s.Value)
}

// Pair holds both leakage terms of one antenna.
type Pair struct {
	D12 Solution
	D21 Solution
}

// Get returns the solution for direction d.
func (p Pair) Get(d Direction) Solution {
	if d == D21 {
		return p.D21
	}

	return p.D12
}

// Empty reports whether neither term was parsed.
func (p Pair) Empty() bool {
	return p.D12.Missing() && p.D21.Missing()
}

// directiveRe matches `leakage.d12.<ant>.0 = [re, im]` and captures the
// direction, the antenna and the bracket payload.
var directiveRe = regexp.MustCompile(`^\s*leakage\.(d12|d21)\.(\d+)\.0\s*=\s*\[([^\]]*)\]`)

// ParseBytes extracts every antenna's leakage pair from parset content.
// When an antenna appears on several lines, the last well-formed line per
// direction wins. Lines are not length-limited.
func ParseBytes(data []byte) map[int]Pair {
	pairs := make(map[int]Pair)

	for raw := range bytes.Lines(data) {
		line := strings.TrimRight(string(raw), "\r\n")

		m := directiveRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		ant, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		value, parseErr := parseComplex(m[3])
		if parseErr != nil {
			slog.Default().Debug("skipping malformed leakage directive", "line", line, "error", parseErr)

			continue
		}

		pair := pairs[ant]
		if m[1] == "d21" {
			pair.D21 = Found(value)
		} else {
			pair.D12 = Found(value)
		}

		pairs[ant] = pair
	}

	return pairs
}

var errComplexArity = errors.New("expected two components")

// parseComplex reads the "re, im" payload of a bracketed directive.
func parseComplex(payload string) (complex128, error) {
	parts := strings.Split(payload, ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w, got %d in %q", errComplexArity, len(parts), payload)
	}

	re, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, fmt.Errorf("real part: %w", err)
	}

	im, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("imaginary part: %w", err)
	}

	return complex(re, im), nil
}

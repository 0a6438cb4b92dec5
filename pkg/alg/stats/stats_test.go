package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanStdDev(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      []float64
		wantMean   float64
		wantStdDev float64
	}{
		{name: "empty", input: nil, wantMean: 0, wantStdDev: 0},
		{name: "single", input: []float64{4}, wantMean: 4, wantStdDev: 0},
		{name: "population", input: []float64{2, 4, 4, 4, 5, 5, 7, 9}, wantMean: 5, wantStdDev: 2},
		{name: "negative_angles", input: []float64{-10, 10}, wantMean: 0, wantStdDev: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mean, stddev := MeanStdDev(tt.input)
			assert.InDelta(t, tt.wantMean, mean, 1e-9)
			assert.InDelta(t, tt.wantStdDev, stddev, 1e-9)
		})
	}
}

func TestComplexMean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, complex128(0), ComplexMean())
	assert.Equal(t, complex(0.5, 0.5), ComplexMean(1, 1i))
	assert.Equal(t, complex(1, 0), ComplexMean(complex(1, 1), complex(1, -1)))
}

func TestNaNMinMax(t *testing.T) {
	t.Parallel()

	nan := math.NaN()

	tests := []struct {
		name    string
		input   []float64
		wantMin float64
		wantMax float64
		allNaN  bool
	}{
		{name: "empty", input: nil, allNaN: true},
		{name: "only_nan", input: []float64{nan, nan}, allNaN: true},
		{name: "leading_nan", input: []float64{nan, 0.2, 0.05}, wantMin: 0.05, wantMax: 0.2},
		{name: "interleaved_nan", input: []float64{0.1, nan, 0.3, nan}, wantMin: 0.1, wantMax: 0.3},
		{name: "no_nan", input: []float64{0.08, 0.15, 0.07}, wantMin: 0.07, wantMax: 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotMin := NaNMin(tt.input)
			gotMax := NaNMax(tt.input)

			if tt.allNaN {
				assert.True(t, math.IsNaN(gotMin))
				assert.True(t, math.IsNaN(gotMax))

				return
			}

			assert.InDelta(t, tt.wantMin, gotMin, 1e-12)
			assert.InDelta(t, tt.wantMax, gotMax, 1e-12)
		})
	}
}

func TestDegrees(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 180.0, Degrees(math.Pi), 1e-12)
	assert.InDelta(t, -90.0, Degrees(-math.Pi/2), 1e-12)
}

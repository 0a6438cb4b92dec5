// Package stats provides the reductions used to summarize leakage amplitudes
// and phase corrections.
// All standard deviation calculations use population stddev (÷n, not ÷(n−1)).
package stats

import (
	"math"
)

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	count := len(values)
	if count == 0 {
		return 0, 0
	}

	mean = Mean(values)

	var sumSq float64

	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	return mean, math.Sqrt(sumSq / float64(count))
}

// ComplexMean returns the arithmetic mean of complex values.
// Returns 0 for an empty slice.
func ComplexMean(values ...complex128) complex128 {
	if len(values) == 0 {
		return 0
	}

	var sum complex128

	for _, v := range values {
		sum += v
	}

	return sum / complex(float64(len(values)), 0)
}

// NaNMin returns the smallest non-NaN element in values.
// Returns NaN when values is empty or holds only NaNs.
func NaNMin(values []float64) float64 {
	result := math.NaN()

	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}

		if math.IsNaN(result) || v < result {
			result = v
		}
	}

	return result
}

// NaNMax returns the largest non-NaN element in values.
// Returns NaN when values is empty or holds only NaNs.
func NaNMax(values []float64) float64 {
	result := math.NaN()

	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}

		if math.IsNaN(result) || v > result {
			result = v
		}
	}

	return result
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Package safeconv provides integer conversions that clamp instead of
// silently wrapping.
package safeconv

// ClampUint64 converts a size to uint64, mapping negative values to zero.
func ClampUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}

	return uint64(v)
}

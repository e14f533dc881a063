package domain

import "math"

// Money values are stored in minor units (paise). Rates are percentages and
// every conversion back to money rounds half-up to the minor unit exactly
// once at the call site that owns the rounding rule.

// RoundHalfUp rounds a fractional minor-unit amount half-up to the nearest
// whole minor unit. Negative inputs round away from zero.
func RoundHalfUp(value float64) int64 {
	if value >= 0 {
		return int64(math.Floor(value + 0.5))
	}
	return int64(math.Ceil(value - 0.5))
}

// PercentOf computes rate% of amount in minor units, rounded half-up.
func PercentOf(amount int64, rate float64) int64 {
	if amount == 0 || rate == 0 {
		return 0
	}
	return RoundHalfUp(float64(amount) * rate / 100)
}

// ClampNonNegative floors a monetary amount at zero.
func ClampNonNegative(amount int64) int64 {
	if amount < 0 {
		return 0
	}
	return amount
}

package util

import (
	"math"
)

// IsUsable returns whether the value is finite and positive.
func IsUsable(value float64) bool {
	return value > 0 && !math.IsInf(value, 0)
}

// Rate returns 1/delta, else false if delta or the resulting rate is not usable.
func Rate(delta float64) (float64, bool) {
	if !IsUsable(delta) {
		return 0, false
	}
	rate := 1 / delta
	return rate, IsUsable(rate)
}

// Percent returns part/total as a rounded percentage, else 0 when total is 0.
func Percent(part uint, total uint) uint {
	if total == 0 {
		return 0
	}
	return uint(math.Round(float64(part) / float64(total) * 100.0))
}

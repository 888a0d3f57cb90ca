package service

import "math"

// MaxUnitPrice caps a tier price in minor units (one billion major units).
const MaxUnitPrice int64 = 100_000_000_000

// mulAmount multiplies two non-negative amounts, reporting false on overflow.
func mulAmount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt64/b {
		return 0, false
	}
	return a * b, true
}

// addAmount adds two non-negative amounts, reporting false on overflow.
func addAmount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

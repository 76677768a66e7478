package arb

import "time"

// IsStale reports whether two receipt timestamps are further apart than
// maxSkew. A stale pair describes market states that were never concurrent,
// so it must be rejected before any matching computation runs.
func IsStale(a, b time.Time, maxSkew time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff > maxSkew
}

// DynamicThreshold raises the minimum profit bar with observed volatility:
// max(base, base + volatility*multiplier). In a noisy market a small edge is
// more likely to be stale pricing than a real opportunity.
func DynamicThreshold(base, volatility, multiplier float64) float64 {
	adjusted := base + volatility*multiplier
	if adjusted > base {
		return adjusted
	}
	return base
}

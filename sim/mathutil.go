package sim

import "golang.org/x/exp/constraints"

// Max and Min are generic helpers shared across the physics math
// (resource.go, broker_traditional.go) and the gateway's energy
// estimate (sim/gateway/estimate.go), replacing the scattered type-specific min/max helpers
// the original source hand-rolled per call site.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	return Min(Max(v, lo), hi)
}

package synth

import (
	"math"
	"math/rand"
)

// poissonCutoff switches from Knuth's product method to the normal approximation.
const poissonCutoff = 30

// poisson draws from Poisson(lambda).
func poisson(r *rand.Rand, lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}
	if lambda >= poissonCutoff {
		return math.Max(0, math.Round(lambda+math.Sqrt(lambda)*r.NormFloat64()))
	}
	limit := math.Exp(-lambda)
	k, p := 0.0, r.Float64()
	for p > limit {
		k++
		p *= r.Float64()
	}

	return k
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	if hi == lo {
		return lo
	}

	return lo + (hi-lo)*r.Float64()
}

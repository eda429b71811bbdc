package analyzer

import (
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Mean is the arithmetic mean of xs, or 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return phi.SumD(xs) / float64(len(xs))
}

// StdDev is the sample standard deviation (n-1 denominator) of xs, or 0
// when fewer than two values are given.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

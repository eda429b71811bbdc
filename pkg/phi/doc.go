// Package phi implements the golden-ratio logarithmic transform that every
// other part of the engine builds on.
//
// # Overview
//
// A multiplicative chain of efficiencies is hard to reason about: a 7-stage
// cascade of yields multiplies down to a small number and hides which stage
// costs the most. Mapping every positive value through
//
//	D(x) = -ln(x) / ln(φ),   φ = (1+√5)/2
//
// turns products into sums. The image of a value is its D-value; smaller
// efficiencies produce larger D-values, so the stage with the largest D-value
// is the one that loses the most.
//
// # Basic Usage
//
//	d, err := phi.Forward(0.45)  // 1.6593...
//	x := phi.Inverse(d)          // 0.45
//	total, err := phi.Sum([]float64{0.95, 0.99, 0.85})
//
// [Forward] rejects non-positive, NaN and infinite inputs with a DOMAIN_ERROR.
// [Inverse] is total over the reals.
//
// # Invariants
//
// The package maintains three algebraic identities which the tests check:
//
//   - Round trip: Inverse(Forward(x)) == x
//   - Additivity: Forward(x1·x2·…·xn) == Forward(x1) + … + Forward(xn)
//   - Conservation: ConservedQuantity(x) == 2π, because φ^D(x) is exactly 1/x
//
// [Sum] computes the D-value of a product as a sum of per-term logarithms and
// never multiplies the terms first, so long chains of small values do not
// underflow.
//
// # Sequences
//
// Fibonacci and Lucas numbers, the Brahim sequence and its mirror involution
// are exposed for the analyzer and the ladder, which use them as a canonical
// integer basis.
//
// # Concurrency
//
// Everything in this package is a pure function of its arguments and safe for
// concurrent use.
package phi

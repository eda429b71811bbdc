// Package analyzer validates sum rules and decomposes integers over the
// Fibonacci basis.
//
// # Sum Rules
//
// A sum rule states that an ordered set of signed correction terms must add
// up to a known total. [Validate] reports the deviation in parts per million
// of the expected total. When the expected total is zero a relative deviation
// is undefined and the absolute deviation (scaled by 1e6) is reported instead.
//
//	v, err := analyzer.Validate([]float64{-1, 1, 2, 0.5}, 2.5, analyzer.DefaultTolerancePPM)
//	// v.Valid == true, v.DeviationPPM == 0
//
// # Decomposition
//
// [Decompose] searches for a product of powers of distinct Fibonacci numbers
// that reproduces an integer exactly. The search is exhaustive over basis
// indices 3..[MaxBasisIndex] and exponents up to [MaxExponent], always picks
// the representation with the fewest factors, and breaks ties toward larger
// basis elements. The outcome depends only on the input.
//
//	d, err := analyzer.Decompose(45)
//	// d.Form == "F(4)^2 * F(5)", d.Group == "SO(10) adj"
//
// Integers with no representation inside the bounds fail with
// NOT_DECOMPOSABLE.
package analyzer

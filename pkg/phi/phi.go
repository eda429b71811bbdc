package phi

import (
	"math"
	"math/cmplx"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Phi is the golden ratio, the base of the transform.
const Phi = 1.6180339887498948482

// Derived constants.
const (
	Alpha   = Phi                   // expansion factor
	Omega   = 1 / Phi               // contraction factor, φ^-1
	Beta    = 1 / (Phi * Phi * Phi) // φ^-3
	Gamma   = Omega * Beta          // φ^-4
	Genesis = 2.0 / 901.0

	// Energy is the value ConservedQuantity returns for every valid input.
	Energy = 2 * math.Pi

	// AlphaEM is the measured fine-structure constant.
	AlphaEM = 1 / 137.035999084
)

var (
	// LnPhi is ln(φ), the divisor of the transform.
	LnPhi = math.Log(Phi)

	// BranchSpacing is the D-space distance between branches of the complex
	// logarithm, 2π / ln(φ).
	BranchSpacing = 2 * math.Pi / LnPhi
)

// Forward maps a positive value into D-space: -ln(x)/ln(φ).
func Forward(x float64) (float64, error) {
	if err := checkPositive(x); err != nil {
		return 0, err
	}
	return -math.Log(x) / LnPhi, nil
}

// Inverse maps a D-value back to the value space: φ^-d.
func Inverse(d float64) float64 {
	return math.Exp(-d * LnPhi)
}

// ForwardAll maps every value through Forward. It fails on the first value
// outside the domain and reports its index.
func ForwardAll(xs []float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		d, err := Forward(x)
		if err != nil {
			return nil, errors.Domain("value[%d] = %g: must be a finite number > 0", i, x)
		}
		out[i] = d
	}
	return out, nil
}

// InverseAll maps every D-value through Inverse.
func InverseAll(ds []float64) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = Inverse(d)
	}
	return out
}

// Sum returns the D-value of the product of xs, computed as the sum of the
// individual logarithms. An empty slice is the empty product, D(1) = 0.
func Sum(xs []float64) (float64, error) {
	ds, err := ForwardAll(xs)
	if err != nil {
		return 0, err
	}
	return SumD(ds), nil
}

// SumD adds D-values with Neumaier compensation so that the total does not
// depend on the magnitude ordering of the terms.
func SumD(ds []float64) float64 {
	var sum, c float64
	for _, d := range ds {
		t := sum + d
		if math.Abs(sum) >= math.Abs(d) {
			c += (sum - t) + d
		} else {
			c += (d - t) + sum
		}
		sum = t
	}
	return sum + c
}

// ConservedQuantity returns φ^D(x)·2π·x, which equals 2π for every x > 0.
// It is a self-check of the transform, not a tunable computation.
func ConservedQuantity(x float64) (float64, error) {
	d, err := Forward(x)
	if err != nil {
		return 0, err
	}
	return math.Pow(Phi, d) * Phase(x), nil
}

// Phase returns 2π·x.
func Phase(x float64) float64 {
	return 2 * math.Pi * x
}

// Closure returns D(x) + D(1/x), which is zero for every x > 0.
func Closure(x float64) (float64, error) {
	d, err := Forward(x)
	if err != nil {
		return 0, err
	}
	dInv, err := Forward(1 / x)
	if err != nil {
		return 0, err
	}
	return d + dInv, nil
}

// DComplex extends the transform to the complex plane on branch k:
// -(log z + 2πik)/ln(φ). Branches are BranchSpacing apart along the
// imaginary axis.
func DComplex(z complex128, k int) (complex128, error) {
	if z == 0 {
		return 0, errors.Domain("complex transform undefined at z = 0")
	}
	branch := complex(0, 2*math.Pi*float64(k))
	return -(cmplx.Log(z) + branch) / complex(LnPhi, 0), nil
}

func checkPositive(x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
		return errors.Domain("x = %g: must be a finite number > 0", x)
	}
	return nil
}

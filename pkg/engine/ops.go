package engine

import (
	"github.com/Cloudhabil/phi-engine/pkg/analyzer"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/ladder"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Transform maps values to D-space.
func (e *Engine) Transform(values []float64) ([]float64, error) {
	return phi.ForwardAll(values)
}

// Inverse maps D-values back to values.
func (e *Engine) Inverse(ds []float64) []float64 {
	return phi.InverseAll(ds)
}

// Phase returns 2π·x for each value.
func (e *Engine) Phase(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = phi.Phase(v)
	}
	return out
}

// Energy returns the conserved quantity of each value; every entry is 2π.
func (e *Engine) Energy(values []float64) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		q, err := phi.ConservedQuantity(v)
		if err != nil {
			return nil, errors.Domain("values[%d] = %g: must be > 0", i, v)
		}
		out[i] = q
	}
	return out, nil
}

// ScaleMapping is the ladder position of a dimension.
type ScaleMapping struct {
	N         int     `json:"n"`
	PhiPower  float64 `json:"phi_power"`
	EnergyGeV float64 `json:"energy_gev"`
	Inverse   float64 `json:"x_from_d"`
}

// ScaleMap maps dimension n to its φ^n energy scale.
func (e *Engine) ScaleMap(n int) ScaleMapping {
	return ScaleMapping{
		N:         n,
		PhiPower:  ladder.PhiPower(n),
		EnergyGeV: ladder.EnergyGeV(n, 0),
		Inverse:   phi.Inverse(float64(n)),
	}
}

// Validate checks a sum rule. A nil tolerance selects
// analyzer.DefaultTolerancePPM; an explicit 0 demands an exact sum.
func (e *Engine) Validate(terms []float64, expected float64, tolerancePPM *float64) (analyzer.Validation, error) {
	tol := analyzer.DefaultTolerancePPM
	if tolerancePPM != nil {
		tol = *tolerancePPM
	}
	return analyzer.Validate(terms, expected, tol)
}

// Decompose factors n over the Fibonacci basis.
func (e *Engine) Decompose(n int) (analyzer.Decomposition, error) {
	return analyzer.Decompose(n)
}

// Hierarchy ranks dimensions by significance.
func (e *Engine) Hierarchy(dims []int) ([]analyzer.Rank, error) {
	return analyzer.Hierarchy(dims)
}

// Check runs the closure and conservation identities on x.
func (e *Engine) Check(x float64) (analyzer.Consistency, error) {
	if !(x > 0) {
		return analyzer.Consistency{}, errors.Domain("x = %g: must be > 0", x)
	}
	return analyzer.CheckValue(x), nil
}

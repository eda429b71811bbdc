package analyzer

import (
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// DefaultCheckTolerance bounds the residual of the algebraic self-checks.
const DefaultCheckTolerance = 1e-10

// Check is the outcome of one identity check.
type Check struct {
	Valid    bool    `json:"valid"`
	Value    float64 `json:"value"`
	Expected float64 `json:"expected"`
	Residual float64 `json:"residual"`
	Error    string  `json:"error,omitempty"`
}

// Consistency bundles the checks run on a single value.
type Consistency struct {
	X            float64 `json:"x"`
	Closure      Check   `json:"d_space_closure"`
	Conservation Check   `json:"energy_conservation"`
}

// Valid reports whether every check passed.
func (c Consistency) Valid() bool { return c.Closure.Valid && c.Conservation.Valid }

// CheckClosure verifies D(x) + D(1/x) = 0.
func CheckClosure(x, tol float64) Check {
	c, err := phi.Closure(x)
	if err != nil {
		return Check{Error: err.Error()}
	}
	return Check{Valid: math.Abs(c) < tol, Value: c, Residual: c}
}

// CheckConservation verifies that the conserved quantity equals 2π.
func CheckConservation(x, tol float64) Check {
	e, err := phi.ConservedQuantity(x)
	if err != nil {
		return Check{Expected: phi.Energy, Error: err.Error()}
	}
	r := e - phi.Energy
	return Check{Valid: math.Abs(r) < tol, Value: e, Expected: phi.Energy, Residual: r}
}

// CheckValue runs every identity check on x with the default tolerance.
func CheckValue(x float64) Consistency {
	return Consistency{
		X:            x,
		Closure:      CheckClosure(x, DefaultCheckTolerance),
		Conservation: CheckConservation(x, DefaultCheckTolerance),
	}
}

// MirrorCheck records one involution test.
type MirrorCheck struct {
	Value        int  `json:"value"`
	Mirror       int  `json:"mirror"`
	MirrorMirror int  `json:"mirror_mirror"`
	Valid        bool `json:"valid"`
}

// CheckMirror verifies Mirror(Mirror(v)) = v for each value.
func CheckMirror(values []int) (bool, []MirrorCheck) {
	all := true
	out := make([]MirrorCheck, len(values))
	for i, v := range values {
		m := phi.Mirror(v)
		mm := phi.Mirror(m)
		out[i] = MirrorCheck{Value: v, Mirror: m, MirrorMirror: mm, Valid: mm == v}
		all = all && mm == v
	}
	return all, out
}

// Package ladder maps integer dimensions to energy scales through powers of
// the golden ratio.
package ladder

import (
	"math"
	"sort"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// ProtonMassGeV anchors the ladder: rung n sits at ProtonMassGeV·φ^n.
const ProtonMassGeV = 0.93827

// MaxRungs bounds Full.
const MaxRungs = 248

// DefaultRungs is the ladder height served when a caller does not ask for one.
const DefaultRungs = 78

// Scale is a known representation dimension with its label.
type Scale struct {
	Dimension   int    `json:"dimension"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var knownScales = []Scale{
	{1, "U(1) trivial", "F(1) = 1"},
	{3, "SU(2) adjoint", "F(4) = 3"},
	{8, "SU(3) adjoint", "F(6) = 8"},
	{12, "SM gauge", "L(12) = 322 states"},
	{24, "SU(5) adjoint", "F(5)^2 - 1 = 24"},
	{45, "SO(10) adjoint", "F(4)^2 * F(5) = 45"},
	{78, "E6 adjoint", "M_GUT"},
	{133, "E7 adjoint", "133 = 7 * 19"},
	{248, "E8 adjoint", "F(6) * 31 = 248"},
}

// KnownScales returns the labelled dimensions in ascending order.
func KnownScales() []Scale {
	out := make([]Scale, len(knownScales))
	copy(out, knownScales)
	return out
}

func lookup(n int) (Scale, bool) {
	i := sort.Search(len(knownScales), func(i int) bool { return knownScales[i].Dimension >= n })
	if i < len(knownScales) && knownScales[i].Dimension == n {
		return knownScales[i], true
	}
	return Scale{}, false
}

// PhiPower returns φ^n.
func PhiPower(n int) float64 {
	return math.Pow(phi.Phi, float64(n))
}

// EnergyGeV returns refMass·φ^n. A zero refMass selects ProtonMassGeV.
func EnergyGeV(n int, refMass float64) float64 {
	if refMass == 0 {
		refMass = ProtonMassGeV
	}
	return refMass * PhiPower(n)
}

// Step returns the D-space distance D(from) - D(to) between two scales.
func Step(from, to float64) (float64, error) {
	df, err := phi.Forward(from)
	if err != nil {
		return 0, err
	}
	dt, err := phi.Forward(to)
	if err != nil {
		return 0, err
	}
	return df - dt, nil
}

// Match is the known scale closest to a value's φ exponent.
type Match struct {
	Value    float64 `json:"input_value"`
	Exponent float64 `json:"phi_exponent"`
	Nearest  int     `json:"nearest_integer_n"`
	Scale    Scale   `json:"nearest_known_scale"`
	Distance int     `json:"distance"`
}

// Nearest rounds log_φ(value) to an integer and returns the known scale whose
// dimension is closest; the smaller dimension wins a tie.
func Nearest(value float64) (Match, error) {
	d, err := phi.Forward(value)
	if err != nil {
		return Match{}, err
	}
	exp := -d
	n := int(math.Round(exp))
	m := Match{Value: value, Exponent: exp, Nearest: n, Distance: math.MaxInt}
	for _, s := range knownScales {
		dist := abs(s.Dimension - n)
		if dist < m.Distance {
			m.Distance = dist
			m.Scale = s
		}
	}
	return m, nil
}

// Rung is one step of the ladder.
type Rung struct {
	N           int     `json:"n"`
	PhiPower    float64 `json:"phi_power"`
	EnergyGeV   float64 `json:"energy_GeV"`
	XFromD      float64 `json:"x_from_D"`
	Label       string  `json:"label,omitempty"`
	Description string  `json:"description,omitempty"`
	Lucas       int     `json:"lucas_number,omitempty"`
	LucasStates int     `json:"lucas_states,omitempty"`
}

// Full returns rungs 0..nMax. nMax must lie in [1, MaxRungs].
func Full(nMax int) ([]Rung, error) {
	if nMax < 1 || nMax > MaxRungs {
		return nil, errors.InvalidInput("n_max", "must be in [1, %d], got %d", MaxRungs, nMax)
	}
	out := make([]Rung, 0, nMax+1)
	for n := 0; n <= nMax; n++ {
		r := Rung{
			N:         n,
			PhiPower:  PhiPower(n),
			EnergyGeV: EnergyGeV(n, 0),
			XFromD:    phi.Inverse(float64(n)),
		}
		if s, ok := lookup(n); ok {
			r.Label = s.Label
			r.Description = s.Description
		}
		if n >= 1 && n <= len(phi.LucasNumbers) {
			r.Lucas = phi.Lucas(n)
			r.LucasStates = phi.LucasNumbers[n-1]
		}
		out = append(out, r)
	}
	return out, nil
}

// GUTEntry is a known scale with its position on the ladder.
type GUTEntry struct {
	Scale
	PhiPower  float64 `json:"phi_power"`
	EnergyGeV float64 `json:"energy_GeV"`
}

// GUTHierarchy returns the known scales with their ladder energies.
func GUTHierarchy() []GUTEntry {
	out := make([]GUTEntry, len(knownScales))
	for i, s := range knownScales {
		out[i] = GUTEntry{Scale: s, PhiPower: PhiPower(s.Dimension), EnergyGeV: EnergyGeV(s.Dimension, 0)}
	}
	return out
}

// Ratio is a closed-form coupling expressed over Fibonacci numbers.
type Ratio struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Formula string  `json:"formula"`
}

// AlphaGUT is the unified coupling 1/F(5)^2.
func AlphaGUT() Ratio {
	f5 := float64(phi.Fib(5))
	return Ratio{Name: "alpha_GUT", Value: 1 / (f5 * f5), Formula: "1/F(5)^2 = 1/25"}
}

// WeinbergAtGUT is sin²θ_W at unification, F(4)/F(6).
func WeinbergAtGUT() Ratio {
	return Ratio{
		Name:    "sin2_theta_W_gut",
		Value:   float64(phi.Fib(4)) / float64(phi.Fib(6)),
		Formula: "F(4)/F(6) = 3/8",
	}
}

// StatesCheck verifies that the Lucas state counts add up to phi.TotalStates.
type StatesCheck struct {
	Total    int   `json:"total_states"`
	Expected int   `json:"expected"`
	Valid    bool  `json:"valid"`
	Lucas    []int `json:"lucas_numbers"`
}

// TotalStates sums the Lucas state counts.
func TotalStates() StatesCheck {
	sum := 0
	for _, l := range phi.LucasNumbers {
		sum += l
	}
	return StatesCheck{
		Total:    sum,
		Expected: phi.TotalStates,
		Valid:    sum == phi.TotalStates,
		Lucas:    append([]int(nil), phi.LucasNumbers[:]...),
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

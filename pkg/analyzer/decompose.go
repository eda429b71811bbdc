package analyzer

import (
	"fmt"
	"strings"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Search bounds for Decompose. They decide which integers are reported as
// NOT_DECOMPOSABLE.
const (
	MaxBasisIndex = 20
	MaxExponent   = 20
)

// Structure labels.
const (
	StructureFibonacci    = "fibonacci"
	StructurePower        = "fibonacci-power"
	StructureProduct      = "fibonacci-product"
	StructurePowerProduct = "fibonacci-power-product"
)

// GroupUnknown labels dimensions missing from the representation table.
const GroupUnknown = "unknown"

type structureKey struct {
	multipleBases bool
	hasPower      bool
}

var structures = map[structureKey]string{
	{false, false}: StructureFibonacci,
	{false, true}:  StructurePower,
	{true, false}:  StructureProduct,
	{true, true}:   StructurePowerProduct,
}

// Representation describes a known group representation by dimension.
type Representation struct {
	Group string `json:"group"`
	Form  string `json:"form"`
}

var representations = map[int]Representation{
	1:   {"U(1)", "F(1) = 1"},
	3:   {"SU(2)", "F(4) = 3"},
	8:   {"SU(3)", "F(6) = 8"},
	12:  {"SM gauge", "L(12) = 322 states"},
	24:  {"SU(5) adj", "F(5)^2 - 1 = 24"},
	45:  {"SO(10) adj", "F(4)^2 * F(5) = 45"},
	78:  {"E6 adj", "45 + 16 + 16_bar + 1"},
	133: {"E7 adj", "133 = 7 * 19"},
	248: {"E8 adj", "F(6) * 31 = 248"},
}

// LookupRepresentation returns the table entry for dim.
func LookupRepresentation(dim int) (Representation, bool) {
	r, ok := representations[dim]
	return r, ok
}

// Factor is one basis element raised to a power.
type Factor struct {
	Index    int `json:"index"`
	Value    int `json:"value"`
	Exponent int `json:"exponent"`
}

// Decomposition is the canonical basis representation of an integer.
type Decomposition struct {
	N              int      `json:"dimension"`
	Factors        []Factor `json:"factors"`
	Form           string   `json:"form"`
	Classification string   `json:"classification"`
	Group          string   `json:"group"`
	KnownForm      string   `json:"known_form,omitempty"`
}

type basisElement struct {
	index, value int
}

// basis holds the distinct Fibonacci values > 1 for indices 3..MaxBasisIndex,
// largest first.
var basis = func() []basisElement {
	var b []basisElement
	for i := MaxBasisIndex; i >= 3; i-- {
		b = append(b, basisElement{index: i, value: phi.Fib(i)})
	}
	return b
}()

// Decompose finds the representation of n with the fewest factors.
func Decompose(n int) (Decomposition, error) {
	if n <= 0 {
		return Decomposition{}, errors.Domain("n = %d: must be a positive integer", n)
	}

	var factors []Factor
	if n == 1 {
		factors = []Factor{{Index: 1, Value: 1, Exponent: 1}}
	} else {
		s := search{best: -1}
		s.run(0, n, make([]int, len(basis)), 0)
		if s.best < 0 {
			return Decomposition{}, errors.New(errors.ErrCodeNotDecomposable,
				"%d has no Fibonacci product within indices <= %d and exponents <= %d", n, MaxBasisIndex, MaxExponent)
		}
		// Ascending index order for presentation.
		for i := len(basis) - 1; i >= 0; i-- {
			if e := s.exps[i]; e > 0 {
				factors = append(factors, Factor{Index: basis[i].index, Value: basis[i].value, Exponent: e})
			}
		}
	}

	d := Decomposition{
		N:              n,
		Factors:        factors,
		Form:           formatFactors(factors),
		Classification: classify(factors),
		Group:          GroupUnknown,
	}
	if r, ok := representations[n]; ok {
		d.Group = r.Group
		d.KnownForm = r.Form
	}
	return d, nil
}

type search struct {
	best int
	exps []int
}

// run tries exponents for basis[i:] against the remaining cofactor. Larger
// bases and larger exponents are tried first, and only strictly shorter
// representations replace the incumbent, which fixes the tie-break.
func (s *search) run(i, remaining int, exps []int, count int) {
	if s.best >= 0 && count >= s.best {
		return
	}
	if remaining == 1 {
		s.best = count
		s.exps = append(s.exps[:0], exps...)
		return
	}
	if i == len(basis) {
		return
	}
	v := basis[i].value
	maxE := 0
	for r := remaining; maxE < MaxExponent && r%v == 0; r /= v {
		maxE++
	}
	for e := maxE; e >= 0; e-- {
		r := remaining
		for k := 0; k < e; k++ {
			r /= v
		}
		exps[i] = e
		s.run(i+1, r, exps, count+e)
	}
	exps[i] = 0
}

func formatFactors(fs []Factor) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		if f.Exponent == 1 {
			parts[i] = fmt.Sprintf("F(%d)", f.Index)
		} else {
			parts[i] = fmt.Sprintf("F(%d)^%d", f.Index, f.Exponent)
		}
	}
	return strings.Join(parts, " * ")
}

func classify(fs []Factor) string {
	key := structureKey{multipleBases: len(fs) > 1}
	for _, f := range fs {
		if f.Exponent > 1 {
			key.hasPower = true
		}
	}
	return structures[key]
}

package analyzer

import (
	"fmt"
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// DefaultTolerancePPM is the tolerance used when a caller does not supply one.
const DefaultTolerancePPM = 100.0

// Validation is the verdict of a sum-rule check.
type Validation struct {
	Valid        bool    `json:"valid"`
	Sum          float64 `json:"actual_sum"`
	Expected     float64 `json:"expected_sum"`
	DeviationPPM float64 `json:"deviation_ppm"`
	TolerancePPM float64 `json:"tolerance_ppm"`
	Residual     float64 `json:"residual"`
}

// Validate sums terms in order and compares the result with expected.
// Valid is true iff the deviation does not exceed tolerancePPM.
func Validate(terms []float64, expected, tolerancePPM float64) (Validation, error) {
	if len(terms) == 0 {
		return Validation{}, errors.InvalidInput("terms", "at least one term is required")
	}
	if math.IsNaN(tolerancePPM) || tolerancePPM < 0 {
		return Validation{}, errors.InvalidInput("tolerance_ppm", "must be >= 0, got %g", tolerancePPM)
	}
	if !finite(expected) {
		return Validation{}, errors.InvalidInput("expected_sum", "must be finite")
	}
	var sum float64
	for i, t := range terms {
		if !finite(t) {
			return Validation{}, errors.InvalidInput(fmt.Sprintf("terms[%d]", i), "must be finite")
		}
		sum += t
	}

	dev := DeviationPPM(sum, expected)
	return Validation{
		Valid:        dev <= tolerancePPM,
		Sum:          sum,
		Expected:     expected,
		DeviationPPM: dev,
		TolerancePPM: tolerancePPM,
		Residual:     sum - expected,
	}, nil
}

// DeviationPPM is |actual-expected|/|expected|·1e6, or |actual|·1e6 when
// expected is zero.
func DeviationPPM(actual, expected float64) float64 {
	if expected == 0 {
		return math.Abs(actual) * 1e6
	}
	return math.Abs(actual-expected) / math.Abs(expected) * 1e6
}

// FindMissing returns the single term that closes the rule.
func FindMissing(terms []float64, expected float64) float64 {
	var sum float64
	for _, t := range terms {
		sum += t
	}
	return expected - sum
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

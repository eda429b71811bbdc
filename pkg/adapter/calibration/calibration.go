// Package calibration detects systematic drift of an instrument against a
// known reference in D-space.
//
// Each reading r is mapped to the residual D(r) - D(reference). In D-space a
// constant multiplicative bias becomes a constant offset, so the mean residual
// is the drift and subtracting it yields corrected readings. A positive drift
// means the instrument reads low.
package calibration

import (
	"context"
	"fmt"
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/analyzer"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Name is the registry name of the adapter.
const Name = "calibration"

// ModeDrift is the only mode.
const ModeDrift = "drift"

// Recommendation thresholds in D units.
const (
	DriftThreshold    = 0.1
	VarianceThreshold = 0.05

	sumRuleTolerancePPM = 1000
)

// Params are the calibration parameters.
type Params struct {
	Readings   []float64 `json:"readings"`
	Reference  *float64  `json:"reference"`
	Instrument string    `json:"instrument,omitempty"`
}

// Drift direction of the mean residual.
const (
	DriftPositive = "positive"
	DriftNegative = "negative"
	DriftNone     = "none"
)

// Drift summarizes the systematic offset.
type Drift struct {
	Direction string  `json:"direction"`
	Magnitude float64 `json:"magnitude"`
	// Factor is the multiplicative bias reading/reference implied by the drift.
	Factor float64 `json:"factor"`
}

// Details is the detail payload.
type Details struct {
	Instrument      string              `json:"instrument"`
	Reference       float64             `json:"reference"`
	DReference      float64             `json:"d_reference"`
	DMean           float64             `json:"d_mean"`
	DStd            float64             `json:"d_std"`
	Coefficients    []float64           `json:"correction_coefficients"`
	CorrectedValues []float64           `json:"corrected_values"`
	Drift           Drift               `json:"drift"`
	SumRule         analyzer.Validation `json:"sum_rule"`
}

// Adapter implements adapter.Adapter.
type Adapter struct{}

var _ adapter.Adapter = Adapter{}

// New returns a calibration adapter.
func New() Adapter { return Adapter{} }

// Info implements adapter.Adapter.
func (Adapter) Info() adapter.Info {
	return adapter.Info{
		Name:        Name,
		Version:     "1.0.0",
		Description: "Instrument drift and correction via D-space linearisation",
		Modes:       []string{ModeDrift},
		DefaultMode: ModeDrift,
	}
}

// Analyze implements adapter.Adapter.
func (a Adapter) Analyze(ctx context.Context, req adapter.Request) (*adapter.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Mode != "" && req.Mode != ModeDrift {
		return nil, errors.New(errors.ErrCodeUnsupportedMode, "adapter %s has no mode %q", Name, req.Mode)
	}
	var p Params
	if err := adapter.Decode(req, &p); err != nil {
		return nil, err
	}
	return analyze(p)
}

func validate(p Params) error {
	if p.Reference == nil {
		return errors.InvalidInput("reference", "required")
	}
	if ref := *p.Reference; math.IsNaN(ref) || math.IsInf(ref, 0) || ref <= 0 {
		return errors.Domain("reference = %g: must be > 0", ref)
	}
	if len(p.Readings) < 2 {
		return errors.InvalidInput("readings", "at least two readings are required, got %d", len(p.Readings))
	}
	for i, r := range p.Readings {
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return errors.Domain("readings[%d] = %g: must be > 0", i, r)
		}
	}
	return nil
}

func analyze(p Params) (*adapter.Result, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	instrument := p.Instrument
	if instrument == "" {
		instrument = "unknown"
	}
	dRef, err := phi.Forward(*p.Reference)
	if err != nil {
		return nil, err
	}
	dReadings, err := phi.ForwardAll(p.Readings)
	if err != nil {
		return nil, err
	}

	n := len(p.Readings)
	labels := make([]string, n)
	residuals := make([]float64, n)
	for i, d := range dReadings {
		labels[i] = fmt.Sprintf("reading[%d]", i)
		residuals[i] = d - dRef
	}
	mean := analyzer.Mean(residuals)
	std := analyzer.StdDev(residuals)

	// Coefficients sum to n whenever the drift is non-zero; a zero drift
	// needs no correction.
	coeffs := make([]float64, n)
	for i, r := range residuals {
		coeffs[i] = 1
		if mean != 0 {
			coeffs[i] = r / mean
		}
	}
	rule, err := analyzer.Validate(coeffs, float64(n), sumRuleTolerancePPM)
	if err != nil {
		return nil, err
	}
	corrected := make([]float64, n)
	for i, d := range dReadings {
		corrected[i] = phi.Inverse(d - mean)
	}

	d := Details{
		Instrument:      instrument,
		Reference:       *p.Reference,
		DReference:      dRef,
		DMean:           mean,
		DStd:            std,
		Coefficients:    coeffs,
		CorrectedValues: corrected,
		Drift: Drift{
			Direction: direction(mean),
			Magnitude: math.Abs(mean),
			Factor:    phi.Inverse(mean),
		},
		SumRule: rule,
	}
	res := &adapter.Result{
		Adapter:          Name,
		Mode:             ModeDrift,
		Success:          true,
		Labels:           labels,
		DValues:          residuals,
		TotalD:           phi.SumD(residuals),
		Bottleneck:       adapter.FindOutlier(labels, residuals, mean),
		ConsistencyScore: math.Max(0, 1-rule.DeviationPPM/1e6),
		Recommendations:  recommendations(d),
	}
	if err := res.SetDetails(d); err != nil {
		return nil, err
	}
	return res, nil
}

func direction(mean float64) string {
	switch {
	case mean > 0:
		return DriftPositive
	case mean < 0:
		return DriftNegative
	}
	return DriftNone
}

func recommendations(d Details) []string {
	var recs []string
	if d.Drift.Magnitude > DriftThreshold {
		recs = append(recs, fmt.Sprintf("Systematic %s drift on %s (D magnitude %.4f, readings scaled by %.4f). Recalibrate the instrument.",
			d.Drift.Direction, d.Instrument, d.Drift.Magnitude, d.Drift.Factor))
	}
	if d.DStd > VarianceThreshold {
		recs = append(recs, fmt.Sprintf("High D-space spread (%.4f). Check for environmental interference.", d.DStd))
	}
	if len(recs) == 0 {
		recs = append(recs, "Instrument within calibration tolerance.")
	}
	return recs
}

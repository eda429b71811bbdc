package photosynthesis

import (
	"fmt"
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/analyzer"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// DefaultTarget is the overall efficiency a cascade is measured against when
// the request does not name one.
const DefaultTarget = 0.20

// Sum-rule tolerances for the internal consistency checks, in ppm.
const (
	cascadeTolerancePPM = 100
	systemTolerancePPM  = 1000
)

// Environment holds optional operating conditions.
type Environment struct {
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	CO2PPM       *float64 `json:"co2_ppm,omitempty"`
}

// CascadeParams are the parameters of the cascade mode.
type CascadeParams struct {
	Stages  []Stage  `json:"stages,omitempty"`
	Natural bool     `json:"natural,omitempty"`
	Target  *float64 `json:"target_efficiency,omitempty"`
	Environment
}

// StageResult is one analyzed stage.
type StageResult struct {
	Name            string  `json:"name"`
	Catalyst        string  `json:"catalyst,omitempty"`
	Efficiency      float64 `json:"efficiency"`
	DValue          float64 `json:"d_value"`
	ContributionPct float64 `json:"contribution_pct"`
}

// Improvement is the bottleneck efficiency that alone would close the gap
// to the target, holding every other stage fixed. RequiredEfficiency is
// omitted when the gap cannot be closed that way (RequiredD < 0).
type Improvement struct {
	Stage              string  `json:"stage"`
	CurrentEfficiency  float64 `json:"current_efficiency"`
	RequiredEfficiency float64 `json:"required_efficiency,omitempty"`
	RequiredD          float64 `json:"required_d"`
	DReduction         float64 `json:"d_reduction"`
	Feasible           bool    `json:"feasible"`
}

// EnvironmentFactors are the curve multipliers at the requested conditions.
type EnvironmentFactors struct {
	TemperatureC      float64 `json:"temperature_c"`
	TemperatureFactor float64 `json:"temperature_factor"`
	CO2PPM            float64 `json:"co2_ppm"`
	CO2Saturation     float64 `json:"co2_saturation"`
}

// CascadeDetails is the detail payload of the cascade mode.
type CascadeDetails struct {
	Stages            []StageResult       `json:"stages"`
	OverallEfficiency float64             `json:"overall_efficiency"`
	TotalD            float64             `json:"d_overall"`
	Target            float64             `json:"target_efficiency"`
	TargetD           float64             `json:"d_target"`
	MeetsTarget       bool                `json:"meets_target"`
	Improvement       *Improvement        `json:"improvement,omitempty"`
	SumRule           analyzer.Validation `json:"sum_rule"`
	Environment       *EnvironmentFactors `json:"environment,omitempty"`
}

type cascadeOutcome struct {
	labels      []string
	ds          []float64
	total       float64
	bottleneck  *adapter.Bottleneck
	consistency float64
	details     CascadeDetails
	recs        []string
}

func (a *Adapter) runCascade(p CascadeParams) (*cascadeOutcome, error) {
	stages, err := resolveStages(p.Stages, p.Natural)
	if err != nil {
		return nil, err
	}
	target := a.opts.DefaultTarget
	if p.Target != nil {
		target = *p.Target
	}
	if err := checkEfficiency("target_efficiency", target); err != nil {
		return nil, err
	}

	labels := make([]string, len(stages))
	effs := make([]float64, len(stages))
	for i, s := range stages {
		labels[i] = s.name
		effs[i] = s.efficiency
	}
	ds, err := phi.ForwardAll(effs)
	if err != nil {
		return nil, err
	}
	total := phi.SumD(ds)
	overall := phi.Inverse(total)
	bottleneck := adapter.FindBottleneck(labels, ds)
	contrib := adapter.Contributions(ds)

	// The stage D-values must add up to the D-value of the direct product.
	rule, err := analyzer.Validate(ds, productD(effs), cascadeTolerancePPM)
	if err != nil {
		return nil, err
	}

	targetD, _ := phi.Forward(target)
	d := CascadeDetails{
		Stages:            make([]StageResult, len(stages)),
		OverallEfficiency: overall,
		TotalD:            total,
		Target:            target,
		TargetD:           targetD,
		MeetsTarget:       overall >= target,
		SumRule:           rule,
	}
	for i, s := range stages {
		d.Stages[i] = StageResult{
			Name:            s.name,
			Catalyst:        s.catalyst,
			Efficiency:      s.efficiency,
			DValue:          ds[i],
			ContributionPct: contrib[i],
		}
	}
	if !d.MeetsTarget {
		others := total - bottleneck.DValue
		required := targetD - others
		d.Improvement = &Improvement{
			Stage:             bottleneck.Name,
			CurrentEfficiency: stages[bottleneck.Index].efficiency,
			RequiredD:         required,
			DReduction:        bottleneck.DValue - required,
			Feasible:          required >= 0,
		}
		if d.Improvement.Feasible {
			d.Improvement.RequiredEfficiency = phi.Inverse(required)
		}
	}
	if p.TemperatureC != nil || p.CO2PPM != nil {
		d.Environment = a.environment(p.Environment)
	}

	return &cascadeOutcome{
		labels:      labels,
		ds:          ds,
		total:       total,
		bottleneck:  bottleneck,
		consistency: consistencyScore(rule),
		details:     d,
		recs:        cascadeRecommendations(d, bottleneck),
	}, nil
}

// Standard conditions used when a request omits them.
const (
	StandardTemperatureC = 25.0
	StandardCO2PPM       = 415.0
)

func (a *Adapter) environment(env Environment) *EnvironmentFactors {
	t, c := StandardTemperatureC, StandardCO2PPM
	if env.TemperatureC != nil {
		t = *env.TemperatureC
	}
	if env.CO2PPM != nil {
		c = *env.CO2PPM
	}
	return &EnvironmentFactors{
		TemperatureC:      t,
		TemperatureFactor: a.opts.TemperatureCurve.Eval(t),
		CO2PPM:            c,
		CO2Saturation:     a.opts.ConcentrationCurve.Eval(c),
	}
}

// productD is the D-value of the product of values, accumulated as a sum of
// logarithms so long chains do not underflow. values must be positive.
func productD(values []float64) float64 {
	var lnSum float64
	for _, v := range values {
		lnSum += math.Log(v)
	}
	return -lnSum / phi.LnPhi
}

func consistencyScore(v analyzer.Validation) float64 {
	return math.Max(0, 1-v.DeviationPPM/1e6)
}

var stageAdvice = map[string]string{
	"carbon_fixation":  "Engineered RuBisCO variants or C4/CAM carbon-concentrating mechanisms raise its specificity.",
	"photorespiration": "Higher CO2/O2 specificity or carboxysome encapsulation suppresses the oxygenase pathway.",
	"water_splitting":  "Co-Pi or Ir-oxide oxygen-evolving catalysts offer higher turnover than the Mn4CaO5 cluster.",
}

func cascadeRecommendations(d CascadeDetails, b *adapter.Bottleneck) []string {
	recs := []string{}
	if advice, ok := stageAdvice[b.Name]; ok {
		recs = append(recs, fmt.Sprintf("%s is the bottleneck (D=%.3f, %.1f%% of total loss). %s",
			b.Name, b.DValue, b.ContributionPct, advice))
	} else {
		recs = append(recs, fmt.Sprintf("Stage %q is the bottleneck (D=%.3f, %.1f%% of total loss). Improving it gives the largest system gain.",
			b.Name, b.DValue, b.ContributionPct))
	}

	switch imp := d.Improvement; {
	case imp == nil:
		recs = append(recs, fmt.Sprintf("Overall efficiency %.2f%% meets the %.1f%% target.",
			d.OverallEfficiency*100, d.Target*100))
	case imp.Feasible:
		recs = append(recs, fmt.Sprintf("Reaching the %.1f%% target needs D reduced by %.3f: raise %s from %.3f to %.3f.",
			d.Target*100, imp.DReduction, imp.Stage, imp.CurrentEfficiency, imp.RequiredEfficiency))
	default:
		recs = append(recs, fmt.Sprintf("The %.1f%% target is out of reach through %s alone (it would need D=%.3f, below zero). Improve at least two stages.",
			d.Target*100, imp.Stage, imp.RequiredD))
	}

	if env := d.Environment; env != nil {
		if env.CO2Saturation < 0.8 {
			recs = append(recs, fmt.Sprintf("CO2 saturation is %.1f%% at %.0f ppm. A sorbent pre-concentrator or point-source feed raises it.",
				env.CO2Saturation*100, env.CO2PPM))
		}
		if env.TemperatureFactor < 0.9 {
			recs = append(recs, fmt.Sprintf("Temperature factor %.3f at %.1f C is below optimum. Operate in the 20-30 C range.",
				env.TemperatureFactor, env.TemperatureC))
		}
	}
	return recs
}

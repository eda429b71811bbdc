package photosynthesis

import (
	"fmt"
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/analyzer"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Conversion constants for throughput.
const (
	glucoseEnergyJMol = 2870e3 // free energy stored per mol glucose
	co2PerGlucose     = 6.0
	co2KgPerMol       = 0.044
	secondsPerHour    = 3600.0
	daysPerYear       = 365.0

	StandardIrradianceWM2 = 1000.0
	StandardSunHours      = 12.0
)

// Subsystem names of the full-system chain.
const (
	FactorCascade     = "cascade"
	FactorCapture     = "material_capture"
	FactorCoherence   = "coherence"
	FactorTemperature = "temperature"
	FactorCO2         = "co2_saturation"
)

// SystemParams are the parameters of the full-system mode.
type SystemParams struct {
	CascadeParams
	Material          string   `json:"material"`
	CoherenceCoupling *float64 `json:"coherence_coupling"`
	IrradianceWM2     *float64 `json:"irradiance_w_m2,omitempty"`
	SunHours          *float64 `json:"sun_hours,omitempty"`
	AreaM2            *float64 `json:"area_m2,omitempty"`
}

// FactorResult is one multiplicative factor of the system chain.
type FactorResult struct {
	Name            string  `json:"name"`
	Value           float64 `json:"value"`
	DValue          float64 `json:"d_value"`
	ContributionPct float64 `json:"contribution_pct"`
}

// Conditions echo the operating point, with defaults applied.
type Conditions struct {
	TemperatureC  float64  `json:"temperature_c"`
	CO2PPM        float64  `json:"co2_ppm"`
	IrradianceWM2 float64  `json:"irradiance_w_m2"`
	SunHours      float64  `json:"sun_hours"`
	AreaM2        *float64 `json:"area_m2,omitempty"`
	Coupling      float64  `json:"coherence_coupling"`
}

// SystemDetails is the detail payload of the full-system mode.
type SystemDetails struct {
	Efficiency        float64             `json:"system_efficiency"`
	TotalD            float64             `json:"d_system"`
	ThroughputKgM2Day float64             `json:"co2_kg_per_m2_day"`
	DailyKg           *float64            `json:"co2_kg_per_day,omitempty"`
	AnnualKg          *float64            `json:"co2_kg_per_year,omitempty"`
	Factors           []FactorResult      `json:"factors"`
	Material          Material            `json:"material"`
	CaptureEfficiency float64             `json:"capture_efficiency"`
	Conditions        Conditions          `json:"conditions"`
	Cascade           CascadeDetails      `json:"cascade"`
	SumRule           analyzer.Validation `json:"sum_rule"`
}

func (a *Adapter) runSystem(p SystemParams) (*adapter.Result, error) {
	if p.Material == "" {
		return nil, errors.InvalidInput("material", "required")
	}
	if p.CoherenceCoupling == nil {
		return nil, errors.InvalidInput("coherence_coupling", "required")
	}
	coupling := *p.CoherenceCoupling
	if math.IsNaN(coupling) || coupling < 0 || coupling > 1 {
		return nil, errors.Domain("coherence_coupling = %g: must be in [0, 1]", coupling)
	}
	m, err := LookupMaterial(p.Material)
	if err != nil {
		return nil, err
	}
	cond := Conditions{
		IrradianceWM2: orDefault(p.IrradianceWM2, StandardIrradianceWM2),
		SunHours:      orDefault(p.SunHours, StandardSunHours),
		AreaM2:        p.AreaM2,
		Coupling:      coupling,
	}
	if cond.IrradianceWM2 < 0 || math.IsNaN(cond.IrradianceWM2) {
		return nil, errors.Domain("irradiance_w_m2 = %g: must be >= 0", cond.IrradianceWM2)
	}
	if cond.SunHours < 0 || cond.SunHours > 24 || math.IsNaN(cond.SunHours) {
		return nil, errors.Domain("sun_hours = %g: must be in [0, 24]", cond.SunHours)
	}
	if p.AreaM2 != nil && !(*p.AreaM2 > 0) {
		return nil, errors.Domain("area_m2 = %g: must be > 0", *p.AreaM2)
	}

	cascade, err := a.runCascade(p.CascadeParams)
	if err != nil {
		return nil, err
	}
	env := a.environment(p.Environment)
	cond.TemperatureC, cond.CO2PPM = env.TemperatureC, env.CO2PPM
	capture := clampFactor(CaptureEfficiency(m))

	labels := []string{FactorCascade, FactorCapture, FactorCoherence, FactorTemperature, FactorCO2}
	values := []float64{
		clampFactor(cascade.details.OverallEfficiency),
		capture,
		CoherenceFactor(env.TemperatureC, coupling),
		env.TemperatureFactor,
		env.CO2Saturation,
	}
	ds, err := phi.ForwardAll(values)
	if err != nil {
		return nil, err
	}
	total := phi.SumD(ds)
	eta := phi.Inverse(total)

	rule, err := analyzer.Validate(ds, productD(values), systemTolerancePPM)
	if err != nil {
		return nil, err
	}

	energyJ := cond.IrradianceWM2 * cond.SunHours * secondsPerHour
	kgM2Day := energyJ * eta / glucoseEnergyJMol * co2PerGlucose * co2KgPerMol

	contrib := adapter.Contributions(ds)
	d := SystemDetails{
		Efficiency:        eta,
		TotalD:            total,
		ThroughputKgM2Day: kgM2Day,
		Factors:           make([]FactorResult, len(values)),
		Material:          m,
		CaptureEfficiency: capture,
		Conditions:        cond,
		Cascade:           cascade.details,
		SumRule:           rule,
	}
	for i := range values {
		d.Factors[i] = FactorResult{Name: labels[i], Value: values[i], DValue: ds[i], ContributionPct: contrib[i]}
	}
	if p.AreaM2 != nil {
		daily := kgM2Day * *p.AreaM2
		annual := daily * daysPerYear
		d.DailyKg, d.AnnualKg = &daily, &annual
	}

	b := adapter.FindBottleneck(labels, ds)
	res := &adapter.Result{
		Labels:           labels,
		DValues:          ds,
		TotalD:           total,
		Bottleneck:       b,
		ConsistencyScore: consistencyScore(rule),
		Hierarchy:        adapter.Rank(labels, ds),
		Recommendations:  systemRecommendations(d, b, cascade.bottleneck),
	}
	if err := res.SetDetails(d); err != nil {
		return nil, err
	}
	return res, nil
}

func orDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func systemRecommendations(d SystemDetails, b, stage *adapter.Bottleneck) []string {
	recs := []string{
		fmt.Sprintf("System efficiency %.4f%%, capturing %.4f kg CO2/m2/day.", d.Efficiency*100, d.ThroughputKgM2Day),
		fmt.Sprintf("Weakest link: %s (D=%.3f, factor %.3f, %.1f%% of system loss).", b.Name, b.DValue, b.Value, b.ContributionPct),
	}
	switch b.Name {
	case FactorCascade:
		recs = append(recs, fmt.Sprintf("The conversion cascade limits the system; its own bottleneck is %s (D=%.3f).", stage.Name, stage.DValue))
	case FactorCapture:
		recs = append(recs, fmt.Sprintf("Material %s limits capture. Higher-capacity frameworks such as MOF-74-Mg (8.9 mmol/g) or stacked beds raise it.", d.Material.Name))
	case FactorCoherence:
		recs = append(recs, fmt.Sprintf("Coherence at coupling %.2f degrades transfer. Structured light-harvesting scaffolds or a lower operating temperature raise it.", d.Conditions.Coupling))
	case FactorTemperature:
		recs = append(recs, fmt.Sprintf("Operating at %.1f C costs efficiency. Hold the 20-30 C range.", d.Conditions.TemperatureC))
	case FactorCO2:
		recs = append(recs, fmt.Sprintf("CO2 saturation at %.0f ppm is low. A sorbent pre-concentrator raises the local partial pressure.", d.Conditions.CO2PPM))
	}
	return recs
}

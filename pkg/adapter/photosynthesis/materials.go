package photosynthesis

import (
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Kinetic diameters in nm.
const (
	DiameterCO2 = 0.330
	DiameterN2  = 0.364
	DiameterO2  = 0.346
	DiameterH2O = 0.265
	DiameterCH4 = 0.380
)

// PhiOptimalPore is the CO2 diameter scaled by φ^0.2, the pore size the
// legacy merit analysis reports as ideal.
var PhiOptimalPore = DiameterCO2 * math.Pow(phi.Phi, 0.2)

// Material is one sorbent candidate.
type Material struct {
	Name           string  `json:"name"`
	Metal          string  `json:"metal"`
	Linker         string  `json:"linker"`
	PoreNM         float64 `json:"pore_nm"`
	CapacityMmolG  float64 `json:"co2_capacity_mmol_g"`
	Selectivity    float64 `json:"co2_n2_selectivity"`
	ThermalStableC float64 `json:"thermal_stability_c"`
	WaterStable    bool    `json:"water_stable"`
	Abundant       bool    `json:"abundant"`
	CostRelative   float64 `json:"cost_relative"`
	SelfHealing    bool    `json:"self_healing"`
}

var materials = []Material{
	{"ZIF-8", "Zn", "2-methylimidazole", 0.34, 1.2, 15, 550, true, true, 1.0, false},
	{"MOF-74-Mg", "Mg", "2,5-dihydroxyterephthalic acid", 1.1, 8.9, 175, 300, false, true, 1.8, false},
	{"HKUST-1", "Cu", "1,3,5-benzenetricarboxylic acid", 0.9, 4.2, 22, 280, false, true, 1.5, false},
	{"UiO-66", "Zr", "1,4-benzenedicarboxylic acid", 0.6, 2.3, 30, 540, true, false, 2.5, false},
	{"MIL-101", "Cr", "terephthalic acid", 2.9, 5.0, 10, 350, true, false, 2.0, false},
	{"Mg-MOF-74", "Mg", "2,5-dioxidoterephthalate", 1.1, 8.0, 150, 310, false, true, 1.6, false},
	{"Fe-BTC", "Fe", "1,3,5-benzenetricarboxylic acid", 2.5, 3.1, 18, 370, true, true, 0.8, true},
	{"COF-300", "none", "tetrahedral organic", 0.72, 1.8, 40, 490, true, true, 1.3, true},
}

// Table maxima and minimum used to normalize sub-scores.
var (
	maxCapacity    = reduce(func(m Material) float64 { return m.CapacityMmolG }, math.Max)
	maxSelectivity = reduce(func(m Material) float64 { return m.Selectivity }, math.Max)
	minCost        = reduce(func(m Material) float64 { return m.CostRelative }, math.Min)
)

func reduce(get func(Material) float64, pick func(a, b float64) float64) float64 {
	v := get(materials[0])
	for _, m := range materials[1:] {
		v = pick(v, get(m))
	}
	return v
}

// Materials returns the reference table in table order.
func Materials() []Material {
	out := make([]Material, len(materials))
	copy(out, materials)
	return out
}

// LookupMaterial resolves a candidate by exact name.
func LookupMaterial(name string) (Material, error) {
	for _, m := range materials {
		if m.Name == name {
			return m, nil
		}
	}
	return Material{}, errors.New(errors.ErrCodeUnknownCandidate, "material %q is not in the reference table", name)
}

// MeritScore is the unnormalized figure of merit: capacity times selectivity
// scaled by thermal stability, with bonuses for abundance, self-healing and
// water stability, divided by relative cost.
func MeritScore(m Material) float64 {
	s := m.CapacityMmolG * m.Selectivity * (m.ThermalStableC / 600)
	if m.Abundant {
		s *= 1.5
	}
	if m.SelfHealing {
		s *= 1.2
	}
	if m.WaterStable {
		s *= 1.1
	} else {
		s *= 0.9
	}
	return s / math.Max(m.CostRelative, 0.01)
}

// sievingWidth is the Gaussian width of pore-size selectivity in nm.
const sievingWidth = 0.05

// SievingSelectivity estimates CO2/N2 selectivity from pore geometry alone,
// peaking at PhiOptimalPore.
func SievingSelectivity(poreNM float64) float64 {
	delta := poreNM - PhiOptimalPore
	return 200 * math.Exp(-(delta*delta)/(2*sievingWidth*sievingWidth))
}

// PoreFit is 1 when the pore lies between the CO2 and N2 diameters and
// decays as a Gaussian of the distance to that window outside it.
func PoreFit(poreNM float64) float64 {
	var dist float64
	switch {
	case poreNM < DiameterCO2:
		dist = DiameterCO2 - poreNM
	case poreNM > DiameterN2:
		dist = poreNM - DiameterN2
	}
	return math.Exp(-(dist * dist) / (2 * sievingWidth * sievingWidth))
}

// captureReference is the capacity treated as complete capture, mmol/g.
const captureReference = 10.0

// CaptureEfficiency derives a material's capture efficiency in (0,1] from
// its capacity and its CO2/N2 selectivity: the capacity fraction of the
// reference times the CO2 share of the adsorbed gas.
func CaptureEfficiency(m Material) float64 {
	capacity := math.Min(m.CapacityMmolG/captureReference, 1)
	purity := m.Selectivity / (m.Selectivity + 1)
	return capacity * purity
}

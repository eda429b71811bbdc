package photosynthesis

import (
	"fmt"
	"math"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Stage is one step of an efficiency cascade as supplied by a caller.
type Stage struct {
	Name       string   `json:"name"`
	Efficiency *float64 `json:"efficiency"`
	Catalyst   string   `json:"catalyst,omitempty"`
}

type stage struct {
	name       string
	efficiency float64
	catalyst   string
}

var naturalStages = []stage{
	{"photon_capture", 0.95, "Chlorophyll a/b antenna"},
	{"charge_separation", 0.99, "P680/P700 reaction centres"},
	{"electron_transport", 0.85, "Plastoquinone chain"},
	{"water_splitting", 0.80, "Mn4CaO5 cluster (OEC)"},
	{"nadph_atp", 0.66, "ATP synthase / Fd-NADP+ reductase"},
	{"carbon_fixation", 0.45, "RuBisCO (Calvin cycle)"},
	{"photorespiration", 0.72, "RuBisCO oxygenase side-reaction"},
}

// NaturalStages returns the 7-stage plant photosynthesis cascade.
func NaturalStages() []Stage {
	out := make([]Stage, len(naturalStages))
	for i, s := range naturalStages {
		eff := s.efficiency
		out[i] = Stage{Name: s.name, Efficiency: &eff, Catalyst: s.catalyst}
	}
	return out
}

func resolveStages(stages []Stage, natural bool) ([]stage, error) {
	if natural {
		if len(stages) > 0 {
			return nil, errors.InvalidInput("natural", "cannot be combined with stages")
		}
		return append([]stage(nil), naturalStages...), nil
	}
	if len(stages) == 0 {
		return nil, errors.InvalidInput("stages", "at least one stage is required")
	}
	out := make([]stage, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("stages[%d].name", i), "required")
		}
		if s.Efficiency == nil {
			return nil, errors.InvalidInput(fmt.Sprintf("stages[%d].efficiency", i), "required")
		}
		if err := checkEfficiency(fmt.Sprintf("stages[%d].efficiency", i), *s.Efficiency); err != nil {
			return nil, err
		}
		out[i] = stage{name: s.Name, efficiency: *s.Efficiency, catalyst: s.Catalyst}
	}
	return out, nil
}

// checkEfficiency enforces the (0, 1] domain of an efficiency.
func checkEfficiency(field string, v float64) error {
	if math.IsNaN(v) || v <= 0 || v > 1 {
		return errors.Domain("%s = %g: efficiency must be in (0, 1]", field, v)
	}
	return nil
}

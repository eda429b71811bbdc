package photosynthesis

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

func ptr(v float64) *float64 { return &v }

func analyze(t *testing.T, mode string, params any) (*adapter.Result, error) {
	t.Helper()
	req, err := adapter.NewRequest(mode, params)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return Default().Analyze(context.Background(), req)
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestNaturalCascade(t *testing.T) {
	res, err := analyze(t, ModeCascade, CascadeParams{Natural: true})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Adapter != Name || res.Mode != ModeCascade || !res.Success {
		t.Errorf("envelope = %s/%s/%v", res.Adapter, res.Mode, res.Success)
	}
	if len(res.DValues) != 7 {
		t.Fatalf("len(DValues) = %d, want 7", len(res.DValues))
	}
	b := res.Bottleneck
	if b == nil || b.Name != "carbon_fixation" {
		t.Fatalf("Bottleneck = %+v, want carbon_fixation", b)
	}
	if !near(b.DValue, 1.6594, 1e-4) {
		t.Errorf("Bottleneck.DValue = %v, want 1.6594", b.DValue)
	}
	if !near(b.ContributionPct, 40.135, 1e-3) {
		t.Errorf("ContributionPct = %v, want 40.135", b.ContributionPct)
	}
	for i, d := range res.DValues {
		if d > b.DValue {
			t.Errorf("DValues[%d] = %v exceeds bottleneck", i, d)
		}
	}
	if !near(res.TotalD, 4.13442, 1e-5) {
		t.Errorf("TotalD = %v, want 4.13442", res.TotalD)
	}
	if len(res.Recommendations) == 0 {
		t.Error("Recommendations is empty")
	}

	var d CascadeDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatalf("DecodeDetails: %v", err)
	}
	if !near(d.OverallEfficiency, 0.136759, 1e-6) {
		t.Errorf("OverallEfficiency = %v, want 0.136759", d.OverallEfficiency)
	}
	if d.MeetsTarget {
		t.Error("MeetsTarget = true, want false at the 0.20 default")
	}
	if !d.SumRule.Valid {
		t.Errorf("SumRule = %+v, want valid", d.SumRule)
	}
	imp := d.Improvement
	if imp == nil {
		t.Fatal("Improvement is nil")
	}
	if imp.Stage != "carbon_fixation" || !imp.Feasible {
		t.Errorf("Improvement = %+v", imp)
	}
	if !near(imp.RequiredEfficiency, 0.65809, 1e-5) {
		t.Errorf("RequiredEfficiency = %v, want 0.65809", imp.RequiredEfficiency)
	}
}

// Raising the bottleneck to the required efficiency meets the target.
func TestRequiredEfficiencyClosesGap(t *testing.T) {
	stages := NaturalStages()
	res, err := analyze(t, ModeCascade, CascadeParams{Stages: stages})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var d CascadeDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatal(err)
	}
	stages[res.Bottleneck.Index].Efficiency = ptr(d.Improvement.RequiredEfficiency)

	res, err = analyze(t, ModeCascade, CascadeParams{Stages: stages})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var after CascadeDetails
	if err := res.DecodeDetails(&after); err != nil {
		t.Fatal(err)
	}
	if !near(after.OverallEfficiency, DefaultTarget, 1e-9) {
		t.Errorf("OverallEfficiency = %v, want %v", after.OverallEfficiency, DefaultTarget)
	}
}

func TestInfeasibleTarget(t *testing.T) {
	res, err := analyze(t, ModeCascade, CascadeParams{
		Stages: []Stage{{Name: "a", Efficiency: ptr(0.5)}, {Name: "b", Efficiency: ptr(0.4)}},
		Target: ptr(0.6),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var d CascadeDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatal(err)
	}
	if d.Improvement == nil || d.Improvement.Feasible {
		t.Errorf("Improvement = %+v, want infeasible", d.Improvement)
	}
	if d.Improvement.Stage != "b" {
		t.Errorf("Improvement.Stage = %q, want b", d.Improvement.Stage)
	}
}

func TestVanishingStagesStayEncodable(t *testing.T) {
	res, err := analyze(t, ModeCascade, CascadeParams{Stages: []Stage{
		{Name: "a", Efficiency: ptr(1e-300)},
		{Name: "b", Efficiency: ptr(1e-300)},
		{Name: "c", Efficiency: ptr(1e-300)},
	}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var d CascadeDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatal(err)
	}
	imp := d.Improvement
	if imp == nil || imp.Feasible {
		t.Fatalf("Improvement = %+v, want infeasible", imp)
	}
	if imp.RequiredEfficiency != 0 {
		t.Errorf("RequiredEfficiency = %v, want 0", imp.RequiredEfficiency)
	}
	if imp.RequiredD >= 0 {
		t.Errorf("RequiredD = %v, want < 0", imp.RequiredD)
	}
	if len(res.Recommendations) < 2 {
		t.Errorf("Recommendations = %v", res.Recommendations)
	}
}

func TestLongCascadeSumRule(t *testing.T) {
	stages := make([]Stage, 400)
	for i := range stages {
		stages[i] = Stage{Name: fmt.Sprintf("s%d", i), Efficiency: ptr(0.1)}
	}
	res, err := analyze(t, ModeCascade, CascadeParams{Stages: stages})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ConsistencyScore < 1-1e-6 {
		t.Errorf("ConsistencyScore = %v, want ~1", res.ConsistencyScore)
	}
	var d CascadeDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatal(err)
	}
	if !d.SumRule.Valid {
		t.Errorf("SumRule = %+v, want valid", d.SumRule)
	}
	if d.Improvement == nil || d.Improvement.Feasible {
		t.Errorf("Improvement = %+v, want infeasible", d.Improvement)
	}
}

func TestSingleStageAtUnity(t *testing.T) {
	res, err := analyze(t, ModeCascade, CascadeParams{Stages: []Stage{{Name: "only", Efficiency: ptr(1)}}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.TotalD != 0 {
		t.Errorf("TotalD = %v, want 0", res.TotalD)
	}
	if res.Bottleneck.ContributionPct != 0 {
		t.Errorf("ContributionPct = %v, want 0", res.Bottleneck.ContributionPct)
	}
}

func TestCascadeEnvironment(t *testing.T) {
	res, err := analyze(t, ModeCascade, CascadeParams{
		Natural:     true,
		Environment: Environment{TemperatureC: ptr(35), CO2PPM: ptr(200)},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	var d CascadeDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatal(err)
	}
	want := &EnvironmentFactors{TemperatureC: 35, TemperatureFactor: 0.232473, CO2PPM: 200, CO2Saturation: 0.5}
	if diff := cmp.Diff(want, d.Environment, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Environment mismatch (-want +got):\n%s", diff)
	}
	if len(res.Recommendations) != 4 {
		t.Errorf("len(Recommendations) = %d, want 4: %q", len(res.Recommendations), res.Recommendations)
	}
}

func TestCascadeErrors(t *testing.T) {
	tests := []struct {
		name   string
		params any
		code   errors.Code
		field  string
	}{
		{"no stages", CascadeParams{}, errors.ErrCodeInvalidInput, "stages"},
		{"natural with stages", CascadeParams{Natural: true, Stages: NaturalStages()}, errors.ErrCodeInvalidInput, "natural"},
		{"missing efficiency", CascadeParams{Stages: []Stage{{Name: "a"}}}, errors.ErrCodeInvalidInput, "stages[0].efficiency"},
		{"missing name", CascadeParams{Stages: []Stage{{Efficiency: ptr(0.5)}}}, errors.ErrCodeInvalidInput, "stages[0].name"},
		{"zero efficiency", CascadeParams{Stages: []Stage{{Name: "a", Efficiency: ptr(0)}}}, errors.ErrCodeDomain, ""},
		{"efficiency above one", CascadeParams{Stages: []Stage{{Name: "a", Efficiency: ptr(1.2)}}}, errors.ErrCodeDomain, ""},
		{"bad target", CascadeParams{Natural: true, Target: ptr(-1)}, errors.ErrCodeDomain, ""},
		{"unknown field", map[string]any{"natural": true, "bogus": 1}, errors.ErrCodeInvalidInput, "bogus"},
		{"wrong type", map[string]any{"natural": "yes"}, errors.ErrCodeInvalidInput, "natural"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := analyze(t, ModeCascade, tt.params)
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			if !errors.Is(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if tt.field != "" && errors.FieldOf(err) != tt.field {
				t.Errorf("FieldOf = %q, want %q", errors.FieldOf(err), tt.field)
			}
		})
	}
}

func TestUnsupportedMode(t *testing.T) {
	_, err := analyze(t, "quantum", nil)
	if !errors.Is(err, errors.ErrCodeUnsupportedMode) {
		t.Errorf("err = %v, want UNSUPPORTED_MODE", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Default().Analyze(ctx, adapter.Request{Mode: ModeCascade}); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMaterialRanking(t *testing.T) {
	res, err := analyze(t, ModeMaterial, MaterialParams{})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := []string{"MOF-74-Mg", "Mg-MOF-74", "ZIF-8", "Fe-BTC", "HKUST-1", "MIL-101", "COF-300", "UiO-66"}
	if diff := cmp.Diff(want, res.Labels); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	var d RankingDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatal(err)
	}
	if !near(d.Ranking[0].Score, 0.716667, 1e-6) {
		t.Errorf("top score = %v, want 0.716667", d.Ranking[0].Score)
	}
	for i, r := range d.Ranking {
		if r.Rank != i+1 {
			t.Errorf("Ranking[%d].Rank = %d", i, r.Rank)
		}
		if d, _ := phi.Forward(r.Score); !near(res.DValues[i], d, 1e-12) {
			t.Errorf("DValues[%d] = %v, want D(score) = %v", i, res.DValues[i], d)
		}
	}
	if res.Bottleneck == nil || res.Bottleneck.Name != "pore_fit" {
		t.Errorf("Bottleneck = %+v, want pore_fit", res.Bottleneck)
	}
	if res.ConsistencyScore != 1 {
		t.Errorf("ConsistencyScore = %v, want 1", res.ConsistencyScore)
	}
}

func TestMaterialConstraints(t *testing.T) {
	res, err := analyze(t, "mof_filter", MaterialParams{Constraints: Constraints{AbundantOnly: true}})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Mode != ModeMaterial {
		t.Errorf("Mode = %q, want %q", res.Mode, ModeMaterial)
	}
	var d RankingDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatal(err)
	}
	var excluded []string
	for _, e := range d.Excluded {
		excluded = append(excluded, e.Name)
	}
	if diff := cmp.Diff([]string{"UiO-66", "MIL-101"}, excluded); diff != "" {
		t.Errorf("excluded mismatch (-want +got):\n%s", diff)
	}
	if d.TotalCandidates != 8 || d.AfterConstraints != 6 {
		t.Errorf("counts = %d/%d, want 8/6", d.TotalCandidates, d.AfterConstraints)
	}
}

func TestMaterialNoSurvivors(t *testing.T) {
	res, err := analyze(t, ModeMaterial, MaterialParams{
		Candidates:  []string{"ZIF-8"},
		Constraints: Constraints{MinSelectivity: ptr(100)},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Bottleneck != nil || res.ConsistencyScore != 0 || len(res.Labels) != 0 {
		t.Errorf("result = %+v, want empty ranking", res)
	}
	if len(res.Recommendations) != 1 {
		t.Errorf("Recommendations = %q", res.Recommendations)
	}
}

func TestMaterialErrors(t *testing.T) {
	tests := []struct {
		name   string
		params MaterialParams
		code   errors.Code
	}{
		{"unknown candidate", MaterialParams{Candidates: []string{"ZIF-8", "Unobtainium"}}, errors.ErrCodeUnknownCandidate},
		{"duplicate candidate", MaterialParams{Candidates: []string{"ZIF-8", "ZIF-8"}}, errors.ErrCodeInvalidInput},
		{"negative weight", MaterialParams{Weights: &Weights{Capacity: -1, Selectivity: 1}}, errors.ErrCodeInvalidInput},
		{"zero weights", MaterialParams{Weights: &Weights{}}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := analyze(t, ModeMaterial, tt.params); !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestFullSystem(t *testing.T) {
	res, err := analyze(t, ModeSystem, SystemParams{
		CascadeParams:     CascadeParams{Natural: true},
		Material:          "MOF-74-Mg",
		CoherenceCoupling: ptr(0.5),
		AreaM2:            ptr(10),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := []string{FactorCascade, FactorCapture, FactorCoherence, FactorTemperature, FactorCO2}
	if diff := cmp.Diff(want, res.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	var d SystemDetails
	if err := res.DecodeDetails(&d); err != nil {
		t.Fatal(err)
	}
	product := 1.0
	for _, f := range d.Factors {
		if f.Value < MinFactor || f.Value > MaxFactor {
			t.Errorf("factor %s = %v out of range", f.Name, f.Value)
		}
		product *= f.Value
	}
	if !near(d.Efficiency, product, 1e-9*product) {
		t.Errorf("Efficiency = %v, want product %v", d.Efficiency, product)
	}
	if !d.SumRule.Valid {
		t.Errorf("SumRule = %+v", d.SumRule)
	}
	wantKg := 1000 * 12 * 3600 * d.Efficiency / 2870e3 * 6 * 0.044
	if !near(d.ThroughputKgM2Day, wantKg, 1e-12) {
		t.Errorf("ThroughputKgM2Day = %v, want %v", d.ThroughputKgM2Day, wantKg)
	}
	if d.DailyKg == nil || !near(*d.DailyKg, wantKg*10, 1e-9) {
		t.Errorf("DailyKg = %v", d.DailyKg)
	}
	if d.Conditions.TemperatureC != StandardTemperatureC || d.Conditions.CO2PPM != StandardCO2PPM {
		t.Errorf("Conditions = %+v, want standard", d.Conditions)
	}
}

func TestFullSystemZeroCouplingIsBottleneck(t *testing.T) {
	res, err := analyze(t, ModeSystem, SystemParams{
		CascadeParams:     CascadeParams{Natural: true},
		Material:          "ZIF-8",
		CoherenceCoupling: ptr(0),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Bottleneck.Name != FactorCoherence {
		t.Errorf("Bottleneck = %q, want %q", res.Bottleneck.Name, FactorCoherence)
	}
}

func TestFullSystemErrors(t *testing.T) {
	tests := []struct {
		name   string
		params SystemParams
		code   errors.Code
	}{
		{"missing material", SystemParams{CascadeParams: CascadeParams{Natural: true}, CoherenceCoupling: ptr(0.5)}, errors.ErrCodeInvalidInput},
		{"missing coupling", SystemParams{CascadeParams: CascadeParams{Natural: true}, Material: "ZIF-8"}, errors.ErrCodeInvalidInput},
		{"coupling above one", SystemParams{CascadeParams: CascadeParams{Natural: true}, Material: "ZIF-8", CoherenceCoupling: ptr(1.5)}, errors.ErrCodeDomain},
		{"unknown material", SystemParams{CascadeParams: CascadeParams{Natural: true}, Material: "X", CoherenceCoupling: ptr(0.5)}, errors.ErrCodeUnknownCandidate},
		{"bad sun hours", SystemParams{CascadeParams: CascadeParams{Natural: true}, Material: "ZIF-8", CoherenceCoupling: ptr(0.5), SunHours: ptr(30)}, errors.ErrCodeDomain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := analyze(t, ModeSystem, tt.params); !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

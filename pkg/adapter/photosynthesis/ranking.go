package photosynthesis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Constraints filter candidates before scoring. Zero values do not filter.
type Constraints struct {
	AbundantOnly   bool     `json:"abundant_only,omitempty"`
	WaterStable    bool     `json:"water_stable,omitempty"`
	SelfHealing    bool     `json:"self_healing,omitempty"`
	MinSelectivity *float64 `json:"min_selectivity,omitempty"`
	MinCapacity    *float64 `json:"min_capacity,omitempty"`
	MaxCost        *float64 `json:"max_cost_relative,omitempty"`
	MinThermalC    *float64 `json:"min_thermal_stability_c,omitempty"`
}

// Weights of the composite score. They are normalized to sum to 1.
type Weights struct {
	Capacity    float64 `json:"capacity"`
	Selectivity float64 `json:"selectivity"`
	Cost        float64 `json:"cost"`
	PoreFit     float64 `json:"pore_fit"`
}

// DefaultWeights favour capacity and selectivity.
var DefaultWeights = Weights{Capacity: 0.35, Selectivity: 0.30, Cost: 0.15, PoreFit: 0.20}

func (w Weights) normalized() (Weights, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{{"capacity", w.Capacity}, {"selectivity", w.Selectivity}, {"cost", w.Cost}, {"pore_fit", w.PoreFit}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return Weights{}, errors.InvalidInput("weights."+f.name, "must be a finite number >= 0")
		}
	}
	sum := w.Capacity + w.Selectivity + w.Cost + w.PoreFit
	if sum == 0 {
		return Weights{}, errors.InvalidInput("weights", "at least one weight must be positive")
	}
	return Weights{w.Capacity / sum, w.Selectivity / sum, w.Cost / sum, w.PoreFit / sum}, nil
}

// MaterialParams are the parameters of the material ranking mode. An empty
// candidate list ranks the whole reference table.
type MaterialParams struct {
	Candidates  []string    `json:"candidates,omitempty"`
	Constraints Constraints `json:"constraints"`
	Weights     *Weights    `json:"weights,omitempty"`
}

// SubScores are the normalized criteria of the composite score, each in (0, 1].
type SubScores struct {
	Capacity    float64 `json:"capacity"`
	Selectivity float64 `json:"selectivity"`
	Cost        float64 `json:"cost"`
	PoreFit     float64 `json:"pore_fit"`
}

func (s SubScores) labelled() ([]string, []float64) {
	return []string{"capacity", "selectivity", "cost", "pore_fit"},
		[]float64{s.Capacity, s.Selectivity, s.Cost, s.PoreFit}
}

// RankedMaterial is one surviving candidate.
type RankedMaterial struct {
	Rank int `json:"rank"`
	Material
	Score              float64   `json:"score"`
	DScore             float64   `json:"d_score"`
	SubScores          SubScores `json:"sub_scores"`
	Merit              float64   `json:"merit"`
	SievingSelectivity float64   `json:"sieving_selectivity"`
	PhiPoreDistance    float64   `json:"phi_pore_distance_nm"`
}

// Exclusion records why a candidate was filtered out.
type Exclusion struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// RankingDetails is the detail payload of the material mode.
type RankingDetails struct {
	Ranking          []RankedMaterial `json:"ranking"`
	Excluded         []Exclusion      `json:"excluded"`
	Weights          Weights          `json:"weights"`
	PhiOptimalPoreNM float64          `json:"phi_optimal_pore_nm"`
	TotalCandidates  int              `json:"total_candidates"`
	AfterConstraints int              `json:"after_constraints"`
}

// Score computes the normalized sub-scores and the weighted composite of m.
func Score(m Material, w Weights) (float64, SubScores) {
	s := SubScores{
		Capacity:    clampFactor(m.CapacityMmolG / maxCapacity),
		Selectivity: clampFactor(m.Selectivity / maxSelectivity),
		Cost:        clampFactor(minCost / math.Max(m.CostRelative, 0.01)),
		PoreFit:     clampFactor(PoreFit(m.PoreNM)),
	}
	score := w.Capacity*s.Capacity + w.Selectivity*s.Selectivity + w.Cost*s.Cost + w.PoreFit*s.PoreFit
	return score, s
}

func (c Constraints) reject(m Material) string {
	switch {
	case c.AbundantOnly && !m.Abundant:
		return fmt.Sprintf("contains non-abundant element %s", m.Metal)
	case c.WaterStable && !m.WaterStable:
		return "not water stable"
	case c.SelfHealing && !m.SelfHealing:
		return "not self-healing"
	case c.MinSelectivity != nil && m.Selectivity < *c.MinSelectivity:
		return fmt.Sprintf("selectivity %g < %g", m.Selectivity, *c.MinSelectivity)
	case c.MinCapacity != nil && m.CapacityMmolG < *c.MinCapacity:
		return fmt.Sprintf("capacity %g < %g mmol/g", m.CapacityMmolG, *c.MinCapacity)
	case c.MaxCost != nil && m.CostRelative > *c.MaxCost:
		return fmt.Sprintf("cost %g > %g", m.CostRelative, *c.MaxCost)
	case c.MinThermalC != nil && m.ThermalStableC < *c.MinThermalC:
		return fmt.Sprintf("thermal stability %g < %g C", m.ThermalStableC, *c.MinThermalC)
	}
	return ""
}

func resolveCandidates(names []string) ([]Material, error) {
	if len(names) == 0 {
		return Materials(), nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]Material, 0, len(names))
	for i, n := range names {
		if n == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("candidates[%d]", i), "required")
		}
		if seen[n] {
			return nil, errors.InvalidInput(fmt.Sprintf("candidates[%d]", i), "duplicate candidate %q", n)
		}
		seen[n] = true
		m, err := LookupMaterial(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (a *Adapter) rankMaterials(p MaterialParams) (*adapter.Result, error) {
	w := DefaultWeights
	if p.Weights != nil {
		w = *p.Weights
	}
	w, err := w.normalized()
	if err != nil {
		return nil, err
	}
	candidates, err := resolveCandidates(p.Candidates)
	if err != nil {
		return nil, err
	}

	d := RankingDetails{
		Ranking:          []RankedMaterial{},
		Excluded:         []Exclusion{},
		Weights:          w,
		PhiOptimalPoreNM: PhiOptimalPore,
		TotalCandidates:  len(candidates),
	}
	for _, m := range candidates {
		if reason := p.Constraints.reject(m); reason != "" {
			d.Excluded = append(d.Excluded, Exclusion{Name: m.Name, Reason: reason})
			continue
		}
		score, sub := Score(m, w)
		dScore, err := phi.Forward(score)
		if err != nil {
			return nil, err
		}
		d.Ranking = append(d.Ranking, RankedMaterial{
			Material:           m,
			Score:              score,
			DScore:             dScore,
			SubScores:          sub,
			Merit:              MeritScore(m),
			SievingSelectivity: SievingSelectivity(m.PoreNM),
			PhiPoreDistance:    math.Abs(m.PoreNM - PhiOptimalPore),
		})
	}
	sort.SliceStable(d.Ranking, func(i, j int) bool {
		x, y := d.Ranking[i], d.Ranking[j]
		if x.Score != y.Score {
			return x.Score > y.Score
		}
		return x.Name < y.Name
	})
	for i := range d.Ranking {
		d.Ranking[i].Rank = i + 1
	}
	d.AfterConstraints = len(d.Ranking)

	res := &adapter.Result{
		Labels:          make([]string, len(d.Ranking)),
		DValues:         make([]float64, len(d.Ranking)),
		Recommendations: []string{},
	}
	for i, r := range d.Ranking {
		res.Labels[i] = r.Name
		res.DValues[i] = r.DScore
	}
	res.TotalD = phi.SumD(res.DValues)
	if len(d.Ranking) > 0 {
		res.ConsistencyScore = 1
		// The top candidate's weakest criterion limits the ranking.
		labels, subs := d.Ranking[0].SubScores.labelled()
		ds, err := phi.ForwardAll(subs)
		if err != nil {
			return nil, err
		}
		res.Bottleneck = adapter.FindBottleneck(labels, ds)
		res.Hierarchy = adapter.Rank(labels, ds)
	}
	res.Recommendations = rankingRecommendations(d, res.Bottleneck)
	if err := res.SetDetails(d); err != nil {
		return nil, err
	}
	return res, nil
}

func rankingRecommendations(d RankingDetails, limit *adapter.Bottleneck) []string {
	recs := []string{}
	if len(d.Ranking) == 0 {
		return append(recs, "No candidates satisfy the constraints. Relax abundant_only, min_selectivity or max_cost_relative.")
	}
	top := d.Ranking[0]
	recs = append(recs, fmt.Sprintf("Top candidate: %s (score %.3f, capacity %.1f mmol/g, selectivity %.0fx).",
		top.Name, top.Score, top.CapacityMmolG, top.Selectivity))
	if limit != nil {
		recs = append(recs, fmt.Sprintf("%s is limited by %s (sub-score %.3f, %.1f%% of its D-space loss).",
			top.Name, limit.Name, limit.Value, limit.ContributionPct))
	}

	var near, healers []string
	for _, r := range d.Ranking {
		if r.PhiPoreDistance < 0.05 {
			near = append(near, r.Name)
		}
		if r.SelfHealing {
			healers = append(healers, r.Name)
		}
	}
	if len(near) > 0 {
		recs = append(recs, fmt.Sprintf("Pores within 0.05 nm of the %.3f nm optimum: %s.",
			d.PhiOptimalPoreNM, strings.Join(near, ", ")))
	}
	if len(healers) > 0 {
		recs = append(recs, fmt.Sprintf("Self-healing frameworks: %s. They regenerate under cycling.",
			strings.Join(healers, ", ")))
	}
	if n := len(d.Excluded); n > 0 {
		recs = append(recs, fmt.Sprintf("%d candidate(s) removed by constraints.", n))
	}
	return recs
}

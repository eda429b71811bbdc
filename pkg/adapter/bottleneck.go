package adapter

import (
	"math"
	"sort"

	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Bottleneck is the element with the largest D-value.
type Bottleneck struct {
	Name            string  `json:"name"`
	Index           int     `json:"index"`
	Value           float64 `json:"value"`
	DValue          float64 `json:"d_value"`
	ContributionPct float64 `json:"contribution_pct"`
}

// Contributions returns each D-value as a percentage of the total. A zero
// total yields zero contributions.
func Contributions(ds []float64) []float64 {
	total := phi.SumD(ds)
	out := make([]float64, len(ds))
	if total == 0 {
		return out
	}
	for i, d := range ds {
		out[i] = d / total * 100
	}
	return out
}

// FindBottleneck returns the element with the maximum D-value; the earliest
// element wins a tie. It returns nil for empty input.
func FindBottleneck(labels []string, ds []float64) *Bottleneck {
	if len(ds) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(ds); i++ {
		if ds[i] > ds[best] {
			best = i
		}
	}
	b := &Bottleneck{
		Index:           best,
		Value:           phi.Inverse(ds[best]),
		DValue:          ds[best],
		ContributionPct: Contributions(ds)[best],
	}
	if best < len(labels) {
		b.Name = labels[best]
	}
	return b
}

// Rank orders labelled D-values by descending D; input order breaks ties.
func Rank(labels []string, ds []float64) []RankedValue {
	out := make([]RankedValue, len(ds))
	for i, d := range ds {
		out[i] = RankedValue{Name: labels[i], DValue: d}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DValue > out[j].DValue })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// FindOutlier returns the element whose D-value lies farthest from center;
// the earliest element wins a tie. ContributionPct is its share of the total
// absolute deviation. It returns nil for empty input.
func FindOutlier(labels []string, ds []float64, center float64) *Bottleneck {
	if len(ds) == 0 {
		return nil
	}
	best, total := 0, 0.0
	for i, d := range ds {
		dev := math.Abs(d - center)
		total += dev
		if dev > math.Abs(ds[best]-center) {
			best = i
		}
	}
	b := &Bottleneck{
		Index:  best,
		Value:  phi.Inverse(ds[best]),
		DValue: ds[best],
	}
	if total > 0 {
		b.ContributionPct = math.Abs(ds[best]-center) / total * 100
	}
	if best < len(labels) {
		b.Name = labels[best]
	}
	return b
}

package analyzer

import (
	"sort"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Rank is one dimension scored by structural significance.
type Rank struct {
	Dimension int    `json:"dimension"`
	Score     int    `json:"score"`
	Group     string `json:"group"`
	Form      string `json:"fibonacci_form,omitempty"`
	KnownForm string `json:"known_form,omitempty"`
}

// Hierarchy scores each dimension 3 when it is a known representation,
// 2 when it decomposes over the basis and 1 otherwise, then sorts by score
// descending and dimension ascending.
func Hierarchy(dims []int) ([]Rank, error) {
	out := make([]Rank, 0, len(dims))
	for _, n := range dims {
		r := Rank{Dimension: n, Score: 1, Group: GroupUnknown}
		d, err := Decompose(n)
		switch {
		case err == nil:
			r.Score = 2
			r.Form = d.Form
		case errors.Is(err, errors.ErrCodeNotDecomposable):
		default:
			return nil, err
		}
		if rep, ok := representations[n]; ok {
			r.Score = 3
			r.Group = rep.Group
			r.KnownForm = rep.Form
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Dimension < out[j].Dimension
	})
	return out, nil
}

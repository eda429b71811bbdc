// Package constants holds the read-only table of physical constants exposed
// in D-space.
//
// Each [Entry] carries the value predicted by a closed-form expression over
// the golden ratio and the integer sequences of package phi, the measured
// reference value, its unit, the deviation in parts per million and the
// D-value of the prediction.
//
// The table is built once at package initialization and never mutated.
// Every accessor returns copies, so callers cannot alter shared state and
// concurrent reads need no locking.
package constants

import (
	"math"
	"sort"
	"strings"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Entry is one constant.
type Entry struct {
	Name         string  `json:"name"`
	Value        float64 `json:"value"`
	Experimental float64 `json:"experimental"`
	Unit         string  `json:"unit"`
	Sector       string  `json:"sector"`
	Formula      string  `json:"formula"`
	DeviationPPM float64 `json:"deviation_ppm"`
	DValue       float64 `json:"d_value"`
}

// Exact reports whether the prediction matches its reference to the
// table's one-decimal ppm resolution.
func (e Entry) Exact() bool { return e.DeviationPPM == 0 }

var (
	table  = build()
	byName = index(table)
)

func index(t []Entry) map[string]int {
	m := make(map[string]int, len(t))
	for i, e := range t {
		m[e.Name] = i
	}
	return m
}

// All returns every entry in table order.
func All() []Entry {
	out := make([]Entry, len(table))
	copy(out, table)
	return out
}

// Len returns the number of entries.
func Len() int { return len(table) }

// Get returns the entry with the exact name.
func Get(name string) (Entry, error) {
	i, ok := byName[name]
	if !ok {
		return Entry{}, errors.New(errors.ErrCodeNotFound, "constant %q not found", name)
	}
	return table[i], nil
}

// Search filters by exact sector and case-insensitive name substring.
// Empty arguments do not filter.
func Search(sector, query string) []Entry {
	q := strings.ToLower(query)
	var out []Entry
	for _, e := range table {
		if sector != "" && e.Sector != sector {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Name), q) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Best returns the n non-exact entries with the smallest deviation.
func Best(n int) []Entry {
	var out []Entry
	for _, e := range table {
		if !e.Exact() {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DeviationPPM < out[j].DeviationPPM })
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Scorecard summarizes prediction accuracy across the table.
type Scorecard struct {
	Total    int            `json:"total_constants"`
	NonExact int            `json:"non_exact"`
	MinPPM   float64        `json:"min_ppm"`
	MaxPPM   float64        `json:"max_ppm"`
	MeanPPM  float64        `json:"mean_ppm"`
	Sectors  map[string]int `json:"sectors"`
}

// Score computes the scorecard.
func Score() Scorecard {
	sc := Scorecard{Total: len(table), Sectors: map[string]int{}}
	var sum float64
	for _, e := range table {
		sc.Sectors[e.Sector]++
		if e.Exact() {
			continue
		}
		if sc.NonExact == 0 || e.DeviationPPM < sc.MinPPM {
			sc.MinPPM = e.DeviationPPM
		}
		if e.DeviationPPM > sc.MaxPPM {
			sc.MaxPPM = e.DeviationPPM
		}
		sc.NonExact++
		sum += e.DeviationPPM
	}
	if sc.NonExact > 0 {
		sc.MeanPPM = ppmRound(sum / float64(sc.NonExact))
	}
	return sc
}

// Comparison is the result of checking one entry against a caller value.
type Comparison struct {
	Name         string  `json:"name"`
	Predicted    float64 `json:"predicted,omitempty"`
	Experimental float64 `json:"experimental"`
	DeviationPPM float64 `json:"deviation_ppm"`
	Error        string  `json:"error,omitempty"`
}

// ValidateAgainst compares table predictions with caller-supplied reference
// values. Results are ordered by name; unknown names are reported in place.
func ValidateAgainst(reference map[string]float64) []Comparison {
	names := make([]string, 0, len(reference))
	for n := range reference {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]Comparison, 0, len(names))
	for _, n := range names {
		ref := reference[n]
		e, err := Get(n)
		if err != nil {
			out = append(out, Comparison{Name: n, Experimental: ref, Error: "not found"})
			continue
		}
		out = append(out, Comparison{
			Name:         n,
			Predicted:    e.Value,
			Experimental: ref,
			DeviationPPM: ppm(e.Value, ref),
		})
	}
	return out
}

// Sectors lists the distinct sectors in sorted order.
func Sectors() []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range table {
		if !seen[e.Sector] {
			seen[e.Sector] = true
			out = append(out, e.Sector)
		}
	}
	sort.Strings(out)
	return out
}

func ppmRound(v float64) float64 {
	return math.Round(v*10) / 10
}

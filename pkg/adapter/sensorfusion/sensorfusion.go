// Package sensorfusion fuses readings of several sensors into one estimate.
//
// Each sensor's positive readings are mapped to D-space and summarized by
// their mean and sample deviation. The fused D-value is the precision
// weighted mean of the sensor means: a sensor's weight is divided by its
// variance, and a sensor with zero variance gets its weight times
// ZeroVarianceBoost. Inter-sensor disagreement is the sample deviation of
// the sensor means.
package sensorfusion

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/analyzer"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Name is the registry name of the adapter.
const Name = "sensor_fusion"

// ModeFuse is the only mode.
const ModeFuse = "fuse"

const (
	// ZeroVarianceBoost multiplies the weight of a sensor without spread.
	ZeroVarianceBoost = 1000.0

	DisagreementThreshold = 0.1
	LowQualityThreshold   = 0.5
	ReferenceThreshold    = 0.1
)

// Sensor is one input channel. Non-positive readings are ignored.
type Sensor struct {
	Name     string    `json:"name"`
	Readings []float64 `json:"readings"`
	Weight   *float64  `json:"weight,omitempty"`
	Unit     string    `json:"unit,omitempty"`
}

// Params are the fusion parameters.
type Params struct {
	Sensors   []Sensor `json:"sensors"`
	Reference *float64 `json:"reference,omitempty"`
}

// SensorQuality summarizes one sensor.
type SensorQuality struct {
	Sensor          string  `json:"sensor"`
	Quality         float64 `json:"quality"`
	DMean           float64 `json:"d_mean"`
	DStd            float64 `json:"d_std"`
	Weight          float64 `json:"weight"`
	PrecisionWeight float64 `json:"precision_weight"`
	Valid           int     `json:"n_readings"`
	Total           int     `json:"n_total"`
}

// Details is the detail payload.
type Details struct {
	FusedD         float64             `json:"fused_d"`
	FusedValue     float64             `json:"fused_value"`
	InterSensorStd float64             `json:"inter_sensor_std"`
	RefDeviation   *float64            `json:"ref_deviation,omitempty"`
	Quality        []SensorQuality     `json:"sensor_quality"`
	Ignored        []string            `json:"ignored_sensors"`
	SumRule        analyzer.Validation `json:"sum_rule"`
}

// Adapter implements adapter.Adapter.
type Adapter struct{}

var _ adapter.Adapter = Adapter{}

// New returns a sensor fusion adapter.
func New() Adapter { return Adapter{} }

// Info implements adapter.Adapter.
func (Adapter) Info() adapter.Info {
	return adapter.Info{
		Name:        Name,
		Version:     "1.0.0",
		Description: "Precision-weighted multi-sensor fusion in D-space",
		Modes:       []string{ModeFuse},
		DefaultMode: ModeFuse,
	}
}

// Analyze implements adapter.Adapter.
func (Adapter) Analyze(ctx context.Context, req adapter.Request) (*adapter.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Mode != "" && req.Mode != ModeFuse {
		return nil, errors.New(errors.ErrCodeUnsupportedMode, "adapter %s has no mode %q", Name, req.Mode)
	}
	var p Params
	if err := adapter.Decode(req, &p); err != nil {
		return nil, err
	}
	return fuse(p)
}

type summary struct {
	SensorQuality
	ds []float64
}

func summarize(p Params) ([]summary, error) {
	if len(p.Sensors) == 0 {
		return nil, errors.InvalidInput("sensors", "at least one sensor is required")
	}
	if p.Reference != nil && !(*p.Reference > 0) {
		return nil, errors.Domain("reference = %g: must be > 0", *p.Reference)
	}
	seen := make(map[string]bool, len(p.Sensors))
	out := make([]summary, len(p.Sensors))
	for i, s := range p.Sensors {
		if s.Name == "" {
			return nil, errors.InvalidInput(fmt.Sprintf("sensors[%d].name", i), "required")
		}
		if seen[s.Name] {
			return nil, errors.InvalidInput(fmt.Sprintf("sensors[%d].name", i), "duplicate sensor %q", s.Name)
		}
		seen[s.Name] = true
		w := 1.0
		if s.Weight != nil {
			w = *s.Weight
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return nil, errors.InvalidInput(fmt.Sprintf("sensors[%d].weight", i), "must be > 0, got %g", w)
		}
		var ds []float64
		for j, r := range s.Readings {
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return nil, errors.InvalidInput(fmt.Sprintf("sensors[%d].readings[%d]", i, j), "must be finite")
			}
			if r > 0 {
				d, _ := phi.Forward(r)
				ds = append(ds, d)
			}
		}
		sum := summary{ds: ds}
		sum.Sensor = s.Name
		sum.Weight = w
		sum.Valid = len(ds)
		sum.Total = len(s.Readings)
		sum.DMean = analyzer.Mean(ds)
		sum.DStd = analyzer.StdDev(ds)
		sum.Quality = 1 - math.Min(sum.DStd, 1)
		if sum.Valid > 0 {
			if sum.DStd > 0 {
				sum.PrecisionWeight = w / (sum.DStd * sum.DStd)
			} else {
				sum.PrecisionWeight = w * ZeroVarianceBoost
			}
		}
		out[i] = sum
	}
	return out, nil
}

func fuse(p Params) (*adapter.Result, error) {
	sums, err := summarize(p)
	if err != nil {
		return nil, err
	}

	var (
		labels  []string
		means   []float64
		stds    []float64
		weights []float64
		ignored = []string{}
		total   float64
	)
	for _, s := range sums {
		if s.Valid == 0 {
			ignored = append(ignored, s.Sensor)
			continue
		}
		labels = append(labels, s.Sensor)
		means = append(means, s.DMean)
		stds = append(stds, s.DStd)
		weights = append(weights, s.PrecisionWeight)
		total += s.PrecisionWeight
	}
	if len(labels) == 0 {
		return nil, errors.Domain("no sensor has a positive reading")
	}

	var fused float64
	shares := make([]float64, len(weights))
	for i, w := range weights {
		shares[i] = w / total
		fused += means[i] * shares[i]
	}
	rule, err := analyzer.Validate(shares, 1, analyzer.DefaultTolerancePPM)
	if err != nil {
		return nil, err
	}
	inter := analyzer.StdDev(means)

	d := Details{
		FusedD:         fused,
		FusedValue:     phi.Inverse(fused),
		InterSensorStd: inter,
		Quality:        make([]SensorQuality, 0, len(sums)),
		Ignored:        ignored,
		SumRule:        rule,
	}
	if p.Reference != nil {
		dRef, _ := phi.Forward(*p.Reference)
		dev := fused - dRef
		d.RefDeviation = &dev
	}
	for _, s := range sums {
		d.Quality = append(d.Quality, s.SensorQuality)
	}
	sort.SliceStable(d.Quality, func(i, j int) bool { return d.Quality[i].Quality > d.Quality[j].Quality })

	res := &adapter.Result{
		Adapter:          Name,
		Mode:             ModeFuse,
		Success:          true,
		Labels:           labels,
		DValues:          means,
		TotalD:           phi.SumD(means),
		Bottleneck:       adapter.FindOutlier(labels, means, fused),
		ConsistencyScore: math.Max(0, 1-inter),
		Hierarchy:        adapter.Rank(labels, stds),
		Recommendations:  recommendations(d),
	}
	if err := res.SetDetails(d); err != nil {
		return nil, err
	}
	return res, nil
}

func recommendations(d Details) []string {
	var recs []string
	if d.InterSensorStd > DisagreementThreshold {
		recs = append(recs, fmt.Sprintf("High inter-sensor disagreement (D-space std=%.4f). Check individual sensors for systematic bias.", d.InterSensorStd))
	}
	var low []string
	for _, q := range d.Quality {
		if q.Valid > 0 && q.Quality < LowQualityThreshold {
			low = append(low, q.Sensor)
		}
	}
	if len(low) > 0 {
		recs = append(recs, fmt.Sprintf("Low quality sensors: %s. Consider recalibration.", strings.Join(low, ", ")))
	}
	if len(d.Ignored) > 0 {
		recs = append(recs, fmt.Sprintf("No positive readings from: %s. These sensors were left out of the fusion.", strings.Join(d.Ignored, ", ")))
	}
	if d.RefDeviation != nil && math.Abs(*d.RefDeviation) > ReferenceThreshold {
		recs = append(recs, fmt.Sprintf("Fused estimate deviates from the reference by %.4f in D-space.", *d.RefDeviation))
	}
	if len(recs) == 0 {
		recs = append(recs, "All sensors consistent. Fusion reliable.")
	}
	return recs
}

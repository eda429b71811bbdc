package photosynthesis

import (
	"math"
	"sort"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

// Factor bounds. Every multiplicative factor is clamped into this range so
// its D-value stays finite.
const (
	MinFactor = 1e-10
	MaxFactor = 1.0
)

// Point is one sample of a correction curve.
type Point struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
}

// Curve is a piecewise-linear multiplier table. Inputs beyond the first or
// last point take the end value; outputs are clamped to [MinFactor, MaxFactor].
type Curve struct {
	Name   string  `json:"name" toml:"name"`
	Points []Point `json:"points" toml:"points"`
}

// Validate checks that the curve has at least two points with strictly
// increasing X and finite values.
func (c Curve) Validate() error {
	if len(c.Points) < 2 {
		return errors.InvalidInput("curves."+c.Name, "needs at least two points")
	}
	for i, p := range c.Points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return errors.InvalidInput("curves."+c.Name, "point %d is not finite", i)
		}
		if i > 0 && p.X <= c.Points[i-1].X {
			return errors.InvalidInput("curves."+c.Name, "x must increase strictly at point %d", i)
		}
	}
	return nil
}

// Eval interpolates the curve at x.
func (c Curve) Eval(x float64) float64 {
	pts := c.Points
	if len(pts) == 0 {
		return MaxFactor
	}
	var y float64
	switch {
	case x <= pts[0].X:
		y = pts[0].Y
	case x >= pts[len(pts)-1].X:
		y = pts[len(pts)-1].Y
	default:
		i := sort.Search(len(pts), func(i int) bool { return pts[i].X >= x })
		a, b := pts[i-1], pts[i]
		if b.X == x {
			y = b.Y
			break
		}
		y = a.Y + (b.Y-a.Y)*(x-a.X)/(b.X-a.X)
	}
	return clampFactor(y)
}

func clampFactor(v float64) float64 {
	return math.Min(math.Max(v, MinFactor), MaxFactor)
}

// DefaultTemperatureCurve samples exp(-Γ·|T-25|) with T in °C, the
// temperature penalty of enzymatic fixation around its optimum.
func DefaultTemperatureCurve() Curve {
	return Curve{Name: "temperature", Points: []Point{
		{-10, 0.006058}, {0, 0.026057}, {10, 0.112088}, {15, 0.232473},
		{17.5, 0.334796}, {20, 0.482155}, {22.5, 0.694374}, {25, 1},
		{27.5, 0.694374}, {30, 0.482155}, {32.5, 0.334796}, {35, 0.232473},
		{40, 0.112088}, {50, 0.026057}, {60, 0.006058},
	}}
}

// DefaultConcentrationCurve samples the saturation c/(c+200) with c in ppm.
func DefaultConcentrationCurve() Curve {
	return Curve{Name: "concentration", Points: []Point{
		{0, 0}, {50, 0.2}, {100, 0.333333}, {150, 0.428571}, {200, 0.5},
		{280, 0.583333}, {350, 0.636364}, {415, 0.674797}, {500, 0.714286},
		{600, 0.75}, {800, 0.8}, {1000, 0.833333}, {1500, 0.882353},
		{2000, 0.909091}, {5000, 0.961538}, {10000, 0.980392},
	}}
}

// CoherenceFactor is exp(-β·T_K / (coupling·300)): it increases with the
// coupling coefficient and falls to MinFactor when coupling is zero.
func CoherenceFactor(tempC, coupling float64) float64 {
	if coupling <= 0 {
		return MinFactor
	}
	tK := tempC + 273.15
	return clampFactor(math.Exp(-phi.Beta * tK / (coupling * 300)))
}

// Package photosynthesis analyzes artificial photosynthesis chains in
// D-space: conversion cascades, sorbent material ranking and the combined
// capture system.
//
// Three modes are supported:
//
//   - cascade: stage efficiencies are mapped to D-values, the stage with the
//     largest D-value is the bottleneck, and the efficiency that stage would
//     need to reach a target is solved from the additive law.
//   - material: candidates from the reference table are filtered by
//     constraints and ranked by a weighted composite of normalized capacity,
//     selectivity, inverse cost and pore fit.
//   - full_system: the cascade, the chosen material's capture efficiency,
//     a coherence factor and temperature/concentration corrections are
//     chained; every factor is compared in D-space to find the weakest link
//     and the chain is converted into captured CO2 mass per area and day.
//
// Temperature and concentration corrections are interpolation tables
// ([Curve]) supplied through [Options].
package photosynthesis

import (
	"context"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// Name is the registry name of the adapter.
const Name = "photosynthesis"

// Modes.
const (
	ModeCascade  = "cascade"
	ModeMaterial = "material"
	ModeSystem   = "full_system"

	// modeMaterialLegacy is accepted as an alias of ModeMaterial.
	modeMaterialLegacy = "mof_filter"
)

// Options configure the adapter. Zero values select the defaults.
type Options struct {
	TemperatureCurve   Curve
	ConcentrationCurve Curve
	DefaultTarget      float64
}

// Adapter implements adapter.Adapter.
type Adapter struct {
	opts Options
}

var _ adapter.Adapter = (*Adapter)(nil)

// New validates opts and returns an adapter.
func New(opts Options) (*Adapter, error) {
	if opts.TemperatureCurve.Points == nil {
		opts.TemperatureCurve = DefaultTemperatureCurve()
	}
	if opts.ConcentrationCurve.Points == nil {
		opts.ConcentrationCurve = DefaultConcentrationCurve()
	}
	if opts.TemperatureCurve.Name == "" {
		opts.TemperatureCurve.Name = "temperature"
	}
	if opts.ConcentrationCurve.Name == "" {
		opts.ConcentrationCurve.Name = "concentration"
	}
	if err := opts.TemperatureCurve.Validate(); err != nil {
		return nil, err
	}
	if err := opts.ConcentrationCurve.Validate(); err != nil {
		return nil, err
	}
	if opts.DefaultTarget == 0 {
		opts.DefaultTarget = DefaultTarget
	}
	if err := checkEfficiency("default_target", opts.DefaultTarget); err != nil {
		return nil, err
	}
	return &Adapter{opts: opts}, nil
}

// Default returns an adapter with the built-in curves.
func Default() *Adapter {
	a, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return a
}

// Info implements adapter.Adapter.
func (a *Adapter) Info() adapter.Info {
	return adapter.Info{
		Name:        Name,
		Version:     "1.0.0",
		Description: "Photosynthesis cascades, sorbent ranking and capture systems in D-space",
		Modes:       []string{ModeCascade, ModeMaterial, ModeSystem},
		DefaultMode: ModeCascade,
	}
}

// Analyze implements adapter.Adapter.
func (a *Adapter) Analyze(ctx context.Context, req adapter.Request) (*adapter.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeCascade
	}

	var (
		res *adapter.Result
		err error
	)
	switch mode {
	case ModeCascade:
		var p CascadeParams
		if err := adapter.Decode(req, &p); err != nil {
			return nil, err
		}
		res, err = a.cascadeResult(p)
	case ModeMaterial, modeMaterialLegacy:
		mode = ModeMaterial
		var p MaterialParams
		if err := adapter.Decode(req, &p); err != nil {
			return nil, err
		}
		res, err = a.rankMaterials(p)
	case ModeSystem:
		var p SystemParams
		if err := adapter.Decode(req, &p); err != nil {
			return nil, err
		}
		res, err = a.runSystem(p)
	default:
		return nil, errors.New(errors.ErrCodeUnsupportedMode, "adapter %s has no mode %q", Name, mode)
	}
	if err != nil {
		return nil, err
	}
	res.Adapter = Name
	res.Mode = mode
	res.Success = true
	return res, nil
}

func (a *Adapter) cascadeResult(p CascadeParams) (*adapter.Result, error) {
	out, err := a.runCascade(p)
	if err != nil {
		return nil, err
	}
	res := &adapter.Result{
		Labels:           out.labels,
		DValues:          out.ds,
		TotalD:           out.total,
		Bottleneck:       out.bottleneck,
		ConsistencyScore: out.consistency,
		Hierarchy:        adapter.Rank(out.labels, out.ds),
		Recommendations:  out.recs,
	}
	if err := res.SetDetails(out.details); err != nil {
		return nil, err
	}
	return res, nil
}

package engine

import (
	"context"
	"encoding/json"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/analyzer"
	"github.com/Cloudhabil/phi-engine/pkg/buildinfo"
	"github.com/Cloudhabil/phi-engine/pkg/cache"
	"github.com/Cloudhabil/phi-engine/pkg/observability"
)

// ReportRequest selects what a Report covers. Adapter is optional.
type ReportRequest struct {
	Values  []float64       `json:"values"`
	Adapter string          `json:"adapter,omitempty"`
	Request adapter.Request `json:"request"`
}

// ConsistencySummary aggregates the per-value identity checks.
type ConsistencySummary struct {
	AllValid  bool `json:"all_valid"`
	ChecksRun int  `json:"checks_run"`
}

// Report is the combined analysis of a set of values.
type Report struct {
	Engine        string              `json:"engine"`
	Version       string              `json:"version"`
	DSpace        []float64           `json:"d_space,omitempty"`
	Energies      []float64           `json:"energies,omitempty"`
	Consistency   *ConsistencySummary `json:"consistency,omitempty"`
	AdapterResult *adapter.Result     `json:"adapter_result,omitempty"`
}

// Report transforms the values, runs the identity checks on each and, when
// an adapter is named, attaches its result. Any failure fails the report.
// Reports are cached for cache.TTLReport.
func (e *Engine) Report(ctx context.Context, req ReportRequest) (*Report, error) {
	key := e.Keyer.ReportKey(req.Values, req.Adapter, req.Request.Mode, req.Request.Params)
	if data, hit, err := e.Cache.Get(ctx, key); err == nil && hit {
		var r Report
		if json.Unmarshal(data, &r) == nil {
			observability.Cache().OnCacheHit(ctx, "report")
			return &r, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "report")

	r, err := e.buildReport(ctx, req)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(r); err == nil {
		if err := e.Cache.Set(ctx, key, data, cache.TTLReport); err != nil {
			e.Logger.Warn("cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "report", len(data))
		}
	}
	return r, nil
}

func (e *Engine) buildReport(ctx context.Context, req ReportRequest) (*Report, error) {
	r := &Report{Engine: Name, Version: buildinfo.Version}
	if len(req.Values) > 0 {
		ds, err := e.Transform(req.Values)
		if err != nil {
			return nil, err
		}
		energies, err := e.Energy(req.Values)
		if err != nil {
			return nil, err
		}
		sum := &ConsistencySummary{AllValid: true}
		for _, v := range req.Values {
			sum.AllValid = sum.AllValid && analyzer.CheckValue(v).Valid()
			sum.ChecksRun++
		}
		r.DSpace, r.Energies, r.Consistency = ds, energies, sum
	}
	if req.Adapter != "" {
		res, err := e.Run(ctx, req.Adapter, req.Request)
		if err != nil {
			return nil, err
		}
		r.AdapterResult = res
	}
	return r, nil
}

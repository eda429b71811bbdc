// Package pkg provides the libraries behind phi-engine.
//
// # Overview
//
// phi-engine maps positive measurements into D-space with
// D(x) = -ln(x)/ln(phi). Multiplicative chains become additive there, so
// the stage with the largest D-value is the bottleneck of the chain. The
// pkg directory is organized into four areas:
//
//  1. Transform core: [phi], [analyzer], [constants], [ladder]
//  2. Domain adapters: [adapter] and its photosynthesis, calibration and
//     sensorfusion subpackages
//  3. Orchestration: [engine] (adapter registry, cached runs, batches, reports)
//  4. Infrastructure: [cache], [history], [blob], [observability], [render/cascade]
//
// # Data flow
//
//	request {adapter, mode, params}
//	         ↓
//	    [engine] (cache lookup, hooks)
//	         ↓
//	    [adapter] (domain values → D-values → bottleneck, ranking)
//	         ↓
//	    [adapter.Result] → JSON, tables, DOT/SVG, history
//
// # Quick Start
//
//	e := engine.Default()
//	req, _ := adapter.NewRequest("cascade", photosynthesis.CascadeParams{Natural: true})
//	res, err := e.Run(ctx, "photosynthesis", req)
//	// res.Bottleneck.Name == "carbon_fixation"
//
// Errors from every package carry a code from [errors], which the HTTP and
// CLI layers translate into status codes and messages.
package pkg

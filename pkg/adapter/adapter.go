// Package adapter defines the contract shared by every domain adapter and
// the request/response shapes the engine dispatches.
//
// An adapter turns a domain problem (a cascade of stage efficiencies, a set
// of sensor readings, a calibration run) into D-space values, identifies the
// limiting element and produces human-readable recommendations. Adapters are
// independent implementations of one interface; the engine keeps a map from
// name to implementation and never interprets adapter-specific fields.
//
// # Request
//
// A [Request] carries a mode tag and raw JSON parameters. Adapters decode the
// parameters with [Decode], which rejects unknown fields and maps decoding
// failures to INVALID_INPUT errors naming the offending field.
//
// # Result
//
// Every [Result] carries the computed D-values, the bottleneck (name and
// contribution percentage) when one exists, and a non-nil list of
// recommendations. Adapter-specific detail is carried as raw JSON so results
// are transport neutral and survive a cache round trip unchanged.
package adapter

import (
	"context"
	"encoding/json"
)

// Adapter is a named analysis strategy.
type Adapter interface {
	// Info describes the adapter and the modes it accepts.
	Info() Info
	// Analyze runs one request. It either returns a complete result or
	// exactly one error; partial results are never returned.
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// Info describes an adapter.
type Info struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Modes       []string `json:"modes"`
	DefaultMode string   `json:"default_mode,omitempty"`
}

// Request is the uniform input to an adapter.
type Request struct {
	Mode   string          `json:"mode,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewRequest marshals params into a request.
func NewRequest(mode string, params any) (Request, error) {
	if params == nil {
		return Request{Mode: mode}, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, err
	}
	return Request{Mode: mode, Params: raw}, nil
}

// Result is the uniform output of an adapter.
type Result struct {
	Adapter          string          `json:"adapter"`
	Mode             string          `json:"mode"`
	Success          bool            `json:"success"`
	Labels           []string        `json:"labels"`
	DValues          []float64       `json:"d_space_values"`
	TotalD           float64         `json:"total_d"`
	Bottleneck       *Bottleneck     `json:"bottleneck,omitempty"`
	ConsistencyScore float64         `json:"consistency_score"`
	Hierarchy        []RankedValue   `json:"hierarchy,omitempty"`
	Recommendations  []string        `json:"recommendations"`
	Details          json.RawMessage `json:"details,omitempty"`
}

// RankedValue is one labelled D-value in descending order of loss.
type RankedValue struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	DValue float64 `json:"d_value"`
}

// SetDetails marshals v into the result's Details.
func (r *Result) SetDetails(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Details = raw
	return nil
}

// DecodeDetails unmarshals the result's Details into v.
func (r *Result) DecodeDetails(v any) error {
	return json.Unmarshal(r.Details, v)
}

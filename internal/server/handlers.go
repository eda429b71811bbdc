package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/buildinfo"
	"github.com/Cloudhabil/phi-engine/pkg/constants"
	"github.com/Cloudhabil/phi-engine/pkg/engine"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/history"
	"github.com/Cloudhabil/phi-engine/pkg/ladder"
)

// Transform modes.
const (
	ModeDSpace   = "d_space"
	ModeInverse  = "inverse"
	ModePhiPower = "phi_power"
)

type healthResponse struct {
	Status   string   `json:"status"`
	Engine   string   `json:"engine"`
	Version  string   `json:"version"`
	Adapters []string `json:"adapters"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Engine:   engine.Name,
		Version:  buildinfo.Version,
		Adapters: s.engine.Adapters(),
	})
}

func (s *Server) handleAdapters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"adapters": s.engine.Infos()})
}

// TransformRequest is the body of POST /transform and each websocket frame
// of /ws/transform (where a bare array selects d_space).
type TransformRequest struct {
	Values []float64 `json:"values"`
	Mode   string    `json:"mode,omitempty"`
}

// TransformResponse reports the transformed values.
type TransformResponse struct {
	Original         []float64 `json:"original"`
	Transformed      []float64 `json:"transformed"`
	Mode             string    `json:"mode"`
	ConsistencyScore float64   `json:"consistency_score"`
}

func (s *Server) transform(req TransformRequest) (*TransformResponse, error) {
	if len(req.Values) == 0 {
		return nil, errors.InvalidInput("values", "at least one value is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeDSpace
	}

	var (
		out []float64
		err error
	)
	switch mode {
	case ModeDSpace:
		out, err = s.engine.Transform(req.Values)
	case ModeInverse:
		out = s.engine.Inverse(req.Values)
	case ModePhiPower:
		out = make([]float64, len(req.Values))
		for i, v := range req.Values {
			out[i] = s.engine.ScaleMap(int(v)).PhiPower
		}
	default:
		return nil, errors.InvalidInput("mode", "want d_space, inverse or phi_power, got %q", mode)
	}
	if err != nil {
		return nil, err
	}

	// The score is the share of positive inputs passing both identities.
	checked, valid := 0, 0
	for _, v := range req.Values {
		if v > 0 && !math.IsInf(v, 0) {
			checked++
			if c, err := s.engine.Check(v); err == nil && c.Valid() {
				valid++
			}
		}
	}
	score := 1.0
	if checked > 0 {
		score = float64(valid) / float64(checked)
	}
	return &TransformResponse{Original: req.Values, Transformed: out, Mode: mode, ConsistencyScore: score}, nil
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	call := s.begin(r, "transform")
	var req TransformRequest
	if err := call.decode(&req); err != nil {
		call.fail(w, err)
		return
	}
	call.mode = req.Mode
	resp, err := s.transform(req)
	call.finish(w, resp, err)
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Adapter string          `json:"adapter"`
	Mode    string          `json:"mode,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	call := s.begin(r, "analyze")
	var req AnalyzeRequest
	if err := call.decode(&req); err != nil {
		call.fail(w, err)
		return
	}
	call.adapter, call.mode = req.Adapter, req.Mode
	if err := errors.ValidateName("adapter", req.Adapter); err != nil {
		call.fail(w, err)
		return
	}
	res, err := s.engine.Run(r.Context(), req.Adapter, adapter.Request{Mode: req.Mode, Params: req.Params})
	if res != nil {
		call.mode = res.Mode
	}
	call.finish(w, res, err)
}

// BatchRequest is the body of POST /batch.
type BatchRequest struct {
	Jobs []engine.Job `json:"jobs"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	call := s.begin(r, "batch")
	var req BatchRequest
	if err := call.decode(&req); err != nil {
		call.fail(w, err)
		return
	}
	if len(req.Jobs) == 0 {
		call.fail(w, errors.InvalidInput("jobs", "at least one job is required"))
		return
	}
	results, err := s.engine.RunBatch(r.Context(), req.Jobs)
	call.finish(w, map[string]any{"results": results}, err)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	call := s.begin(r, "report")
	var req engine.ReportRequest
	if err := call.decode(&req); err != nil {
		call.fail(w, err)
		return
	}
	call.adapter, call.mode = req.Adapter, req.Request.Mode
	rep, err := s.engine.Report(r.Context(), req)
	call.finish(w, rep, err)
}

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	Coefficients []float64 `json:"coefficients"`
	ExpectedSum  *float64  `json:"expected_sum"`
	TolerancePPM *float64  `json:"tolerance_ppm,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	call := s.begin(r, "validate")
	var req ValidateRequest
	if err := call.decode(&req); err != nil {
		call.fail(w, err)
		return
	}
	if req.ExpectedSum == nil {
		call.fail(w, errors.InvalidInput("expected_sum", "required"))
		return
	}
	v, err := s.engine.Validate(req.Coefficients, *req.ExpectedSum, req.TolerancePPM)
	if err != nil && errors.FieldOf(err) == "terms" {
		err = errors.InvalidInput("coefficients", "at least one coefficient is required")
	}
	call.finish(w, v, err)
}

// DecomposeRequest is the body of POST /decompose.
type DecomposeRequest struct {
	Dimension int `json:"dimension"`
}

func (s *Server) handleDecompose(w http.ResponseWriter, r *http.Request) {
	call := s.begin(r, "decompose")
	var req DecomposeRequest
	if err := call.decode(&req); err != nil {
		call.fail(w, err)
		return
	}
	d, err := s.engine.Decompose(req.Dimension)
	call.finish(w, d, err)
}

// HierarchyRequest is the body of POST /hierarchy.
type HierarchyRequest struct {
	Dimensions []int `json:"dimensions"`
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req HierarchyRequest
	if err := decode(body, &req); err != nil {
		writeError(w, err)
		return
	}
	ranks, err := s.engine.Hierarchy(req.Dimensions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hierarchy": ranks, "total": len(ranks)})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("x")
	x, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeError(w, errors.InvalidInput("x", "not a number: %q", raw))
		return
	}
	c, err := s.engine.Check(x)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"x": x, "valid": c.Valid(), "checks": c})
}

func (s *Server) handleConstants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries := constants.Search(q.Get("sector"), q.Get("query"))
	writeJSON(w, http.StatusOK, map[string]any{"constants": entries, "total": len(entries)})
}

func (s *Server) handleConstant(w http.ResponseWriter, r *http.Request) {
	e, err := constants.Get(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleLadder(w http.ResponseWriter, r *http.Request) {
	n := ladder.DefaultRungs
	if raw := r.URL.Query().Get("n_max"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, errors.InvalidInput("n_max", "not an integer: %q", raw))
			return
		}
		n = v
	}
	rungs, err := ladder.Full(n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ladder": rungs, "total": len(rungs)})
}

// defaultHistoryLimit caps GET /history when no limit is given.
const defaultHistoryLimit = 100

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := history.Query{
		Operation: q.Get("operation"),
		Adapter:   q.Get("adapter"),
		Limit:     defaultHistoryLimit,
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, errors.InvalidInput("limit", "not a non-negative integer: %q", raw))
			return
		}
		query.Limit = v
	}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &query.From}, {"to", &query.To}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, errors.InvalidInput(p.name, "not an RFC 3339 time: %q", raw))
			return
		}
		*p.dst = t
	}

	entries, err := s.history.List(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "total": len(entries)})
}

func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cloudhabil/phi-engine/pkg/history"
	"github.com/Cloudhabil/phi-engine/pkg/phi"
)

func newTestServer(t *testing.T) (*httptest.Server, *history.MemoryStore) {
	t.Helper()
	store := history.NewMemoryStore()
	s := New(Options{
		History:  store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Gatherer: prometheus.NewRegistry(),
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope in %v", body)
	return e["code"].(string)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	status, body := do(t, ts, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "phi-engine", body["engine"])
	assert.ElementsMatch(t, []any{"calibration", "photosynthesis", "sensor_fusion"}, body["adapters"])
}

func TestAdapters(t *testing.T) {
	ts, _ := newTestServer(t)
	status, body := do(t, ts, http.MethodGet, "/adapters", "")

	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["adapters"], 3)
}

func TestTransform(t *testing.T) {
	ts, store := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/transform", `{"values":[1, 1.618033988749895]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "d_space", body["mode"])
	got := body["transformed"].([]any)
	require.Len(t, got, 2)
	assert.InDelta(t, 0, got[0].(float64), 1e-12)
	assert.InDelta(t, -1, got[1].(float64), 1e-12)
	assert.InDelta(t, 1, body["consistency_score"].(float64), 1e-12)

	entries, err := store.List(context.Background(), history.Query{Operation: "transform"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)
	assert.JSONEq(t, `{"values":[1, 1.618033988749895]}`, string(entries[0].Input))
}

func TestTransformModes(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/transform", `{"values":[-1], "mode":"inverse"}`)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, phi.Phi, body["transformed"].([]any)[0].(float64), 1e-12)

	status, body = do(t, ts, http.MethodPost, "/transform", `{"values":[2], "mode":"phi_power"}`)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, phi.Phi*phi.Phi, body["transformed"].([]any)[0].(float64), 1e-12)
}

func TestTransformErrors(t *testing.T) {
	ts, store := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"empty body", ``, http.StatusBadRequest, "INVALID_INPUT"},
		{"no values", `{"values":[]}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad mode", `{"values":[1],"mode":"log"}`, http.StatusBadRequest, "INVALID_INPUT"},
		{"non-positive", `{"values":[0]}`, http.StatusBadRequest, "DOMAIN_ERROR"},
		{"unknown field", `{"values":[1],"extra":true}`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, ts, http.MethodPost, "/transform", tt.body)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, errorCode(t, body))
		})
	}

	entries, err := store.List(context.Background(), history.Query{Operation: "transform"})
	require.NoError(t, err)
	require.Len(t, entries, len(tests))
	for _, e := range entries {
		assert.False(t, e.Success)
		assert.NotEmpty(t, e.Error)
	}
}

func TestAnalyze(t *testing.T) {
	ts, store := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/analyze",
		`{"adapter":"photosynthesis","mode":"cascade","params":{"natural":true}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "photosynthesis", body["adapter"])
	assert.Equal(t, "cascade", body["mode"])
	assert.Equal(t, "carbon_fixation", body["bottleneck"].(map[string]any)["name"])

	entries, err := store.List(context.Background(), history.Query{Adapter: "photosynthesis"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "analyze", entries[0].Operation)
	assert.Equal(t, "cascade", entries[0].Mode)
	assert.NotEmpty(t, entries[0].Output)
}

func TestAnalyzeUnknownAdapter(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/analyze", `{"adapter":"solar"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "UNKNOWN_ADAPTER", errorCode(t, body))

	status, body = do(t, ts, http.MethodPost, "/analyze", `{"adapter":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, body))
}

func TestBatch(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/batch", `{"jobs":[
		{"adapter":"photosynthesis","request":{"params":{"natural":true}}},
		{"adapter":"solar"}
	]}`)
	require.Equal(t, http.StatusOK, status)
	results := body["results"].([]any)
	require.Len(t, results, 2)
	assert.NotNil(t, results[0].(map[string]any)["result"])
	assert.Equal(t, "UNKNOWN_ADAPTER", results[1].(map[string]any)["error"].(map[string]any)["code"])

	status, body = do(t, ts, http.MethodPost, "/batch", `{"jobs":[]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, body))
}

func TestReport(t *testing.T) {
	ts, store := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/report", `{"values":[0.5,1],"adapter":"photosynthesis","request":{"params":{"natural":true}}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "phi-engine", body["engine"])
	assert.Len(t, body["d_space"], 2)
	consistency := body["consistency"].(map[string]any)
	assert.Equal(t, true, consistency["all_valid"])
	assert.Equal(t, float64(2), consistency["checks_run"])
	assert.NotNil(t, body["adapter_result"])

	status, body = do(t, ts, http.MethodPost, "/report", `{"values":[-1]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DOMAIN_ERROR", errorCode(t, body))

	entries, err := store.List(context.Background(), history.Query{Operation: "report"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestValidate(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/validate",
		`{"coefficients":[0.6180339887498949, 0.2360679774997897, 0.1458980337503155], "expected_sum":1}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.InDelta(t, 100, body["tolerance_ppm"].(float64), 1e-12)

	status, body = do(t, ts, http.MethodPost, "/validate", `{"coefficients":[0.5], "expected_sum":1, "tolerance_ppm":10}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])

	status, body = do(t, ts, http.MethodPost, "/validate", `{"coefficients":[1, 1.00001], "expected_sum":2, "tolerance_ppm":0}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, float64(0), body["tolerance_ppm"])

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"no coefficients", `{"coefficients":[], "expected_sum":1}`, "coefficients"},
		{"no expected sum", `{"coefficients":[1]}`, "expected_sum"},
		{"negative tolerance", `{"coefficients":[1], "expected_sum":1, "tolerance_ppm":-1}`, "tolerance_ppm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, ts, http.MethodPost, "/validate", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.field, body["error"].(map[string]any)["field"])
		})
	}
}

func TestDecompose(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/decompose", `{"dimension":45}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "F(4)^2 * F(5)", body["form"])
	assert.Equal(t, "SO(10) adj", body["group"])

	status, body = do(t, ts, http.MethodPost, "/decompose", `{"dimension":7}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "NOT_DECOMPOSABLE", errorCode(t, body))
}

func TestHierarchy(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/hierarchy", `{"dimensions":[7, 25, 45, 3, 133]}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 5, body["total"])
}

func TestCheck(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodGet, "/check?x=2.5", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["valid"])

	status, body = do(t, ts, http.MethodGet, "/check?x=-1", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DOMAIN_ERROR", errorCode(t, body))

	status, body = do(t, ts, http.MethodGet, "/check?x=abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, body))
}

func TestConstants(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodGet, "/constants?sector=electroweak", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, len(body["constants"].([]any)), body["total"])
	for _, c := range body["constants"].([]any) {
		assert.Equal(t, "electroweak", c.(map[string]any)["sector"])
	}

	status, body = do(t, ts, http.MethodGet, "/constants/M_Z", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "GeV", body["unit"])

	status, body = do(t, ts, http.MethodGet, "/constants/nope", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestLadder(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodGet, "/ladder", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 79, body["total"])

	status, body = do(t, ts, http.MethodGet, "/ladder?n_max=x", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, body))
}

func TestHistoryEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	do(t, ts, http.MethodPost, "/decompose", `{"dimension":45}`)
	do(t, ts, http.MethodPost, "/transform", `{"values":[2]}`)

	status, body := do(t, ts, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["total"])
	entries := body["entries"].([]any)
	newest := entries[0].(map[string]any)
	assert.Equal(t, "transform", newest["operation"])

	status, body = do(t, ts, http.MethodGet, "/history?operation=decompose&limit=1", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["total"])

	status, body = do(t, ts, http.MethodGet, "/history/"+newest["id"].(string), "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "transform", body["operation"])

	status, body = do(t, ts, http.MethodGet, "/history/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	status, body = do(t, ts, http.MethodGet, "/history?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "from", body["error"].(map[string]any)["field"])
}

func TestRouting(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, ts, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	status, body = do(t, ts, http.MethodGet, "/transform", "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", errorCode(t, body))
}

func TestMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTransformStream(t *testing.T) {
	ts, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/transform"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[1, 1.618033988749895]`)))
	var resp TransformResponse
	require.NoError(t, conn.ReadJSON(&resp))
	require.Len(t, resp.Transformed, 2)
	assert.InDelta(t, -1, resp.Transformed[1], 1e-12)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"values":[-1],"mode":"inverse"}`)))
	resp = TransformResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "inverse", resp.Mode)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[0]`)))
	var env errorEnvelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "DOMAIN_ERROR", string(env.Error.Code))
}

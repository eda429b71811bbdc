package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopEngineHooks{}
	e.OnRunStart(ctx, "photosynthesis", "cascade")
	e.OnRunComplete(ctx, "photosynthesis", "cascade", time.Millisecond, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "result")
	c.OnCacheMiss(ctx, "result")
	c.OnCacheSet(ctx, "result", 1024)

	NoopHTTPHooks{}.OnResponse(ctx, "POST", "/analyze", 200, time.Millisecond)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Engine() should return NoopEngineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customEngine := &testEngineHooks{}
	SetEngineHooks(customEngine)
	if Engine() != customEngine {
		t.Error("SetEngineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Engine().(NoopEngineHooks); !ok {
		t.Error("Reset() should restore NoopEngineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testEngineHooks{}
	SetEngineHooks(custom)
	SetEngineHooks(nil)

	if Engine() != custom {
		t.Error("SetEngineHooks(nil) should be ignored")
	}
}

func TestPrometheus(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.OnRunStart(ctx, "calibration", "drift")
	if got := testutil.ToFloat64(p.inFlight.WithLabelValues("calibration")); got != 1 {
		t.Errorf("in flight = %v, want 1", got)
	}
	p.OnRunComplete(ctx, "calibration", "drift", time.Millisecond, nil)
	p.OnRunStart(ctx, "calibration", "drift")
	p.OnRunComplete(ctx, "calibration", "drift", time.Millisecond, errors.Domain("x"))

	if got := testutil.ToFloat64(p.runs.WithLabelValues("calibration", "drift", "OK")); got != 1 {
		t.Errorf("ok runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.runs.WithLabelValues("calibration", "drift", "DOMAIN_ERROR")); got != 1 {
		t.Errorf("domain errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.inFlight.WithLabelValues("calibration")); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}

	p.OnCacheHit(ctx, "result")
	p.OnCacheSet(ctx, "result", 512)
	if got := testutil.ToFloat64(p.cacheBytes.WithLabelValues("result")); got != 512 {
		t.Errorf("cache bytes = %v, want 512", got)
	}

	p.OnResponse(ctx, "GET", "/health", 200, time.Millisecond)
	if got := testutil.ToFloat64(p.requests.WithLabelValues("GET", "/health", "200")); got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Errorf("GatherAndCount = %d, %v", n, err)
	}
}

type testEngineHooks struct{ NoopEngineHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

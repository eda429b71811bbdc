package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements EngineHooks, CacheHooks and HTTPHooks on top of a
// prometheus registry.
type Prometheus struct {
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
	cacheOps    *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec
	requests    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
}

var (
	_ EngineHooks = (*Prometheus)(nil)
	_ CacheHooks  = (*Prometheus)(nil)
	_ HTTPHooks   = (*Prometheus)(nil)
)

// NewPrometheus creates the collectors and registers them with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phi_engine",
			Name:      "adapter_runs_total",
			Help:      "Adapter runs by adapter, mode and outcome code.",
		}, []string{"adapter", "mode", "code"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "phi_engine",
			Name:      "adapter_run_duration_seconds",
			Help:      "Adapter run latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"adapter", "mode"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "phi_engine",
			Name:      "adapter_runs_in_flight",
			Help:      "Adapter runs currently executing.",
		}, []string{"adapter"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phi_engine",
			Name:      "cache_operations_total",
			Help:      "Cache operations by key type and result.",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phi_engine",
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}, []string{"key_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phi_engine",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "phi_engine",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(p.runs, p.runDuration, p.inFlight, p.cacheOps, p.cacheBytes, p.requests, p.reqDuration)
	return p
}

// OnRunStart implements EngineHooks.
func (p *Prometheus) OnRunStart(_ context.Context, adapter, _ string) {
	p.inFlight.WithLabelValues(adapter).Inc()
}

// OnRunComplete implements EngineHooks.
func (p *Prometheus) OnRunComplete(_ context.Context, adapter, mode string, d time.Duration, err error) {
	p.inFlight.WithLabelValues(adapter).Dec()
	code := "OK"
	if err != nil {
		code = string(errors.GetCode(err))
		if code == "" {
			code = string(errors.ErrCodeInternal)
		}
	}
	p.runs.WithLabelValues(adapter, mode, code).Inc()
	p.runDuration.WithLabelValues(adapter, mode).Observe(d.Seconds())
}

// OnCacheHit implements CacheHooks.
func (p *Prometheus) OnCacheHit(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements CacheHooks.
func (p *Prometheus) OnCacheMiss(_ context.Context, keyType string) {
	p.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements CacheHooks.
func (p *Prometheus) OnCacheSet(_ context.Context, keyType string, size int) {
	p.cacheOps.WithLabelValues(keyType, "set").Inc()
	p.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnResponse implements HTTPHooks.
func (p *Prometheus) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.reqDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

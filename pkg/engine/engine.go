// Package engine is the single entry point of the phi-engine.
//
// An [Engine] holds a registry of named adapters and dispatches requests to
// them, optionally caching results. It also exposes the transform, sum-rule,
// decomposition and consistency operations directly for callers that do not
// need an adapter.
//
// # Usage
//
//	e := engine.Default()
//	res, err := e.Run(ctx, "photosynthesis", adapter.Request{
//	    Mode:   "cascade",
//	    Params: json.RawMessage(`{"natural": true}`),
//	})
//
// Registration happens during setup. The registry is read-only afterwards,
// so one engine may serve concurrent requests without locking.
package engine

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/adapter/calibration"
	"github.com/Cloudhabil/phi-engine/pkg/adapter/photosynthesis"
	"github.com/Cloudhabil/phi-engine/pkg/adapter/sensorfusion"
	"github.com/Cloudhabil/phi-engine/pkg/cache"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
	"github.com/Cloudhabil/phi-engine/pkg/observability"
)

// Name is reported in every Report.
const Name = "phi-engine"

// Options configure an Engine. Zero values select the defaults.
type Options struct {
	// Cache stores successful results. Nil disables caching.
	Cache cache.Cache
	// Keyer derives cache keys. Nil selects cache.DefaultKeyer.
	Keyer cache.Keyer
	// Logger receives debug output. Nil selects log.Default().
	Logger *log.Logger
	// TTL of cached results. Zero selects cache.TTLResult.
	TTL time.Duration
	// Photosynthesis configures the built-in photosynthesis adapter.
	Photosynthesis photosynthesis.Options
	// Bare skips registration of the built-in adapters.
	Bare bool
}

// Engine dispatches requests to registered adapters.
type Engine struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration

	adapters map[string]adapter.Adapter
}

// New creates an engine and, unless opts.Bare is set, registers the
// photosynthesis, calibration and sensor_fusion adapters.
func New(opts Options) (*Engine, error) {
	e := &Engine{
		Cache:    opts.Cache,
		Keyer:    opts.Keyer,
		Logger:   opts.Logger,
		TTL:      opts.TTL,
		adapters: make(map[string]adapter.Adapter),
	}
	if e.Cache == nil {
		e.Cache = cache.NewNullCache()
	}
	if e.Keyer == nil {
		e.Keyer = cache.NewDefaultKeyer()
	}
	if e.Logger == nil {
		e.Logger = log.Default()
	}
	if e.TTL == 0 {
		e.TTL = cache.TTLResult
	}
	if opts.Bare {
		return e, nil
	}

	photo, err := photosynthesis.New(opts.Photosynthesis)
	if err != nil {
		return nil, err
	}
	e.RegisterAdapter(photosynthesis.Name, photo)
	e.RegisterAdapter(calibration.Name, calibration.New())
	e.RegisterAdapter(sensorfusion.Name, sensorfusion.New())
	return e, nil
}

// Default returns an uncached engine with the built-in adapters.
func Default() *Engine {
	e, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return e
}

// RegisterAdapter associates name with a. Registering a name again
// replaces the previous adapter.
func (e *Engine) RegisterAdapter(name string, a adapter.Adapter) {
	e.adapters[name] = a
}

// Adapters returns the registered names in sorted order.
func (e *Engine) Adapters() []string {
	names := make([]string, 0, len(e.adapters))
	for n := range e.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Adapter returns the adapter registered under name.
func (e *Engine) Adapter(name string) (adapter.Adapter, error) {
	a, ok := e.adapters[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownAdapter, "adapter %q is not registered", name)
	}
	return a, nil
}

// Infos describes every registered adapter in name order.
func (e *Engine) Infos() []adapter.Info {
	names := e.Adapters()
	out := make([]adapter.Info, len(names))
	for i, n := range names {
		out[i] = e.adapters[n].Info()
	}
	return out
}

// Run dispatches req to the named adapter and returns its result unchanged.
// Successful results are cached; cache failures are logged and ignored.
func (e *Engine) Run(ctx context.Context, name string, req adapter.Request) (*adapter.Result, error) {
	a, err := e.Adapter(name)
	if err != nil {
		return nil, err
	}

	key := e.Keyer.ResultKey(name, req.Mode, req.Params)
	if res, ok := e.cached(ctx, key); ok {
		e.Logger.Debug("result cache hit", "adapter", name, "mode", req.Mode)
		return res, nil
	}

	hooks := observability.Engine()
	hooks.OnRunStart(ctx, name, req.Mode)
	start := time.Now()
	res, err := a.Analyze(ctx, req)
	elapsed := time.Since(start)
	hooks.OnRunComplete(ctx, name, req.Mode, elapsed, err)
	if err != nil {
		e.Logger.Debug("adapter run failed", "adapter", name, "mode", req.Mode, "error", err)
		return nil, err
	}
	e.Logger.Debug("adapter run", "adapter", name, "mode", res.Mode, "duration", elapsed)

	e.store(ctx, key, res)
	return res, nil
}

func (e *Engine) cached(ctx context.Context, key string) (*adapter.Result, bool) {
	data, hit, err := e.Cache.Get(ctx, key)
	if err != nil {
		e.Logger.Warn("cache read failed", "error", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, "result")
		return nil, false
	}
	var res adapter.Result
	if err := json.Unmarshal(data, &res); err != nil {
		e.Logger.Warn("discarding corrupt cache entry", "error", err)
		_ = e.Cache.Delete(ctx, key)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "result")
	return &res, true
}

func (e *Engine) store(ctx context.Context, key string, res *adapter.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		e.Logger.Warn("cannot encode result for cache", "error", err)
		return
	}
	if err := e.Cache.Set(ctx, key, data, e.TTL); err != nil {
		e.Logger.Warn("cache write failed", "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "result", len(data))
}

// Close releases the cache.
func (e *Engine) Close() error {
	if e.Cache != nil {
		return e.Cache.Close()
	}
	return nil
}

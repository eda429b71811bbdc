package engine_test

import (
	"context"
	"encoding/json"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/adapter/calibration"
	"github.com/Cloudhabil/phi-engine/pkg/adapter/photosynthesis"
	"github.com/Cloudhabil/phi-engine/pkg/adapter/sensorfusion"
	"github.com/Cloudhabil/phi-engine/pkg/analyzer"
	"github.com/Cloudhabil/phi-engine/pkg/cache"
	"github.com/Cloudhabil/phi-engine/pkg/engine"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

type fixedAdapter struct {
	version string
	calls   int
}

func (f *fixedAdapter) Info() adapter.Info {
	return adapter.Info{Name: "fixed", Version: f.version, Modes: []string{"only"}}
}

func (f *fixedAdapter) Analyze(_ context.Context, req adapter.Request) (*adapter.Result, error) {
	f.calls++
	return &adapter.Result{
		Adapter:         "fixed",
		Mode:            req.Mode,
		Success:         true,
		Recommendations: []string{f.version},
	}, nil
}

func mustRequest(mode string, params any) adapter.Request {
	req, err := adapter.NewRequest(mode, params)
	Expect(err).NotTo(HaveOccurred())
	return req
}

func ptr(v float64) *float64 { return &v }

var _ = Describe("Engine", func() {
	var (
		ctx context.Context
		e   *engine.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		e = engine.Default()
	})

	Describe("registry", func() {
		It("registers the built-in adapters", func() {
			Expect(e.Adapters()).To(Equal([]string{calibration.Name, photosynthesis.Name, sensorfusion.Name}))
			Expect(e.Infos()).To(HaveLen(3))
		})

		It("starts empty when bare", func() {
			bare, err := engine.New(engine.Options{Bare: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(bare.Adapters()).To(BeEmpty())
		})

		It("keeps the last registration of a name", func() {
			e.RegisterAdapter("fixed", &fixedAdapter{version: "v1"})
			e.RegisterAdapter("fixed", &fixedAdapter{version: "v2"})

			res, err := e.Run(ctx, "fixed", adapter.Request{Mode: "only"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Recommendations).To(Equal([]string{"v2"}))
		})

		It("rejects an unknown adapter", func() {
			_, err := e.Run(ctx, "solar", adapter.Request{})
			Expect(errors.Is(err, errors.ErrCodeUnknownAdapter)).To(BeTrue())
		})

		It("rejects an invalid photosynthesis configuration", func() {
			_, err := engine.New(engine.Options{Photosynthesis: photosynthesis.Options{DefaultTarget: -1}})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Run", func() {
		It("returns the adapter result unchanged", func() {
			req := mustRequest(photosynthesis.ModeCascade, photosynthesis.CascadeParams{Natural: true})

			viaEngine, err := e.Run(ctx, photosynthesis.Name, req)
			Expect(err).NotTo(HaveOccurred())
			direct, err := photosynthesis.Default().Analyze(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(viaEngine).To(Equal(direct))
		})

		It("reports the largest D-value as the bottleneck", func() {
			res, err := e.Run(ctx, photosynthesis.Name,
				mustRequest(photosynthesis.ModeCascade, photosynthesis.CascadeParams{Natural: true}))
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Bottleneck).NotTo(BeNil())
			for _, d := range res.DValues {
				Expect(d).To(BeNumerically("<=", res.Bottleneck.DValue))
			}
			sum := 0.0
			for _, d := range res.DValues {
				sum += d
			}
			Expect(res.TotalD).To(BeNumerically("~", sum, 1e-12))
		})

		It("excludes scarce materials when abundant_only is set", func() {
			res, err := e.Run(ctx, photosynthesis.Name, mustRequest(photosynthesis.ModeMaterial,
				photosynthesis.MaterialParams{Constraints: photosynthesis.Constraints{AbundantOnly: true}}))
			Expect(err).NotTo(HaveOccurred())

			var details photosynthesis.RankingDetails
			Expect(res.DecodeDetails(&details)).To(Succeed())
			for _, m := range details.Ranking {
				Expect(m.Abundant).To(BeTrue(), m.Name)
			}
			Expect(details.Excluded).NotTo(BeEmpty())
		})

		It("passes adapter errors through", func() {
			_, err := e.Run(ctx, calibration.Name, mustRequest(calibration.ModeDrift, calibration.Params{Readings: []float64{1, 1}}))
			Expect(errors.Is(err, errors.ErrCodeInvalidInput)).To(BeTrue())
			Expect(errors.FieldOf(err)).To(Equal("reference"))

			_, err = e.Run(ctx, photosynthesis.Name, adapter.Request{Mode: "telepathy"})
			Expect(errors.Is(err, errors.ErrCodeUnsupportedMode)).To(BeTrue())
		})
	})

	Describe("caching", func() {
		var (
			fc    *cache.FileCache
			fixed *fixedAdapter
		)

		BeforeEach(func() {
			var err error
			fc, err = cache.NewFileCache(GinkgoT().TempDir())
			Expect(err).NotTo(HaveOccurred())
			e, err = engine.New(engine.Options{Cache: fc})
			Expect(err).NotTo(HaveOccurred())
			fixed = &fixedAdapter{version: "v1"}
			e.RegisterAdapter("fixed", fixed)
		})

		AfterEach(func() {
			Expect(e.Close()).To(Succeed())
		})

		It("serves a repeated request from the cache", func() {
			req := adapter.Request{Mode: "only"}
			_, err := e.Run(ctx, "fixed", req)
			Expect(err).NotTo(HaveOccurred())
			_, err = e.Run(ctx, "fixed", req)
			Expect(err).NotTo(HaveOccurred())
			Expect(fixed.calls).To(Equal(1))
		})

		It("returns a cached result equal to the computed one", func() {
			req := mustRequest(photosynthesis.ModeCascade, photosynthesis.CascadeParams{Natural: true})
			first, err := e.Run(ctx, photosynthesis.Name, req)
			Expect(err).NotTo(HaveOccurred())
			second, err := e.Run(ctx, photosynthesis.Name, req)
			Expect(err).NotTo(HaveOccurred())

			a, _ := json.Marshal(first)
			b, _ := json.Marshal(second)
			Expect(b).To(MatchJSON(a))
		})

		It("keys on the parameters", func() {
			_, err := e.Run(ctx, "fixed", adapter.Request{Mode: "only", Params: json.RawMessage(`{"a":1}`)})
			Expect(err).NotTo(HaveOccurred())
			_, err = e.Run(ctx, "fixed", adapter.Request{Mode: "only", Params: json.RawMessage(`{"a":2}`)})
			Expect(err).NotTo(HaveOccurred())
			Expect(fixed.calls).To(Equal(2))
		})
	})

	Describe("RunBatch", func() {
		It("preserves job order and isolates failures", func() {
			jobs := []engine.Job{
				{ID: "cascade", Adapter: photosynthesis.Name, Request: mustRequest(photosynthesis.ModeCascade, photosynthesis.CascadeParams{Natural: true})},
				{ID: "missing", Adapter: "solar"},
				{ID: "drift", Adapter: calibration.Name, Request: mustRequest(calibration.ModeDrift, calibration.Params{
					Readings: []float64{0.9, 0.91, 0.89, 0.9}, Reference: ptr(1),
				})},
				{Adapter: sensorfusion.Name, Request: mustRequest(sensorfusion.ModeFuse, sensorfusion.Params{})},
			}

			out, err := e.RunBatch(ctx, jobs)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(4))

			Expect(out[0].ID).To(Equal("cascade"))
			Expect(out[0].Result).NotTo(BeNil())
			Expect(out[0].Error).To(BeNil())

			Expect(out[1].Result).To(BeNil())
			Expect(out[1].Error.Code).To(Equal(errors.ErrCodeUnknownAdapter))

			Expect(out[2].Result.Adapter).To(Equal(calibration.Name))

			Expect(out[3].ID).NotTo(BeEmpty())
			Expect(out[3].Error.Code).To(Equal(errors.ErrCodeInvalidInput))
		})

		It("stops on a cancelled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := e.RunBatch(cctx, []engine.Job{{Adapter: photosynthesis.Name}})
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("direct operations", func() {
		It("transforms and inverts", func() {
			ds, err := e.Transform([]float64{0.45, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(ds[0]).To(BeNumerically("~", 1.6594, 1e-4))
			Expect(ds[1]).To(BeZero())

			back := e.Inverse(ds)
			Expect(back[0]).To(BeNumerically("~", 0.45, 1e-12))

			_, err = e.Transform([]float64{0})
			Expect(errors.Is(err, errors.ErrCodeDomain)).To(BeTrue())
		})

		It("conserves energy at 2π", func() {
			energies, err := e.Energy([]float64{1e-6, 0.45, 137.036})
			Expect(err).NotTo(HaveOccurred())
			for _, q := range energies {
				Expect(q).To(BeNumerically("~", 2*math.Pi, 1e-10))
			}
		})

		It("maps dimensions onto the energy ladder", func() {
			m := e.ScaleMap(0)
			Expect(m.PhiPower).To(Equal(1.0))
			Expect(m.EnergyGeV).To(BeNumerically("~", 0.93827, 1e-12))
			Expect(m.Inverse).To(Equal(1.0))
		})

		It("validates a sum rule with the default tolerance", func() {
			v, err := e.Validate([]float64{1, 1.00001}, 2, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Valid).To(BeTrue())
			Expect(v.TolerancePPM).To(Equal(analyzer.DefaultTolerancePPM))
		})

		It("honors an explicit zero tolerance", func() {
			zero := 0.0
			v, err := e.Validate([]float64{1, 1.00001}, 2, &zero)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Valid).To(BeFalse())
			Expect(v.TolerancePPM).To(BeZero())

			v, err = e.Validate([]float64{-1, 1, 2, 0.5}, 2.5, &zero)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Valid).To(BeTrue())
		})

		It("decomposes deterministically", func() {
			first, err := e.Decompose(45)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Form).To(Equal("F(4)^2 * F(5)"))
			for range 5 {
				again, err := e.Decompose(45)
				Expect(err).NotTo(HaveOccurred())
				Expect(again).To(Equal(first))
			}
		})

		It("checks consistency of a value", func() {
			c, err := e.Check(0.45)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Valid()).To(BeTrue())

			_, err = e.Check(-1)
			Expect(errors.Is(err, errors.ErrCodeDomain)).To(BeTrue())
		})
	})

	Describe("Report", func() {
		It("combines the transform, the checks and an adapter result", func() {
			r, err := e.Report(ctx, engine.ReportRequest{
				Values:  []float64{0.45, 0.8},
				Adapter: photosynthesis.Name,
				Request: mustRequest(photosynthesis.ModeCascade, photosynthesis.CascadeParams{Natural: true}),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Engine).To(Equal(engine.Name))
			Expect(r.DSpace).To(HaveLen(2))
			Expect(r.Consistency.AllValid).To(BeTrue())
			Expect(r.Consistency.ChecksRun).To(Equal(2))
			Expect(r.AdapterResult.Bottleneck.Name).To(Equal("carbon_fixation"))
		})

		It("fails on a non-positive value", func() {
			_, err := e.Report(ctx, engine.ReportRequest{Values: []float64{1, -2}})
			Expect(errors.Is(err, errors.ErrCodeDomain)).To(BeTrue())
		})

		It("fails on an unknown adapter", func() {
			_, err := e.Report(ctx, engine.ReportRequest{Values: []float64{1}, Adapter: "solar"})
			Expect(errors.Is(err, errors.ErrCodeUnknownAdapter)).To(BeTrue())
		})
	})
})

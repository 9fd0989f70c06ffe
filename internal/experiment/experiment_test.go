package experiment_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pendspec/internal/config"
	"github.com/san-kum/pendspec/internal/dynamo"
	"github.com/san-kum/pendspec/internal/experiment"
	"github.com/san-kum/pendspec/internal/metrics"
	"github.com/san-kum/pendspec/internal/physics"
)

var _ = Describe("Experiment", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	Context("with the default parametric pendulum", func() {
		var res *experiment.Result

		BeforeEach(func() {
			var err error
			res, err = experiment.New(cfg).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("finishes the integration", func() {
			Expect(res.Trajectory.Status).To(Equal(dynamo.Finished))
			Expect(res.Trajectory.Points[res.Trajectory.Len()-1].T).To(Equal(40 * math.Pi))
		})

		It("starts exactly at the initial condition", func() {
			Expect(res.Trajectory.Points[0].X).To(Equal(dynamo.State{math.Pi / 10, 0}))
			Expect(res.Series.States[0]).To(Equal(dynamo.State{math.Pi / 10, 0}))
		})

		It("resamples onto 4001 points", func() {
			Expect(res.Series.Len()).To(Equal(4001))
			Expect(res.Theta).To(HaveLen(4001))
			Expect(res.Series.Dt).To(BeNumerically("~", math.Pi/100, 1e-15))
		})

		It("keeps every accepted step within tolerance", func() {
			Expect(res.Metrics["max_err_norm"]).To(BeNumerically("<=", 1))
			Expect(res.Metrics["accepted"]).To(BeNumerically(">", 0))
		})

		It("produces a spectrum bounded by the Nyquist frequency", func() {
			spec := res.Spectrum
			Expect(spec.Freqs).To(HaveLen(4001/2 + 1))
			Expect(spec.Power).To(HaveLen(len(spec.Freqs)))
			Expect(spec.Freqs[len(spec.Freqs)-1]).To(BeNumerically("<=", spec.Nyquist))
			Expect(spec.Power).To(HaveEach(BeNumerically(">=", 0)))
		})

		It("tags the run", func() {
			Expect(res.ID.String()).NotTo(BeEmpty())
			Expect(res.Model).To(Equal("parametric_pendulum"))
			Expect(res.Params).To(HaveKeyWithValue(physics.ParamQ, 0.2))
		})
	})

	It("is deterministic", func() {
		a, err := experiment.New(cfg).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		b, err := experiment.New(config.DefaultConfig()).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Theta).To(Equal(b.Theta))
		Expect(a.Spectrum.Power).To(Equal(b.Spectrum.Power))
		Expect(a.ID).NotTo(Equal(b.ID))
	})

	It("conserves energy without forcing or damping", func() {
		cfg = config.GetPreset("conservative")
		cfg.Tolerances.RTol, cfg.Tolerances.ATol = 1e-10, 1e-12

		res, err := experiment.New(cfg).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Metrics["energy_drift"]).To(BeNumerically("<", 1e-6))
	})

	It("reports observed steps", func() {
		obs := metrics.NewStepObserver()
		exp := experiment.New(cfg)
		exp.AddObserver(obs)

		res, err := exp.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.Steps()).To(Equal(res.Trajectory.Stats.Accepted))
	})

	It("rejects an unknown model", func() {
		cfg.Model = "rigid_rotor"
		_, err := experiment.New(cfg).Run(context.Background())
		Expect(err).To(MatchError(dynamo.ErrInvalidParameters))
	})

	It("rejects an invalid configuration", func() {
		cfg.TStop = cfg.TStart
		_, err := experiment.New(cfg).Run(context.Background())
		Expect(err).To(MatchError(dynamo.ErrInvalidTimeSpan))
	})

	It("surfaces integration failures", func() {
		cfg.Tolerances.MaxSteps = 2
		_, err := experiment.New(cfg).Run(context.Background())
		Expect(err).To(MatchError(dynamo.ErrStepLimit))

		var ie *dynamo.IntegrationError
		Expect(errors.As(err, &ie)).To(BeTrue())
		Expect(ie.Status()).To(Equal(dynamo.Failed))
	})

	It("needs an explicit sample step for unforced models", func() {
		cfg.Model = "pendulum"
		_, err := experiment.New(cfg).Run(context.Background())
		Expect(err).To(MatchError(dynamo.ErrInvalidResampleStep))

		cfg.SampleDt = 0.05
		res, err := experiment.New(cfg).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Series.Dt).To(Equal(0.05))
	})
})

var _ = Describe("Sweep", func() {
	It("returns results in grid order", func() {
		cfg := config.DefaultConfig()
		cfg.TStop = 10 * math.Pi
		cfg.Workers = 3

		sweep, err := experiment.NewSweep(experiment.New(cfg),
			[]string{physics.ParamQ, physics.ParamBeta},
			[][]float64{{0, 0.1, 0.2}, {0.05, 0.1}})
		Expect(err).NotTo(HaveOccurred())
		Expect(sweep.Points()).To(HaveLen(6))

		results, err := sweep.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(6))

		i := 0
		for _, q := range []float64{0, 0.1, 0.2} {
			for _, beta := range []float64{0.05, 0.1} {
				Expect(results[i].Params).To(HaveKeyWithValue(physics.ParamQ, q))
				Expect(results[i].Params).To(HaveKeyWithValue(physics.ParamBeta, beta))
				i++
			}
		}
	})

	It("matches independent single runs", func() {
		cfg := config.DefaultConfig()
		cfg.TStop = 10 * math.Pi

		sweep, err := experiment.NewSweep(experiment.New(cfg), []string{physics.ParamQ}, [][]float64{{0.1, 0.3}})
		Expect(err).NotTo(HaveOccurred())
		results, err := sweep.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		single := cfg.Clone()
		single.Params = map[string]float64{physics.ParamQ: 0.3}
		res, err := experiment.New(single).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(results[1].Theta).To(Equal(res.Theta))
		Expect(results[0].Theta).NotTo(Equal(res.Theta))
	})

	It("picks the best point by metric", func() {
		cfg := config.DefaultConfig()
		cfg.TStop = 10 * math.Pi

		sweep, err := experiment.NewSweep(experiment.New(cfg), []string{physics.ParamBeta}, [][]float64{{0, 0.5}})
		Expect(err).NotTo(HaveOccurred())
		results, err := sweep.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		best, val := experiment.Best(results, "stability")
		Expect(best).NotTo(BeNil())
		Expect(val).To(BeNumerically("<=", 1))

		none, _ := experiment.Best(results, "no_such_metric")
		Expect(none).To(BeNil())
	})

	It("rejects a malformed grid", func() {
		_, err := experiment.NewSweep(experiment.New(config.DefaultConfig()), []string{"q"}, nil)
		Expect(err).To(MatchError(dynamo.ErrInvalidParameters))

		_, err = experiment.NewSweep(experiment.New(config.DefaultConfig()), []string{"q"}, [][]float64{{}})
		Expect(err).To(MatchError(dynamo.ErrInvalidParameters))
	})

	It("fails on an unknown parameter", func() {
		sweep, err := experiment.NewSweep(experiment.New(config.DefaultConfig()), []string{"gamma"}, [][]float64{{1}})
		Expect(err).NotTo(HaveOccurred())
		_, err = sweep.Run(context.Background())
		Expect(err).To(MatchError(dynamo.ErrInvalidParameters))
	})
})

var _ = Describe("Registry", func() {
	It("lists models in order", func() {
		Expect(experiment.NewRegistry().ListModels()).To(Equal([]string{"duffing", "parametric_pendulum", "pendulum"}))
	})

	It("applies parameter overrides", func() {
		sys, err := experiment.NewRegistry().GetModel("parametric_pendulum", map[string]float64{physics.ParamOmega: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(sys.(dynamo.Configurable).Params()).To(HaveKeyWithValue(physics.ParamOmega, 3.0))
	})
})

package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/san-kum/pendspec/internal/analysis"
	"github.com/san-kum/pendspec/internal/config"
	"github.com/san-kum/pendspec/internal/dynamo"
	"github.com/san-kum/pendspec/internal/integrators"
	"github.com/san-kum/pendspec/internal/metrics"
	"github.com/san-kum/pendspec/internal/physics"
	"github.com/san-kum/pendspec/internal/series"
)

// Result is everything one run produces. Nothing here is written anywhere;
// presentation is up to the caller.
type Result struct {
	ID         uuid.UUID
	Model      string
	Params     map[string]float64
	Trajectory *dynamo.Trajectory
	Series     *series.Series
	Theta      []float64
	Spectrum   *analysis.Spectrum
	Metrics    map[string]float64
	Elapsed    time.Duration
}

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	log       *log.Entry
	observers []dynamo.Observer

	sys dynamo.System
	tol dynamo.Tolerances
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      log.WithField("component", "experiment"),
	}
}

func (e *Experiment) WithLogger(l *log.Entry) *Experiment {
	e.log = l
	return e
}

func (e *Experiment) AddObserver(o dynamo.Observer) {
	e.observers = append(e.observers, o)
}

// Setup validates the configuration and builds the model. Run calls it when
// it has not been called yet.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sys, err := e.registry.GetModel(e.cfg.Model, e.cfg.Params)
	if err != nil {
		return err
	}
	tol, err := e.cfg.GetTolerances()
	if err != nil {
		return err
	}
	e.sys = sys
	e.tol = tol
	return nil
}

// System returns the model built by Setup.
func (e *Experiment) System() dynamo.System { return e.sys }

func (e *Experiment) integrator() *integrators.DormandPrince {
	integ := integrators.NewDormandPrince(e.tol)
	for _, o := range e.observers {
		integ.AddObserver(o)
	}
	if e.log.Logger.IsLevelEnabled(log.TraceLevel) {
		integ.AddObserver(&traceObserver{log: e.log})
	}
	return integ
}

// Run integrates the model, resamples the angle onto a uniform grid and
// estimates its spectrum.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.sys == nil {
		if err := e.Setup(); err != nil {
			return nil, err
		}
	}

	id := uuid.New()
	l := e.log.WithFields(log.Fields{"run": id.String(), "model": e.cfg.Model})
	start := time.Now()

	l.WithFields(log.Fields{
		"t_start": e.cfg.TStart,
		"t_stop":  e.cfg.TStop,
		"rtol":    e.tol.RTol,
		"atol":    e.tol.ATol,
	}).Debug("integrating")

	tr, err := e.integrator().Integrate(ctx, e.sys, e.cfg.GetInitState(), e.cfg.TStart, e.cfg.TStop)
	if err != nil {
		l.WithError(err).Warn("integration failed")
		return nil, fmt.Errorf("integrate: %w", err)
	}

	res, err := e.analyze(l, id, e.sys, tr)
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

// analyze turns a finished trajectory into a Result.
func (e *Experiment) analyze(l *log.Entry, id uuid.UUID, sys dynamo.System, tr *dynamo.Trajectory) (*Result, error) {
	l = l.WithFields(log.Fields{
		"steps":    tr.Stats.Accepted,
		"rejected": tr.Stats.Rejected,
		"evals":    tr.Stats.Evaluations,
	})

	period := 0.0
	if f, ok := sys.(physics.Forced); ok {
		period = f.ForcingPeriod()
	}
	dt, err := e.cfg.SampleStep(period)
	if err != nil {
		l.WithError(err).Warn("no sampling interval")
		return nil, err
	}

	s, err := series.Resample(tr, dt)
	if err != nil {
		l.WithError(err).Warn("resampling failed")
		return nil, fmt.Errorf("resample: %w", err)
	}
	theta, err := s.Channel(0)
	if err != nil {
		return nil, err
	}

	opts, err := e.cfg.SpectrumOptions()
	if err != nil {
		return nil, err
	}
	spec, err := analysis.EstimateSpectrum(theta, dt, opts...)
	if err != nil {
		l.WithError(err).Warn("spectral estimate failed")
		return nil, fmt.Errorf("spectrum: %w", err)
	}

	ms := e.registry.DefaultMetrics(sys)
	metrics.ObserveSeries(s.Times, s.States, ms...)
	values := map[string]float64{
		"max_err_norm": tr.MaxErrNorm(),
		"accepted":     float64(tr.Stats.Accepted),
		"rejected":     float64(tr.Stats.Rejected),
		"evaluations":  float64(tr.Stats.Evaluations),
	}
	for _, m := range ms {
		values[m.Name()] = m.Value()
	}
	peakF, peakP := spec.Peak()
	values["peak_freq"] = peakF
	values["peak_power"] = peakP

	var params map[string]float64
	if c, ok := sys.(dynamo.Configurable); ok {
		params = c.Params()
	}

	l.WithFields(log.Fields{
		"samples":   s.Len(),
		"nfft":      spec.NFFT,
		"peak_freq": peakF,
	}).Info("run complete")

	return &Result{
		ID:         id,
		Model:      e.cfg.Model,
		Params:     params,
		Trajectory: tr,
		Series:     s,
		Theta:      theta,
		Spectrum:   spec,
		Metrics:    values,
	}, nil
}

type traceObserver struct {
	log *log.Entry
}

func (o *traceObserver) OnStep(t float64, x dynamo.State, h, errNorm float64) {
	o.log.WithFields(log.Fields{"t": t, "h": h, "err": errNorm}).Trace("step accepted")
}

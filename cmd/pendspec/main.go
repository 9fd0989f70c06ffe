package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/pendspec/internal/analysis"
	"github.com/san-kum/pendspec/internal/config"
	"github.com/san-kum/pendspec/internal/experiment"
	"github.com/san-kum/pendspec/internal/physics"
	"github.com/san-kum/pendspec/internal/series"
)

var (
	logLevel   string
	configFile string
	preset     string
	model      string
	// model coefficients
	q      float64
	forceW float64
	omega0 float64
	beta   float64
	// initial state and span
	theta float64
	v     float64
	tStop float64
	dt    float64
	// integrator
	rtol   float64
	atol   float64
	interp string
	// spectrum
	window  string
	nfft    int
	scaling string
	angular bool
	// sweep
	sweepParam  string
	sweepValues []float64
	sweepMetric string
	workers     int
	// plots
	xAxis    int
	yAxis    int
	maxFreqs float64
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pendspec",
		Short: "parametric pendulum integration and spectral analysis",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			log.SetOutput(os.Stderr)
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (trace, debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "integrate, resample and estimate the spectrum of θ",
		Args:  cobra.NoArgs,
		RunE:  runExperiment,
	}
	addRunFlags(runCmd)
	runCmd.Flags().Float64Var(&maxFreqs, "plot-fraction", 0.25, "fraction of the spectrum to plot")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one integration per parameter value concurrently",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", physics.ParamQ, "parameter to sweep")
	sweepCmd.Flags().Float64SliceVar(&sweepValues, "values", []float64{0, 0.1, 0.2, 0.3}, "parameter values")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "stability", "metric to report the best point for (smallest wins)")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent runs (0 = all CPUs)")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase",
		Short: "phase space plot of the resampled trajectory",
		Args:  cobra.NoArgs,
		RunE:  phasePlot,
	}
	addRunFlags(phaseCmd)
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	sectionCmd := &cobra.Command{
		Use:   "section",
		Short: "stroboscopic section, one sample per forcing period",
		Args:  cobra.NoArgs,
		RunE:  sectionPlot,
	}
	addRunFlags(sectionCmd)

	rootCmd.AddCommand(runCmd, sweepCmd, presetsCmd, phaseCmd, sectionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	p := physics.DefaultParams()
	tol := def.Tolerances

	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&model, "model", def.Model, "model name")
	cmd.Flags().Float64Var(&q, "q", p.Q, "forcing amplitude q")
	cmd.Flags().Float64Var(&forceW, "forcing", p.Omega, "forcing frequency Ω")
	cmd.Flags().Float64Var(&omega0, "omega0", p.Omega0, "natural frequency ω₀")
	cmd.Flags().Float64Var(&beta, "beta", p.Beta, "damping β")
	cmd.Flags().Float64Var(&theta, "theta", def.InitState.Theta, "initial angle")
	cmd.Flags().Float64Var(&v, "v", def.InitState.V, "initial angular velocity")
	cmd.Flags().Float64Var(&tStop, "tstop", def.TStop, "end time")
	cmd.Flags().Float64Var(&dt, "dt", 0, "sample interval (0 = forcing period / steps_per_period)")
	cmd.Flags().Float64Var(&rtol, "rtol", tol.RTol, "relative tolerance")
	cmd.Flags().Float64Var(&atol, "atol", tol.ATol, "absolute tolerance")
	cmd.Flags().StringVar(&interp, "interp", tol.Interpolation, "dense output (dopri, hermite)")
	cmd.Flags().StringVar(&window, "window", def.Spectrum.Window, "spectral window")
	cmd.Flags().IntVar(&nfft, "nfft", 0, "fft length (0 = signal length)")
	cmd.Flags().StringVar(&scaling, "scaling", def.Spectrum.Scaling, "spectrum or density")
	cmd.Flags().BoolVar(&angular, "angular", false, "report frequencies in rad/s")
}

// buildConfig layers defaults, preset, config file and explicitly set flags,
// in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	setParam := func(flag, name string, val float64) {
		if !f.Changed(flag) {
			return
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[name] = val
	}
	setParam("q", physics.ParamQ, q)
	setParam("forcing", physics.ParamOmega, forceW)
	setParam("omega0", physics.ParamOmega0, omega0)
	setParam("beta", physics.ParamBeta, beta)

	if f.Changed("model") {
		cfg.Model = model
	}
	if f.Changed("theta") {
		cfg.InitState.Theta = theta
	}
	if f.Changed("v") {
		cfg.InitState.V = v
	}
	if f.Changed("tstop") {
		cfg.TStop = tStop
	}
	if f.Changed("dt") {
		cfg.SampleDt = dt
	}
	if f.Changed("rtol") {
		cfg.Tolerances.RTol = rtol
	}
	if f.Changed("atol") {
		cfg.Tolerances.ATol = atol
	}
	if f.Changed("interp") {
		cfg.Tolerances.Interpolation = interp
	}
	if f.Changed("window") {
		cfg.Spectrum.Window = window
	}
	if f.Changed("nfft") {
		cfg.Spectrum.NFFT = nfft
	}
	if f.Changed("scaling") {
		cfg.Spectrum.Scaling = scaling
	}
	if f.Changed("angular") {
		cfg.Spectrum.Angular = angular
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}

	return cfg, cfg.Validate()
}

func runOnce(cmd *cobra.Command) (*experiment.Result, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return experiment.New(cfg).Run(ctx)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	res, err := runOnce(cmd)
	if err != nil {
		return err
	}

	printSummary(res)

	graph := asciigraph.Plot(res.Theta,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("θ(t)"),
	)
	fmt.Println(graph)
	fmt.Println()

	spec := res.Spectrum
	cut := int(float64(len(spec.Power)) * maxFreqs)
	if cut < 2 {
		cut = len(spec.Power)
	}
	graph = asciigraph.Plot(spec.Power[:cut],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum of θ (%s window, %s scaling)", spec.Window, spec.Scaling)),
	)
	fmt.Println(graph)
	fmt.Println()

	unit := "hz"
	if spec.Angular {
		unit = "rad/s"
	}
	f, p := spec.Peak()
	fmt.Printf("%s %.4f %s (power %.4g)\n", labelStyle.Render("dominant frequency:"), f, unit, p)
	fmt.Printf("%s %.4f %s\n", labelStyle.Render("resolution:"), spec.Resolution, unit)
	return nil
}

func printSummary(res *experiment.Result) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("%s  %s", res.Model, res.ID)))

	names := make([]string, 0, len(res.Params))
	for name := range res.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s %s\n", labelStyle.Render(name+":"), valueStyle.Render(fmt.Sprintf("%g", res.Params[name])))
	}

	tr := res.Trajectory
	fmt.Printf("  %s %s in %v\n", labelStyle.Render("status:"), valueStyle.Render(tr.Status.String()), res.Elapsed)
	fmt.Printf("  %s %d accepted, %d rejected, %d evaluations\n",
		labelStyle.Render("steps:"), tr.Stats.Accepted, tr.Stats.Rejected, tr.Stats.Evaluations)
	fmt.Printf("  %s %d at dt=%.6g\n", labelStyle.Render("samples:"), res.Series.Len(), res.Series.Dt)
	if res.Metrics["energy_drift"] > 1e-3 {
		fmt.Printf("  %s\n", warnStyle.Render(fmt.Sprintf("energy drift %.3g (forced or damped)", res.Metrics["energy_drift"])))
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	keys := make([]string, 0, len(res.Metrics))
	for k := range res.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%.6g\n", k, res.Metrics[k])
	}
	w.Flush()
	fmt.Println()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	sweep, err := experiment.NewSweep(experiment.New(cfg), []string{sweepParam}, [][]float64{sweepValues})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := sweep.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("sweep over %s (%d points)", sweepParam, len(results))))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tSTEPS\tREJECTED\tPEAK FREQ\tPEAK POWER\tSTABILITY\tENERGY DRIFT")
	for i, r := range results {
		fmt.Fprintf(w, "%g\t%.0f\t%.0f\t%.4f\t%.4g\t%.3f\t%.3g\n",
			sweepValues[i],
			r.Metrics["accepted"],
			r.Metrics["rejected"],
			r.Metrics["peak_freq"],
			r.Metrics["peak_power"],
			r.Metrics["stability"],
			r.Metrics["energy_drift"],
		)
	}
	w.Flush()

	if best, val := experiment.Best(results, sweepMetric); best != nil {
		fmt.Printf("\n%s %s=%g (%s %.6g)\n", labelStyle.Render("best:"), sweepParam, best.Params[sweepParam], sweepMetric, val)
	}
	return nil
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}

	fmt.Println("presets:")
	for _, p := range config.ListPresets() {
		fmt.Printf("  %s\n", p)
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	res, err := runOnce(cmd)
	if err != nil {
		return err
	}

	portrait, err := analysis.PhasePortrait(res.Series, xAxis, yAxis)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("phase portrait: %s", res.Model)))
	fmt.Printf("x-axis: state[%d], y-axis: state[%d]\n\n", xAxis, yAxis)
	fmt.Print(analysis.PhasePortraitToASCII(portrait, 70, 25))
	return nil
}

func sectionPlot(cmd *cobra.Command, args []string) error {
	res, err := runOnce(cmd)
	if err != nil {
		return err
	}

	sys, err := experiment.NewRegistry().GetModel(res.Model, res.Params)
	if err != nil {
		return err
	}
	forced, ok := sys.(physics.Forced)
	if !ok || forced.ForcingPeriod() == 0 {
		return fmt.Errorf("model %s has no forcing period", res.Model)
	}
	period := forced.ForcingPeriod()

	section, err := series.Stroboscopic(res.Trajectory, period, 0)
	if err != nil {
		return err
	}
	portrait, err := analysis.PhasePortrait(section, 0, 1)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("stroboscopic section: %s", res.Model)))
	fmt.Printf("period %.4f, %d samples\n\n", period, section.Len())
	fmt.Print(analysis.PhasePortraitToASCII(portrait, 70, 25))

	lo, hi, err := section.Range(0)
	if err == nil {
		fmt.Printf("\nθ range [%.4f, %.4f], spread %.4g\n", lo, hi, math.Abs(hi-lo))
	}
	return nil
}

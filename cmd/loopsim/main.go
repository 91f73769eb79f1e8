package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/san-kum/loopsim/internal/analysis"
	"github.com/san-kum/loopsim/internal/automation"
	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/experiment"
	"github.com/san-kum/loopsim/internal/export"
	"github.com/san-kum/loopsim/internal/optim"
	"github.com/san-kum/loopsim/internal/run"
	"github.com/san-kum/loopsim/internal/sim"
	"github.com/san-kum/loopsim/internal/storage"
	"github.com/san-kum/loopsim/internal/ui"
	"github.com/san-kum/loopsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	verbose    bool
	noColor    bool
	preset     string
	plantName  string
	integrator string
	controller string
	dt         float64
	duration   float64
	setpoint   float64
	inputMode  string
	kp         float64
	ki         float64
	kd         float64
	deadTime   float64
	// Tuning
	ruleName  string
	relayAmp  float64
	estimator string
	// Output
	runName    string
	showOutput bool
	plotWidth  int
	plotHeight int
	specWidth  int
	specHeight int
	// Search
	kpRange string
	kiRange string
	kdRange string
	metric  string
	workers int
	// Sweeps
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepSteps  int
	mcParams    []string
	mcSpread    float64
	mcTrials    int
	mcSeed      int64
	themeName   string
	windowName  string
	csvFileName string
	svgFileName string
	svgOutput   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "loopsim",
		Short:         "closed-loop PID simulator with relay auto-tuning",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetDebugEnabled(verbose)
			if noColor {
				pterm.DisableColor()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			if err := st.Init(); err != nil {
				return err
			}
			return viz.RunInteractive(experiment.NewRegistry(), saveFunc(st))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultStoreDir, "run store directory")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a closed-loop simulation and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().StringVarP(&runName, "name", "n", "", "run name (default plant and timestamp)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "relay auto-tune the PID, then run with the new gains",
		Args:  cobra.NoArgs,
		RunE:  tuneController,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().StringVarP(&runName, "name", "n", "", "save the verification run under this name")
	tuneCmd.Flags().StringVar(&ruleName, "rule", "", "tuning rule: classic-zn, some-overshoot, no-overshoot")
	tuneCmd.Flags().Float64Var(&relayAmp, "relay", 0, "relay amplitude")
	tuneCmd.Flags().StringVar(&estimator, "estimator", "", "amplitude estimator: crossing, peak")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [name]",
		Short: "show parameters and metrics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	renameCmd := &cobra.Command{
		Use:   "rename [old] [new]",
		Short: "rename a saved run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.New(dataDir).Rename(args[0], args[1]); err != nil {
				return err
			}
			ui.Success("Renamed %q to %q", args[0], args[1])
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := storage.New(dataDir).Delete(args[0]); err != nil {
				return err
			}
			ui.Success("Deleted %q", args[0])
			return nil
		},
	}

	plotCmd := &cobra.Command{
		Use:   "plot [name]",
		Short: "plot PV and setpoint of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVarP(&showOutput, "output", "o", false, "also plot controller output")
	plotCmd.Flags().IntVar(&plotWidth, "width", 70, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 15, "plot height")
	plotCmd.Flags().StringVar(&themeName, "theme", "", "color theme")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [name]",
		Short: "frequency analysis of a run's PV",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&windowName, "window", "hann", "window: hann, none")
	analyzeCmd.Flags().IntVar(&specWidth, "width", 70, "plot width")
	analyzeCmd.Flags().IntVar(&specHeight, "height", 12, "plot height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [name]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&csvFileName, "file", "f", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [name]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.SetOutput(os.Stderr)
			r, err := storage.New(dataDir).Load(args[0])
			if err != nil {
				return err
			}
			return storage.ExportJSON(os.Stdout, r)
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [name]",
		Short: "render a run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&svgFileName, "file", "f", "", "output file (default <name>.svg)")
	exportSVGCmd.Flags().BoolVarP(&svgOutput, "output", "o", false, "include controller output")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "step the loop live in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().StringVar(&ruleName, "rule", "", "tuning rule for the a key")
	liveCmd.Flags().StringVar(&themeName, "theme", "", "color theme")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search PID gains",
		Long:  "Grid search PID gains. Ranges are lo:hi:n, e.g. --kp-range 0.5:5:10.",
		Args:  cobra.NoArgs,
		RunE:  gridSearch,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&kpRange, "kp-range", "", "Kp range lo:hi:n")
	sweepCmd.Flags().StringVar(&kiRange, "ki-range", "", "Ki range lo:hi:n")
	sweepCmd.Flags().StringVar(&kdRange, "kd-range", "", "Kd range lo:hi:n")
	sweepCmd.Flags().StringVarP(&metric, "metric", "m", "iae", "metric to minimise")
	sweepCmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel simulations (default CPUs)")

	varyCmd := &cobra.Command{
		Use:   "vary",
		Short: "sweep one parameter and tabulate the response",
		Args:  cobra.NoArgs,
		RunE:  varyParameter,
	}
	addSimFlags(varyCmd)
	varyCmd.Flags().StringVar(&sweepParam, "param", "kp", "parameter key")
	varyCmd.Flags().Float64Var(&sweepMin, "from", 0.5, "first value")
	varyCmd.Flags().Float64Var(&sweepMax, "to", 5, "last value")
	varyCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "check gains against perturbed plant parameters",
		Args:  cobra.NoArgs,
		RunE:  monteCarlo,
	}
	addSimFlags(monteCarloCmd)
	monteCarloCmd.Flags().StringSliceVar(&mcParams, "params", []string{"time_constant", "gain"}, "parameters to perturb")
	monteCarloCmd.Flags().Float64Var(&mcSpread, "spread", 0.2, "relative perturbation")
	monteCarloCmd.Flags().IntVar(&mcTrials, "trials", 50, "number of trials")
	monteCarloCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (0 uses the clock)")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [group]",
		Short: "list configuration presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups := config.ListGroups()
			if len(args) > 0 {
				groups = args
			}
			var rows [][]string
			for _, g := range groups {
				names := config.ListPresets(g)
				if len(names) == 0 {
					return fmt.Errorf("unknown preset group: %s (available: %v)", g, config.ListGroups())
				}
				for _, n := range names {
					c := config.GetPreset(g, n)
					rows = append(rows, []string{g + "/" + n, c.Plant, formatParams(plantParams(c)), fmt.Sprintf("%.0fs", c.Duration)})
				}
			}
			return ui.Table([]string{"PRESET", "PLANT", "PARAMS", "DURATION"}, rows)
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write the resolved configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			ui.Success("Wrote %s", args[0])
			return nil
		},
	}
	addSimFlags(initCmd)

	rootCmd.AddCommand(runCmd, tuneCmd, listCmd, showCmd, renameCmd, deleteCmd, plotCmd, analyzeCmd,
		exportCSVCmd, exportJSONCmd, exportSVGCmd, liveCmd, sweepCmd, varyCmd, monteCarloCmd, scenarioCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&preset, "preset", "p", "", "preset group/name, e.g. second_order/underdamped")
	f.StringVar(&plantName, "plant", "", "plant: first_order, second_order, tank")
	f.StringVar(&integrator, "integrator", "", "integrator: euler, rk4")
	f.StringVar(&controller, "controller", "", "controller: pid, open_loop, none")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.Float64VarP(&duration, "time", "t", config.DefaultDuration, "simulation duration")
	f.Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "setpoint")
	f.StringVar(&inputMode, "input", "step", "setpoint input: step, sine")
	f.Float64Var(&kp, "kp", 0, "proportional gain")
	f.Float64Var(&ki, "ki", 0, "integral gain")
	f.Float64Var(&kd, "kd", 0, "derivative gain")
	f.Float64Var(&deadTime, "dead-time", 0, "transport delay in seconds")
}

// loadConfig resolves defaults, then the preset, then the config file, then
// any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		group, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset %q: want group/name", preset)
		}
		if cfg = config.GetPreset(group, name); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(group))
		}
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg
	}

	flags := cmd.Flags()
	changed := func(name string) bool {
		return flags.Lookup(name) != nil && flags.Changed(name)
	}
	if changed("plant") {
		cfg.Plant = plantName
	}
	if changed("integrator") {
		cfg.Integrator = integrator
	}
	if changed("controller") {
		cfg.Controller = controller
	}
	if changed("dt") {
		cfg.Dt = dt
	}
	if changed("time") {
		cfg.Duration = duration
	}
	if changed("setpoint") {
		cfg.Input.Setpoint = setpoint
	}
	if changed("input") {
		cfg.Input.Mode = inputMode
	}
	if changed("kp") {
		cfg.ControllerParams.Kp = kp
	}
	if changed("ki") {
		cfg.ControllerParams.Ki = ki
	}
	if changed("kd") {
		cfg.ControllerParams.Kd = kd
	}
	if changed("dead-time") {
		cfg.PlantParams.DeadTime = deadTime
	}
	if changed("rule") {
		cfg.Tuning.Rule = ruleName
	}
	if changed("relay") {
		cfg.Tuning.RelayAmplitude = relayAmp
	}
	if changed("estimator") {
		cfg.Tuning.Estimator = estimator
	}
	if changed("theme") {
		viz.SetTheme(themeName)
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func defaultRunName(plant string) string {
	return fmt.Sprintf("%s-%s", plant, time.Now().Format("20060102-150405"))
}

func saveFunc(st *storage.Store) viz.SaveFunc {
	return func(res *sim.Result) (string, error) {
		r, err := res.Capture(defaultRunName(res.Plant))
		if err != nil {
			return "", err
		}
		if err := st.Save(r); err != nil {
			return "", err
		}
		return r.Name(), nil
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.NewRegistry())
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	ui.Info("Running %s with %s...", cfg.Plant, cfg.Controller)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	return captureAndSave(st, result, runName, elapsed)
}

func captureAndSave(st *storage.Store, result *sim.Result, name string, elapsed time.Duration) error {
	if name == "" {
		name = defaultRunName(result.Plant)
	}
	r, err := result.Capture(name)
	if err != nil {
		return err
	}
	if err := st.Save(r); err != nil {
		return err
	}

	ui.Success("Saved run %q in %v (%d steps)", r.Name(), elapsed.Round(time.Millisecond), result.StepsTaken)
	return printMetrics(r)
}

func tuneController(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Controller != "pid" {
		return fmt.Errorf("auto-tune needs the pid controller, got %q", cfg.Controller)
	}
	rule, err := cfg.Rule()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.NewRegistry())
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	ui.Info("Relay test on %s at setpoint %g (%s)...", cfg.Plant, cfg.Input.Setpoint, rule)
	tuned, err := exp.Tune(ctx)
	if err != nil {
		return err
	}
	tr := tuned.Tune
	if tr == nil {
		return errors.New("auto-tune produced no result")
	}
	if !tr.Success {
		return fmt.Errorf("auto-tune failed after %.2fs: %s", float64(tuned.StepsTaken)*cfg.Dt, tr.Message)
	}

	ui.Success("%s", tr.Message)
	if err := ui.Table([]string{"KU", "TU", "KP", "KI", "KD"}, [][]string{{
		formatFloat(tr.Ku), formatFloat(tr.Tu),
		formatFloat(tr.Gains.Kp), formatFloat(tr.Gains.Ki), formatFloat(tr.Gains.Kd),
	}}); err != nil {
		return err
	}

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	if runName == "" {
		ui.Printfln("%s", result.Performance())
		return nil
	}
	return captureAndSave(st, result, runName, 0)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		m := r.Metrics()
		rows = append(rows, []string{
			r.Name(),
			r.Plant(),
			r.Algorithm(),
			r.CreatedAt().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.Len()),
			formatFloat(m.IAE),
			fmt.Sprintf("%.2f%%", m.Overshoot),
		})
	}
	return ui.Table([]string{"NAME", "PLANT", "ALGORITHM", "CREATED", "SAMPLES", "IAE", "OVERSHOOT"}, rows)
}

func showRun(cmd *cobra.Command, args []string) error {
	r, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}

	ui.Section(r.Name())
	ui.Printfln("plant:     %s", r.Plant())
	ui.Printfln("algorithm: %s", r.Algorithm())
	ui.Printfln("created:   %s", r.CreatedAt().Format(time.RFC3339))
	ui.Printfln("samples:   %d", r.Len())
	ui.Printfln("params:    %s", formatParams(r.Parameters()))
	if extras := r.Extras(); len(extras) > 0 {
		ui.Printfln("extras:    %s", formatParams(extras))
	}
	return printMetrics(r)
}

func printMetrics(r *run.SimulationRun) error {
	m := r.Metrics()
	return ui.Table([]string{"RISE TIME", "OVERSHOOT", "SETTLING TIME", "IAE"}, [][]string{{
		fmt.Sprintf("%.2fs", m.RiseTime),
		fmt.Sprintf("%.2f%%", m.Overshoot),
		fmt.Sprintf("%.2fs", m.SettlingTime),
		formatFloat(m.IAE),
	}})
}

func plotRun(cmd *cobra.Command, args []string) error {
	if themeName != "" {
		viz.SetTheme(themeName)
	}
	r, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	opts := viz.PlotOptions{Width: plotWidth, Height: plotHeight, Output: showOutput}
	fmt.Print(viz.PlotRun(r, opts))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	r, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	if r.Len() < 2 {
		return fmt.Errorf("run %q has too few samples", r.Name())
	}

	var w analysis.Window
	switch windowName {
	case "hann":
		w = analysis.Hann
	case "none", "":
		w = analysis.NoWindow
	default:
		return fmt.Errorf("unknown window: %s", windowName)
	}

	samples := r.Samples()
	step := samples[1].Time - samples[0].Time
	pv := r.Series(func(p run.DataPoint) float64 { return p.PV })

	ps, err := analysis.Spectrum(pv, step, w)
	if err != nil {
		return err
	}

	ui.Section("Frequency analysis: " + r.Name())
	fmt.Print(viz.PlotSpectrum(ps, viz.PlotOptions{Width: specWidth, Height: specHeight}))

	freq, mag := ps.Dominant()
	ui.Printfln("window: %d samples, resolution %.4f Hz", ps.N, ps.Resolution())
	ui.Printfln("dominant frequency: %.4f Hz (magnitude %.4f)", freq, mag)
	if freq > 0 {
		ui.Printfln("period: %.3f s", 1/freq)
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	r, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}

	if csvFileName == "" {
		ui.SetOutput(os.Stderr)
		return storage.ExportCSV(os.Stdout, r)
	}

	f, err := os.Create(csvFileName)
	if err != nil {
		return err
	}
	if err := storage.ExportCSV(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	ui.Success("Exported %d samples to %s", r.Len(), csvFileName)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	r, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}

	path := svgFileName
	if path == "" {
		path = r.Name() + ".svg"
	}
	opts := export.DefaultSVGOptions()
	opts.Output = svgOutput

	var buf bytes.Buffer
	if err := export.RunToSVG(&buf, r, opts); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return err
	}
	ui.Success("Wrote %s", path)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	simCfg, err := cfg.SimConfig()
	if err != nil {
		return err
	}
	rule, err := cfg.Rule()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	s, err := experiment.New(cfg, experiment.NewRegistry()).Build()
	if err != nil {
		return err
	}

	m, err := viz.NewLiveModel(s, simCfg, rule, saveFunc(st))
	if err != nil {
		return err
	}
	return viz.RunLive(m)
}

func gridSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	simCfg, err := cfg.SimConfig()
	if err != nil {
		return err
	}

	var names []string
	var ranges [][]float64
	for _, p := range []struct{ name, arg string }{{"kp", kpRange}, {"ki", kiRange}, {"kd", kdRange}} {
		if p.arg == "" {
			continue
		}
		values, err := parseRange(p.arg)
		if err != nil {
			return fmt.Errorf("--%s-range: %w", p.name, err)
		}
		names = append(names, p.name)
		ranges = append(ranges, values)
	}
	if len(names) == 0 {
		return errors.New("give at least one of --kp-range, --ki-range, --kd-range")
	}

	reg := experiment.NewRegistry()
	build := func(params map[string]float64) (*sim.Simulator, error) {
		c := cfg.Clone()
		for k, v := range params {
			if err := c.Set(k, v); err != nil {
				return nil, err
			}
		}
		return experiment.New(c, reg).Build()
	}

	ctx, cancel := signalContext()
	defer cancel()

	gs := optim.NewGridSearch(names, ranges).WithWorkers(workers)
	spinner, _ := pterm.DefaultSpinner.Start("Searching...")
	evals, err := gs.Evaluate(ctx, build, simCfg, metric)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	sort.SliceStable(evals, func(i, j int) bool { return evals[i].Score < evals[j].Score })
	if len(evals) == 0 || math.IsInf(evals[0].Score, 1) {
		return optim.ErrNoCandidates
	}

	rows := make([][]string, 0, 10)
	for i, e := range evals {
		if i == 10 {
			break
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), formatParams(e.Params), formatFloat(e.Score)})
	}
	ui.Success("Best %s: %s with %s", metric, formatFloat(evals[0].Score), formatParams(evals[0].Params))
	return ui.Table([]string{"#", "PARAMS", strings.ToUpper(metric)}, rows)
}

func varyParameter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	}, experiment.NewRegistry())
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			formatFloat(r.ParamValue),
			fmt.Sprintf("%.2fs", r.Metrics.RiseTime),
			fmt.Sprintf("%.2f%%", r.Metrics.Overshoot),
			fmt.Sprintf("%.2fs", r.Metrics.SettlingTime),
			formatFloat(r.Metrics.IAE),
			formatFloat(r.FinalPV),
		})
	}
	return ui.Table([]string{strings.ToUpper(sweepParam), "RISE", "OVERSHOOT", "SETTLING", "IAE", "FINAL PV"}, rows)
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Params:       mcParams,
		Perturbation: mcSpread,
		NumTrials:    mcTrials,
		Seed:         mcSeed,
	}, experiment.NewRegistry())
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	var worst automation.MonteCarloResult
	for _, r := range results {
		if r.Stable && r.Metrics.IAE > worst.Metrics.IAE {
			worst = r
		}
	}

	ui.Section("Monte Carlo")
	ui.Printfln("trials:   %d", len(results))
	ui.Printfln("stable:   %d", stable)
	ui.Printfln("unstable: %d", unstable)
	if stable > 0 {
		ui.Printfln("worst stable IAE: %s at %s", formatFloat(worst.Metrics.IAE), formatParams(worst.Params))
	}
	if unstable > 0 {
		ui.Warning("%d of %d trials diverged", unstable, len(results))
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	ui.Section(sc.Name)
	if sc.Description != "" {
		ui.Printfln("%s", sc.Description)
	}
	results, err := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		tune := "-"
		if r.Tune != nil && r.Tune.Success {
			tune = fmt.Sprintf("Ku=%.3g Tu=%.3g", r.Tune.Ku, r.Tune.Tu)
		}
		m := r.Run.Metrics()
		rows = append(rows, []string{r.Name, tune, formatFloat(m.IAE), fmt.Sprintf("%.2f%%", m.Overshoot), fmt.Sprintf("%.2fs", m.SettlingTime)})
	}
	return ui.Table([]string{"STEP", "TUNE", "IAE", "OVERSHOOT", "SETTLING"}, rows)
}

func parseRange(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("range %q: want lo:hi:n", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, err
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, err
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("range %q: n must be positive", s)
	}
	return optim.Linspace(lo, hi, n), nil
}

func plantParams(c *config.Config) map[string]float64 {
	p := c.PlantParams
	var m map[string]float64
	switch c.Plant {
	case "second_order":
		m = map[string]float64{"wn": p.Wn, "zeta": p.Zeta, "gain": p.Gain}
	case "tank":
		m = map[string]float64{"area": p.Area, "inflow_k": p.InflowK, "discharge": p.Discharge}
	default:
		m = map[string]float64{"time_constant": p.TimeConstant, "gain": p.Gain}
	}
	if p.DeadTime > 0 {
		m["dead_time"] = p.DeadTime
	}
	return m
}

func formatParams(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, formatFloat(m[k]))
	}
	return strings.Join(parts, " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}

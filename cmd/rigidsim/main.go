package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"

	"github.com/san-kum/rigidsim/internal/analysis"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/dynamo"
	"github.com/san-kum/rigidsim/internal/export"
	"github.com/san-kum/rigidsim/internal/logging"
	"github.com/san-kum/rigidsim/internal/multibody"
	"github.com/san-kum/rigidsim/internal/sim"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/tui"
)

var (
	dataDir string
	verbose bool
	logger  *zap.SugaredLogger

	configFile    string
	dt            float64
	steps         int
	integrator    string
	noRenormalize bool
	noLog         bool
	watch         bool
	frameRate     int

	column  string
	bodyArg string
	plane   string

	compareWorkers int
	benchWorkers   int
	phase   bool
	outFile string
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rigidsim",
		Short:         "rigid multibody dynamics simulator",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.NewLogger("rigidsim", verbose)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive("", logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a preset or scenario file and save the trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	runCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	runCmd.Flags().BoolVar(&noRenormalize, "no-renormalize", false, "hold quaternion norm by the constraint rows only")
	runCmd.Flags().BoolVar(&noLog, "no-log", false, "do not keep the snapshot log")
	runCmd.Flags().BoolVar(&watch, "watch", false, "draw the system while solving")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --watch")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a body's position over time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&bodyArg, "body", "", "body to plot (default: last body)")
	plotCmd.Flags().StringVar(&column, "column", "", "single column to plot, e.g. b1.y_d")
	plotCmd.Flags().StringVarP(&outFile, "out", "o", "", "write an image instead (format from extension)")
	plotCmd.Flags().StringVar(&plane, "plane", "xy", "projection plane for body paths with --out")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run trajectory to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of one trajectory column",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "", "column to analyze (default: last body's y)")
	analyzeCmd.Flags().BoolVar(&phase, "phase", false, "also draw the column against its rate")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "interactive live view",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset := ""
			if len(args) > 0 {
				preset = args[0]
			}
			return tui.RunInteractive(preset, logger)
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "benchmark a preset at several timesteps",
		Args:  cobra.ExactArgs(1),
		RunE:  benchPreset,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same preset",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	compareCmd.Flags().IntVar(&steps, "steps", 0, "number of steps (default: the preset's)")
	compareCmd.Flags().IntVar(&compareWorkers, "workers", 0, "concurrent runs (default: one per CPU)")
	benchCmd.Flags().IntVar(&benchWorkers, "workers", 1, "concurrent runs")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportJSONCmd,
		analyzeCmd, presetsCmd, liveCmd, benchCmd, compareCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadScenario resolves the preset argument and --config file, the file
// taking precedence, then applies any flags that were set explicitly.
func loadScenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	if len(args) > 0 {
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", args[0], strings.Join(config.ListPresets(), ", "))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cfg == nil {
		return nil, fmt.Errorf("need a preset or --config")
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("no-renormalize") {
		on := !noRenormalize
		cfg.Renormalize = &on
	}
	if flags.Changed("no-log") {
		on := !noLog
		cfg.Log = &on
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	sys, err := config.Build(cfg, logger)
	if err != nil {
		return err
	}

	if watch {
		r := tui.NewLiveRenderer(sys, os.Stdout, frameRate)
		sys.AddObserver(r)
		r.Start()
		defer r.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Println(titleStyle.Render(fmt.Sprintf("running %s", cfg.Name)))
	start := time.Now()
	result, runErr := sys.Solve(ctx, cfg.Steps)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	runID, err := st.Save(storage.RunMetadata{
		Scenario:    cfg.Name,
		Dt:          sys.Dt,
		Integrator:  sys.Integrator().Name(),
		Renormalize: cfg.RenormalizeEnabled(),
		Bodies:      bodyNames(sys),
	}, result)
	if err != nil {
		return err
	}

	printSummary(os.Stdout, runID, elapsed, result.StepsTaken, result.EnergyDrift, result.Metrics)
	if runErr != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("stopped early: %v", runErr)))
	}
	return runErr
}

func bodyNames(sys *multibody.System) []string {
	names := make([]string, len(sys.Bodies()))
	for i, b := range sys.Bodies() {
		names[i] = b.Name
	}
	return names
}

func printSummary(w io.Writer, runID string, elapsed time.Duration, steps int, drift float64, metrics map[string]float64) {
	row := func(label, value string) {
		fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-16s", label)), valueStyle.Render(value))
	}
	row("run id", runID)
	row("completed in", elapsed.String())
	row("steps", fmt.Sprintf("%d", steps))
	row("energy drift", fmt.Sprintf("%.3e", drift))

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, titleStyle.Render("metrics"))
	for _, name := range names {
		row(name, fmt.Sprintf("%.6g", metrics[name]))
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tSTEPS\tDT\tINTEG\tBODIES\tDRIFT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%s\t%d\t%.2e\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Integrator,
			len(run.Bodies),
			run.EnergyDrift,
		)
	}
	return w.Flush()
}

// columnIndex finds a named column in a run's trajectory layout.
func columnIndex(meta *storage.RunMetadata, name string) (int, error) {
	for i, h := range storage.Header(meta.Bodies) {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("run %s has no column %q", meta.ID, name)
}

func loadRun(runID string) (*storage.RunMetadata, []dynamo.State, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 || len(meta.Bodies) == 0 {
		return nil, nil, fmt.Errorf("run %s has no trajectory", runID)
	}
	return meta, rows, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	meta, rows, err := loadRun(runID)
	if err != nil {
		return err
	}

	if outFile != "" {
		return plotImage(meta, rows)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(rows))

	names := []string{column}
	if column == "" {
		b := bodyArg
		if b == "" {
			b = meta.Bodies[len(meta.Bodies)-1]
		}
		names = []string{b + ".x", b + ".y", b + ".z"}
	}

	for _, name := range names {
		col, err := columnIndex(meta, name)
		if err != nil {
			return err
		}
		data, err := analysis.Column(rows, col)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

// plotImage writes a single column against time, or every body's path
// projected on --plane, to --out.
func plotImage(meta *storage.RunMetadata, rows []dynamo.State) error {
	var (
		p   *plot.Plot
		err error
	)
	if column != "" {
		col, cerr := columnIndex(meta, column)
		if cerr != nil {
			return cerr
		}
		p, err = export.Series(rows, col, column, meta.ID)
	} else {
		p, err = export.Paths(rows, meta.Bodies, plane, meta.ID)
	}
	if err != nil {
		return err
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.Write(p, f, export.FormatOf(outFile), 8, 6); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// output returns stdout, or the --out file.
func output() (io.WriteCloser, error) {
	if outFile == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(outFile)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportCSV(cmd *cobra.Command, args []string) error {
	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.New(dataDir).ExportCSV(args[0], w)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, err := output()
	if err != nil {
		return err
	}
	defer w.Close()
	return storage.New(dataDir).ExportJSON(args[0], w)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, rows, err := loadRun(args[0])
	if err != nil {
		return err
	}

	name := column
	if name == "" {
		name = meta.Bodies[len(meta.Bodies)-1] + ".y"
	}
	col, err := columnIndex(meta, name)
	if err != nil {
		return err
	}
	data, err := analysis.Column(rows, col)
	if err != nil {
		return err
	}
	spec, err := analysis.PowerSpectrum(data, meta.Dt)
	if err != nil {
		return err
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n\n", meta.Scenario)

	plotData := spec.Power[:max(2, len(spec.Power)/4)]
	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", name)),
	)
	fmt.Println(graph)
	fmt.Println()

	freq := spec.Dominant()
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	times, err := analysis.Crossings(rows, col, stat.Mean(data, nil))
	if err != nil {
		return err
	}
	fmt.Printf("upward mean crossings: %d\n", len(times))
	if len(times) > 1 {
		fmt.Printf("mean crossing period: %.3f s\n", (times[len(times)-1]-times[0])/float64(len(times)-1))
	}

	if phase {
		rate, err := columnIndex(meta, name+"_d")
		if err != nil {
			return err
		}
		portrait, err := analysis.PhasePortrait(rows, col, rate)
		if err != nil {
			return err
		}
		art, err := portrait.ASCII(70, 20)
		if err != nil {
			return err
		}
		fmt.Printf("\nphase portrait: %s against %s_d\n\n%s", name, name, art)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tBODIES\tJOINTS\tDT\tSTEPS")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		kinds := make([]string, len(cfg.Joints))
		for i, j := range cfg.Joints {
			kinds[i] = j.Type
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%g\t%d\n", name, len(cfg.Bodies), strings.Join(kinds, ","), cfg.Dt, cfg.Steps)
	}
	return w.Flush()
}

func benchPreset(cmd *cobra.Command, args []string) error {
	if config.GetPreset(args[0]) == nil {
		return fmt.Errorf("unknown preset: %s", args[0])
	}

	const simulated = 0.2
	dts := []float64{1e-3, 5e-4, 2e-4}

	e := sim.NewEnsemble(logger, benchWorkers)
	for _, stepDt := range dts {
		cfg := config.GetPreset(args[0])
		cfg.Dt = stepDt
		cfg.Steps = int(simulated / stepDt)
		off := false
		cfg.Log = &off
		e.Add(fmt.Sprintf("%g", stepDt), cfg)
	}

	fmt.Printf("benchmarking %s (%gs simulated)\n\n", args[0], simulated)
	outcomes, err := e.Run(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tTIME\tSTEPS/SEC\tGAP")
	for _, out := range outcomes {
		if out.Err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", out.Label, out.Err)
			continue
		}
		n := out.Result.StepsTaken
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\t%.2e\n",
			out.Label, n, out.Elapsed, float64(n)/out.Elapsed.Seconds(), out.Result.Metrics["constraint_gap"])
	}
	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	preset := args[0]
	if config.GetPreset(preset) == nil {
		return fmt.Errorf("unknown preset: %s", preset)
	}

	e := sim.NewEnsemble(logger, compareWorkers)
	for _, name := range args[1:] {
		cfg := config.GetPreset(preset)
		cfg.Integrator = name
		off := false
		cfg.Log = &off
		if steps > 0 {
			cfg.Steps = steps
		}
		e.Add(name, cfg)
	}

	outcomes, err := e.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("comparing integrators for %s\n\n", preset)
	fmt.Printf("%-12s  %-12s  %-12s  %-12s\n", "integrator", "energy_drift", "gap", "time_ms")
	fmt.Println(strings.Repeat("-", 54))
	for _, out := range outcomes {
		if out.Err != nil {
			fmt.Printf("%-12s  error: %v\n", out.Label, out.Err)
			continue
		}
		fmt.Printf("%-12s  %12.2e  %12.2e  %12.2f\n",
			out.Label, out.Result.EnergyDrift, out.Result.Metrics["constraint_gap"], float64(out.Elapsed.Microseconds())/1000)
	}
	return nil
}

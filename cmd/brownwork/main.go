package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/brownwork/internal/config"
	"github.com/san-kum/brownwork/internal/dataset"
	"github.com/san-kum/brownwork/internal/dynamo"
	"github.com/san-kum/brownwork/internal/metrics"
	"github.com/san-kum/brownwork/internal/storage"
	"github.com/san-kum/brownwork/internal/viz"
)

var (
	dataDir  string
	logLevel string

	k         float64
	beta      float64
	gamma     float64
	steps     int
	dt        float64
	lambda    float64
	samples   int
	seed      int64
	workers   int
	batchSize int
	out       string

	configFile   string
	preset       string
	showProgress bool

	bins   int
	width  int
	height int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "brownwork",
		Short:         "work datasets for a dragged Brownian particle",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %s", logLevel)
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".brownwork", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "generate a forward/backward work dataset",
		Args:  cobra.NoArgs,
		RunE:  runGenerate,
	}
	defaults := config.DefaultConfig()
	generateCmd.Flags().Float64Var(&k, "k", defaults.Physics.K, "trap stiffness")
	generateCmd.Flags().Float64Var(&beta, "beta", defaults.Physics.Beta, "inverse temperature")
	generateCmd.Flags().Float64Var(&gamma, "gamma", defaults.Physics.Gamma, "friction coefficient")
	generateCmd.Flags().IntVar(&steps, "steps", defaults.Steps, "integration steps per trajectory")
	generateCmd.Flags().Float64Var(&dt, "dt", defaults.Dt, "time increment")
	generateCmd.Flags().Float64Var(&lambda, "lambda", defaults.Displacement, "total trap displacement")
	generateCmd.Flags().IntVar(&samples, "samples", defaults.Samples, "trajectories per direction")
	generateCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	generateCmd.Flags().IntVar(&workers, "workers", defaults.Workers, "parallel workers (<=1 runs sequentially)")
	generateCmd.Flags().IntVar(&batchSize, "batch", defaults.BatchSize, "trajectories per parallel batch")
	generateCmd.Flags().StringVar(&out, "out", "", "write the table (and a .json run record) to this file or directory instead of the data directory")
	generateCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	generateCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	generateCmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress view")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [run_id|csv]",
		Short: "validate a table and summarise its work",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectRun,
	}
	inspectCmd.Flags().Float64Var(&beta, "beta", config.DefaultBeta, "inverse temperature for tables without metadata")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id|csv]",
		Short: "plot forward and backward work distributions",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&bins, "bins", 40, "histogram bins")
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 15, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tK\tBETA\tGAMMA\tSTEPS\tDT\tLAMBDA\tSAMPLES")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%d\t%g\t%g\t%d\n",
					name, p.Physics.K, p.Physics.Beta, p.Physics.Gamma, p.Steps, p.Dt, p.Displacement, p.Samples)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(generateCmd, listCmd, inspectCmd, plotCmd, exportCmd, presetsCmd)
	return rootCmd
}

// resolveConfig layers the preset, then the config file, then explicitly
// set flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.LoadFrom(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("k") {
		cfg.Physics.K = k
	}
	if flags.Changed("beta") {
		cfg.Physics.Beta = beta
	}
	if flags.Changed("gamma") {
		cfg.Physics.Gamma = gamma
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("lambda") {
		cfg.Displacement = lambda
	}
	if flags.Changed("samples") {
		cfg.Samples = samples
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("batch") {
		cfg.BatchSize = batchSize
	}
	if flags.Changed("out") {
		cfg.Output = out
	}
	if flags.Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	return cfg, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	p := cfg.Protocol()

	gen := dataset.New(p)
	for _, m := range metrics.Defaults(p.Beta) {
		gen.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	meta := storage.NewMetadata(p)

	if path := cfg.OutputPath(); path != "" {
		table, err := storage.CreateTable(path)
		if err != nil {
			return err
		}
		summary, err := execute(ctx, gen, table)
		if err != nil {
			table.Abort()
			return err
		}
		if err := table.Close(); err != nil {
			return err
		}
		meta.ID = table.Path()
		meta.Timestamp = time.Now()
		fillMetadata(&meta, summary)
		if err := storage.WriteMetadata(metadataPath(path), meta); err != nil {
			os.Remove(path)
			return err
		}
		fmt.Print(viz.RenderSummary(meta))
		return nil
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	run, err := st.Begin()
	if err != nil {
		return err
	}

	summary, err := execute(ctx, gen, run.Table)
	if err != nil {
		st.Discard(run)
		return err
	}
	fillMetadata(&meta, summary)
	if err := st.Commit(run, meta); err != nil {
		return err
	}

	meta.ID = run.ID
	fmt.Print(viz.RenderSummary(meta))
	return nil
}

// metadataPath is the sidecar holding the run record of a table written
// outside the store.
func metadataPath(table string) string { return table + ".json" }

func fillMetadata(meta *storage.RunMetadata, summary *dataset.Summary) {
	meta.Rows = summary.Rows
	meta.ElapsedSec = summary.Elapsed.Seconds()
	meta.Metrics = summary.Metrics
}

func execute(ctx context.Context, gen *dataset.Generator, sink dataset.Sink) (*dataset.Summary, error) {
	if !showProgress {
		return gen.Generate(ctx, sink)
	}
	return generateWithProgress(ctx, gen, sink)
}

// generateWithProgress runs the generator behind a Bubble Tea progress view.
// Quitting the view cancels generation.
func generateWithProgress(ctx context.Context, gen *dataset.Generator, sink dataset.Sink) (*dataset.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := gen.Protocol()
	prog := tea.NewProgram(viz.NewProgress(fmt.Sprintf("generating %d trajectories per direction", p.Samples), p.Samples))
	gen.OnProgress(func(d dynamo.Direction, done, total int) {
		prog.Send(viz.ProgressMsg{Direction: d, Done: done, Total: total})
	})

	var (
		summary *dataset.Summary
		genErr  error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		summary, genErr = gen.Generate(ctx, sink)
		prog.Send(viz.DoneMsg{Err: genErr})
	}()

	final, err := prog.Run()
	cancel()
	<-finished

	if err != nil {
		return nil, err
	}
	if m, ok := final.(viz.Progress); ok && m.Aborted() && genErr == nil {
		return nil, context.Canceled
	}
	return summary, genErr
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	fmt.Print(viz.RenderRuns(runs))
	return nil
}

// tableReport is what inspect learns from reading a table back.
type tableReport struct {
	Path       string
	Steps      int
	Rows       int
	OutOfOrder int
	Metrics    map[string]float64
	Forward    []float64
	Backward   []float64

	sums   [2][]float64
	counts [2]int
}

func inspectTable(path string, beta float64) (*tableReport, error) {
	ms := metrics.Defaults(beta)
	report := &tableReport{Path: path}
	seenBackward := false

	n, err := storage.ScanTable(path, func(r dynamo.Row) error {
		report.Rows++
		for _, m := range ms {
			m.Observe(r)
		}
		if r.Trajectory.IsValid() {
			if report.sums[r.Direction] == nil {
				report.sums[r.Direction] = make([]float64, len(r.Trajectory))
			}
			floats.Add(report.sums[r.Direction], r.Trajectory)
			report.counts[r.Direction]++
		}
		switch r.Direction {
		case dynamo.Forward:
			if seenBackward {
				report.OutOfOrder++
			}
			report.Forward = append(report.Forward, r.Work)
		case dynamo.Backward:
			seenBackward = true
			report.Backward = append(report.Backward, r.Work)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	report.Steps = n
	report.Metrics = metrics.Collect(ms)
	return report, nil
}

// MeanTrajectory is the average of the finite trajectories of direction d.
func (r *tableReport) MeanTrajectory(d dynamo.Direction) []float64 {
	sum := r.sums[d]
	if sum == nil {
		return nil
	}
	mean := make([]float64, len(sum))
	floats.ScaleTo(mean, 1/float64(r.counts[d]), sum)
	return mean
}

// Problems lists the ways the table departs from a well-formed dataset.
func (r *tableReport) Problems() []string {
	var problems []string
	if len(r.Forward) != len(r.Backward) {
		problems = append(problems, fmt.Sprintf("%d forward rows but %d backward rows", len(r.Forward), len(r.Backward)))
	}
	if r.OutOfOrder > 0 {
		problems = append(problems, fmt.Sprintf("%d forward rows after the first backward row", r.OutOfOrder))
	}
	if nf := r.Metrics["non_finite_rows"]; nf > 0 {
		problems = append(problems, fmt.Sprintf("%d rows contain NaN or Inf", int(nf)))
	}
	return problems
}

// resolveTable maps a run id or path to a table and the beta it was
// generated with, falling back to fallbackBeta when there is no metadata.
func resolveTable(ref string, fallbackBeta float64) (string, float64, error) {
	st := storage.New(dataDir)
	path, err := st.Resolve(ref)
	if err != nil {
		return "", 0, err
	}
	if meta, err := st.Load(ref); err == nil {
		return path, meta.Beta, nil
	}
	if meta, err := storage.ReadMetadata(metadataPath(path)); err == nil {
		return path, meta.Beta, nil
	}
	return path, fallbackBeta, nil
}

func inspectRun(cmd *cobra.Command, args []string) error {
	path, b, err := resolveTable(args[0], beta)
	if err != nil {
		return err
	}

	report, err := inspectTable(path, b)
	if err != nil {
		return err
	}

	fmt.Println(viz.HeaderStyle.Render(report.Path))
	fmt.Printf("steps: %d  columns: %d  rows: %d\n", report.Steps, report.Steps+3, report.Rows)
	fmt.Println()
	fmt.Print(viz.RenderMetrics(report.Metrics))
	for _, d := range dynamo.Directions {
		if mean := report.MeanTrajectory(d); mean != nil {
			fmt.Printf("\n<x> %-8s %s  %.3g -> %.3g\n", d, viz.SparklineChart(mean, 50), mean[0], mean[len(mean)-1])
		}
	}

	problems := report.Problems()
	if len(problems) == 0 {
		fmt.Println(viz.StatusRunning.Render("\ntable ok"))
		return nil
	}
	fmt.Println()
	for _, p := range problems {
		fmt.Println(viz.StatusFailed.Render("! " + p))
	}
	return fmt.Errorf("%w: %d problems", dynamo.ErrMalformedTable, len(problems))
}

func plotRun(cmd *cobra.Command, args []string) error {
	path, b, err := resolveTable(args[0], config.DefaultBeta)
	if err != nil {
		return err
	}

	report, err := inspectTable(path, b)
	if err != nil {
		return err
	}
	if report.Rows == 0 {
		return errors.New("no data to plot")
	}

	fmt.Printf("table: %s\n", report.Path)
	fmt.Printf("forward: %d  backward: %d\n\n", len(report.Forward), len(report.Backward))
	fmt.Println(viz.WorkHistogram(report.Forward, report.Backward, bins, width, height))
	fmt.Printf("\nfree energy estimate (forward): %.4f\n", report.Metrics["free_energy_forward"])
	fmt.Printf("crossing gap at w=0: %.4f\n", metrics.CrossingGap(report.Forward, report.Backward, bins))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

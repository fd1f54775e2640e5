package dataset

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/brownwork/internal/dynamo"
	"github.com/san-kum/brownwork/internal/integrators"
	"github.com/san-kum/brownwork/internal/physics"
	"github.com/san-kum/brownwork/internal/rng"
)

// Sink receives the table: one header, then rows in output order.
type Sink interface {
	WriteHeader(steps int) error
	WriteRow(r dynamo.Row) error
}

// ProgressFunc is called as rows of a direction are emitted.
type ProgressFunc func(dir dynamo.Direction, done, total int)

type Summary struct {
	Rows    int
	Elapsed time.Duration
	Metrics map[string]float64
}

// Generator samples trajectories under the forward protocol and its time
// reverse and streams them to a Sink.
type Generator struct {
	proto    dynamo.Protocol
	rng      *rng.PartitionedRNG
	metrics  []dynamo.Metric
	progress []ProgressFunc
	rows     int
}

func New(p dynamo.Protocol) *Generator {
	return &Generator{
		proto:    p,
		rng:      rng.NewPartitionedRNG(rng.Key(p.Seed)),
		metrics:  make([]dynamo.Metric, 0),
		progress: make([]ProgressFunc, 0),
	}
}

func (g *Generator) AddMetric(m dynamo.Metric) { g.metrics = append(g.metrics, m) }

func (g *Generator) OnProgress(fn ProgressFunc) { g.progress = append(g.progress, fn) }

func (g *Generator) Protocol() dynamo.Protocol { return g.proto }

// Generate validates the protocol, writes the header and then all forward
// rows followed by all backward rows. Nothing is written to sink when the
// protocol is invalid.
func (g *Generator) Generate(ctx context.Context, sink Sink) (*Summary, error) {
	if err := g.proto.Validate(); err != nil {
		return nil, err
	}

	for _, m := range g.metrics {
		m.Reset()
	}
	g.rows = 0

	logrus.Infof("generating %d trajectories per direction: k=%g beta=%g gamma=%g steps=%d dt=%g lambda=%g u=%g workers=%d",
		g.proto.Samples, g.proto.K, g.proto.Beta, g.proto.Gamma, g.proto.Steps, g.proto.Dt,
		g.proto.Displacement, g.proto.Velocity(), g.proto.Workers)

	start := time.Now()

	if err := sink.WriteHeader(g.proto.Steps); err != nil {
		return nil, err
	}

	for _, d := range dynamo.Directions {
		if err := g.runDirection(ctx, d, sink); err != nil {
			return nil, err
		}
	}

	summary := &Summary{
		Rows:    g.rows,
		Elapsed: time.Since(start),
		Metrics: make(map[string]float64, len(g.metrics)),
	}
	for _, m := range g.metrics {
		summary.Metrics[m.Name()] = m.Value()
	}

	logrus.Infof("generated %d rows in %v", summary.Rows, summary.Elapsed)
	return summary, nil
}

func (g *Generator) runDirection(ctx context.Context, d dynamo.Direction, sink Sink) error {
	logrus.Debugf("%s protocol: u=%g, trap starts at %g", d, g.proto.Params(d).U, g.proto.StartCenter(d))

	var err error
	if g.proto.Workers > 1 {
		err = g.runParallel(ctx, d, sink)
	} else {
		err = g.runSequential(ctx, d, sink)
	}
	if err != nil {
		return err
	}

	logrus.Infof("%s: %d trajectories done", d, g.proto.Samples)
	return nil
}

// runSequential draws every trajectory's kicks from one shared noise stream
// and every starting point from one shared start stream.
func (g *Generator) runSequential(ctx context.Context, d dynamo.Direction, sink Sink) error {
	integ := integrators.NewBrownian(g.proto.Params(d), g.rng.ForStream(rng.StreamNoise))
	start := g.startDistribution(g.rng.ForStream(rng.StreamStart))
	center := g.proto.StartCenter(d)

	for i := 0; i < g.proto.Samples; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		traj, work := integ.Run(start.Rand(), center, g.proto.Steps, g.proto.Dt)
		if err := g.emit(sink, dynamo.Row{Trajectory: traj, Work: work, Direction: d}, i); err != nil {
			return err
		}
	}
	return nil
}

// runParallel gives each trajectory private noise and start streams keyed by
// its index, computes a batch on the worker pool, then emits the batch in
// index order.
func (g *Generator) runParallel(ctx context.Context, d dynamo.Direction, sink Sink) error {
	params := g.proto.Params(d)
	center := g.proto.StartCenter(d)
	noiseName := rng.TrajectoryStream(d.String(), rng.StreamNoise)
	startName := rng.TrajectoryStream(d.String(), rng.StreamStart)

	batch := g.proto.BatchSize
	if batch <= 0 {
		batch = dynamo.DefaultBatchSize
	}
	buf := make([]dynamo.Row, batch)

	for lo := 0; lo < g.proto.Samples; lo += batch {
		hi := min(lo+batch, g.proto.Samples)

		eg, ectx := errgroup.WithContext(ctx)
		eg.SetLimit(g.proto.Workers)
		for i := lo; i < hi; i++ {
			eg.Go(func() error {
				if err := ectx.Err(); err != nil {
					return err
				}
				integ := integrators.NewBrownian(params, g.rng.Indexed(noiseName, i))
				x0 := g.startDistribution(g.rng.Indexed(startName, i)).Rand()
				traj, work := integ.Run(x0, center, g.proto.Steps, g.proto.Dt)
				buf[i-lo] = dynamo.Row{Trajectory: traj, Work: work, Direction: d}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		for i := lo; i < hi; i++ {
			if err := g.emit(sink, buf[i-lo], i); err != nil {
				return err
			}
		}
		logrus.Debugf("%s: batch [%d, %d) written", d, lo, hi)
	}
	return nil
}

// startDistribution is the Boltzmann distribution of the particle in the
// trap at its starting position, measured from the trap center.
func (g *Generator) startDistribution(src *rand.Rand) distuv.Normal {
	well := physics.NewHarmonicWell(g.proto.K)
	return distuv.Normal{Mu: 0, Sigma: well.EquilibriumStdDev(g.proto.Beta), Src: src}
}

func (g *Generator) emit(sink Sink, r dynamo.Row, idx int) error {
	if err := sink.WriteRow(r); err != nil {
		return &dynamo.SimulationError{Direction: r.Direction, Index: idx, Wrapped: err}
	}
	g.rows++

	for _, m := range g.metrics {
		m.Observe(r)
	}

	done := idx + 1
	every := max(1, g.proto.Samples/100)
	if done%every == 0 || done == g.proto.Samples {
		for _, fn := range g.progress {
			fn(r.Direction, done, g.proto.Samples)
		}
	}
	return nil
}

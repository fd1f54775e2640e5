package dataset

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/brownwork/internal/dynamo"
	"github.com/san-kum/brownwork/internal/metrics"
	"github.com/san-kum/brownwork/internal/storage"
)

type memorySink struct {
	steps   int
	headers int
	rows    []dynamo.Row
}

func (s *memorySink) WriteHeader(steps int) error {
	s.steps = steps
	s.headers++
	return nil
}

func (s *memorySink) WriteRow(r dynamo.Row) error {
	s.rows = append(s.rows, r)
	return nil
}

func (s *memorySink) works(d dynamo.Direction) []float64 {
	var out []float64
	for _, r := range s.rows {
		if r.Direction == d {
			out = append(out, r.Work)
		}
	}
	return out
}

func (s *memorySink) starts(d dynamo.Direction) []float64 {
	var out []float64
	for _, r := range s.rows {
		if r.Direction == d {
			out = append(out, r.Trajectory[0])
		}
	}
	return out
}

type failingSink struct {
	memorySink
	after int
}

var errDiskFull = errors.New("disk full")

func (s *failingSink) WriteRow(r dynamo.Row) error {
	if len(s.rows) == s.after {
		return errDiskFull
	}
	return s.memorySink.WriteRow(r)
}

func protocol(samples, steps int) dynamo.Protocol {
	p := dynamo.DefaultProtocol()
	p.Samples = samples
	p.Steps = steps
	p.Seed = 42
	return p
}

func generate(p dynamo.Protocol) *memorySink {
	sink := &memorySink{}
	_, err := New(p).Generate(context.Background(), sink)
	Expect(err).NotTo(HaveOccurred())
	return sink
}

var _ = Describe("Generator", func() {
	Describe("table shape", func() {
		var sink *memorySink

		BeforeEach(func() {
			sink = generate(protocol(50, 10))
		})

		It("writes exactly one header for the configured step count", func() {
			Expect(sink.headers).To(Equal(1))
			Expect(sink.steps).To(Equal(10))
		})

		It("emits all forward rows before all backward rows", func() {
			Expect(sink.rows).To(HaveLen(100))
			for i, r := range sink.rows {
				if i < 50 {
					Expect(r.Direction).To(Equal(dynamo.Forward))
				} else {
					Expect(r.Direction).To(Equal(dynamo.Backward))
				}
			}
		})

		It("stores N+1 finite positions per row", func() {
			for _, r := range sink.rows {
				Expect(r.Trajectory).To(HaveLen(11))
				Expect(r.IsValid()).To(BeTrue())
			}
		})
	})

	Describe("starting points", func() {
		It("draws the start from equilibrium around the initial trap center", func() {
			p := protocol(2000, 1)
			p.K = 4
			sink := generate(p)

			fwd := sink.starts(dynamo.Forward)
			bwd := sink.starts(dynamo.Backward)

			// sigma = 1/sqrt(beta k) = 0.5
			Expect(stat.Mean(fwd, nil)).To(BeNumerically("~", 0, 0.05))
			Expect(stat.Mean(bwd, nil)).To(BeNumerically("~", 5, 0.05))
			Expect(stat.StdDev(fwd, nil)).To(BeNumerically("~", 0.5, 0.03))
			Expect(stat.StdDev(bwd, nil)).To(BeNumerically("~", 0.5, 0.03))
		})
	})

	Describe("validation", func() {
		DescribeTable("rejects degenerate protocols before writing anything",
			func(mutate func(*dynamo.Protocol)) {
				p := protocol(10, 10)
				mutate(&p)
				sink := &memorySink{}

				summary, err := New(p).Generate(context.Background(), sink)

				Expect(err).To(MatchError(dynamo.ErrInvalidParameter))
				Expect(summary).To(BeNil())
				Expect(sink.headers).To(BeZero())
				Expect(sink.rows).To(BeEmpty())
			},
			Entry("zero steps", func(p *dynamo.Protocol) { p.Steps = 0 }),
			Entry("negative dt", func(p *dynamo.Protocol) { p.Dt = -0.1 }),
			Entry("zero samples", func(p *dynamo.Protocol) { p.Samples = 0 }),
			Entry("zero stiffness", func(p *dynamo.Protocol) { p.K = 0 }),
			Entry("negative beta", func(p *dynamo.Protocol) { p.Beta = -1 }),
			Entry("zero friction", func(p *dynamo.Protocol) { p.Gamma = 0 }),
			Entry("negative workers", func(p *dynamo.Protocol) { p.Workers = -2 }),
		)
	})

	Describe("reproducibility", func() {
		It("produces identical rows for the same seed", func() {
			a := generate(protocol(20, 20))
			b := generate(protocol(20, 20))
			Expect(a.rows).To(Equal(b.rows))
		})

		It("produces different rows for a different seed", func() {
			p := protocol(20, 20)
			a := generate(p)
			p.Seed = 43
			b := generate(p)
			Expect(a.rows).NotTo(Equal(b.rows))
		})

		It("makes the parallel table independent of worker count and batch size", func() {
			p := protocol(37, 15)
			p.Workers = 2
			p.BatchSize = 8
			a := generate(p)

			p.Workers = 5
			p.BatchSize = 5
			b := generate(p)

			Expect(a.rows).To(HaveLen(74))
			Expect(a.rows).To(Equal(b.rows))
		})

		It("keeps the parallel path reproducible across runs", func() {
			p := protocol(30, 10)
			p.Workers = 4
			Expect(generate(p).rows).To(Equal(generate(p).rows))
		})
	})

	Describe("work statistics", func() {
		var (
			sink    *memorySink
			summary *Summary
		)

		BeforeEach(func() {
			p := protocol(4000, 100)
			p.Workers = 4
			gen := New(p)
			for _, m := range metrics.Defaults(p.Beta) {
				gen.AddMetric(m)
			}
			sink = &memorySink{}
			var err error
			summary, err = gen.Generate(context.Background(), sink)
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports every row and metric in the summary", func() {
			Expect(summary.Rows).To(Equal(8000))
			Expect(summary.Metrics).To(HaveKeyWithValue("rows_forward", 4000.0))
			Expect(summary.Metrics).To(HaveKeyWithValue("rows_backward", 4000.0))
			Expect(summary.Metrics).To(HaveKeyWithValue("non_finite_rows", 0.0))
		})

		It("dissipates positive work on average in both directions", func() {
			Expect(summary.Metrics["work_mean_forward"]).To(BeNumerically("~", 2.15, 0.15))
			Expect(summary.Metrics["work_mean_backward"]).To(BeNumerically("~", 2.15, 0.15))
		})

		It("recovers a vanishing free-energy difference", func() {
			Expect(summary.Metrics["free_energy_forward"]).To(BeNumerically("~", 0, 0.5))
			Expect(summary.Metrics["free_energy_backward"]).To(BeNumerically("~", 0, 0.5))
		})

		It("has forward and mirrored backward densities crossing at zero work", func() {
			gap := metrics.CrossingGap(sink.works(dynamo.Forward), sink.works(dynamo.Backward), 40)
			Expect(gap).To(BeNumerically("<", 0.06))
		})
	})

	Describe("progress", func() {
		It("reports completion of each direction", func() {
			gen := New(protocol(250, 5))
			final := map[dynamo.Direction]int{}
			calls := 0
			gen.OnProgress(func(d dynamo.Direction, done, total int) {
				Expect(total).To(Equal(250))
				Expect(done).To(BeNumerically(">", final[d]))
				final[d] = done
				calls++
			})

			_, err := gen.Generate(context.Background(), &memorySink{})
			Expect(err).NotTo(HaveOccurred())
			Expect(final[dynamo.Forward]).To(Equal(250))
			Expect(final[dynamo.Backward]).To(Equal(250))
			Expect(calls).To(BeNumerically("<=", 2*125))
		})
	})

	Describe("failures", func() {
		It("stops at the first sink error and reports where it happened", func() {
			sink := &failingSink{after: 13}
			_, err := New(protocol(10, 5)).Generate(context.Background(), sink)

			Expect(err).To(MatchError(errDiskFull))
			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Direction).To(Equal(dynamo.Backward))
			Expect(simErr.Index).To(Equal(3))
			Expect(sink.rows).To(HaveLen(13))
		})

		It("honours a cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			sink := &memorySink{}
			_, err := New(protocol(10, 5)).Generate(ctx, sink)
			Expect(err).To(MatchError(context.Canceled))
			Expect(sink.rows).To(BeEmpty())
		})

		It("honours a cancelled context on the parallel path", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			p := protocol(10, 5)
			p.Workers = 3
			_, err := New(p).Generate(ctx, &memorySink{})
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("writing to a table", func() {
		It("round-trips through the on-disk format", func() {
			path := filepath.Join(GinkgoT().TempDir(), "trajectory.csv")
			table, err := storage.CreateTable(path)
			Expect(err).NotTo(HaveOccurred())

			mem := generate(protocol(15, 12))
			_, err = New(protocol(15, 12)).Generate(context.Background(), table)
			Expect(err).NotTo(HaveOccurred())
			Expect(table.Close()).To(Succeed())

			var read []dynamo.Row
			steps, err := storage.ScanTable(path, func(r dynamo.Row) error {
				read = append(read, r)
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(Equal(12))
			Expect(read).To(Equal(mem.rows))
		})
	})
})

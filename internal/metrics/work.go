package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/brownwork/internal/dynamo"
)

// workSamples collects the work values of one direction.
type workSamples struct {
	dir    dynamo.Direction
	values []float64
}

func (s *workSamples) Observe(r dynamo.Row) {
	if r.Direction == s.dir {
		s.values = append(s.values, r.Work)
	}
}

func (s *workSamples) Reset() { s.values = s.values[:0] }

type WorkMean struct{ workSamples }

func NewWorkMean(dir dynamo.Direction) *WorkMean {
	return &WorkMean{workSamples{dir: dir}}
}

func (m *WorkMean) Name() string { return "work_mean_" + m.dir.String() }

func (m *WorkMean) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return stat.Mean(m.values, nil)
}

type WorkStdDev struct{ workSamples }

func NewWorkStdDev(dir dynamo.Direction) *WorkStdDev {
	return &WorkStdDev{workSamples{dir: dir}}
}

func (m *WorkStdDev) Name() string { return "work_std_" + m.dir.String() }

func (m *WorkStdDev) Value() float64 {
	if len(m.values) < 2 {
		return 0
	}
	return stat.StdDev(m.values, nil)
}

// FreeEnergy is the Jarzynski estimate -(1/β) ln <exp(-βW)>. For the
// backward protocol it estimates the negated free-energy difference.
type FreeEnergy struct {
	workSamples
	beta    float64
	scratch []float64
}

func NewFreeEnergy(dir dynamo.Direction, beta float64) *FreeEnergy {
	return &FreeEnergy{workSamples: workSamples{dir: dir}, beta: beta}
}

func (m *FreeEnergy) Name() string { return "free_energy_" + m.dir.String() }

func (m *FreeEnergy) Value() float64 {
	return jarzynski(m.values, m.beta, &m.scratch)
}

func jarzynski(values []float64, beta float64, scratch *[]float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if cap(*scratch) < n {
		*scratch = make([]float64, n)
	}
	s := (*scratch)[:n]
	for i, w := range values {
		s[i] = -beta * w
	}
	return -(floats.LogSumExp(s) - math.Log(float64(n))) / beta
}

// Dissipation is the mean work minus the Jarzynski free-energy estimate.
type Dissipation struct {
	workSamples
	beta    float64
	scratch []float64
}

func NewDissipation(dir dynamo.Direction, beta float64) *Dissipation {
	return &Dissipation{workSamples: workSamples{dir: dir}, beta: beta}
}

func (m *Dissipation) Name() string { return "dissipated_work_" + m.dir.String() }

func (m *Dissipation) Value() float64 {
	if len(m.values) == 0 {
		return 0
	}
	return stat.Mean(m.values, nil) - jarzynski(m.values, m.beta, &m.scratch)
}

// NonFinite counts rows carrying NaN or Inf in any column.
type NonFinite struct {
	count int
}

func NewNonFinite() *NonFinite { return &NonFinite{} }

func (m *NonFinite) Name() string { return "non_finite_rows" }

func (m *NonFinite) Observe(r dynamo.Row) {
	if !r.IsValid() {
		m.count++
	}
}

func (m *NonFinite) Value() float64 { return float64(m.count) }

func (m *NonFinite) Reset() { m.count = 0 }

// RowCount counts rows of one direction.
type RowCount struct {
	dir   dynamo.Direction
	count int
}

func NewRowCount(dir dynamo.Direction) *RowCount { return &RowCount{dir: dir} }

func (m *RowCount) Name() string { return "rows_" + m.dir.String() }

func (m *RowCount) Observe(r dynamo.Row) {
	if r.Direction == m.dir {
		m.count++
	}
}

func (m *RowCount) Value() float64 { return float64(m.count) }

func (m *RowCount) Reset() { m.count = 0 }

// Defaults returns the diagnostics recorded for every generated dataset.
func Defaults(beta float64) []dynamo.Metric {
	ms := make([]dynamo.Metric, 0, 11)
	for _, d := range dynamo.Directions {
		ms = append(ms,
			NewRowCount(d),
			NewWorkMean(d),
			NewWorkStdDev(d),
			NewFreeEnergy(d, beta),
			NewDissipation(d, beta),
		)
	}
	return append(ms, NewNonFinite())
}

// Collect evaluates every metric into a name -> value map.
func Collect(ms []dynamo.Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram bins values into equal-width bins spanning their range and
// returns the bin centers and the normalised density. Non-finite values are
// skipped.
func Histogram(values []float64, bins int) (centers, density []float64) {
	x := finite(values)
	if len(x) == 0 {
		return nil, nil
	}
	return HistogramRange(x, bins, floats.Min(x), floats.Max(x))
}

// HistogramRange is Histogram over the fixed range [lo, hi]. Values outside
// the range are dropped but still count towards the normalisation.
func HistogramRange(values []float64, bins int, lo, hi float64) (centers, density []float64) {
	if bins < 1 {
		bins = 1
	}
	x := finite(values)
	if len(x) == 0 {
		return nil, nil
	}
	sort.Float64s(x)

	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := floats.Span(make([]float64, bins+1), lo, hi)
	// stat.Histogram wants the maximum strictly below the last divider.
	dividers[bins] = math.Nextafter(hi, math.Inf(1))

	first := sort.SearchFloat64s(x, lo)
	last := sort.SearchFloat64s(x, dividers[bins])
	counts := stat.Histogram(nil, dividers, x[first:last], nil)

	centers = make([]float64, bins)
	density = make([]float64, bins)
	n := float64(len(x))
	for i := range counts {
		width := dividers[i+1] - dividers[i]
		centers[i] = (dividers[i] + dividers[i+1]) / 2
		density[i] = counts[i] / (n * width)
	}
	return centers, density
}

func finite(values []float64) []float64 {
	x := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			x = append(x, v)
		}
	}
	return x
}

// CrossingGap compares the forward work density near w=0 with the backward
// density near -w=0. Crooks' relation puts both at the same height when
// the free-energy difference vanishes, as it does for a translated trap.
func CrossingGap(forward, backward []float64, bins int) float64 {
	cf, pf := Histogram(forward, bins)
	mirrored := make([]float64, len(backward))
	for i, w := range backward {
		mirrored[i] = -w
	}
	cb, pb := Histogram(mirrored, bins)
	if len(cf) == 0 || len(cb) == 0 {
		return math.NaN()
	}
	return math.Abs(pf[nearest(cf, 0)] - pb[nearest(cb, 0)])
}

func nearest(xs []float64, target float64) int {
	best := 0
	for i := range xs {
		if math.Abs(xs[i]-target) < math.Abs(xs[best]-target) {
			best = i
		}
	}
	return best
}

package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/brownwork/internal/metrics"
)

// WorkHistogram plots the forward work density P(w) against the mirrored
// backward density P(-w) on a shared axis. Crooks' relation has the two
// curves cross at w = ΔF.
func WorkHistogram(forward, backward []float64, bins, width, height int) string {
	mirrored := make([]float64, len(backward))
	for i, w := range backward {
		mirrored[i] = -w
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, series := range [][]float64{forward, mirrored} {
		for _, v := range series {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo > hi {
		return ""
	}

	_, pf := metrics.HistogramRange(forward, bins, lo, hi)
	_, pb := metrics.HistogramRange(mirrored, bins, lo, hi)
	if pf == nil {
		pf = make([]float64, len(pb))
	}
	if pb == nil {
		pb = make([]float64, len(pf))
	}

	return asciigraph.PlotMany([][]float64{pf, pb},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption(fmt.Sprintf("P(w) forward (blue), P(-w) backward (red), w in [%.3g, %.3g]", lo, hi)),
	)
}

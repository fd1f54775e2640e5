package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/brownwork/internal/storage"
)

// RenderSummary reports one run: its protocol, the rows written and its
// work metrics.
func RenderSummary(meta storage.RunMetadata) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(meta.ID) + "\n")

	protocol := fmt.Sprintf("k=%g  beta=%g  gamma=%g\nsteps=%d  dt=%g  lambda=%g  u=%g\nsamples=%d  seed=%d  workers=%d",
		meta.K, meta.Beta, meta.Gamma,
		meta.Steps, meta.Dt, meta.Displacement, meta.Velocity,
		meta.Samples, meta.Seed, meta.Workers)
	b.WriteString(Panel.Render(protocol) + "\n")

	b.WriteString(MetricLabel.Render("rows ") + MetricValue.Render(fmt.Sprintf("%d", meta.Rows)))
	if meta.ElapsedSec > 0 {
		b.WriteString(Subtle.Render(fmt.Sprintf("  (%.2fs)", meta.ElapsedSec)))
	}
	b.WriteString("\n")

	if len(meta.Metrics) > 0 {
		b.WriteString(Separator(40) + "\n" + RenderMetrics(meta.Metrics))
	}
	return b.String()
}

// RenderRuns lists stored runs, oldest first.
func RenderRuns(runs []storage.RunMetadata) string {
	if len(runs) == 0 {
		return Subtle.Render("no runs") + "\n"
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%-28s %-20s %8s %6s %10s", "ID", "TIME", "SAMPLES", "STEPS", "<W> fwd")) + "\n")
	for _, r := range runs {
		mean := "-"
		if v, ok := r.Metrics["work_mean_forward"]; ok {
			mean = fmt.Sprintf("%.4g", v)
		}
		b.WriteString(fmt.Sprintf("%-28s %-20s %8d %6d %10s\n",
			r.ID, r.Timestamp.Format("2006-01-02 15:04:05"), r.Samples, r.Steps, mean))
	}
	return b.String()
}

// Package viz renders generator output for the terminal.
//
//   - [Progress]: Bubble Tea model showing per-direction progress while a
//     dataset is generated
//   - [WorkHistogram]: asciigraph plot of the forward and mirrored backward
//     work densities
//   - [RenderSummary], [RenderRuns], [RenderMetrics]: lipgloss-styled run reports
//
// # Key Bindings
//
//	q, Ctrl+C - abort the running generation
package viz

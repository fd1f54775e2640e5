// Package dataset generates labelled work datasets: Samples trajectories
// under the forward dragging protocol followed by Samples under its time
// reverse, streamed row by row to a Sink.
package dataset

// Package physics provides the potential energy landscapes used by the
// integrators.
//
//   - [HarmonicWell]: quadratic trap 0.5 k (x - λ)^2 with a movable center λ
//
// Wells implement [dynamo.Potential] for energy and force evaluation and
// [dynamo.Configurable] for runtime parameter adjustment.
//
// # Work
//
// The work done by moving the trap from λ to λ' while the particle sits at x
// is the energy difference at fixed x:
//
//	w := well.Energy(x, next) - well.Energy(x, prev)
package physics

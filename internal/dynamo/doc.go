// Package dynamo provides the core types shared by the Brownian work
// simulator.
//
// The package defines the vocabulary every other package speaks:
//
//   - [Params]: physical parameters of one trap protocol (k, β, γ, u)
//   - [Protocol]: the full dataset recipe (steps, dt, displacement, samples)
//   - [Trajectory]: the sampled positions of one run
//   - [Row]: one labeled dataset entry (trajectory, work, direction)
//   - [Potential], [NormalSource], [Observer], [Metric]: extension points
//
// # Example
//
//	p := dynamo.DefaultProtocol()
//	params := p.Params(dynamo.Forward)
//	integ := integrators.NewBrownian(params, noise)
//	traj, work := integ.Run(x0, p.StartCenter(dynamo.Forward), p.Steps, p.Dt)
//
// # Thread Safety
//
// Values in this package are immutable once built. Observers and metrics
// are driven from a single goroutine.
package dynamo

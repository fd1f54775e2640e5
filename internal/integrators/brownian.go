package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/brownwork/internal/dynamo"
	"github.com/san-kum/brownwork/internal/physics"
)

// Brownian integrates the overdamped Langevin equation
//
//	dx = -(k/γ)(x - λ(t)) dt + sqrt(2/(βγ)) dW
//
// with the Euler–Maruyama scheme while the trap center λ moves at constant
// velocity u, and accumulates the work done on the particle by the trap.
type Brownian struct {
	params    dynamo.Params
	well      dynamo.Potential
	noise     dynamo.NormalSource
	observers []dynamo.Observer
}

// NewBrownian builds an integrator in a harmonic well of stiffness params.K.
// noise supplies one standard-normal draw per step.
func NewBrownian(params dynamo.Params, noise dynamo.NormalSource) *Brownian {
	return &Brownian{
		params:    params,
		well:      physics.NewHarmonicWell(params.K),
		noise:     noise,
		observers: make([]dynamo.Observer, 0),
	}
}

func (b *Brownian) AddObserver(o dynamo.Observer) { b.observers = append(b.observers, o) }

func (b *Brownian) Params() dynamo.Params { return b.params }

// NoiseScale is the standard deviation of the Brownian kick over dt.
func (b *Brownian) NoiseScale(dt float64) float64 {
	return math.Sqrt(2 * dt / (b.params.Beta * b.params.Gamma))
}

// Step advances the trap by u*dt, charges the work of that move at the
// current particle position, then moves the particle. It returns the new
// position, the new trap center and the work increment.
func (b *Brownian) Step(x, center, dt float64) (float64, float64, float64) {
	return b.step(x, center, dt, b.NoiseScale(dt))
}

func (b *Brownian) step(x, center, dt, sd float64) (float64, float64, float64) {
	prev := center
	center += b.params.U * dt
	dW := b.well.Energy(x, center) - b.well.Energy(x, prev)
	xi := b.noise.NormFloat64()
	x += b.well.Force(x, center)/b.params.Gamma*dt + xi*sd
	return x, center, dW
}

// Run simulates numSteps steps from initialPos with the trap starting at
// initialCenter and returns the numSteps+1 sampled positions and the total
// work. The first sample is initialPos+initialCenter. Run never fails; use
// RunChecked to reject degenerate step counts or time increments.
func (b *Brownian) Run(initialPos, initialCenter float64, numSteps int, dt float64) (dynamo.Trajectory, float64) {
	if numSteps < 0 {
		numSteps = 0
	}
	x := initialPos + initialCenter
	center := initialCenter
	work := 0.0
	sd := b.NoiseScale(dt)

	traj := make(dynamo.Trajectory, 0, numSteps+1)
	traj = append(traj, x)

	for i := 0; i < numSteps; i++ {
		prev := center
		xPrev := x
		var dW float64
		x, center, dW = b.step(x, center, dt, sd)
		work += dW

		for _, obs := range b.observers {
			obs.OnStep(i, xPrev, prev, center, dW)
		}

		traj = append(traj, x)
	}

	return traj, work
}

// RunChecked is Run with the configuration checks: numSteps must not be
// negative and dt must be positive.
func (b *Brownian) RunChecked(initialPos, initialCenter float64, numSteps int, dt float64) (dynamo.Trajectory, float64, error) {
	if numSteps < 0 {
		return nil, 0, fmt.Errorf("%w: steps must not be negative, got %d", dynamo.ErrInvalidParameter, numSteps)
	}
	if dt <= 0 || math.IsNaN(dt) {
		return nil, 0, fmt.Errorf("%w: dt must be positive, got %g", dynamo.ErrInvalidParameter, dt)
	}
	traj, work := b.Run(initialPos, initialCenter, numSteps, dt)
	return traj, work, nil
}

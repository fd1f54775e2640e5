package dynamo

import (
	"fmt"
	"math"
)

// Trajectory holds the positions x_0..x_N of a single run.
type Trajectory []float64

func (t Trajectory) Clone() Trajectory {
	c := make(Trajectory, len(t))
	copy(c, t)
	return c
}

func (t Trajectory) IsValid() bool {
	for _, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Steps is the number of integration steps that produced t.
func (t Trajectory) Steps() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}

// Direction labels a protocol as the forward translation of the trap or its
// time reverse.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

// Directions lists the protocols in output order.
var Directions = []Direction{Forward, Backward}

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// Label is the value written to the isForward column.
func (d Direction) Label() string {
	if d == Forward {
		return "1"
	}
	return "0"
}

// Sign is +1 for forward and -1 for backward.
func (d Direction) Sign() float64 {
	if d == Forward {
		return 1
	}
	return -1
}

func ParseLabel(s string) (Direction, error) {
	switch s {
	case "1":
		return Forward, nil
	case "0":
		return Backward, nil
	}
	return Forward, fmt.Errorf("%w: isForward must be 0 or 1, got %q", ErrMalformedTable, s)
}

// Row is one labeled dataset entry.
type Row struct {
	Trajectory Trajectory
	Work       float64
	Direction  Direction
}

// IsValid reports whether every position and the work are finite.
func (r Row) IsValid() bool {
	return r.Trajectory.IsValid() && !math.IsNaN(r.Work) && !math.IsInf(r.Work, 0)
}

// Params are the physical constants of one protocol. They are fixed once an
// integrator is built from them.
type Params struct {
	K     float64 // spring constant
	Beta  float64 // inverse temperature 1/(kB T)
	Gamma float64 // friction coefficient
	U     float64 // trap velocity, signed
}

func (p Params) Validate() error {
	if !positive(p.K) {
		return invalid("spring constant must be positive and finite, got %g", p.K)
	}
	if !positive(p.Beta) {
		return invalid("inverse temperature must be positive and finite, got %g", p.Beta)
	}
	if !positive(p.Gamma) {
		return invalid("friction coefficient must be positive and finite, got %g", p.Gamma)
	}
	return nil
}

// positive reports whether v is finite and greater than zero.
func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 1)
}

// Potential is an energy landscape parameterised by a movable center.
type Potential interface {
	Energy(x, center float64) float64
	Force(x, center float64) float64
}

// NormalSource yields standard-normal variates. *rand.Rand satisfies it.
type NormalSource interface {
	NormFloat64() float64
}

// Observer is notified once per integration step, before the particle moves.
// dW is the work increment of the step.
type Observer interface {
	OnStep(step int, x, centerOld, centerNew, dW float64)
}

// Metric accumulates a summary statistic over emitted rows.
type Metric interface {
	Name() string
	Observe(r Row)
	Value() float64
	Reset()
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Protocol describes a complete dataset: the physical constants shared by
// both directions, the discretisation, the trap displacement and how many
// trajectories to sample per direction.
type Protocol struct {
	K            float64
	Beta         float64
	Gamma        float64
	Steps        int
	Dt           float64
	Displacement float64
	Samples      int
	Seed         int64
	Workers      int
	BatchSize    int
}

const (
	DefaultSteps        = 100
	DefaultDt           = 0.1
	DefaultDisplacement = 5.0
	DefaultSamples      = 100000
	DefaultBatchSize    = 1024
)

func DefaultProtocol() Protocol {
	return Protocol{
		K:            1,
		Beta:         1,
		Gamma:        1,
		Steps:        DefaultSteps,
		Dt:           DefaultDt,
		Displacement: DefaultDisplacement,
		Samples:      DefaultSamples,
		Workers:      1,
		BatchSize:    DefaultBatchSize,
	}
}

func (p Protocol) Validate() error {
	if p.Steps <= 0 {
		return invalid("steps must be positive, got %d", p.Steps)
	}
	if !positive(p.Dt) {
		return invalid("dt must be positive and finite, got %g", p.Dt)
	}
	if math.IsNaN(p.Displacement) || math.IsInf(p.Displacement, 0) {
		return invalid("displacement must be finite, got %g", p.Displacement)
	}
	if p.Samples <= 0 {
		return invalid("samples must be positive, got %d", p.Samples)
	}
	if p.Workers < 0 {
		return invalid("workers must not be negative, got %d", p.Workers)
	}
	return p.Params(Forward).Validate()
}

// TotalTime is the duration over which the trap is translated.
func (p Protocol) TotalTime() float64 {
	return float64(p.Steps) * p.Dt
}

// Velocity is the forward trap speed λ/T.
func (p Protocol) Velocity() float64 {
	return p.Displacement / p.TotalTime()
}

// Params returns the physical constants for direction d, with the trap
// velocity signed accordingly.
func (p Protocol) Params(d Direction) Params {
	return Params{K: p.K, Beta: p.Beta, Gamma: p.Gamma, U: d.Sign() * p.Velocity()}
}

// StartCenter is where the trap sits at t=0: the origin going forward, the
// far end going backward.
func (p Protocol) StartCenter(d Direction) float64 {
	if d == Forward {
		return 0
	}
	return p.Displacement
}

// Columns is the number of table columns per row: N+1 positions, work, label.
func (p Protocol) Columns() int {
	return p.Steps + 3
}

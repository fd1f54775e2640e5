package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/brownwork/internal/dynamo"
)

// HarmonicWell is a quadratic trap whose center can be moved freely.
type HarmonicWell struct {
	K float64
}

func NewHarmonicWell(k float64) *HarmonicWell {
	return &HarmonicWell{K: k}
}

// Energy is 0.5 k (x - center)^2.
func (h *HarmonicWell) Energy(x, center float64) float64 {
	d := x - center
	return 0.5 * h.K * d * d
}

func (h *HarmonicWell) Force(x, center float64) float64 {
	return -h.K * (x - center)
}

// EquilibriumStdDev is the width of the Boltzmann distribution of a particle
// resting in the well at inverse temperature beta.
func (h *HarmonicWell) EquilibriumStdDev(beta float64) float64 {
	return 1 / math.Sqrt(beta*h.K)
}

func (h *HarmonicWell) GetParams() map[string]float64 {
	return map[string]float64{"k": h.K}
}

func (h *HarmonicWell) SetParam(n string, v float64) error {
	switch n {
	case "k":
		if v <= 0 {
			return fmt.Errorf("%w: spring constant must be positive, got %g", dynamo.ErrInvalidParameter, v)
		}
		h.K = v
		return nil
	}
	return fmt.Errorf("%w: %q", dynamo.ErrUnknownParameter, n)
}

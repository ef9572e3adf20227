package physics

import (
	"fmt"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 1.0
	DefaultDamping   = 0.1
)

// DampedSpring is a linear oscillator with viscous damping in canonical
// coordinates (q, p).
type DampedSpring struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewDampedSpring() *DampedSpring {
	return &DampedSpring{
		Mass:      DefaultMass,
		Stiffness: DefaultStiffness,
		Damping:   DefaultDamping,
	}
}

func (s *DampedSpring) StateDim() int { return 2 }

func (s *DampedSpring) Derive(x dynamo.State, t float64) dynamo.State {
	irr, rot := s.Decompose(x)
	return irr.Add(rot)
}

func (s *DampedSpring) Decompose(x dynamo.State) (irr, rot dynamo.State) {
	q, p := x[0], x[1]
	v := p / s.Mass
	return dynamo.State{0, -s.Damping * v}, dynamo.State{v, -s.Stiffness * q}
}

func (s *DampedSpring) Energy(x dynamo.State) float64 {
	q, p := x[0], x[1]
	return 0.5*p*p/s.Mass + 0.5*s.Stiffness*q*q
}

// Dissipation is the potential D whose gradient is the irrotational part.
func (s *DampedSpring) Dissipation(x dynamo.State) float64 {
	p := x[1]
	return -0.5 * s.Damping * p * p / s.Mass
}

func (s *DampedSpring) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":      s.Mass,
		"stiffness": s.Stiffness,
		"damping":   s.Damping,
	}
}

func (s *DampedSpring) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if value <= 0 {
			return fmt.Errorf("%w: mass %g", dynamo.ErrParameterBounds, value)
		}
		s.Mass = value
	case "stiffness":
		s.Stiffness = value
	case "damping":
		s.Damping = value
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}
	return nil
}

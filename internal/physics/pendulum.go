package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// Pendulum uses the angle q and the angular momentum p = m L^2 omega.
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    1.0,
		Length:  1.0,
		Damping: 0.1,
		Gravity: 9.81,
	}
}

func (p *Pendulum) StateDim() int {
	return 2
}

func (p *Pendulum) inertia() float64 {
	return p.Mass * p.Length * p.Length
}

func (p *Pendulum) Derive(x dynamo.State, t float64) dynamo.State {
	irr, rot := p.Decompose(x)
	return irr.Add(rot)
}

func (p *Pendulum) Decompose(x dynamo.State) (irr, rot dynamo.State) {
	theta, mom := x[0], x[1]
	omega := mom / p.inertia()
	torque := -p.Mass * p.Gravity * p.Length * math.Sin(theta)
	return dynamo.State{0, -p.Damping * omega}, dynamo.State{omega, torque}
}

func (p *Pendulum) Energy(x dynamo.State) float64 {
	// KE = p^2 / (2 m L^2)
	// PE = m * g * L * (1 - cos(theta))
	ke := 0.5 * x[1] * x[1] / p.inertia()
	pe := p.Mass * p.Gravity * p.Length * (1.0 - math.Cos(x[0]))
	return ke + pe
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass", "length":
		if !(value > 0) {
			return fmt.Errorf("%w: %s %g", dynamo.ErrParameterBounds, name, value)
		}
	case "damping", "gravity":
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
	}

	switch name {
	case "mass":
		p.Mass = value
	case "length":
		p.Length = value
	case "damping":
		p.Damping = value
	case "gravity":
		p.Gravity = value
	}
	return nil
}

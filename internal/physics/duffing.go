package physics

import (
	"fmt"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// Duffing implements the unforced nonlinear oscillator
// d2q/dt2 = -delta dq/dt - alpha q - beta q^3.
type Duffing struct {
	Alpha, Beta, Delta float64
}

func NewDuffing() *Duffing {
	return &Duffing{Alpha: -1.0, Beta: 1.0, Delta: 0.3}
}

func (d *Duffing) StateDim() int { return 2 }

func (d *Duffing) Derive(s dynamo.State, t float64) dynamo.State {
	irr, rot := d.Decompose(s)
	return irr.Add(rot)
}

func (d *Duffing) Decompose(s dynamo.State) (irr, rot dynamo.State) {
	x, v := s[0], s[1]
	return dynamo.State{0, -d.Delta * v}, dynamo.State{v, -d.Alpha*x - d.Beta*x*x*x}
}

func (d *Duffing) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }

func (d *Duffing) Energy(s dynamo.State) float64 {
	x, v := s[0], s[1]
	return 0.5*v*v + 0.5*d.Alpha*x*x + 0.25*d.Beta*x*x*x*x
}

func (d *Duffing) GetParams() map[string]float64 {
	return map[string]float64{"alpha": d.Alpha, "beta": d.Beta, "delta": d.Delta}
}

func (d *Duffing) SetParam(n string, v float64) error {
	switch n {
	case "alpha":
		d.Alpha = v
	case "beta":
		d.Beta = v
	case "delta":
		d.Delta = v
	default:
		return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, n)
	}
	return nil
}

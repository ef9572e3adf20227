package models

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/san-kum/helmholtz/internal/autodiff"
	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/nn"
)

// Decomposer learns a vector field as the sum of an irrotational part, the
// gradient of a dissipative potential D, and a rotational part, the
// symplectic gradient of a conservative potential H.
type Decomposer struct {
	Conservative *nn.Approximator // H
	Dissipative  *nn.Approximator // D
}

// NewDecomposer builds both potentials with inputDim inputs and one output.
// inputDim counts the auxiliary features when the model is evaluated with an
// auxiliary field.
func NewDecomposer(inputDim, hiddenDim int, rng *rand.Rand) *Decomposer {
	return &Decomposer{
		Conservative: nn.NewApproximator(inputDim, 1, hiddenDim, rng),
		Dissipative:  nn.NewApproximator(inputDim, 1, hiddenDim, rng),
	}
}

// Potentials evaluates D and H, each [batch, 1], on x concatenated with rho
// along the feature axis, or on x alone when rho is nil.
func (d *Decomposer) Potentials(x, rho *autodiff.Tensor) (dis, con *autodiff.Tensor, err error) {
	inputs := x
	if rho != nil {
		if inputs, err = autodiff.Concat(x, rho); err != nil {
			return nil, nil, err
		}
	}
	if dis, err = d.Dissipative.Forward(inputs); err != nil {
		return nil, nil, fmt.Errorf("dissipative potential: %w", err)
	}
	if con, err = d.Conservative.Forward(inputs); err != nil {
		return nil, nil, fmt.Errorf("conservative potential: %w", err)
	}
	return dis, con, nil
}

// Separate returns the irrotational and rotational components, each shaped
// like x. Both are differentiable with respect to x.
func (d *Decomposer) Separate(x, rho *autodiff.Tensor) (irr, rot *autodiff.Tensor, err error) {
	dis, con, err := d.Potentials(x, rho)
	if err != nil {
		return nil, nil, err
	}
	if irr, err = inputGradient(dis, x); err != nil {
		return nil, nil, fmt.Errorf("irrotational component: %w", err)
	}
	raw, err := inputGradient(con, x)
	if err != nil {
		return nil, nil, fmt.Errorf("rotational component: %w", err)
	}
	if rot, err = SymplecticGradient(raw); err != nil {
		return nil, nil, fmt.Errorf("rotational component: %w", err)
	}
	return irr, rot, nil
}

// Forward returns the composite field, the elementwise sum of the two
// components.
func (d *Decomposer) Forward(x, rho *autodiff.Tensor) (*autodiff.Tensor, error) {
	irr, rot, err := d.Separate(x, rho)
	if err != nil {
		return nil, err
	}
	return autodiff.Add(irr, rot)
}

// Evaluate dispatches on asSeparate: the two components, or the composite
// field in Total.
func (d *Decomposer) Evaluate(x, rho *autodiff.Tensor, asSeparate bool) (*Components, error) {
	if asSeparate {
		irr, rot, err := d.Separate(x, rho)
		if err != nil {
			return nil, err
		}
		return &Components{Irrotational: irr, Rotational: rot}, nil
	}
	total, err := d.Forward(x, rho)
	if err != nil {
		return nil, err
	}
	return &Components{Total: total}, nil
}

// VectorField evaluates the composite field without an auxiliary input.
func (d *Decomposer) VectorField(x *autodiff.Tensor) (*autodiff.Tensor, error) {
	return d.Forward(x, nil)
}

// StateDim is the phase-space dimension when no auxiliary field is used.
func (d *Decomposer) StateDim() int {
	return d.Conservative.InputDim()
}

func (d *Decomposer) Parameters() []*autodiff.Tensor {
	return append(d.Dissipative.Parameters(), d.Conservative.Parameters()...)
}

// Components holds the output of Decomposer.Evaluate.
type Components struct {
	Irrotational *autodiff.Tensor
	Rotational   *autodiff.Tensor
	Total        *autodiff.Tensor
}

// AuxField is a decomposer evaluated with the same auxiliary features for
// every sample, which makes it a plain phase-space field.
type AuxField struct {
	model *Decomposer
	aux   *autodiff.Tensor
}

// WithAux fixes the auxiliary input to rho.
func (d *Decomposer) WithAux(rho []float64) *AuxField {
	return &AuxField{model: d, aux: autodiff.New(1, len(rho), rho)}
}

func (a *AuxField) VectorField(x *autodiff.Tensor) (*autodiff.Tensor, error) {
	n, _ := x.Dims()
	rho, err := autodiff.BroadcastRows(a.aux, n)
	if err != nil {
		return nil, err
	}
	return a.model.Forward(x, rho)
}

func (a *AuxField) StateDim() int {
	_, w := a.aux.Dims()
	return a.model.StateDim() - w
}

// GetParams exposes the auxiliary features as aux0, aux1, ...
func (a *AuxField) GetParams() map[string]float64 {
	rho := a.aux.Row(0)
	params := make(map[string]float64, len(rho))
	for i, v := range rho {
		params[auxParam(i)] = v
	}
	return params
}

func (a *AuxField) SetParam(name string, v float64) error {
	rho := a.aux.Row(0)
	for i := range rho {
		if auxParam(i) != name {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s = %g", dynamo.ErrParameterBounds, name, v)
		}
		rho[i] = v
		a.aux = autodiff.New(1, len(rho), rho)
		return nil
	}
	return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
}

func auxParam(i int) string { return "aux" + strconv.Itoa(i) }

// Package nn holds the learnable building blocks of the field models.
package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/helmholtz/internal/autodiff"
)

// Approximator is a two-layer perceptron with a tanh hidden layer.
type Approximator struct {
	First  *Linear
	Second *Linear
}

func NewApproximator(inputDim, outputDim, hiddenDim int, rng *rand.Rand) *Approximator {
	return &Approximator{
		First:  NewLinear(inputDim, hiddenDim, rng),
		Second: NewLinear(hiddenDim, outputDim, rng),
	}
}

// Forward maps [batch, inputDim] to [batch, outputDim]. A feature count
// that disagrees with the first layer fails with autodiff.ErrShape.
func (a *Approximator) Forward(x *autodiff.Tensor) (*autodiff.Tensor, error) {
	h, err := a.First.Forward(x)
	if err != nil {
		return nil, err
	}
	return a.Second.Forward(autodiff.Tanh(h))
}

// Parameters returns the first weight, first bias, second weight and second
// bias, in that order.
func (a *Approximator) Parameters() []*autodiff.Tensor {
	return append(a.First.Parameters(), a.Second.Parameters()...)
}

// SetParameters replaces the parameters, in the order of Parameters. The
// given tensors are marked as tracked. Nothing changes unless all four
// shapes fit.
func (a *Approximator) SetParameters(params []*autodiff.Tensor) error {
	if len(params) != 4 {
		return fmt.Errorf("approximator: expected 4 parameters, got %d", len(params))
	}
	if err := a.First.checkParameters(params[0], params[1]); err != nil {
		return fmt.Errorf("first layer: %w", err)
	}
	if err := a.Second.checkParameters(params[2], params[3]); err != nil {
		return fmt.Errorf("second layer: %w", err)
	}
	a.First.setParameters(params[0], params[1])
	a.Second.setParameters(params[2], params[3])
	return nil
}

func (a *Approximator) InputDim() int  { return a.First.InFeatures() }
func (a *Approximator) HiddenDim() int { return a.First.OutFeatures() }
func (a *Approximator) OutputDim() int { return a.Second.OutFeatures() }

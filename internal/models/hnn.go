package models

import (
	"math"
	"math/rand/v2"

	"github.com/san-kum/helmholtz/internal/autodiff"
	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/nn"
)

// HNN learns a single Hamiltonian and predicts its symplectic gradient.
type HNN struct {
	MLP *nn.Approximator
}

func NewHNN(inputDim, hiddenDim int, rng *rand.Rand) *HNN {
	return &HNN{MLP: nn.NewApproximator(inputDim, 1, hiddenDim, rng)}
}

// Hamiltonian returns H, channel 0 of the approximator output, as
// [batch, 1].
func (h *HNN) Hamiltonian(x *autodiff.Tensor) (*autodiff.Tensor, error) {
	out, err := h.MLP.Forward(x)
	if err != nil {
		return nil, err
	}
	return autodiff.SliceCols(out, 0, 1)
}

// Forward returns (dH/dp, -dH/dq), shaped like x.
func (h *HNN) Forward(x *autodiff.Tensor) (*autodiff.Tensor, error) {
	ham, err := h.Hamiltonian(x)
	if err != nil {
		return nil, err
	}
	grad, err := inputGradient(ham, x)
	if err != nil {
		return nil, err
	}
	return SymplecticGradient(grad)
}

func (h *HNN) VectorField(x *autodiff.Tensor) (*autodiff.Tensor, error) {
	return h.Forward(x)
}

func (h *HNN) StateDim() int {
	return h.MLP.InputDim()
}

func (h *HNN) Parameters() []*autodiff.Tensor {
	return h.MLP.Parameters()
}

// Energy evaluates the learned Hamiltonian at a single state. It returns NaN
// when the state does not fit the model.
func (h *HNN) Energy(x dynamo.State) float64 {
	ham, err := h.Hamiltonian(autodiff.New(1, len(x), x))
	if err != nil {
		return math.NaN()
	}
	return ham.At(0, 0)
}

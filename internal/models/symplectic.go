package models

import "github.com/san-kum/helmholtz/internal/autodiff"

// SymplecticGradient maps a gradient (dH/dq, dH/dp) to the Hamiltonian
// vector field (dH/dp, -dH/dq). An odd feature count fails at the split with
// autodiff.ErrShape.
func SymplecticGradient(grad *autodiff.Tensor) (*autodiff.Tensor, error) {
	halves, err := autodiff.Split(grad, 2)
	if err != nil {
		return nil, err
	}
	dHdq, dHdp := halves[0], halves[1]
	return autodiff.Concat(dHdp, autodiff.Neg(dHdq))
}

// inputGradient differentiates the batch sum of a [batch, 1] potential with
// respect to x, keeping the graph.
func inputGradient(potential, x *autodiff.Tensor) (*autodiff.Tensor, error) {
	g, err := autodiff.Grad(autodiff.Sum(potential), []*autodiff.Tensor{x}, autodiff.WithCreateGraph())
	if err != nil {
		return nil, err
	}
	return g[0], nil
}

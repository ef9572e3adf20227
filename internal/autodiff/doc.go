// Package autodiff provides reverse-mode automatic differentiation over
// batched float64 matrices.
//
// A [Tensor] is an immutable rows x cols value (rows = batch, cols =
// features). Leaves that should receive gradients are marked with
// [Tensor.RequireGrad]; every op applied to a tracked tensor records a node
// in the computation graph.
//
// Backward rules are written with the same ops as the forward pass, so a
// gradient computed by [Grad] with [WithCreateGraph] is itself a graph tensor
// and can be differentiated again:
//
//	x := autodiff.Variable(batch, n, data)
//	y := autodiff.Sum(autodiff.Tanh(x))
//	g, _ := autodiff.Grad(y, []*autodiff.Tensor{x}, autodiff.WithCreateGraph())
//	h, _ := autodiff.Grad(autodiff.Sum(g[0]), []*autodiff.Tensor{x})
//
// The graph is never consumed; Grad may be called any number of times on the
// same output.
package autodiff

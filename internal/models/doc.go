// Package models implements learned phase-space vector fields.
//
//   - [Decomposer]: Helmholtz-style model with a dissipative potential D and
//     a conservative potential H; the field is grad D plus the symplectic
//     gradient of H.
//   - [HNN]: a single learned Hamiltonian H and its symplectic gradient.
//
// Inputs are [batch, n] tensors with n even: positions in the first half,
// momenta in the second. The input must track gradients
// (autodiff.Tensor.RequireGrad); returned fields stay attached to the
// computation graph so that training objectives can differentiate them
// again.
//
// # Example
//
//	rng := rand.New(rand.NewPCG(1, 2))
//	model := models.NewDecomposer(2, 200, rng)
//	x := autodiff.Variable(batch, 2, points)
//	irr, rot, err := model.Separate(x, nil)
package models

// Package physics provides analytic reference systems for the learned field
// models.
//
// Each system implements [dynamo.System], [dynamo.Hamiltonian] and
// [dynamo.Decomposable]. States are canonical (q, p): the rotational part of
// the field is the symplectic gradient of the Hamiltonian and the
// irrotational part is the gradient of a dissipative potential D.
//
//   - [DampedSpring]: H = p^2/2m + k q^2/2, D = -c p^2/2m
//   - [Pendulum]: H = p^2/2mL^2 + mgL(1 - cos q), D = -c p^2/2mL^2
//   - [Duffing]: H = p^2/2 + a q^2/2 + b q^4/4, D = -d p^2/2
//
// # Energy Conservation
//
// With zero damping every system is conservative:
//
//	dyn := physics.NewDampedSpring()
//	dyn.Damping = 0
//	energy := dyn.Energy(state)
package physics

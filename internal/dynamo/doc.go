// Package dynamo provides the phase-space primitives shared by the reference
// systems, the integrators and the learned field models.
//
//   - [State]: phase-space point, positions first then momenta
//   - [System]: autonomous ODE dX/dt = f(X, t)
//   - [Hamiltonian]: systems (or models) that expose a scalar energy
//   - [Decomposable]: systems with a known irrotational/rotational split
//   - [Integrator]: numerical stepper
//
// # Example
//
//	dyn := physics.NewDampedSpring()
//	integ := integrators.NewRK4()
//	x := dynamo.State{1, 0}
//	for i := 0; i < 100; i++ {
//		x = integ.Step(dyn, x, float64(i)*dt, dt)
//	}
package dynamo

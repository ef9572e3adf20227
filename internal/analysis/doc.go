// Package analysis characterizes vector fields and the trajectories they
// generate.
//
// Field diagnostics work on batches through the autodiff graph:
//
//   - [Jacobian]: per-sample Jacobian of a batched field
//   - [Divergence]: differentiable trace of the Jacobian
//   - [CurlResidual]: asymmetry of the Jacobian, zero for gradient fields
//   - [SymplecticResidual]: zero for Hamiltonian fields
//
// Trajectory tools run any [dynamo.System] through an integrator:
//
//   - [LyapunovExponent]: largest exponent via twin trajectories
//   - [BifurcationDiagram]: parameter sweep over a configurable system,
//     including the auxiliary input of a learned field
//   - [GeneratePhasePortrait]: 2D phase space trajectories, compared
//     with [PortraitDeviation]
//   - [GeneratePoincareSection]: upward crossings of a coordinate
//
// A step that leaves the finite numbers stops a trajectory tool with a
// [dynamo.SimulationError].
//   - [PowerSpectrum], [DominantFrequency]: spectra of a sampled signal
//
// # Checking a decomposition
//
// The rotational part of a learned decomposition should be divergence-free
// and the irrotational part curl-free:
//
//	rot := func(x *autodiff.Tensor) (*autodiff.Tensor, error) {
//	    _, r, err := dec.Separate(x, nil)
//	    return r, err
//	}
//	div, err := analysis.Divergence(rot, x)
package analysis

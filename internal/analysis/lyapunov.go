package analysis

import (
	"math"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent by following a
// perturbed twin trajectory and renormalizing the separation every step.
// Negative values mean nearby states converge, as they do under damping.
func LyapunovExponent(
	dyn dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt, duration float64,
	perturbation float64,
) float64 {
	if len(x0) == 0 || perturbation <= 0 || dt <= 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation

	t := 0.0
	sumLog := 0.0

	for t < duration {
		x = integ.Step(dyn, x, t, dt)
		xp = integ.Step(dyn, xp, t, dt)
		t += dt

		sep := xp.Sub(x).Norm()
		if sep == 0 || math.IsNaN(sep) {
			return math.Inf(-1)
		}
		sumLog += math.Log(sep / perturbation)

		scale := perturbation / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if t == 0 {
		return 0
	}
	return sumLog / t
}

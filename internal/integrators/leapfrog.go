package integrators

import (
	"math"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// Leapfrog is the kick-drift-kick scheme on a state split into positions
// (first half) and momenta (second half). It is symplectic for separable
// Hamiltonians and reads velocities and forces from the field itself, so it
// applies to learned fields as well. An odd-length state has no such split
// and steps to all NaN, which stops a validating rollout.
type Leapfrog struct {
	scratch dynamo.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	if n%2 != 0 {
		nan := make(dynamo.State, n)
		for i := range nan {
			nan[i] = math.NaN()
		}
		return nan
	}
	half := n / 2

	if len(l.scratch) != n {
		l.scratch = make(dynamo.State, n)
	}

	halfDt := dt * 0.5
	dx := dyn.Derive(x, t)

	// kick
	copy(l.scratch, x)
	for i := half; i < n; i++ {
		l.scratch[i] = x[i] + dx[i]*halfDt
	}

	// drift
	dxHalf := dyn.Derive(l.scratch, t+halfDt)
	result := make(dynamo.State, n)
	for i := 0; i < half; i++ {
		result[i] = x[i] + dxHalf[i]*dt
		l.scratch[i] = result[i]
	}

	// kick
	dxNew := dyn.Derive(l.scratch, t+dt)
	for i := half; i < n; i++ {
		result[i] = l.scratch[i] + dxNew[i]*halfDt
	}

	return result
}

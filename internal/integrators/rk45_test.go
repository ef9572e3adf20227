package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}

	x := dynamo.State{1.0, 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	finalEnergy := dyn.Energy(x)
	drift := math.Abs(finalEnergy-initialEnergy) / initialEnergy

	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	x, newDt, err := integrator.StepAdaptive(dyn, x0, 0, 0.1, 1e-8)

	if err != nil {
		t.Errorf("StepAdaptive returned error: %v", err)
	}

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}

	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}

	if _, _, err := integrator.StepAdaptive(dyn, x0, 0, 0.1, 0); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds for zero tolerance, got %v", err)
	}
}

func TestLeapfrog_BoundedEnergy(t *testing.T) {
	integrator := NewLeapfrog()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}
	dt := 0.02

	maxDrift := 0.0
	for i := 0; i < 20000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
		maxDrift = math.Max(maxDrift, math.Abs(dyn.Energy(x)-0.5)/0.5)
	}

	// symplectic: the energy error oscillates at O(dt^2) instead of growing
	if maxDrift > 1e-3 {
		t.Errorf("leapfrog energy drift too high: %e", maxDrift)
	}
}

func TestLeapfrog_OddState(t *testing.T) {
	x := dynamo.State{1, 2, 3}
	got := NewLeapfrog().Step(&harmonicOscillator{}, x, 0, 0.1)
	if len(got) != len(x) {
		t.Fatalf("expected %d components, got %d", len(x), len(got))
	}
	for i := range got {
		if !math.IsNaN(got[i]) {
			t.Fatalf("expected all-NaN state for odd dimension, got %v", got)
		}
	}
	if got.IsValid() {
		t.Fatal("odd-dimension step should not produce a valid state")
	}
}

package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) StateDim() int { return 2 }

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerFirstOrder(t *testing.T) {
	dyn := &harmonicOscillator{}
	x := NewEuler().Step(dyn, dynamo.State{1.0, 0.0}, 0, 0.1)

	if x[0] != 1.0 || math.Abs(x[1]+0.1) > 1e-15 {
		t.Errorf("unexpected euler step %v", x)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		integ, err := New(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		x := integ.Step(&harmonicOscillator{}, dynamo.State{1, 0}, 0, 0.01)
		if !x.IsValid() {
			t.Errorf("%s produced invalid state", name)
		}
	}

	if _, err := New("midpoint"); err == nil {
		t.Error("expected error for unknown integrator")
	}
}

package nn

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/san-kum/helmholtz/internal/autodiff"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func fixture(t *testing.T) *Approximator {
	t.Helper()
	a := NewApproximator(2, 1, 2, newRand(1))
	err := a.SetParameters([]*autodiff.Tensor{
		autodiff.New(2, 2, []float64{1, 2, 3, 4}),
		autodiff.New(1, 2, []float64{0.5, -0.5}),
		autodiff.New(2, 1, []float64{2, -1}),
		autodiff.New(1, 1, []float64{0.25}),
	})
	if err != nil {
		t.Fatalf("set parameters: %v", err)
	}
	return a
}

func TestApproximatorShapes(t *testing.T) {
	tests := []struct {
		batch, in, out, hidden int
	}{
		{1, 2, 1, 8},
		{5, 4, 1, 16},
		{3, 6, 3, 4},
	}

	for _, tt := range tests {
		a := NewApproximator(tt.in, tt.out, tt.hidden, newRand(7))
		x := autodiff.Zeros(tt.batch, tt.in)
		y, err := a.Forward(x)
		if err != nil {
			t.Fatalf("forward: %v", err)
		}
		r, c := y.Dims()
		if r != tt.batch || c != tt.out {
			t.Errorf("expected %dx%d, got %dx%d", tt.batch, tt.out, r, c)
		}
		if a.InputDim() != tt.in || a.OutputDim() != tt.out || a.HiddenDim() != tt.hidden {
			t.Errorf("unexpected dims %d %d %d", a.InputDim(), a.OutputDim(), a.HiddenDim())
		}
	}
}

func TestApproximatorZeroInput(t *testing.T) {
	a := fixture(t)

	y, err := a.Forward(autodiff.Zeros(3, 2))
	if err != nil {
		t.Fatal(err)
	}

	expected := 2*math.Tanh(0.5) - math.Tanh(-0.5) + 0.25
	for i := 0; i < 3; i++ {
		if math.Abs(y.At(i, 0)-expected) > 1e-12 {
			t.Errorf("row %d: expected %f, got %f", i, expected, y.At(i, 0))
		}
	}
}

func TestApproximatorKnownValue(t *testing.T) {
	a := fixture(t)

	y, err := a.Forward(autodiff.New(1, 2, []float64{1, -1}))
	if err != nil {
		t.Fatal(err)
	}

	// hidden pre-activation: [1-3+0.5, 2-4-0.5] = [-1.5, -2.5]
	expected := 2*math.Tanh(-1.5) - math.Tanh(-2.5) + 0.25
	if math.Abs(y.At(0, 0)-expected) > 1e-12 {
		t.Errorf("expected %f, got %f", expected, y.At(0, 0))
	}
}

func TestApproximatorDeterministicInit(t *testing.T) {
	a := NewApproximator(4, 1, 8, newRand(42))
	b := NewApproximator(4, 1, 8, newRand(42))

	pa, pb := a.Parameters(), b.Parameters()
	for i := range pa {
		da, db := pa[i].Data(), pb[i].Data()
		for j := range da {
			if da[j] != db[j] {
				t.Fatalf("parameter %d differs at %d", i, j)
			}
		}
	}

	bound := 1 / math.Sqrt(4)
	for _, v := range a.First.Weight.Data() {
		if math.Abs(v) > bound {
			t.Errorf("weight %f outside init bound %f", v, bound)
		}
	}
}

func TestApproximatorParametersTrack(t *testing.T) {
	a := NewApproximator(2, 1, 4, newRand(3))
	params := a.Parameters()
	if len(params) != 4 {
		t.Fatalf("expected 4 parameters, got %d", len(params))
	}

	y, err := a.Forward(autodiff.New(2, 2, []float64{0.1, 0.2, 0.3, 0.4}))
	if err != nil {
		t.Fatal(err)
	}
	grads, err := autodiff.Grad(autodiff.Sum(y), params)
	if err != nil {
		t.Fatalf("grad wrt parameters: %v", err)
	}
	for i, g := range grads {
		gr, gc := g.Dims()
		pr, pc := params[i].Dims()
		if gr != pr || gc != pc {
			t.Errorf("parameter %d: gradient %dx%d for %dx%d", i, gr, gc, pr, pc)
		}
	}
}

func TestApproximatorShapeMismatch(t *testing.T) {
	a := NewApproximator(3, 1, 4, newRand(5))
	_, err := a.Forward(autodiff.Zeros(2, 4))
	if !errors.Is(err, autodiff.ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
}

func TestSetParametersRejectsBadShapes(t *testing.T) {
	a := NewApproximator(2, 1, 2, newRand(1))

	if err := a.SetParameters(a.Parameters()[:3]); err == nil {
		t.Error("expected error for missing parameter")
	}

	err := a.SetParameters([]*autodiff.Tensor{
		autodiff.Zeros(3, 2),
		autodiff.Zeros(1, 2),
		autodiff.Zeros(2, 1),
		autodiff.Zeros(1, 1),
	})
	if !errors.Is(err, autodiff.ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}

	// A good first layer must not be applied when the second one is bad.
	before := a.First.Weight.Data()
	err = a.SetParameters([]*autodiff.Tensor{
		autodiff.Ones(2, 2),
		autodiff.Ones(1, 2),
		autodiff.Ones(3, 1),
		autodiff.Ones(1, 1),
	})
	if !errors.Is(err, autodiff.ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
	after := a.First.Weight.Data()
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("first layer changed on rejected update: %v -> %v", before, after)
		}
	}
}

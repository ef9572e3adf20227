package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/san-kum/helmholtz/internal/autodiff"
)

// Linear is a fully connected layer computing x W + b.
type Linear struct {
	Weight *autodiff.Tensor // [inFeatures, outFeatures]
	Bias   *autodiff.Tensor // [1, outFeatures]
}

// NewLinear draws weights and biases from U(-1/sqrt(in), 1/sqrt(in)).
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	bound := 1 / math.Sqrt(float64(inFeatures))
	uniform := func(n int) []float64 {
		d := make([]float64, n)
		for i := range d {
			d[i] = (2*rng.Float64() - 1) * bound
		}
		return d
	}
	return &Linear{
		Weight: autodiff.Variable(inFeatures, outFeatures, uniform(inFeatures*outFeatures)),
		Bias:   autodiff.Variable(1, outFeatures, uniform(outFeatures)),
	}
}

// Forward maps [batch, inFeatures] to [batch, outFeatures].
func (l *Linear) Forward(x *autodiff.Tensor) (*autodiff.Tensor, error) {
	h, err := autodiff.MatMul(x, l.Weight)
	if err != nil {
		return nil, err
	}
	return autodiff.AddRow(h, l.Bias)
}

func (l *Linear) Parameters() []*autodiff.Tensor {
	return []*autodiff.Tensor{l.Weight, l.Bias}
}

func (l *Linear) InFeatures() int {
	r, _ := l.Weight.Dims()
	return r
}

func (l *Linear) OutFeatures() int {
	_, c := l.Weight.Dims()
	return c
}

func (l *Linear) checkParameters(weight, bias *autodiff.Tensor) error {
	wr, wc := weight.Dims()
	br, bc := bias.Dims()
	if wr != l.InFeatures() || wc != l.OutFeatures() || br != 1 || bc != wc {
		return fmt.Errorf("%w: linear %dx%d got weight %dx%d bias %dx%d",
			autodiff.ErrShape, l.InFeatures(), l.OutFeatures(), wr, wc, br, bc)
	}
	return nil
}

// setParameters assumes checkParameters accepted weight and bias.
func (l *Linear) setParameters(weight, bias *autodiff.Tensor) {
	l.Weight = weight.RequireGrad()
	l.Bias = bias.RequireGrad()
}

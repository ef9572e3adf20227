package autodiff

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor is an immutable batch of feature vectors with an optional place in
// a computation graph.
type Tensor struct {
	value   *mat.Dense
	tracked bool
	node    *node
}

type node struct {
	op       string
	inputs   []*Tensor
	backward func(g *Tensor) ([]*Tensor, error)
}

// New returns an untracked rows x cols tensor holding a copy of data in
// row-major order. It panics if len(data) != rows*cols.
func New(rows, cols int, data []float64) *Tensor {
	if len(data) != rows*cols {
		panic(fmt.Sprintf("autodiff: data length %d != %dx%d", len(data), rows, cols))
	}
	d := make([]float64, len(data))
	copy(d, data)
	return &Tensor{value: mat.NewDense(rows, cols, d)}
}

// Variable is New followed by RequireGrad.
func Variable(rows, cols int, data []float64) *Tensor {
	return New(rows, cols, data).RequireGrad()
}

func Zeros(rows, cols int) *Tensor {
	return &Tensor{value: mat.NewDense(rows, cols, nil)}
}

func Ones(rows, cols int) *Tensor {
	return Full(rows, cols, 1)
}

// Full returns a rows x cols tensor with every element set to v.
func Full(rows, cols int, v float64) *Tensor {
	d := make([]float64, rows*cols)
	for i := range d {
		d[i] = v
	}
	return &Tensor{value: mat.NewDense(rows, cols, d)}
}

// FromDense returns an untracked tensor holding a copy of m.
func FromDense(m mat.Matrix) *Tensor {
	return &Tensor{value: mat.DenseCopyOf(m)}
}

func wrap(m *mat.Dense) *Tensor {
	return &Tensor{value: m}
}

// RequireGrad marks a leaf tensor as tracked and returns it. Tensors produced
// by ops on tracked inputs are tracked already.
func (t *Tensor) RequireGrad() *Tensor {
	t.tracked = true
	return t
}

// RequiresGrad reports whether gradients flow to or through t.
func (t *Tensor) RequiresGrad() bool {
	return t.tracked
}

// IsLeaf reports whether t was created directly rather than by an op on
// tracked inputs.
func (t *Tensor) IsLeaf() bool {
	return t.node == nil
}

// Detach returns an untracked tensor sharing t's value.
func (t *Tensor) Detach() *Tensor {
	return &Tensor{value: t.value}
}

func (t *Tensor) Dims() (rows, cols int) {
	return t.value.Dims()
}

func (t *Tensor) At(i, j int) float64 {
	return t.value.At(i, j)
}

// Data returns a row-major copy of the values.
func (t *Tensor) Data() []float64 {
	r, c := t.value.Dims()
	d := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		d = append(d, t.value.RawRowView(i)...)
	}
	return d
}

// Row returns a copy of row i.
func (t *Tensor) Row(i int) []float64 {
	row := t.value.RawRowView(i)
	d := make([]float64, len(row))
	copy(d, row)
	return d
}

// Dense returns a copy of the values as a gonum matrix.
func (t *Tensor) Dense() *mat.Dense {
	return mat.DenseCopyOf(t.value)
}

// Scalar returns the single element of a 1x1 tensor.
func (t *Tensor) Scalar() (float64, error) {
	if r, c := t.Dims(); r != 1 || c != 1 {
		return 0, fmt.Errorf("%w: got %dx%d", ErrNotScalar, r, c)
	}
	return t.value.At(0, 0), nil
}

func (t *Tensor) String() string {
	r, c := t.Dims()
	return fmt.Sprintf("Tensor(%dx%d, grad=%t)\n%v", r, c, t.tracked, mat.Formatted(t.value))
}

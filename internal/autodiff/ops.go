package autodiff

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

func record(v *mat.Dense, op string, inputs []*Tensor, backward func(g *Tensor) ([]*Tensor, error)) *Tensor {
	t := wrap(v)
	for _, in := range inputs {
		if in.tracked {
			t.tracked = true
			t.node = &node{op: op, inputs: inputs, backward: backward}
			break
		}
	}
	return t
}

func sameDims(op string, a, b *Tensor) error {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return newShapeError(op, "", a, b)
	}
	return nil
}

// Add returns a + b elementwise.
func Add(a, b *Tensor) (*Tensor, error) {
	if err := sameDims("add", a, b); err != nil {
		return nil, err
	}
	var v mat.Dense
	v.Add(a.value, b.value)
	return record(&v, "add", []*Tensor{a, b}, func(g *Tensor) ([]*Tensor, error) {
		return []*Tensor{g, g}, nil
	}), nil
}

// Sub returns a - b elementwise.
func Sub(a, b *Tensor) (*Tensor, error) {
	if err := sameDims("sub", a, b); err != nil {
		return nil, err
	}
	var v mat.Dense
	v.Sub(a.value, b.value)
	return record(&v, "sub", []*Tensor{a, b}, func(g *Tensor) ([]*Tensor, error) {
		return []*Tensor{g, Neg(g)}, nil
	}), nil
}

// Mul returns the elementwise product of a and b.
func Mul(a, b *Tensor) (*Tensor, error) {
	if err := sameDims("mul", a, b); err != nil {
		return nil, err
	}
	var v mat.Dense
	v.MulElem(a.value, b.value)
	return record(&v, "mul", []*Tensor{a, b}, func(g *Tensor) ([]*Tensor, error) {
		ga, err := Mul(g, b)
		if err != nil {
			return nil, err
		}
		gb, err := Mul(g, a)
		if err != nil {
			return nil, err
		}
		return []*Tensor{ga, gb}, nil
	}), nil
}

func Neg(a *Tensor) *Tensor {
	return Scale(a, -1)
}

// Scale returns s * a.
func Scale(a *Tensor, s float64) *Tensor {
	var v mat.Dense
	v.Scale(s, a.value)
	return record(&v, "scale", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		return []*Tensor{Scale(g, s)}, nil
	})
}

// AddScalar returns a + c elementwise.
func AddScalar(a *Tensor, c float64) *Tensor {
	var v mat.Dense
	v.Apply(func(_, _ int, x float64) float64 { return x + c }, a.value)
	return record(&v, "add_scalar", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		return []*Tensor{g}, nil
	})
}

func Square(a *Tensor) *Tensor {
	var v mat.Dense
	v.MulElem(a.value, a.value)
	return record(&v, "square", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		ga, err := Mul(g, Scale(a, 2))
		if err != nil {
			return nil, err
		}
		return []*Tensor{ga}, nil
	})
}

// Tanh applies the hyperbolic tangent elementwise. Its backward rule reuses
// the output, d tanh = 1 - tanh^2.
func Tanh(a *Tensor) *Tensor {
	var v mat.Dense
	v.Apply(func(_, _ int, x float64) float64 { return math.Tanh(x) }, a.value)
	var out *Tensor
	out = record(&v, "tanh", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		ga, err := Mul(g, AddScalar(Neg(Square(out)), 1))
		if err != nil {
			return nil, err
		}
		return []*Tensor{ga}, nil
	})
	return out
}

// MatMul returns the matrix product a b.
func MatMul(a, b *Tensor) (*Tensor, error) {
	_, ac := a.Dims()
	br, _ := b.Dims()
	if ac != br {
		return nil, newShapeError("matmul", "", a, b)
	}
	var v mat.Dense
	v.Mul(a.value, b.value)
	return record(&v, "matmul", []*Tensor{a, b}, func(g *Tensor) ([]*Tensor, error) {
		ga, err := MatMul(g, Transpose(b))
		if err != nil {
			return nil, err
		}
		gb, err := MatMul(Transpose(a), g)
		if err != nil {
			return nil, err
		}
		return []*Tensor{ga, gb}, nil
	}), nil
}

func Transpose(a *Tensor) *Tensor {
	v := mat.DenseCopyOf(a.value.T())
	return record(v, "transpose", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		return []*Tensor{Transpose(g)}, nil
	})
}

// AddRow adds the 1 x cols tensor row to every row of a.
func AddRow(a, row *Tensor) (*Tensor, error) {
	r, c := a.Dims()
	rr, rc := row.Dims()
	if rr != 1 || rc != c {
		return nil, newShapeError("add_row", "", a, row)
	}
	v := mat.NewDense(r, c, nil)
	bias := row.value.RawRowView(0)
	for i := 0; i < r; i++ {
		src := a.value.RawRowView(i)
		dst := v.RawRowView(i)
		for j := range dst {
			dst[j] = src[j] + bias[j]
		}
	}
	return record(v, "add_row", []*Tensor{a, row}, func(g *Tensor) ([]*Tensor, error) {
		return []*Tensor{g, SumRows(g)}, nil
	}), nil
}

// SumRows sums over the batch axis, returning a 1 x cols tensor.
func SumRows(a *Tensor) *Tensor {
	r, c := a.Dims()
	v := mat.NewDense(1, c, nil)
	dst := v.RawRowView(0)
	for i := 0; i < r; i++ {
		for j, x := range a.value.RawRowView(i) {
			dst[j] += x
		}
	}
	return record(v, "sum_rows", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		ga, err := BroadcastRows(g, r)
		if err != nil {
			return nil, err
		}
		return []*Tensor{ga}, nil
	})
}

// BroadcastRows repeats the 1 x cols tensor row n times.
func BroadcastRows(row *Tensor, n int) (*Tensor, error) {
	rr, c := row.Dims()
	if rr != 1 || n < 1 {
		return nil, newShapeError("broadcast_rows", fmt.Sprintf("to %d rows", n), row)
	}
	v := mat.NewDense(n, c, nil)
	src := row.value.RawRowView(0)
	for i := 0; i < n; i++ {
		copy(v.RawRowView(i), src)
	}
	return record(v, "broadcast_rows", []*Tensor{row}, func(g *Tensor) ([]*Tensor, error) {
		return []*Tensor{SumRows(g)}, nil
	}), nil
}

// Sum reduces a to a 1x1 tensor.
func Sum(a *Tensor) *Tensor {
	r, c := a.Dims()
	v := mat.NewDense(1, 1, []float64{mat.Sum(a.value)})
	return record(v, "sum", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		ga, err := Fill(g, r, c)
		if err != nil {
			return nil, err
		}
		return []*Tensor{ga}, nil
	})
}

// Fill expands the 1x1 tensor s to rows x cols.
func Fill(s *Tensor, rows, cols int) (*Tensor, error) {
	x, err := s.Scalar()
	if err != nil {
		return nil, err
	}
	if rows < 1 || cols < 1 {
		return nil, newShapeError("fill", fmt.Sprintf("to %dx%d", rows, cols), s)
	}
	return record(Full(rows, cols, x).value, "fill", []*Tensor{s}, func(g *Tensor) ([]*Tensor, error) {
		return []*Tensor{Sum(g)}, nil
	}), nil
}

// Concat joins tensors along the feature axis. All operands must share the
// batch size.
func Concat(ts ...*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return nil, newShapeError("concat", "no operands")
	}
	rows, _ := ts[0].Dims()
	offsets := make([]int, len(ts)+1)
	for i, t := range ts {
		r, c := t.Dims()
		if r != rows {
			return nil, newShapeError("concat", "batch sizes differ", ts...)
		}
		offsets[i+1] = offsets[i] + c
	}
	v := mat.NewDense(rows, offsets[len(ts)], nil)
	for i := 0; i < rows; i++ {
		dst := v.RawRowView(i)
		for k, t := range ts {
			copy(dst[offsets[k]:offsets[k+1]], t.value.RawRowView(i))
		}
	}
	inputs := append([]*Tensor(nil), ts...)
	return record(v, "concat", inputs, func(g *Tensor) ([]*Tensor, error) {
		grads := make([]*Tensor, len(inputs))
		for k := range inputs {
			gk, err := SliceCols(g, offsets[k], offsets[k+1])
			if err != nil {
				return nil, err
			}
			grads[k] = gk
		}
		return grads, nil
	}), nil
}

// SliceCols returns columns [from, to) of a.
func SliceCols(a *Tensor, from, to int) (*Tensor, error) {
	r, c := a.Dims()
	if from < 0 || to > c || from >= to {
		return nil, newShapeError("slice_cols", fmt.Sprintf("columns [%d, %d)", from, to), a)
	}
	v := mat.DenseCopyOf(a.value.Slice(0, r, from, to))
	return record(v, "slice_cols", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		ga, err := PadCols(g, from, c)
		if err != nil {
			return nil, err
		}
		return []*Tensor{ga}, nil
	}), nil
}

// PadCols places a at column offset from inside a zero tensor of the given
// width.
func PadCols(a *Tensor, from, width int) (*Tensor, error) {
	r, c := a.Dims()
	if from < 0 || from+c > width {
		return nil, newShapeError("pad_cols", fmt.Sprintf("offset %d width %d", from, width), a)
	}
	v := mat.NewDense(r, width, nil)
	for i := 0; i < r; i++ {
		copy(v.RawRowView(i)[from:from+c], a.value.RawRowView(i))
	}
	return record(v, "pad_cols", []*Tensor{a}, func(g *Tensor) ([]*Tensor, error) {
		ga, err := SliceCols(g, from, from+c)
		if err != nil {
			return nil, err
		}
		return []*Tensor{ga}, nil
	}), nil
}

// Split cuts a into parts equal chunks along the feature axis. A feature
// count not divisible by parts is an error; nothing is truncated.
func Split(a *Tensor, parts int) ([]*Tensor, error) {
	_, c := a.Dims()
	if parts < 1 || c%parts != 0 {
		return nil, newShapeError("split", fmt.Sprintf("%d columns into %d equal parts", c, parts), a)
	}
	w := c / parts
	out := make([]*Tensor, parts)
	for k := range out {
		s, err := SliceCols(a, k*w, (k+1)*w)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}

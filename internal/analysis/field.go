package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/helmholtz/internal/autodiff"
	"github.com/san-kum/helmholtz/internal/dynamo"
)

// FieldFunc maps a batch of states (batch x d) to a batch of vectors
// (batch x m). Rows must not interact.
type FieldFunc func(x *autodiff.Tensor) (*autodiff.Tensor, error)

// tracked returns x itself if it records gradients, otherwise a tracked
// copy.
func tracked(x *autodiff.Tensor) *autodiff.Tensor {
	if x.RequiresGrad() {
		return x
	}
	r, c := x.Dims()
	return autodiff.Variable(r, c, x.Data())
}

func evaluate(f FieldFunc, x *autodiff.Tensor) (*autodiff.Tensor, int, int, int, error) {
	out, err := f(x)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	n, d := x.Dims()
	on, m := out.Dims()
	if on != n {
		return nil, 0, 0, 0, fmt.Errorf("%w: field returned %d rows for %d states", autodiff.ErrShape, on, n)
	}
	return out, n, d, m, nil
}

// Jacobian returns one m x d matrix per row of x, J[i][j] = df_i/dx_j.
func Jacobian(f FieldFunc, x *autodiff.Tensor) ([]*mat.Dense, error) {
	x = tracked(x)
	out, n, d, m, err := evaluate(f, x)
	if err != nil {
		return nil, err
	}

	jac := make([]*mat.Dense, n)
	for b := range jac {
		jac[b] = mat.NewDense(m, d, nil)
	}

	for i := 0; i < m; i++ {
		col, err := autodiff.SliceCols(out, i, i+1)
		if err != nil {
			return nil, err
		}
		// Rows are independent, so the gradient of the column sum holds
		// each sample's row of the Jacobian. A column that ignores x gives
		// a zero row.
		g, err := autodiff.Grad(autodiff.Sum(col), []*autodiff.Tensor{x}, autodiff.WithAllowUnused())
		if err != nil {
			return nil, fmt.Errorf("jacobian row %d: %w", i, err)
		}
		for b := 0; b < n; b++ {
			jac[b].SetRow(i, g[0].Row(b))
		}
	}
	return jac, nil
}

// Divergence returns the trace of the Jacobian per sample as a batch x 1
// tensor. The result stays on the graph, so it can be penalized and
// differentiated with respect to model parameters.
func Divergence(f FieldFunc, x *autodiff.Tensor) (*autodiff.Tensor, error) {
	x = tracked(x)
	out, _, d, m, err := evaluate(f, x)
	if err != nil {
		return nil, err
	}
	if m != d {
		return nil, fmt.Errorf("%w: divergence needs a square field, got %d -> %d", autodiff.ErrShape, d, m)
	}

	var div *autodiff.Tensor
	for i := 0; i < d; i++ {
		col, err := autodiff.SliceCols(out, i, i+1)
		if err != nil {
			return nil, err
		}
		g, err := autodiff.Grad(autodiff.Sum(col), []*autodiff.Tensor{x}, autodiff.WithCreateGraph(), autodiff.WithAllowUnused())
		if err != nil {
			return nil, fmt.Errorf("divergence term %d: %w", i, err)
		}
		term, err := autodiff.SliceCols(g[0], i, i+1)
		if err != nil {
			return nil, err
		}
		if div == nil {
			div = term
			continue
		}
		if div, err = autodiff.Add(div, term); err != nil {
			return nil, err
		}
	}
	return div, nil
}

// CurlResidual returns the Frobenius norm of J - J^T per sample. It
// vanishes exactly for gradient fields.
func CurlResidual(f FieldFunc, x *autodiff.Tensor) ([]float64, error) {
	jac, err := Jacobian(f, x)
	if err != nil {
		return nil, err
	}

	res := make([]float64, len(jac))
	for b, j := range jac {
		r, c := j.Dims()
		if r != c {
			return nil, fmt.Errorf("%w: curl needs a square field, got %dx%d", autodiff.ErrShape, r, c)
		}
		var skew mat.Dense
		skew.Sub(j, j.T())
		res[b] = mat.Norm(&skew, 2)
	}
	return res, nil
}

// SymplecticResidual returns the Frobenius norm of M^T W + W M per sample,
// where M is the Jacobian and W = [[0, I], [-I, 0]]. It vanishes for
// Hamiltonian vector fields.
func SymplecticResidual(f FieldFunc, x *autodiff.Tensor) ([]float64, error) {
	_, d := x.Dims()
	if d%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", dynamo.ErrOddDimension, d)
	}
	jac, err := Jacobian(f, x)
	if err != nil {
		return nil, err
	}

	w := symplecticForm(d / 2)
	res := make([]float64, len(jac))
	for b, j := range jac {
		var lhs, rhs mat.Dense
		lhs.Mul(j.T(), w)
		rhs.Mul(w, j)
		lhs.Add(&lhs, &rhs)
		res[b] = mat.Norm(&lhs, 2)
	}
	return res, nil
}

func symplecticForm(n int) *mat.Dense {
	w := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		w.Set(i, n+i, 1)
		w.Set(n+i, i, -1)
	}
	return w
}

package autodiff

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrShape indicates operands whose dimensions do not fit the op.
	ErrShape = errors.New("autodiff: dimension mismatch")

	// ErrNotScalar indicates a gradient requested of a non 1x1 output.
	ErrNotScalar = errors.New("autodiff: gradient output is not a scalar")

	// ErrNoGrad indicates a gradient requested with respect to a tensor that
	// does not track gradients.
	ErrNoGrad = errors.New("autodiff: tensor does not require grad")

	// ErrUnused indicates a tracked tensor that the output does not depend on.
	ErrUnused = errors.New("autodiff: tensor was not used to compute the output")
)

// ShapeError records the op and operand shapes of a dimension mismatch.
type ShapeError struct {
	Op     string
	Shapes [][2]int
	Detail string
}

func newShapeError(op, detail string, ts ...*Tensor) *ShapeError {
	e := &ShapeError{Op: op, Detail: detail}
	for _, t := range ts {
		r, c := t.Dims()
		e.Shapes = append(e.Shapes, [2]int{r, c})
	}
	return e
}

func (e *ShapeError) Error() string {
	dims := make([]string, len(e.Shapes))
	for i, s := range e.Shapes {
		dims[i] = fmt.Sprintf("%dx%d", s[0], s[1])
	}
	msg := fmt.Sprintf("%s: %s (%s)", ErrShape, e.Op, strings.Join(dims, ", "))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ShapeError) Unwrap() error {
	return ErrShape
}

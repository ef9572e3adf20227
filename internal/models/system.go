package models

import (
	"fmt"
	"math"

	"github.com/san-kum/helmholtz/internal/autodiff"
	"github.com/san-kum/helmholtz/internal/dynamo"
)

// Field is a learned vector field over phase space.
type Field interface {
	VectorField(x *autodiff.Tensor) (*autodiff.Tensor, error)
	StateDim() int
}

var (
	_ Field = (*Decomposer)(nil)
	_ Field = (*HNN)(nil)
	_ Field = (*AuxField)(nil)

	_ dynamo.Hamiltonian  = (*HNN)(nil)
	_ dynamo.System       = (*FieldSystem)(nil)
	_ dynamo.Configurable = (*FieldSystem)(nil)
	_ dynamo.Configurable = (*AuxField)(nil)
)

// FieldSystem lets integrators roll out a learned field one state at a
// time. A failed evaluation yields a NaN state and is kept in Err until the
// next successful one.
type FieldSystem struct {
	field Field
	err   error
}

func NewFieldSystem(f Field) *FieldSystem {
	return &FieldSystem{field: f}
}

func (s *FieldSystem) StateDim() int {
	return s.field.StateDim()
}

func (s *FieldSystem) Derive(x dynamo.State, t float64) dynamo.State {
	in := autodiff.Variable(1, len(x), x)
	out, err := s.field.VectorField(in)
	if err != nil {
		s.err = fmt.Errorf("t=%.4f: %w", t, err)
		nan := make(dynamo.State, len(x))
		for i := range nan {
			nan[i] = math.NaN()
		}
		return nan
	}
	s.err = nil
	return dynamo.State(out.Row(0))
}

// Err returns the error of the most recent evaluation, nil if it succeeded.
func (s *FieldSystem) Err() error {
	return s.err
}

// GetParams and SetParam forward to the field when it is configurable, so
// parameter sweeps reach e.g. the auxiliary input of an AuxField.
func (s *FieldSystem) GetParams() map[string]float64 {
	if c, ok := s.field.(dynamo.Configurable); ok {
		return c.GetParams()
	}
	return map[string]float64{}
}

func (s *FieldSystem) SetParam(name string, v float64) error {
	if c, ok := s.field.(dynamo.Configurable); ok {
		return c.SetParam(name, v)
	}
	return fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, name)
}

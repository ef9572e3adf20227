// Package helmholtz exposes neural vector-field models for physics-informed
// learning: a two-layer approximator, a Helmholtz field decomposer that
// splits a field into dissipative and conservative parts, and a
// Hamiltonian network.
//
// All models take batches of phase-space states (batch x 2n, positions
// first) as tracked tensors and return fields that remain differentiable,
// so a loss built on them can be differentiated with respect to the
// parameters:
//
//	rng := rand.New(rand.NewPCG(1, 2))
//	dec := helmholtz.NewDecomposer(2, 32, rng)
//	x := helmholtz.Variable(batch, 2, states)
//	irr, rot, err := dec.Separate(x, nil)
package helmholtz

import (
	"math/rand/v2"

	"github.com/san-kum/helmholtz/internal/autodiff"
	"github.com/san-kum/helmholtz/internal/config"
	"github.com/san-kum/helmholtz/internal/models"
	"github.com/san-kum/helmholtz/internal/nn"
)

type (
	Tensor       = autodiff.Tensor
	GradOption   = autodiff.GradOption
	ShapeError   = autodiff.ShapeError
	Approximator = nn.Approximator
	Decomposer   = models.Decomposer
	Components   = models.Components
	HNN          = models.HNN
	Field        = models.Field
	FieldSystem  = models.FieldSystem
	Config       = config.Config
)

var (
	ErrShape         = autodiff.ErrShape
	ErrNotScalar     = autodiff.ErrNotScalar
	ErrNoGrad        = autodiff.ErrNoGrad
	ErrUnused        = autodiff.ErrUnused
	ErrInvalidConfig = config.ErrInvalidConfig
)

// New returns an untracked rows x cols tensor holding a copy of data.
func New(rows, cols int, data []float64) *Tensor { return autodiff.New(rows, cols, data) }

// Variable is New with gradient tracking enabled.
func Variable(rows, cols int, data []float64) *Tensor { return autodiff.Variable(rows, cols, data) }

// Grad differentiates the scalar y with respect to each tensor in wrt.
func Grad(y *Tensor, wrt []*Tensor, opts ...GradOption) ([]*Tensor, error) {
	return autodiff.Grad(y, wrt, opts...)
}

// Loss building blocks. The full op set lives in internal/autodiff.
func Add(a, b *Tensor) (*Tensor, error)  { return autodiff.Add(a, b) }
func Sub(a, b *Tensor) (*Tensor, error)  { return autodiff.Sub(a, b) }
func Mul(a, b *Tensor) (*Tensor, error)  { return autodiff.Mul(a, b) }
func Square(a *Tensor) *Tensor           { return autodiff.Square(a) }
func Scale(a *Tensor, s float64) *Tensor { return autodiff.Scale(a, s) }
func Sum(a *Tensor) *Tensor              { return autodiff.Sum(a) }

func WithCreateGraph() GradOption { return autodiff.WithCreateGraph() }
func WithAllowUnused() GradOption { return autodiff.WithAllowUnused() }

func NewApproximator(inputDim, outputDim, hiddenDim int, rng *rand.Rand) *Approximator {
	return nn.NewApproximator(inputDim, outputDim, hiddenDim, rng)
}

func NewDecomposer(inputDim, hiddenDim int, rng *rand.Rand) *Decomposer {
	return models.NewDecomposer(inputDim, hiddenDim, rng)
}

func NewHNN(inputDim, hiddenDim int, rng *rand.Rand) *HNN {
	return models.NewHNN(inputDim, hiddenDim, rng)
}

// SymplecticGradient maps (dH/dq, dH/dp) to (dH/dp, -dH/dq).
func SymplecticGradient(grad *Tensor) (*Tensor, error) {
	return models.SymplecticGradient(grad)
}

func NewFieldSystem(f Field) *FieldSystem { return models.NewFieldSystem(f) }

// LoadConfig reads and validates a YAML model configuration.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// NewField builds the model a configuration describes.
func NewField(cfg *Config) (Field, error) { return config.NewField(cfg) }

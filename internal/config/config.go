package config

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/helmholtz/internal/integrators"
	"github.com/san-kum/helmholtz/internal/models"
	"github.com/san-kum/helmholtz/internal/physics"
)

const (
	ModelHHD = "hhd"
	ModelHNN = "hnn"
)

const (
	DefaultInputDim   = 2
	DefaultHiddenDim  = 32
	DefaultSeed       = 1
	DefaultIntegrator = "rk4"
	DefaultDt         = 0.01
	DefaultDuration   = 10.0

	// seedStream is the second PCG word; the configured seed picks the
	// first.
	seedStream = 0x68686e
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Model     string        `yaml:"model"`
	InputDim  int           `yaml:"input_dim"`
	AuxDim    int           `yaml:"aux_dim"`
	HiddenDim int           `yaml:"hidden_dim"`
	Seed      uint64        `yaml:"seed"`
	Reference string        `yaml:"reference,omitempty"`
	Rollout   RolloutConfig `yaml:"rollout"`
}

type RolloutConfig struct {
	Integrator string    `yaml:"integrator"`
	Dt         float64   `yaml:"dt"`
	Duration   float64   `yaml:"duration"`
	InitState  []float64 `yaml:"init_state,omitempty"`
	// Aux is held fixed during rollouts of a decomposer with aux_dim > 0.
	// Zeros when omitted.
	Aux []float64 `yaml:"aux,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:     ModelHHD,
		InputDim:  DefaultInputDim,
		HiddenDim: DefaultHiddenDim,
		Seed:      DefaultSeed,
		Reference: "spring",
		Rollout: RolloutConfig{
			Integrator: DefaultIntegrator,
			Dt:         DefaultDt,
			Duration:   DefaultDuration,
		},
	}
}

// Resolver answers whether the integrator and reference names a config
// refers to exist. experiment.Registry implements it for user-registered
// names.
type Resolver interface {
	HasIntegrator(name string) bool
	// ReferenceDim reports the state dimension of the named reference.
	ReferenceDim(name string) (int, bool)
}

type builtins struct{}

func (builtins) HasIntegrator(name string) bool {
	_, err := integrators.New(name)
	return err == nil
}

func (builtins) ReferenceDim(name string) (int, bool) {
	ref, err := physics.Lookup(name)
	if err != nil {
		return 0, false
	}
	return ref.StateDim(), true
}

// Builtins resolves the integrators and reference systems shipped with the
// module.
var Builtins Resolver = builtins{}

func Load(path string) (*Config, error) {
	return LoadWith(path, Builtins)
}

func LoadWith(path string, r Resolver) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.ValidateWith(r); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	return c.ValidateWith(Builtins)
}

// ValidateWith checks c, resolving integrator and reference names through r.
func (c *Config) ValidateWith(r Resolver) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch c.Model {
	case ModelHHD:
	case ModelHNN:
		if c.AuxDim != 0 {
			return invalid("model %s takes no auxiliary field, got aux_dim %d", c.Model, c.AuxDim)
		}
	default:
		return invalid("unknown model %q", c.Model)
	}

	if c.InputDim <= 0 || c.InputDim%2 != 0 {
		return invalid("input_dim must be positive and even, got %d", c.InputDim)
	}
	if c.AuxDim < 0 {
		return invalid("aux_dim must not be negative, got %d", c.AuxDim)
	}
	if c.HiddenDim <= 0 {
		return invalid("hidden_dim must be positive, got %d", c.HiddenDim)
	}

	if !r.HasIntegrator(c.Rollout.Integrator) {
		return invalid("unknown integrator %q", c.Rollout.Integrator)
	}
	if c.Rollout.Dt <= 0 {
		return invalid("dt must be positive, got %f", c.Rollout.Dt)
	}
	if c.Rollout.Duration <= 0 {
		return invalid("duration must be positive, got %f", c.Rollout.Duration)
	}
	if n := len(c.Rollout.InitState); n != 0 && n != c.InputDim {
		return invalid("init_state has %d values, input_dim is %d", n, c.InputDim)
	}

	if n := len(c.Rollout.Aux); n != 0 && n != c.AuxDim {
		return invalid("aux has %d values, aux_dim is %d", n, c.AuxDim)
	}

	if c.Reference != "" {
		dim, ok := r.ReferenceDim(c.Reference)
		if !ok {
			return invalid("unknown reference %q", c.Reference)
		}
		if dim != c.InputDim {
			return invalid("reference %s has dimension %d, input_dim is %d", c.Reference, dim, c.InputDim)
		}
	}
	return nil
}

// InitialState returns the configured initial state, or a unit
// displacement of the first coordinate.
func (c *Config) InitialState() []float64 {
	x := make([]float64, c.InputDim)
	if len(c.Rollout.InitState) == c.InputDim {
		copy(x, c.Rollout.InitState)
		return x
	}
	if c.InputDim > 0 {
		x[0] = 1
	}
	return x
}

// Rand returns the generator models are initialized from. Equal seeds give
// identical parameters.
func (c *Config) Rand() *rand.Rand {
	return rand.New(rand.NewPCG(c.Seed, seedStream))
}

// NewDecomposer validates c and builds a decomposer whose potentials see
// InputDim + AuxDim features.
func NewDecomposer(c *Config) (*models.Decomposer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Model != ModelHHD {
		return nil, fmt.Errorf("%w: model is %s, not %s", ErrInvalidConfig, c.Model, ModelHHD)
	}
	return models.NewDecomposer(c.InputDim+c.AuxDim, c.HiddenDim, c.Rand()), nil
}

func NewHNN(c *Config) (*models.HNN, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Model != ModelHNN {
		return nil, fmt.Errorf("%w: model is %s, not %s", ErrInvalidConfig, c.Model, ModelHNN)
	}
	return models.NewHNN(c.InputDim, c.HiddenDim, c.Rand()), nil
}

// NewField builds whichever model c names as a phase-space field. A
// decomposer with an auxiliary input sees Rollout.Aux for every state.
func NewField(c *Config) (models.Field, error) {
	return NewFieldWith(c, Builtins)
}

// NewFieldWith is NewField for configs naming integrators or references
// known only to r.
func NewFieldWith(c *Config, r Resolver) (models.Field, error) {
	if err := c.ValidateWith(r); err != nil {
		return nil, err
	}
	if c.Model == ModelHNN {
		return models.NewHNN(c.InputDim, c.HiddenDim, c.Rand()), nil
	}
	dec := models.NewDecomposer(c.InputDim+c.AuxDim, c.HiddenDim, c.Rand())
	if c.AuxDim == 0 {
		return dec, nil
	}
	aux := make([]float64, c.AuxDim)
	copy(aux, c.Rollout.Aux)
	return dec.WithAux(aux), nil
}

package experiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/helmholtz/internal/analysis"
	"github.com/san-kum/helmholtz/internal/autodiff"
	"github.com/san-kum/helmholtz/internal/config"
	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/models"
	"github.com/san-kum/helmholtz/internal/physics"
	"github.com/san-kum/helmholtz/internal/sim"
	"github.com/san-kum/helmholtz/internal/storage"
)

var (
	ErrNoReference   = errors.New("experiment: no reference system configured")
	ErrNotDecomposer = errors.New("experiment: model is not a plain decomposer")
)

// Experiment pairs a learned field built from a config with the analytic
// system it approximates.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	field    models.Field
}

func New(cfg *config.Config) (*Experiment, error) {
	return NewWithRegistry(cfg, NewRegistry())
}

func NewWithRegistry(cfg *config.Config, r *Registry) (*Experiment, error) {
	if r == nil {
		r = NewRegistry()
	}
	field, err := config.NewFieldWith(cfg, r)
	if err != nil {
		return nil, err
	}
	return &Experiment{cfg: cfg, registry: r, field: field}, nil
}

// Field returns the learned model. Its parameters may be replaced by a
// trainer between runs.
func (e *Experiment) Field() models.Field {
	return e.field
}

// hamiltonianSystem exposes the learned energy of an HNN to the simulator
// so rollouts report drift.
type hamiltonianSystem struct {
	*models.FieldSystem
	dynamo.Hamiltonian
}

func (e *Experiment) learnedSystem() (dynamo.System, dynamo.Hamiltonian) {
	fs := models.NewFieldSystem(e.field)
	if h, ok := e.field.(dynamo.Hamiltonian); ok {
		return hamiltonianSystem{FieldSystem: fs, Hamiltonian: h}, h
	}
	return fs, nil
}

func (e *Experiment) simConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Dt = e.cfg.Rollout.Dt
	cfg.Duration = e.cfg.Rollout.Duration
	return cfg
}

func (e *Experiment) rollout(ctx context.Context, dyn dynamo.System, h dynamo.Hamiltonian) (*sim.Result, error) {
	integ, err := e.registry.GetIntegrator(e.cfg.Rollout.Integrator)
	if err != nil {
		return nil, err
	}
	s := sim.New(dyn, integ)
	for _, m := range e.registry.DefaultMetrics(h) {
		s.AddMetric(m)
	}
	return s.Run(ctx, dynamo.State(e.cfg.InitialState()), e.simConfig())
}

// Run rolls out the learned field from the configured initial state.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	dyn, h := e.learnedSystem()
	return e.rollout(ctx, dyn, h)
}

// RunReference rolls out the analytic reference system.
func (e *Experiment) RunReference(ctx context.Context) (*sim.Result, error) {
	ref, err := e.reference()
	if err != nil {
		return nil, err
	}
	return e.rollout(ctx, ref, ref)
}

func (e *Experiment) reference() (physics.Reference, error) {
	if e.cfg.Reference == "" {
		return nil, ErrNoReference
	}
	return e.registry.GetReference(e.cfg.Reference)
}

type Comparison struct {
	Learned   *sim.Result
	Reference *sim.Result
	// Deviation is the Euclidean distance between the two trajectories at
	// each shared time step.
	Deviation      []float64
	MaxDeviation   float64
	FinalDeviation float64
}

// Compare rolls out the learned and reference systems concurrently and
// measures how far they drift apart.
func (e *Experiment) Compare(ctx context.Context) (*Comparison, error) {
	if e.cfg.Reference == "" {
		return nil, ErrNoReference
	}

	var c Comparison
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := e.Run(ctx)
		if err != nil {
			return fmt.Errorf("learned rollout: %w", err)
		}
		c.Learned = res
		return nil
	})
	g.Go(func() error {
		res, err := e.RunReference(ctx)
		if err != nil {
			return fmt.Errorf("reference rollout: %w", err)
		}
		c.Reference = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	n := min(len(c.Learned.States), len(c.Reference.States))
	c.Deviation = make([]float64, n)
	for i := 0; i < n; i++ {
		c.Deviation[i] = floats.Distance(c.Learned.States[i], c.Reference.States[i], 2)
	}
	if n > 0 {
		c.MaxDeviation = floats.Max(c.Deviation)
		c.FinalDeviation = c.Deviation[n-1]
	}
	return &c, nil
}

// Portraits projects the learned and reference rollouts onto coordinates
// (x, y) and returns the largest distance between matching points.
func (e *Experiment) Portraits(x, y int) (learned, reference *analysis.PhasePortrait, gap float64, err error) {
	ref, err := e.reference()
	if err != nil {
		return nil, nil, 0, err
	}
	dyn, _ := e.learnedSystem()
	x0 := dynamo.State(e.cfg.InitialState())

	portrait := func(sys dynamo.System) (*analysis.PhasePortrait, error) {
		integ, err := e.registry.GetIntegrator(e.cfg.Rollout.Integrator)
		if err != nil {
			return nil, err
		}
		return analysis.GeneratePhasePortrait(sys, integ, x0, x, y, e.cfg.Rollout.Dt, e.cfg.Rollout.Duration)
	}
	if learned, err = portrait(dyn); err != nil {
		return learned, nil, 0, fmt.Errorf("learned portrait: %w", err)
	}
	if reference, err = portrait(ref); err != nil {
		return learned, reference, 0, fmt.Errorf("reference portrait: %w", err)
	}
	gap, err = analysis.PortraitDeviation(learned, reference)
	return learned, reference, gap, err
}

// Record compares the learned and reference rollouts and saves both to st.
// It returns the two run IDs.
func (e *Experiment) Record(ctx context.Context, st *storage.Store) (*Comparison, []string, error) {
	c, err := e.Compare(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Init(); err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, 2)
	for _, run := range []struct {
		name   string
		result *sim.Result
	}{
		{"learned", c.Learned},
		{"reference", c.Reference},
	} {
		id, err := st.Save(run.name, e.cfg, run.result)
		if err != nil {
			return nil, nil, fmt.Errorf("save %s run: %w", run.name, err)
		}
		ids = append(ids, id)
	}
	return c, ids, nil
}

// DecompositionError returns the root-mean-square distance between the
// learned and analytic irrotational and rotational components over points.
func (e *Experiment) DecompositionError(points []dynamo.State) (irr, rot float64, err error) {
	dec, ok := e.field.(*models.Decomposer)
	if !ok {
		return 0, 0, ErrNotDecomposer
	}
	ref, err := e.reference()
	if err != nil {
		return 0, 0, err
	}
	if len(points) == 0 {
		return 0, 0, nil
	}

	dim := dec.StateDim()
	data := make([]float64, 0, len(points)*dim)
	for _, p := range points {
		if len(p) != dim {
			return 0, 0, fmt.Errorf("%w: point has %d values, model expects %d", dynamo.ErrDimensionMismatch, len(p), dim)
		}
		data = append(data, p...)
	}

	learnedIrr, learnedRot, err := dec.Separate(autodiff.Variable(len(points), dim, data), nil)
	if err != nil {
		return 0, 0, err
	}

	var sumIrr, sumRot float64
	for i, p := range points {
		wantIrr, wantRot := ref.Decompose(p)
		sumIrr += sq(floats.Distance(learnedIrr.Row(i), wantIrr, 2))
		sumRot += sq(floats.Distance(learnedRot.Row(i), wantRot, 2))
	}
	n := float64(len(points))
	return math.Sqrt(sumIrr / n), math.Sqrt(sumRot / n), nil
}

func sq(v float64) float64 { return v * v }

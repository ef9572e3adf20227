package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/helmholtz/internal/config"
	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/experiment"
	"github.com/san-kum/helmholtz/internal/models"
	"github.com/san-kum/helmholtz/internal/sim"
	"github.com/san-kum/helmholtz/internal/storage"
)

// Progress is called after each unit of work. It may be nil.
type Progress func(done, total int)

func (p Progress) report(done, total int) {
	if p != nil {
		p(done, total)
	}
}

// Scenario defines a scripted sequence of experiments
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep builds its config from a preset ("hnn/spring"), an inline
// config, or the preset with the inline config's non-zero rollout fields
// applied on top.
type ScenarioStep struct {
	Name    string         `yaml:"name"`
	Preset  string         `yaml:"preset"`
	Config  *config.Config `yaml:"config"`
	Compare bool           `yaml:"compare"`
	Save    bool           `yaml:"save"`
}

type StepResult struct {
	Name       string
	Result     *sim.Result
	Comparison *experiment.Comparison
	RunIDs     []string
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

func (s ScenarioStep) resolve() (*config.Config, error) {
	if s.Preset == "" {
		if s.Config == nil {
			return nil, fmt.Errorf("%w: step needs a preset or a config", config.ErrInvalidConfig)
		}
		c := *s.Config
		return &c, nil
	}

	model, name, ok := strings.Cut(s.Preset, "/")
	if !ok {
		return nil, fmt.Errorf("%w: preset %q is not model/name", config.ErrInvalidConfig, s.Preset)
	}
	cfg := config.GetPreset(model, name)
	if cfg == nil {
		return nil, fmt.Errorf("%w: unknown preset %q", config.ErrInvalidConfig, s.Preset)
	}
	if s.Config != nil {
		r := s.Config.Rollout
		if r.Integrator != "" {
			cfg.Rollout.Integrator = r.Integrator
		}
		if r.Dt != 0 {
			cfg.Rollout.Dt = r.Dt
		}
		if r.Duration != 0 {
			cfg.Rollout.Duration = r.Duration
		}
		if len(r.InitState) != 0 {
			cfg.Rollout.InitState = r.InitState
		}
		if s.Config.Seed != 0 {
			cfg.Seed = s.Config.Seed
		}
	}
	return cfg, nil
}

// RunScenario executes all steps in order. st may be nil when no step
// saves.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, st *storage.Store, progress Progress) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp, err := experiment.NewWithRegistry(cfg, registry)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		res := StepResult{Name: step.Name}
		switch {
		case step.Save:
			if st == nil {
				return results, fmt.Errorf("step %d: save requested without a store", i+1)
			}
			res.Comparison, res.RunIDs, err = exp.Record(ctx, st)
		case step.Compare:
			res.Comparison, err = exp.Compare(ctx)
		default:
			res.Result, err = exp.Run(ctx)
		}
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		if res.Comparison != nil {
			res.Result = res.Comparison.Learned
		}

		results = append(results, res)
		progress.report(i+1, len(scenario.Steps))
	}

	return results, nil
}

// ParameterSweep rolls out a reference system across a range of one
// parameter.
type ParameterSweep struct {
	Reference  string
	Integrator string
	ParamName  string
	ParamMin   float64
	ParamMax   float64
	NumSteps   int
	Duration   float64
	Dt         float64
	InitState  []float64
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue float64
	FinalState dynamo.State
	MaxEnergy  float64
	MinEnergy  float64
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, progress Progress) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("%w: sweep needs at least 2 steps", dynamo.ErrParameterBounds)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		ref, err := registry.GetReference(sweep.Reference)
		if err != nil {
			return nil, err
		}
		integ, err := registry.GetIntegrator(sweep.Integrator)
		if err != nil {
			return nil, err
		}

		paramVal := sweep.ParamMin + float64(i)*paramStep
		if err := ref.SetParam(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		s := sim.New(ref, integ)
		result, err := s.Run(ctx, dynamo.State(sweep.InitState).Clone(), sim.Config{Dt: sweep.Dt, Duration: sweep.Duration, ValidateState: true})
		if err != nil {
			return nil, err
		}

		minE, maxE := math.Inf(1), math.Inf(-1)
		for _, x := range result.States {
			e := ref.Energy(x)
			minE = math.Min(minE, e)
			maxE = math.Max(maxE, e)
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			FinalState: result.Final(),
			MaxEnergy:  maxE,
			MinEnergy:  minE,
		})
		progress.report(i+1, sweep.NumSteps)
	}

	return results, nil
}

// MonteCarloConfig perturbs the initial state of a learned rollout.
type MonteCarloConfig struct {
	Model        *config.Config
	Perturbation float64
	NumTrials    int
	Seed         uint64
	// Bound is the largest absolute coordinate a stable trial may reach.
	Bound float64
}

// MonteCarloResult holds statistics from Monte Carlo runs
type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	Stable     bool
}

// RunMonteCarlo rolls out the learned field from randomly perturbed initial
// states in parallel and flags trajectories that leave the bound.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	field, err := config.NewFieldWith(cfg.Model, registry)
	if err != nil {
		return nil, err
	}
	if _, err := registry.GetIntegrator(cfg.Model.Rollout.Integrator); err != nil {
		return nil, err
	}

	bound := cfg.Bound
	if bound <= 0 {
		bound = 1e6
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Model.Seed))
	base := cfg.Model.InitialState()
	initial := make([]dynamo.State, cfg.NumTrials)
	for trial := range initial {
		x := make(dynamo.State, len(base))
		for i, v := range base {
			x[i] = v + (rng.Float64()-0.5)*2*cfg.Perturbation
		}
		initial[trial] = x
	}

	ens := sim.NewEnsemble(
		func() dynamo.System { return models.NewFieldSystem(field) },
		func() dynamo.Integrator {
			integ, _ := registry.GetIntegrator(cfg.Model.Rollout.Integrator)
			return integ
		},
	)
	runs, err := ens.Run(ctx, initial, sim.Config{
		Dt:            cfg.Model.Rollout.Dt,
		Duration:      cfg.Model.Rollout.Duration,
		ValidateState: true,
	})
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for trial, r := range runs {
		final := r.Final()
		stable := len(r.Errors) == 0
		for _, v := range final {
			if math.Abs(v) > bound {
				stable = false
				break
			}
		}
		results[trial] = MonteCarloResult{
			TrialID:    trial,
			InitState:  initial[trial],
			FinalState: final,
			Stable:     stable,
		}
	}

	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

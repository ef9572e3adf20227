package experiment

import (
	"fmt"

	"github.com/san-kum/helmholtz/internal/config"
	"github.com/san-kum/helmholtz/internal/dynamo"
	"github.com/san-kum/helmholtz/internal/integrators"
	"github.com/san-kum/helmholtz/internal/metrics"
	"github.com/san-kum/helmholtz/internal/physics"
)

// Registry resolves the names used in configs. Overrides let callers plug
// in their own reference systems or integrators.
type Registry struct {
	references  map[string]func() physics.Reference
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		references:  make(map[string]func() physics.Reference),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	for _, name := range physics.Names() {
		r.references[name] = func() physics.Reference {
			ref, _ := physics.Lookup(name)
			return ref
		}
	}
	for _, name := range integrators.Names() {
		r.integrators[name] = func() dynamo.Integrator {
			integ, _ := integrators.New(name)
			return integ
		}
	}

	return r
}

func (r *Registry) RegisterReference(name string, fn func() physics.Reference) {
	r.references[name] = fn
}

func (r *Registry) RegisterIntegrator(name string, fn func() dynamo.Integrator) {
	r.integrators[name] = fn
}

func (r *Registry) GetReference(name string) (physics.Reference, error) {
	fn, ok := r.references[name]
	if !ok {
		return nil, fmt.Errorf("unknown reference: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// HasIntegrator and ReferenceDim let configs be validated against the
// registered names.
func (r *Registry) HasIntegrator(name string) bool {
	_, ok := r.integrators[name]
	return ok
}

func (r *Registry) ReferenceDim(name string) (int, bool) {
	fn, ok := r.references[name]
	if !ok {
		return 0, false
	}
	return fn().StateDim(), true
}

var _ config.Resolver = (*Registry)(nil)

func (r *Registry) ListReferences() []string {
	names := make([]string, 0, len(r.references))
	for name := range r.references {
		names = append(names, name)
	}
	return names
}

// DefaultMetrics returns the metrics tracked for a rollout. Energy metrics
// need a Hamiltonian, learned or analytic.
func (r *Registry) DefaultMetrics(h dynamo.Hamiltonian) []dynamo.Metric {
	m := []dynamo.Metric{
		metrics.NewStability(10.0),
	}
	if h != nil {
		m = append(m, metrics.NewEnergy(h), metrics.NewEnergyDrift(h))
	}
	return m
}

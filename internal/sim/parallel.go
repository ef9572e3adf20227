package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// Ensemble rolls out one trajectory per initial state concurrently.
// Integrators keep scratch buffers and learned systems record errors, so
// each run gets its own instances from the factories.
type Ensemble struct {
	newSystem     func() dynamo.System
	newIntegrator func() dynamo.Integrator
	workers       int
}

func NewEnsemble(newSystem func() dynamo.System, newIntegrator func() dynamo.Integrator) *Ensemble {
	return &Ensemble{
		newSystem:     newSystem,
		newIntegrator: newIntegrator,
		workers:       runtime.GOMAXPROCS(0),
	}
}

// WithWorkers caps the number of concurrent rollouts.
func (e *Ensemble) WithWorkers(n int) *Ensemble {
	if n > 0 {
		e.workers = n
	}
	return e
}

func (e *Ensemble) Run(ctx context.Context, initial []dynamo.State, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(initial))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, x0 := range initial {
		g.Go(func() error {
			s := New(e.newSystem(), e.newIntegrator())
			res, err := s.Run(ctx, x0, cfg)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

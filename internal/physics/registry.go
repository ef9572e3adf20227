package physics

import (
	"fmt"
	"sort"

	"github.com/san-kum/helmholtz/internal/dynamo"
)

// Reference is an analytic system with a known energy and Helmholtz split.
type Reference interface {
	dynamo.System
	dynamo.Hamiltonian
	dynamo.Decomposable
	dynamo.Configurable
}

var (
	_ Reference = (*DampedSpring)(nil)
	_ Reference = (*Pendulum)(nil)
	_ Reference = (*Duffing)(nil)
)

var systems = map[string]func() Reference{
	"spring":   func() Reference { return NewDampedSpring() },
	"pendulum": func() Reference { return NewPendulum() },
	"duffing":  func() Reference { return NewDuffing() },
}

// Lookup returns a fresh reference system with default parameters.
func Lookup(name string) (Reference, error) {
	fn, ok := systems[name]
	if !ok {
		return nil, fmt.Errorf("unknown system: %s", name)
	}
	return fn(), nil
}

func Names() []string {
	names := make([]string, 0, len(systems))
	for name := range systems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

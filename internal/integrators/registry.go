package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/rigidsim/internal/dynamo"
)

var registry = map[string]func() dynamo.Integrator{
	"euler":  func() dynamo.Integrator { return NewEuler() },
	"rk4":    func() dynamo.Integrator { return NewRK4() },
	"rk45":   func() dynamo.Integrator { return NewRK45() },
	"verlet": func() dynamo.Integrator { return NewVerlet() },
}

// ByName returns a fresh integrator. An empty name selects RK4.
func ByName(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = "rk4"
	}
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator %q", dynamo.ErrConfiguration, name)
	}
	return fn(), nil
}

// Names lists the registered integrators in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

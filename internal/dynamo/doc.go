// Package dynamo provides the shared primitives of the multibody solver.
//
// The package defines the interfaces and types that connect the engine to
// its integrators, metrics and observers:
//
//   - [State]: flat generalized state vector
//   - [Dynamics]: first-order system dY/dt = f(Y, t)
//   - [Integrator]: explicit one-step integrator
//   - [Metric] and [Observer]: per-step hooks used by the solver
//
// Errors returned by the engine wrap the sentinels in this package, so
// callers can branch with errors.Is:
//
//	if errors.Is(err, dynamo.ErrConfiguration) {
//	    // bad scenario, fix the input
//	}
//
// # Thread Safety
//
// Nothing in the engine is safe for concurrent use. A system must not be
// mutated while a solve is in progress.
package dynamo

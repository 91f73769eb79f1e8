// Package dynamo provides the numeric primitives shared by plant models.
//
// The package defines the interfaces used to describe a plant as an
// ordinary differential equation and to advance it by a fixed step:
//
//   - [State]: vector representing the internal plant state
//   - [System]: interface for ODE systems (dX/dt = f(X, u))
//   - [Integrator]: fixed-step numerical integrator interface
//
// # Example
//
//	sys := plant.NewSecondOrderSystem(2.0, 0.3, 1.0)
//	integ := integrators.NewRK4()
//	x = integ.Step(sys, x, u, dt)
//
// # Thread Safety
//
// Integrators may keep scratch buffers and are NOT thread-safe. Use one
// integrator per plant.
package dynamo

package integrators

import "github.com/san-kum/loopsim/internal/dynamo"

// Euler is the explicit forward Euler method: x(k+1) = x(k) + dt*f(x(k), u).
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, u float64, dt float64) dynamo.State {
	dx := sys.Derive(x, u)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

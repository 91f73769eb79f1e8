package integrators

import "github.com/san-kum/loopsim/internal/dynamo"

// Classic fourth-order tableau: stage i evaluates f at x + rk4Nodes[i]*dt*k[i-1].
var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1.0 / 6, 2.0 / 6, 2.0 / 6, 1.0 / 6}
)

// RK4 reuses its stage buffers between calls, so one instance must not be
// shared by plants stepping concurrently.
type RK4 struct {
	k     [4]dynamo.State
	probe dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.probe) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.probe = make(dynamo.State, n)
}

// Step holds u constant over the whole interval (zero-order hold).
func (r *RK4) Step(sys dynamo.System, x dynamo.State, u float64, dt float64) dynamo.State {
	r.resize(len(x))

	for s := range r.k {
		at := x
		if s > 0 {
			h := rk4Nodes[s] * dt
			for i, xi := range x {
				r.probe[i] = xi + h*r.k[s-1][i]
			}
			at = r.probe
		}
		copy(r.k[s], sys.Derive(at, u))
	}

	next := x.Clone()
	for s, w := range rk4Weights {
		for i := range next {
			next[i] += dt * w * r.k[s][i]
		}
	}
	return next
}

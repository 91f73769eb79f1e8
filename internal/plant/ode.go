package plant

import "github.com/san-kum/loopsim/internal/dynamo"

// odePlant adapts a dynamo.System to the Plant contract. The process value
// is the first state component.
type odePlant struct {
	sys   dynamo.System
	integ dynamo.Integrator
	x     dynamo.State
	dt    float64
	clamp func(dynamo.State)
}

func newODEPlant(sys dynamo.System, integ dynamo.Integrator, dt float64) odePlant {
	return odePlant{
		sys:   sys,
		integ: integ,
		x:     make(dynamo.State, sys.StateDim()),
		dt:    dt,
	}
}

func (p *odePlant) Update(input float64) float64 {
	next := p.integ.Step(p.sys, p.x, input, p.dt)
	if p.clamp != nil {
		p.clamp(next)
	}
	if next.IsValid() {
		p.x = next
	}
	return p.x[0]
}

func (p *odePlant) State() float64 { return p.x[0] }

func (p *odePlant) Reset() {
	for i := range p.x {
		p.x[i] = 0
	}
}

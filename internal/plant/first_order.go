package plant

import (
	"fmt"

	"github.com/san-kum/loopsim/internal/dynamo"
)

// FirstOrder is a first-order lag K/(T s + 1) discretised with explicit Euler.
type FirstOrder struct {
	state        float64
	timeConstant float64
	gain         float64
	dt           float64
}

func NewFirstOrder(timeConstant, gain, dt float64) (*FirstOrder, error) {
	if timeConstant == 0 {
		return nil, ErrZeroTimeConstant
	}
	if dt <= 0 {
		return nil, &dynamo.ParamError{Name: "dt", Value: dt}
	}
	return &FirstOrder{
		timeConstant: timeConstant,
		gain:         gain,
		dt:           dt,
	}, nil
}

func (p *FirstOrder) Update(input float64) float64 {
	p.state = p.state + p.dt*(p.gain*input-p.state)/p.timeConstant
	return p.state
}

func (p *FirstOrder) State() float64 { return p.state }

func (p *FirstOrder) Reset() { p.state = 0 }

func (p *FirstOrder) Name() string {
	return fmt.Sprintf("1st Order (T=%.1f, K=%.1f)", p.timeConstant, p.gain)
}

package plant

import (
	"fmt"

	"github.com/san-kum/loopsim/internal/dynamo"
)

// SecondOrderSystem is y'' = wn^2 (K u - y) - 2 zeta wn y'. State is [y, y'].
type SecondOrderSystem struct {
	Wn   float64
	Zeta float64
	Gain float64
}

func (s *SecondOrderSystem) Derive(x dynamo.State, u float64) dynamo.State {
	y, dy := x[0], x[1]
	ddy := s.Wn*s.Wn*(s.Gain*u-y) - 2*s.Zeta*s.Wn*dy
	return dynamo.State{dy, ddy}
}

func (s *SecondOrderSystem) StateDim() int { return 2 }

type SecondOrder struct {
	odePlant
	sys *SecondOrderSystem
}

func NewSecondOrder(wn, zeta, gain, dt float64, integ dynamo.Integrator) (*SecondOrder, error) {
	if wn <= 0 {
		return nil, &dynamo.ParamError{Name: "wn", Value: wn}
	}
	if zeta < 0 {
		return nil, &dynamo.ParamError{Name: "zeta", Value: zeta}
	}
	if dt <= 0 {
		return nil, &dynamo.ParamError{Name: "dt", Value: dt}
	}
	sys := &SecondOrderSystem{Wn: wn, Zeta: zeta, Gain: gain}
	return &SecondOrder{odePlant: newODEPlant(sys, integ, dt), sys: sys}, nil
}

func (p *SecondOrder) Name() string {
	return fmt.Sprintf("2nd Order (wn=%.1f, zeta=%.2f, K=%.1f)", p.sys.Wn, p.sys.Zeta, p.sys.Gain)
}

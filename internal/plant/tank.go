package plant

import (
	"fmt"
	"math"

	"github.com/san-kum/loopsim/internal/dynamo"
)

// TankSystem models a gravity-drained tank: A h' = K u - c sqrt(h).
type TankSystem struct {
	Area      float64
	InflowK   float64
	Discharge float64
}

func (s *TankSystem) Derive(x dynamo.State, u float64) dynamo.State {
	h := math.Max(x[0], 0)
	return dynamo.State{(s.InflowK*u - s.Discharge*math.Sqrt(h)) / s.Area}
}

func (s *TankSystem) StateDim() int { return 1 }

// Tank is a nonlinear level process. The level never goes negative.
type Tank struct {
	odePlant
	sys *TankSystem
}

func NewTank(area, inflowK, discharge, dt float64, integ dynamo.Integrator) (*Tank, error) {
	if area <= 0 {
		return nil, &dynamo.ParamError{Name: "area", Value: area}
	}
	if discharge < 0 {
		return nil, &dynamo.ParamError{Name: "discharge", Value: discharge}
	}
	if dt <= 0 {
		return nil, &dynamo.ParamError{Name: "dt", Value: dt}
	}
	sys := &TankSystem{Area: area, InflowK: inflowK, Discharge: discharge}
	t := &Tank{odePlant: newODEPlant(sys, integ, dt), sys: sys}
	t.clamp = func(x dynamo.State) {
		if x[0] < 0 {
			x[0] = 0
		}
	}
	return t, nil
}

func (p *Tank) Name() string {
	return fmt.Sprintf("Tank (A=%.1f, c=%.2f)", p.sys.Area, p.sys.Discharge)
}

package plant

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/integrators"
)

func TestFirstOrder_Update(t *testing.T) {
	p, err := NewFirstOrder(1.0, 2.0, 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 0 + 0.1*(2*1 - 0)/1
	if got := p.Update(1.0); math.Abs(got-0.2) > 1e-12 {
		t.Errorf("first step: got %f, want 0.2", got)
	}
	// 0.2 + 0.1*(2 - 0.2)/1
	if got := p.Update(1.0); math.Abs(got-0.38) > 1e-12 {
		t.Errorf("second step: got %f, want 0.38", got)
	}
}

func TestFirstOrder_StateDoesNotAdvance(t *testing.T) {
	p, _ := NewFirstOrder(2.0, 1.0, 0.05)
	p.Update(5)
	s1 := p.State()
	s2 := p.State()
	if s1 != s2 {
		t.Errorf("State() advanced the model: %f != %f", s1, s2)
	}
}

func TestFirstOrder_SteadyState(t *testing.T) {
	p, _ := NewFirstOrder(1.0, 1.5, 0.05)
	for i := 0; i < 1000; i++ {
		p.Update(2.0)
	}
	if math.Abs(p.State()-3.0) > 1e-6 {
		t.Errorf("expected steady state K*u = 3.0, got %f", p.State())
	}
}

func TestFirstOrder_Reset(t *testing.T) {
	p, _ := NewFirstOrder(1.0, 1.0, 0.05)
	p.Update(10)
	p.Reset()
	if p.State() != 0 {
		t.Errorf("expected 0 after reset, got %f", p.State())
	}
}

func TestFirstOrder_Name(t *testing.T) {
	p, _ := NewFirstOrder(1.0, 1.0, 0.05)
	if p.Name() != "1st Order (T=1.0, K=1.0)" {
		t.Errorf("unexpected name %q", p.Name())
	}
}

func TestNewFirstOrder_Invalid(t *testing.T) {
	if _, err := NewFirstOrder(0, 1, 0.05); !errors.Is(err, ErrZeroTimeConstant) {
		t.Errorf("expected ErrZeroTimeConstant, got %v", err)
	}
	if _, err := NewFirstOrder(1, 1, 0); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}

func TestSecondOrder_SteadyState(t *testing.T) {
	p, err := NewSecondOrder(2.0, 0.7, 1.0, 0.01, integrators.NewRK4())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 2000; i++ {
		p.Update(1.0)
	}
	if math.Abs(p.State()-1.0) > 1e-3 {
		t.Errorf("expected steady state 1.0, got %f", p.State())
	}
	p.Reset()
	if p.State() != 0 {
		t.Errorf("expected 0 after reset, got %f", p.State())
	}
}

func TestSecondOrder_Underdamped(t *testing.T) {
	p, _ := NewSecondOrder(2.0, 0.1, 1.0, 0.01, integrators.NewRK4())
	peak := 0.0
	for i := 0; i < 1000; i++ {
		peak = math.Max(peak, p.Update(1.0))
	}
	if peak <= 1.0 {
		t.Errorf("underdamped plant should overshoot, peak %f", peak)
	}
}

func TestTank_NeverNegative(t *testing.T) {
	p, err := NewTank(1.0, 1.0, 0.5, 0.05, integrators.NewEuler())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 100; i++ {
		if lvl := p.Update(-5); lvl < 0 {
			t.Fatalf("level went negative: %f", lvl)
		}
	}
}

func TestTank_Equilibrium(t *testing.T) {
	// K u = c sqrt(h) -> h = (1*1/0.5)^2 = 4
	p, _ := NewTank(1.0, 1.0, 0.5, 0.05, integrators.NewRK4())
	for i := 0; i < 20000; i++ {
		p.Update(1.0)
	}
	if math.Abs(p.State()-4.0) > 1e-2 {
		t.Errorf("expected equilibrium level 4.0, got %f", p.State())
	}
}

func TestDeadTime_DelaysInput(t *testing.T) {
	inner, _ := NewFirstOrder(1.0, 1.0, 0.1)
	p, err := NewDeadTime(inner, 0.3, 0.1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if got := p.Update(1.0); got != 0 {
			t.Fatalf("step %d: expected no response during dead time, got %f", i, got)
		}
	}
	if got := p.Update(1.0); got <= 0 {
		t.Errorf("expected response after dead time, got %f", got)
	}

	p.Reset()
	if p.State() != 0 {
		t.Errorf("expected 0 after reset, got %f", p.State())
	}
	if got := p.Update(1.0); got != 0 {
		t.Errorf("reset should clear the delay line, got %f", got)
	}
}

func TestDeadTime_ZeroDelay(t *testing.T) {
	inner, _ := NewFirstOrder(1.0, 1.0, 0.1)
	p, _ := NewDeadTime(inner, 0, 0.1)
	if got := p.Update(1.0); math.Abs(got-0.1) > 1e-12 {
		t.Errorf("zero delay should pass through, got %f", got)
	}
}

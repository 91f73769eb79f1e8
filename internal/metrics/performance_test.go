package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/loopsim/internal/run"
)

func TestCalculate_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		samples []run.DataPoint
		initial float64
		final   float64
	}{
		{"nil samples", nil, 0, 5},
		{"single sample", []run.DataPoint{{Time: 0, PV: 0, Setpoint: 5}}, 0, 5},
		{"zero step", []run.DataPoint{{Time: 0, PV: 1}, {Time: 1, PV: 2}}, 3, 3},
		{"tiny step", []run.DataPoint{{Time: 0, PV: 1}, {Time: 1, PV: 2}}, 3, 3 + 1e-7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Calculate(tt.samples, tt.initial, tt.final); got != (run.PerformanceMetrics{}) {
				t.Errorf("expected zero metrics, got %+v", got)
			}
		})
	}
}

func TestCalculate_InstantStep(t *testing.T) {
	samples := []run.DataPoint{
		{Time: 0, PV: 0, Setpoint: 5},
		{Time: 1, PV: 5, Setpoint: 5},
	}
	m := Calculate(samples, 0, 5)

	if m.Overshoot != 0 {
		t.Errorf("overshoot = %f, want 0", m.Overshoot)
	}
	// only the first sample lies outside the band, at t=0
	if m.SettlingTime != 0 {
		t.Errorf("settling time = %f, want 0", m.SettlingTime)
	}
	// |5-5| * (1-0)
	if m.IAE != 0 {
		t.Errorf("iae = %f, want 0", m.IAE)
	}
	// 10% and 90% both first reached at t=1
	if m.RiseTime != 0 {
		t.Errorf("rise time = %f, want 0", m.RiseTime)
	}
}

func TestCalculate_HandComputed(t *testing.T) {
	samples := []run.DataPoint{
		{Time: 0.0, PV: 0.0, Setpoint: 10},
		{Time: 0.5, PV: 2.0, Setpoint: 10},
		{Time: 1.0, PV: 6.0, Setpoint: 10},
		{Time: 1.5, PV: 9.5, Setpoint: 10},
		{Time: 2.0, PV: 11.0, Setpoint: 10},
		{Time: 2.5, PV: 10.1, Setpoint: 10},
		{Time: 3.0, PV: 10.0, Setpoint: 10},
	}
	m := Calculate(samples, 0, 10)

	// 10% (1.0) first reached at 0.5, 90% (9.0) at 1.5
	if math.Abs(m.RiseTime-1.0) > 1e-12 {
		t.Errorf("rise time = %f, want 1.0", m.RiseTime)
	}
	// (11-10)/10*100
	if math.Abs(m.Overshoot-10.0) > 1e-9 {
		t.Errorf("overshoot = %f, want 10", m.Overshoot)
	}
	// band is 0.2; 11.0 at t=2.0 is the last sample outside
	if m.SettlingTime != 2.0 {
		t.Errorf("settling time = %f, want 2.0", m.SettlingTime)
	}
	// 0.5*(8 + 4 + 0.5 + 1 + 0.1 + 0)
	if math.Abs(m.IAE-6.8) > 1e-9 {
		t.Errorf("iae = %f, want 6.8", m.IAE)
	}
}

func TestCalculate_NeverReaches90(t *testing.T) {
	samples := []run.DataPoint{
		{Time: 0, PV: 0, Setpoint: 10},
		{Time: 1, PV: 5, Setpoint: 10},
		{Time: 2, PV: 8, Setpoint: 10},
	}
	m := Calculate(samples, 0, 10)
	if m.RiseTime != 0 {
		t.Errorf("rise time = %f, want 0", m.RiseTime)
	}
	if m.Overshoot != 0 {
		t.Errorf("overshoot = %f, want 0", m.Overshoot)
	}
	if m.SettlingTime != 2 {
		t.Errorf("settling time = %f, want 2", m.SettlingTime)
	}
}

func TestCalculate_NegativeStepOvershoot(t *testing.T) {
	// downward steps still report overshoot only above final
	samples := []run.DataPoint{
		{Time: 0, PV: 10, Setpoint: 0},
		{Time: 1, PV: 0, Setpoint: 0},
	}
	m := Calculate(samples, 10, 0)
	// max pv 10 above final 0: (10-0)/10*100
	if m.Overshoot != 100 {
		t.Errorf("overshoot = %f, want 100", m.Overshoot)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	samples := make([]run.DataPoint, 200)
	for i := range samples {
		tm := float64(i) * 0.05
		samples[i] = run.DataPoint{Time: tm, PV: 5 * (1 - math.Exp(-tm)), Setpoint: 5}
	}
	a := Calculate(samples, 0, 5)
	r := run.New("r", nil, samples, a, run.Info{})
	b := Calculate(r.Samples(), 0, 5)
	if a != b {
		t.Errorf("recalculation differs: %+v vs %+v", a, b)
	}
}

func TestStreamingMetrics(t *testing.T) {
	effort := NewControlEffort()
	sat := NewSaturation(10)

	for _, out := range []float64{5, -15, 20, 0} {
		p := run.DataPoint{Output: out}
		effort.Observe(p)
		sat.Observe(p)
	}

	if effort.Value() != 10 {
		t.Errorf("control effort = %f, want 10", effort.Value())
	}
	if sat.Value() != 0.5 {
		t.Errorf("saturation = %f, want 0.5", sat.Value())
	}

	effort.Reset()
	sat.Reset()
	if effort.Value() != 0 || sat.Value() != 0 {
		t.Error("expected zero after reset")
	}
	if effort.Name() != "control_effort" || sat.Name() != "saturation" {
		t.Error("unexpected metric names")
	}
}

package sim

import (
	"fmt"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/metrics"
	"github.com/san-kum/loopsim/internal/run"
)

// Session is a run in progress, advanced one tick at a time.
type Session struct {
	sim     *Simulator
	cfg     Config
	steps   int
	t       float64
	initial float64
	samples []run.DataPoint
	tune    *control.TuneResult
}

// Step advances one tick: the setpoint and time move forward, the
// controller sees the current plant output, and the plant integrates the
// controller's command.
func (s *Session) Step() run.DataPoint {
	s.t = float64(len(s.samples)+1) * s.cfg.Dt
	sp := s.cfg.SetpointAt(s.t)

	pv := s.sim.plant.State()
	u := s.sim.ctrl.Calculate(sp, pv, s.t)
	next := s.sim.plant.Update(u)

	p := run.DataPoint{Time: s.t, PV: next, Setpoint: sp, Output: u}
	s.samples = append(s.samples, p)

	for _, m := range s.sim.metrics {
		m.Observe(p)
	}
	for _, o := range s.sim.observers {
		o.OnSample(p)
	}
	s.poll()
	return p
}

// poll picks up a finished auto-tune without blocking.
func (s *Session) poll() {
	tuner, ok := s.sim.ctrl.(Tuner)
	if !ok {
		return
	}
	select {
	case res := <-tuner.Results():
		s.tune = &res
	default:
	}
}

func (s *Session) Done() bool { return len(s.samples) >= s.steps }

func (s *Session) Time() float64 { return s.t }

// StopTune ends an auto-tune that is still running, so the controller
// publishes a result from the cycles recorded so far, and returns the
// session's tune result.
func (s *Session) StopTune() (control.TuneResult, bool) {
	if tuner, ok := s.sim.ctrl.(Tuner); ok && s.tune == nil && s.sim.ctrl.IsAutoTuning() {
		tuner.StopAutoTune()
		s.poll()
	}
	return s.Tune()
}

// Tune returns the auto-tune result seen during this session, if any.
func (s *Session) Tune() (control.TuneResult, bool) {
	if s.tune == nil {
		return control.TuneResult{}, false
	}
	return *s.tune, true
}

// Metrics reads the simulator's streaming metrics.
func (s *Session) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.sim.metrics))
	for _, m := range s.sim.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s *Session) Samples() []run.DataPoint {
	return s.samples
}

// Result snapshots the session.
func (s *Session) Result() *Result {
	res := &Result{
		Samples:    append([]run.DataPoint(nil), s.samples...),
		Initial:    s.initial,
		Setpoint:   s.cfg.Setpoint,
		Metrics:    s.Metrics(),
		Tune:       s.tune,
		StepsTaken: len(s.samples),
		MinSamples: s.cfg.MinSamples,
		Plant:      s.sim.plant.Name(),
		Algorithm:  s.sim.ctrl.Name(),
		Parameters: s.sim.ctrl.Parameters(),
	}
	return res
}

// Performance scores the samples as a step from Initial to Setpoint.
func (r *Result) Performance() run.PerformanceMetrics {
	return metrics.Calculate(r.Samples, r.Initial, r.Setpoint)
}

// Capture turns the result into a SimulationRun named name.
func (r *Result) Capture(name string) (*run.SimulationRun, error) {
	if len(r.Samples) < r.MinSamples {
		return nil, ErrTooFewSamples
	}
	for _, p := range r.Samples {
		if !dynamo.Finite(p.PV) || !dynamo.Finite(p.Output) {
			return nil, fmt.Errorf("%w at t=%g", ErrDiverged, p.Time)
		}
	}
	return run.New(name, r.Parameters, r.Samples, r.Performance(), run.Info{
		Plant:     r.Plant,
		Algorithm: r.Algorithm,
		Extras:    r.Metrics,
	}), nil
}

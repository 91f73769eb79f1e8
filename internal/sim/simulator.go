// Package sim drives a plant and a controller at a fixed step and records
// the run.
package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/metrics"
	"github.com/san-kum/loopsim/internal/plant"
	"github.com/san-kum/loopsim/internal/run"
)

// Simulator owns a plant and a controller. It is not safe for concurrent
// use; build one Simulator per goroutine.
type Simulator struct {
	plant     plant.Plant
	ctrl      control.Algorithm
	metrics   []metrics.Metric
	observers []Observer
}

func New(p plant.Plant, ctrl control.Algorithm) *Simulator {
	return &Simulator{
		plant:     p,
		ctrl:      ctrl,
		metrics:   make([]metrics.Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m metrics.Metric) { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }

func (s *Simulator) Plant() plant.Plant            { return s.plant }
func (s *Simulator) Controller() control.Algorithm { return s.ctrl }

// Reset zeroes the plant and controller. A running auto-tune is aborted.
func (s *Simulator) Reset() {
	s.plant.Reset()
	s.ctrl.Reset()
}

// Run simulates cfg.Duration seconds and returns the recorded samples.
// Cancelling ctx stops the run early and returns what was recorded.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	sess, err := s.Begin(cfg)
	if err != nil {
		return nil, err
	}

	for !sess.Done() {
		select {
		case <-ctx.Done():
			return sess.Result(), ctx.Err()
		default:
		}
		sess.Step()
	}

	return sess.Result(), nil
}

// AutoTune runs a relay experiment around setpoint. It stops as soon as the
// controller reports a result; if cfg.Duration elapses first the experiment
// is stopped and evaluated with whatever was recorded.
func (s *Simulator) AutoTune(ctx context.Context, setpoint float64, rule control.TuningRule, cfg Config) (*Result, error) {
	tuner, ok := s.ctrl.(Tuner)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotTunable, s.ctrl.Name())
	}

	cfg.Input = Step
	cfg.Setpoint = setpoint
	if err := s.checkConfig(cfg); err != nil {
		return nil, err
	}

	tuner.StartAutoTune(setpoint, rule)
	drain(tuner.Results())

	sess, err := s.Begin(cfg)
	if err != nil {
		return nil, err
	}

	for !sess.Done() && sess.tune == nil {
		select {
		case <-ctx.Done():
			s.ctrl.Reset()
			sess.poll()
			return sess.Result(), ctx.Err()
		default:
		}
		sess.Step()
	}

	sess.StopTune()
	return sess.Result(), nil
}

// Begin prepares a tick-by-tick run. The plant is reset; the controller is
// reset unless it is auto-tuning.
func (s *Simulator) Begin(cfg Config) (*Session, error) {
	if err := s.checkConfig(cfg); err != nil {
		return nil, err
	}

	s.plant.Reset()
	if !s.ctrl.IsAutoTuning() {
		s.ctrl.Reset()
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	steps := cfg.Steps()
	return &Session{
		sim:     s,
		cfg:     cfg,
		steps:   steps,
		initial: s.plant.State(),
		samples: make([]run.DataPoint, 0, steps),
	}, nil
}

func (s *Simulator) checkConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if d, ok := s.ctrl.(interface{ Dt() float64 }); ok && d.Dt() != cfg.Dt {
		return fmt.Errorf("%w: controller %g, simulation %g", ErrDtMismatch, d.Dt(), cfg.Dt)
	}
	return nil
}

func drain(ch <-chan control.TuneResult) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

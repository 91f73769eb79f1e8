package control

import (
	"errors"
	"math"
)

const (
	DefaultKp             = 1.0
	DefaultKi             = 0.1
	DefaultKd             = 0.05
	DefaultRelayAmplitude = 80.0
	DefaultHysteresis     = 0.5

	resultBuffer = 8
)

var ErrInvalidDt = errors.New("control: dt must be positive")

// PID is a discrete PID controller with a forward-rectangle integral and a
// backward-difference derivative. The output is not clamped and there is
// no anti-windup.
//
// A PID must not be copied after first use or shared between goroutines.
type PID struct {
	noCopy noCopy

	kp, ki, kd float64
	dt         float64

	integral      float64
	previousError float64

	relayAmplitude float64
	hysteresis     float64
	estimator      AmplitudeEstimator

	tune    *relayTune
	results chan TuneResult
	last    *TuneResult
}

func NewPID(kp, ki, kd, dt float64) (*PID, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, ErrInvalidDt
	}
	return &PID{
		kp:             kp,
		ki:             ki,
		kd:             kd,
		dt:             dt,
		relayAmplitude: DefaultRelayAmplitude,
		hysteresis:     DefaultHysteresis,
		results:        make(chan TuneResult, resultBuffer),
	}, nil
}

// NewDefaultPID returns a PID with the stock gains.
func NewDefaultPID(dt float64) (*PID, error) {
	return NewPID(DefaultKp, DefaultKi, DefaultKd, dt)
}

func (p *PID) Name() string { return "PID Controller" }

func (p *PID) Dt() float64 { return p.dt }

func (p *PID) Gains() Gains {
	return Gains{Kp: p.kp, Ki: p.ki, Kd: p.kd}
}

// SetRelay configures the relay experiment used by the next StartAutoTune.
func (p *PID) SetRelay(amplitude, hysteresis float64) {
	p.relayAmplitude = amplitude
	p.hysteresis = hysteresis
}

func (p *PID) SetAmplitudeEstimator(est AmplitudeEstimator) {
	p.estimator = est
}

func (p *PID) Calculate(setpoint, pv, currentTime float64) float64 {
	if p.tune == nil {
		return p.output(setpoint, pv)
	}

	u := p.tune.step(pv, currentTime)
	if !p.tune.done() {
		return u
	}

	p.finishTune()
	return p.output(setpoint, pv)
}

func (p *PID) output(setpoint, pv float64) float64 {
	err := setpoint - pv
	p.integral += err * p.dt
	derivative := (err - p.previousError) / p.dt
	p.previousError = err
	return p.kp*err + p.ki*p.integral + p.kd*derivative
}

// Reset clears the loop memory. A running auto-tune is aborted and reported
// as failed; gains are left unchanged.
func (p *PID) Reset() {
	if p.tune != nil {
		rule := p.tune.rule
		p.tune = nil
		p.publish(TuneResult{
			Rule:    rule,
			Err:     ErrTuneAborted,
			Message: "Tuning process was manually reset.",
		})
	}
	p.integral = 0
	p.previousError = 0
}

// StartAutoTune resets the controller and begins a relay experiment around
// setpoint. The setpoint passed to Calculate is ignored until it ends.
func (p *PID) StartAutoTune(setpoint float64, rule TuningRule) {
	p.Reset()
	p.tune = newRelayTune(setpoint, rule, p.relayAmplitude, p.hysteresis, p.estimator)
}

// StopAutoTune ends a running experiment early and evaluates whatever was
// recorded. It reports false when no experiment was running.
func (p *PID) StopAutoTune() bool {
	if p.tune == nil {
		return false
	}
	p.finishTune()
	return true
}

func (p *PID) finishTune() {
	res := p.tune.evaluate()
	p.tune = nil
	if res.Success {
		p.kp, p.ki, p.kd = res.Gains.Kp, res.Gains.Ki, res.Gains.Kd
	}
	p.publish(res)
}

// publish never blocks; when the buffer is full the oldest result is dropped.
func (p *PID) publish(res TuneResult) {
	p.last = &res
	for {
		select {
		case p.results <- res:
			return
		default:
		}
		select {
		case <-p.results:
		default:
		}
	}
}

// Results delivers one TuneResult per finished or aborted auto-tune.
func (p *PID) Results() <-chan TuneResult {
	return p.results
}

// LastResult returns the most recent tune result, if any.
func (p *PID) LastResult() (TuneResult, bool) {
	if p.last == nil {
		return TuneResult{}, false
	}
	return *p.last, true
}

func (p *PID) IsAutoTuning() bool { return p.tune != nil }

func (p *PID) AutoTuneStatus() string {
	if p.tune == nil {
		return "Not in Auto-Tune"
	}
	return p.tune.status()
}

func (p *PID) ParameterNames() []string {
	return []string{"Kp", "Ki", "Kd"}
}

func (p *PID) Parameters() map[string]float64 {
	return map[string]float64{
		"Kp": p.kp,
		"Ki": p.ki,
		"Kd": p.kd,
	}
}

// SetParameters ignores unknown keys and non-finite values.
func (p *PID) SetParameters(params map[string]float64) {
	set := func(name string, dst *float64) {
		if v, ok := params[name]; ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			*dst = v
		}
	}
	set("Kp", &p.kp)
	set("Ki", &p.ki)
	set("Kd", &p.kd)
}

package control

import (
	"errors"
	"fmt"
	"math"
)

// RequiredCycles is the number of full oscillations a relay experiment
// observes. Each cycle contributes two half-periods.
const RequiredCycles = 3

var (
	ErrInsufficientCycles = errors.New("not enough oscillation cycles detected")
	ErrInvalidOscillation = errors.New("invalid oscillation data")
	ErrTuneAborted        = errors.New("tuning process was manually reset")
)

// AmplitudeEstimator chooses which deviation is recorded at each setpoint
// crossing.
type AmplitudeEstimator int

const (
	// CrossingDeviation records |pv - setpoint| of the sample just before
	// the crossing.
	CrossingDeviation AmplitudeEstimator = iota
	// PeakDeviation records the largest |pv - setpoint| seen since the
	// previous crossing.
	PeakDeviation
)

// TuneResult reports how an auto-tune ended.
type TuneResult struct {
	Success bool
	Rule    TuningRule
	Ku      float64
	Tu      float64
	Gains   Gains
	Message string
	Err     error
}

// relayTune is the state of one relay-feedback experiment.
type relayTune struct {
	setpoint   float64
	rule       TuningRule
	amplitude  float64
	hysteresis float64
	estimator  AmplitudeEstimator

	output       float64
	seeded       bool
	lastPV       float64
	lastPeakTime float64
	peak         float64
	halfPeriods  []float64
	amplitudes   []float64
	cycles       int
}

func newRelayTune(setpoint float64, rule TuningRule, amplitude, hysteresis float64, est AmplitudeEstimator) *relayTune {
	return &relayTune{
		setpoint:    setpoint,
		rule:        rule,
		amplitude:   amplitude,
		hysteresis:  hysteresis,
		estimator:   est,
		output:      amplitude,
		halfPeriods: make([]float64, 0, 2*RequiredCycles),
		amplitudes:  make([]float64, 0, 2*RequiredCycles),
	}
}

// step feeds one sample into the experiment and returns the relay command.
func (r *relayTune) step(pv, t float64) float64 {
	if !r.seeded {
		r.seeded = true
		r.lastPV = pv
		r.lastPeakTime = t
		return r.output
	}

	e := r.setpoint - pv
	if e > r.hysteresis {
		r.output = r.amplitude
	} else if e < -r.hysteresis {
		r.output = -r.amplitude
	}

	r.peak = math.Max(r.peak, math.Abs(r.lastPV-r.setpoint))

	if (r.lastPV-r.setpoint)*(pv-r.setpoint) < 0 {
		if r.lastPeakTime > 0 {
			r.halfPeriods = append(r.halfPeriods, t-r.lastPeakTime)
			r.amplitudes = append(r.amplitudes, r.crossingAmplitude())
			r.cycles++
		}
		r.lastPeakTime = t
		r.peak = 0
	}

	r.lastPV = pv
	return r.output
}

func (r *relayTune) crossingAmplitude() float64 {
	if r.estimator == PeakDeviation {
		return r.peak
	}
	return math.Abs(r.lastPV - r.setpoint)
}

func (r *relayTune) done() bool {
	return r.cycles >= 2*RequiredCycles
}

func (r *relayTune) status() string {
	return fmt.Sprintf("Tuning (%s)... Cycle %d of %d", r.rule, r.cycles/2+1, RequiredCycles)
}

// evaluate turns the recorded oscillation into a result. It does not touch
// any controller.
func (r *relayTune) evaluate() TuneResult {
	res := TuneResult{Rule: r.rule}
	if len(r.halfPeriods) < 2*RequiredCycles {
		res.Err = ErrInsufficientCycles
		res.Message = "Auto-tune failed: Not enough oscillation cycles detected."
		return res
	}

	ku, tu, err := Identify(r.halfPeriods, r.amplitudes, r.amplitude)
	if err != nil {
		res.Err = err
		res.Message = "Auto-tune failed: Invalid oscillation data."
		return res
	}

	res.Success = true
	res.Ku, res.Tu = ku, tu
	res.Gains = r.rule.Gains(ku, tu)
	res.Message = fmt.Sprintf("Auto-tuning successful! Rule: %s Ku=%.2f, Tu=%.2f New Params: Kp=%.2f, Ki=%.2f, Kd=%.2f",
		r.rule, ku, tu, res.Gains.Kp, res.Gains.Ki, res.Gains.Kd)
	return res
}

// Identify estimates the ultimate gain and period from relay half-periods
// and oscillation amplitudes (describing-function approximation).
func Identify(halfPeriods, amplitudes []float64, relayAmplitude float64) (ku, tu float64, err error) {
	tu = mean(halfPeriods) * 2.0
	a := mean(amplitudes)
	if a <= 0 || tu <= 0 || math.IsNaN(a) || math.IsNaN(tu) {
		return 0, 0, ErrInvalidOscillation
	}
	ku = (4.0 * relayAmplitude) / (math.Pi * a)
	return ku, tu, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

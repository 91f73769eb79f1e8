package sim

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/run"
)

var (
	ErrInvalidConfig = errors.New("sim: invalid config")
	ErrDtMismatch    = errors.New("sim: controller dt differs from simulation dt")
	ErrTooFewSamples = errors.New("sim: too few samples to capture a run")
	ErrNotTunable    = errors.New("sim: controller does not support auto-tuning")
	ErrDiverged      = errors.New("sim: run contains non-finite values")
)

// InputMode selects the setpoint profile.
type InputMode int

const (
	Step InputMode = iota
	Sine
)

func (m InputMode) String() string {
	if m == Sine {
		return "sine"
	}
	return "step"
}

func ParseInputMode(s string) (InputMode, error) {
	switch strings.ToLower(s) {
	case "", "step":
		return Step, nil
	case "sine":
		return Sine, nil
	}
	return Step, fmt.Errorf("%w: unknown input mode %q", ErrInvalidConfig, s)
}

type Config struct {
	Dt       float64
	Duration float64
	Input    InputMode
	Setpoint float64
	// Sine profile: Amplitude*sin(2*pi*Frequency*t) + Offset
	Amplitude  float64
	Frequency  float64
	Offset     float64
	MinSamples int
}

func DefaultConfig() Config {
	return Config{
		Dt:         0.05,
		Duration:   20.0,
		Input:      Step,
		Setpoint:   5.0,
		Amplitude:  2.0,
		Frequency:  0.5,
		Offset:     5.0,
		MinSamples: 10,
	}
}

func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, c.Dt)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, c.Duration)
	}
	if c.Input == Sine && c.Frequency < 0 {
		return fmt.Errorf("%w: frequency must be non-negative, got %f", ErrInvalidConfig, c.Frequency)
	}
	return nil
}

// Steps is the number of ticks in a full run.
func (c Config) Steps() int {
	return int(math.Round(c.Duration / c.Dt))
}

func (c Config) SetpointAt(t float64) float64 {
	if c.Input == Sine {
		return c.Amplitude*math.Sin(2*math.Pi*c.Frequency*t) + c.Offset
	}
	return c.Setpoint
}

// Tuner is implemented by controllers that can run a relay auto-tune.
type Tuner interface {
	StartAutoTune(setpoint float64, rule control.TuningRule)
	StopAutoTune() bool
	AutoTuneStatus() string
	Results() <-chan control.TuneResult
}

type Observer interface {
	OnSample(p run.DataPoint)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(p run.DataPoint)

func (f ObserverFunc) OnSample(p run.DataPoint) { f(p) }

type Result struct {
	Samples    []run.DataPoint
	Initial    float64
	Setpoint   float64
	Metrics    map[string]float64
	Tune       *control.TuneResult
	StepsTaken int
	MinSamples int
	Plant      string
	Algorithm  string
	Parameters map[string]float64
}

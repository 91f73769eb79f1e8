package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/sim"
)

const (
	DefaultDt           = 0.05
	DefaultDuration     = 20.0
	DefaultTuneDuration = 60.0
	DefaultSetpoint     = 5.0
	DefaultTimeConstant = 1.0
	DefaultGain         = 1.0
	DefaultMinSamples   = 10
	DefaultStoreDir     = "runs"
)

type Config struct {
	Plant            string           `yaml:"plant"`
	Integrator       string           `yaml:"integrator"`
	Controller       string           `yaml:"controller"`
	Dt               float64          `yaml:"dt"`
	Duration         float64          `yaml:"duration"`
	MinSamples       int              `yaml:"min_samples"`
	StoreDir         string           `yaml:"store_dir"`
	PlantParams      PlantConfig      `yaml:"plant_params"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
	Tuning           TuningConfig     `yaml:"tuning"`
	Input            InputConfig      `yaml:"input"`
}

type PlantConfig struct {
	TimeConstant float64 `yaml:"time_constant"`
	Gain         float64 `yaml:"gain"`
	Wn           float64 `yaml:"wn"`
	Zeta         float64 `yaml:"zeta"`
	Area         float64 `yaml:"area"`
	InflowK      float64 `yaml:"inflow_k"`
	Discharge    float64 `yaml:"discharge"`
	// DeadTime delays any plant's output by this many seconds.
	DeadTime float64 `yaml:"dead_time"`
}

type ControllerConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
	// U is the fixed output of the open-loop controller.
	U float64 `yaml:"u"`
	// SaturationLimit feeds the saturation metric.
	SaturationLimit float64 `yaml:"saturation_limit"`
}

type TuningConfig struct {
	Rule           string  `yaml:"rule"`
	RelayAmplitude float64 `yaml:"relay_amplitude"`
	Hysteresis     float64 `yaml:"hysteresis"`
	Estimator      string  `yaml:"estimator"`
	Duration       float64 `yaml:"duration"`
}

type InputConfig struct {
	Mode      string  `yaml:"mode"`
	Setpoint  float64 `yaml:"setpoint"`
	Amplitude float64 `yaml:"amplitude"`
	Frequency float64 `yaml:"frequency"`
	Offset    float64 `yaml:"offset"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant:      "first_order",
		Integrator: "rk4",
		Controller: "pid",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		MinSamples: DefaultMinSamples,
		StoreDir:   DefaultStoreDir,
		PlantParams: PlantConfig{
			TimeConstant: DefaultTimeConstant,
			Gain:         DefaultGain,
			Wn:           1.0,
			Zeta:         0.5,
			Area:         1.0,
			InflowK:      0.1,
			Discharge:    0.5,
		},
		ControllerParams: ControllerConfig{
			Kp:              control.DefaultKp,
			Ki:              control.DefaultKi,
			Kd:              control.DefaultKd,
			SaturationLimit: 100,
		},
		Tuning: TuningConfig{
			Rule:           control.NoOvershoot.Slug(),
			RelayAmplitude: control.DefaultRelayAmplitude,
			Hysteresis:     control.DefaultHysteresis,
			Estimator:      "crossing",
			Duration:       DefaultTuneDuration,
		},
		Input: InputConfig{
			Mode:      "step",
			Setpoint:  DefaultSetpoint,
			Amplitude: 2.0,
			Frequency: 0.5,
			Offset:    5.0,
		},
	}
}

// Clone returns a deep copy; Config holds only values.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SimConfig converts the input and timing sections for the driver.
func (c *Config) SimConfig() (sim.Config, error) {
	mode, err := sim.ParseInputMode(c.Input.Mode)
	if err != nil {
		return sim.Config{}, err
	}
	cfg := sim.Config{
		Dt:         c.Dt,
		Duration:   c.Duration,
		Input:      mode,
		Setpoint:   c.Input.Setpoint,
		Amplitude:  c.Input.Amplitude,
		Frequency:  c.Input.Frequency,
		Offset:     c.Input.Offset,
		MinSamples: c.MinSamples,
	}
	return cfg, cfg.Validate()
}

// TuneConfig is SimConfig bounded by the tuning duration.
func (c *Config) TuneConfig() (sim.Config, error) {
	cfg, err := c.SimConfig()
	if err != nil {
		return cfg, err
	}
	if c.Tuning.Duration > 0 {
		cfg.Duration = c.Tuning.Duration
	}
	return cfg, nil
}

func (c *Config) Rule() (control.TuningRule, error) {
	return control.ParseTuningRule(c.Tuning.Rule)
}

func (c *Config) GetControllerParams() map[string]float64 {
	return map[string]float64{
		"Kp": c.ControllerParams.Kp,
		"Ki": c.ControllerParams.Ki,
		"Kd": c.ControllerParams.Kd,
		"U":  c.ControllerParams.U,
	}
}

// Set assigns a numeric field by its yaml key, e.g. "kp" or "time_constant".
func (c *Config) Set(key string, v float64) error {
	dst, ok := c.fields()[key]
	if !ok {
		return fmt.Errorf("unknown parameter: %s", key)
	}
	*dst = v
	return nil
}

func (c *Config) Get(key string) (float64, bool) {
	dst, ok := c.fields()[key]
	if !ok {
		return 0, false
	}
	return *dst, true
}

func (c *Config) fields() map[string]*float64 {
	return map[string]*float64{
		"kp":               &c.ControllerParams.Kp,
		"ki":               &c.ControllerParams.Ki,
		"kd":               &c.ControllerParams.Kd,
		"u":                &c.ControllerParams.U,
		"time_constant":    &c.PlantParams.TimeConstant,
		"gain":             &c.PlantParams.Gain,
		"wn":               &c.PlantParams.Wn,
		"zeta":             &c.PlantParams.Zeta,
		"area":             &c.PlantParams.Area,
		"inflow_k":         &c.PlantParams.InflowK,
		"discharge":        &c.PlantParams.Discharge,
		"dead_time":        &c.PlantParams.DeadTime,
		"setpoint":         &c.Input.Setpoint,
		"relay_amplitude":  &c.Tuning.RelayAmplitude,
		"hysteresis":       &c.Tuning.Hysteresis,
		"saturation_limit": &c.ControllerParams.SaturationLimit,
	}
}

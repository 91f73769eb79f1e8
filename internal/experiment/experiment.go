// Package experiment assembles a simulator from a config.Config.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	simulator *sim.Simulator
}

func New(cfg *config.Config, reg *Registry) *Experiment {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Experiment{cfg: cfg, registry: reg}
}

// Build creates a fresh simulator from the config. Each call returns an
// independent plant and controller.
func (e *Experiment) Build() (*sim.Simulator, error) {
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return nil, err
	}
	p, err := e.registry.GetPlant(e.cfg.Plant, e.cfg.PlantParams, e.cfg.Dt, integ)
	if err != nil {
		return nil, err
	}
	ctrl, err := e.registry.GetController(e.cfg.Controller, e.cfg)
	if err != nil {
		return nil, err
	}

	s := sim.New(p, ctrl)
	for _, m := range e.registry.DefaultMetrics(e.cfg) {
		s.AddMetric(m)
	}
	return s, nil
}

func (e *Experiment) Setup() error {
	s, err := e.Build()
	if err != nil {
		return err
	}
	e.simulator = s
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	simCfg, err := e.cfg.SimConfig()
	if err != nil {
		return nil, err
	}
	return e.simulator.Run(ctx, simCfg)
}

// Tune runs the relay experiment at the configured setpoint and rule.
// Gains found are kept by the controller for later runs.
func (e *Experiment) Tune(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	rule, err := e.cfg.Rule()
	if err != nil {
		return nil, err
	}
	tuneCfg, err := e.cfg.TuneConfig()
	if err != nil {
		return nil, err
	}
	return e.simulator.AutoTune(ctx, e.cfg.Input.Setpoint, rule, tuneCfg)
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/dynamo"
	"github.com/san-kum/loopsim/internal/integrators"
	"github.com/san-kum/loopsim/internal/metrics"
	"github.com/san-kum/loopsim/internal/plant"
)

type (
	plantFactory      func(p config.PlantConfig, dt float64, integ dynamo.Integrator) (plant.Plant, error)
	controllerFactory func(c *config.Config) (control.Algorithm, error)
)

type Registry struct {
	plants      map[string]plantFactory
	integrators map[string]func() dynamo.Integrator
	controllers map[string]controllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		plants:      make(map[string]plantFactory),
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]controllerFactory),
	}

	r.plants["first_order"] = func(p config.PlantConfig, dt float64, _ dynamo.Integrator) (plant.Plant, error) {
		return plant.NewFirstOrder(p.TimeConstant, p.Gain, dt)
	}
	r.plants["second_order"] = func(p config.PlantConfig, dt float64, integ dynamo.Integrator) (plant.Plant, error) {
		return plant.NewSecondOrder(p.Wn, p.Zeta, p.Gain, dt, integ)
	}
	r.plants["tank"] = func(p config.PlantConfig, dt float64, integ dynamo.Integrator) (plant.Plant, error) {
		return plant.NewTank(p.Area, p.InflowK, p.Discharge, dt, integ)
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewRK4() }

	r.controllers["pid"] = func(c *config.Config) (control.Algorithm, error) {
		pid, err := control.NewPID(c.ControllerParams.Kp, c.ControllerParams.Ki, c.ControllerParams.Kd, c.Dt)
		if err != nil {
			return nil, err
		}
		pid.SetRelay(c.Tuning.RelayAmplitude, c.Tuning.Hysteresis)
		est, err := parseEstimator(c.Tuning.Estimator)
		if err != nil {
			return nil, err
		}
		pid.SetAmplitudeEstimator(est)
		return pid, nil
	}
	r.controllers["open_loop"] = func(c *config.Config) (control.Algorithm, error) {
		return control.NewOpenLoop(c.ControllerParams.U), nil
	}
	r.controllers["none"] = func(c *config.Config) (control.Algorithm, error) {
		return control.NewOpenLoop(0), nil
	}

	return r
}

func parseEstimator(s string) (control.AmplitudeEstimator, error) {
	switch s {
	case "", "crossing":
		return control.CrossingDeviation, nil
	case "peak":
		return control.PeakDeviation, nil
	}
	return control.CrossingDeviation, fmt.Errorf("unknown amplitude estimator: %s", s)
}

// GetPlant builds the named plant and wraps it in a delay when
// p.DeadTime is positive.
func (r *Registry) GetPlant(name string, p config.PlantConfig, dt float64, integ dynamo.Integrator) (plant.Plant, error) {
	fn, ok := r.plants[name]
	if !ok {
		return nil, fmt.Errorf("unknown plant: %s", name)
	}
	pl, err := fn(p, dt, integ)
	if err != nil {
		return nil, fmt.Errorf("plant %s: %w", name, err)
	}
	if p.DeadTime > 0 {
		return plant.NewDeadTime(pl, p.DeadTime, dt)
	}
	return pl, nil
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, cfg *config.Config) (control.Algorithm, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(cfg)
}

func (r *Registry) ListPlants() []string      { return sortedKeys(r.plants) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }
func (r *Registry) ListControllers() []string { return sortedKeys(r.controllers) }

func (r *Registry) DefaultMetrics(cfg *config.Config) []metrics.Metric {
	return []metrics.Metric{
		metrics.NewControlEffort(),
		metrics.NewSaturation(cfg.ControllerParams.SaturationLimit),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

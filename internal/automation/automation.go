package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/loopsim/internal/config"
	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/experiment"
	"github.com/san-kum/loopsim/internal/run"
	"github.com/san-kum/loopsim/internal/storage"
	"github.com/san-kum/loopsim/internal/ui"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single step in a scenario. Config is applied over the
// preset (or the defaults) so a step only names what it changes.
type ScenarioStep struct {
	Name string `yaml:"name"`
	// Preset is "group/name", e.g. "second_order/underdamped".
	Preset string `yaml:"preset"`
	// Tune runs the relay auto-tune with this rule before the run.
	Tune   string    `yaml:"tune"`
	Config yaml.Node `yaml:"config"`
	SaveAs string    `yaml:"save_as"`
}

type StepResult struct {
	Name string
	Tune *control.TuneResult
	Run  *run.SimulationRun
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// StepConfig resolves the configuration a step runs with.
func (s *ScenarioStep) StepConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		group, name, ok := strings.Cut(s.Preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset %q: want group/name", s.Preset)
		}
		if cfg = config.GetPreset(group, name); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, err
		}
	}
	if s.Tune != "" {
		cfg.Tuning.Rule = s.Tune
	}
	return cfg, nil
}

// RunScenario executes all steps in a scenario. Steps with SaveAs are
// written to store when store is non-nil.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("%s step %d", scenario.Name, i+1)
		}
		ui.Info("Running step %d/%d: %s", i+1, len(scenario.Steps), name)

		cfg, err := step.StepConfig()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg, registry)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		res := StepResult{Name: name}
		if step.Tune != "" {
			tuned, err := exp.Tune(ctx)
			if err != nil {
				return results, fmt.Errorf("step %d tune: %w", i+1, err)
			}
			res.Tune = tuned.Tune
			if tuned.Tune != nil && !tuned.Tune.Success {
				ui.Warning("%s", tuned.Tune.Message)
			}
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		runName := step.SaveAs
		if runName == "" {
			runName = name
		}
		res.Run, err = result.Capture(runName)
		if err != nil {
			return results, fmt.Errorf("step %d capture: %w", i+1, err)
		}

		if step.SaveAs != "" && store != nil {
			if err := store.Save(res.Run); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			ui.Success("Saved run %q", step.SaveAs)
		}

		results = append(results, res)
	}

	return results, nil
}

// ParameterSweep runs simulations across a range of parameter values
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue float64
	Metrics    run.PerformanceMetrics
	FinalPV    float64
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	if _, ok := sweep.Base.Get(sweep.ParamName); !ok {
		return nil, fmt.Errorf("unknown parameter: %s", sweep.ParamName)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := sweep.Base.Clone()
		if err := cfg.Set(sweep.ParamName, paramVal); err != nil {
			return nil, err
		}

		exp := experiment.New(cfg, registry)
		if err := exp.Setup(); err != nil {
			return nil, err
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		var final float64
		if n := len(result.Samples); n > 0 {
			final = result.Samples[n-1].PV
		}

		results = append(results, SweepResult{
			ParamValue: paramVal,
			Metrics:    result.Performance(),
			FinalPV:    final,
		})

		ui.Debug("Sweep %d/%d: %s=%.4f", i+1, sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}

// MonteCarloConfig perturbs plant parameters to check how robust a set of
// gains is.
type MonteCarloConfig struct {
	Base *config.Config
	// Params are the keys perturbed, e.g. "time_constant", "gain".
	Params []string
	// Perturbation is the relative spread: each value is scaled by a
	// uniform factor in [1-p, 1+p].
	Perturbation float64
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds statistics from Monte Carlo runs
type MonteCarloResult struct {
	TrialID int
	Params  map[string]float64
	Metrics run.PerformanceMetrics
	Stable  bool // Did the process value remain bounded?
}

const stabilityBound = 1e6

// RunMonteCarlo executes multiple trials with random perturbations
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, registry *experiment.Registry) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, mc.NumTrials)

	rng := rand.New(rand.NewSource(mc.Seed))
	if mc.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < mc.NumTrials; trial++ {
		cfg := mc.Base.Clone()
		params := make(map[string]float64, len(mc.Params))
		for _, key := range mc.Params {
			v, ok := cfg.Get(key)
			if !ok {
				return nil, fmt.Errorf("unknown parameter: %s", key)
			}
			v *= 1 + (rng.Float64()-0.5)*2*mc.Perturbation
			params[key] = v
			_ = cfg.Set(key, v)
		}

		exp := experiment.New(cfg, registry)
		if err := exp.Setup(); err != nil {
			return nil, err
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		stable := true
		for _, p := range result.Samples {
			if math.IsNaN(p.PV) || math.Abs(p.PV) > stabilityBound {
				stable = false
				break
			}
		}

		results = append(results, MonteCarloResult{
			TrialID: trial,
			Params:  params,
			Metrics: result.Performance(),
			Stable:  stable,
		})

		if (trial+1)%10 == 0 {
			ui.Debug("Monte Carlo: %d/%d trials complete", trial+1, mc.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

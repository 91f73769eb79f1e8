// Package optim searches controller and plant parameters for the best
// scoring closed-loop run.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/loopsim/internal/sim"
)

var ErrNoCandidates = errors.New("optim: no candidate produced a score")

// BuildFunc returns a fresh simulator configured with params.
type BuildFunc func(params map[string]float64) (*sim.Simulator, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// WithWorkers bounds the number of simulations in flight.
func (g *GridSearch) WithWorkers(n int) *GridSearch {
	g.workers = n
	return g
}

type Evaluation struct {
	Params map[string]float64
	Score  float64
}

// Search runs every combination in the grid and returns the parameters with
// the lowest score. metricName is a performance metric ("iae", "overshoot",
// "settling_time", "rise_time") or a streaming metric recorded by the
// simulator ("control_effort", "saturation").
func (g *GridSearch) Search(ctx context.Context, build BuildFunc, cfg sim.Config, metricName string) (map[string]float64, float64, error) {
	evals, err := g.Evaluate(ctx, build, cfg, metricName)
	if err != nil {
		return nil, 0, err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for _, e := range evals {
		if e.Score < best {
			best = e.Score
			bestParams = e.Params
		}
	}
	if bestParams == nil {
		return nil, 0, ErrNoCandidates
	}
	return bestParams, best, nil
}

// Evaluate scores every grid point, in grid order. Points whose score is not
// finite are kept with a +Inf score.
func (g *GridSearch) Evaluate(ctx context.Context, build BuildFunc, cfg sim.Config, metricName string) ([]Evaluation, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, fmt.Errorf("optim: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}

	points := g.points()
	jobs := make([]sim.Job, len(points))
	for i, p := range points {
		p := p
		jobs[i] = sim.Job{
			Build:  func() (*sim.Simulator, error) { return build(p) },
			Config: cfg,
		}
	}

	results, err := sim.NewBatch(g.workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	evals := make([]Evaluation, len(points))
	for i, res := range results {
		score, err := Score(res, metricName)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			score = math.Inf(1)
		}
		evals[i] = Evaluation{Params: points[i], Score: score}
	}
	return evals, nil
}

// Score reads metricName from a finished run.
func Score(res *sim.Result, metricName string) (float64, error) {
	if v, ok := res.Performance().Value(metricName); ok {
		return v, nil
	}
	if v, ok := res.Metrics[metricName]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("optim: unknown metric %q", metricName)
}

// points expands the grid, last parameter varying fastest.
func (g *GridSearch) points() []map[string]float64 {
	points := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[depth]))
		for _, base := range points {
			for _, val := range g.ranges[depth] {
				p := make(map[string]float64, len(base)+1)
				for k, v := range base {
					p[k] = v
				}
				p[name] = val
				next = append(next, p)
			}
		}
		points = next
	}
	return points
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

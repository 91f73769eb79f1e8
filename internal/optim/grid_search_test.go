package optim

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/loopsim/internal/control"
	"github.com/san-kum/loopsim/internal/metrics"
	"github.com/san-kum/loopsim/internal/plant"
	"github.com/san-kum/loopsim/internal/sim"
)

func buildPID(params map[string]float64) (*sim.Simulator, error) {
	p, err := plant.NewFirstOrder(1, 1, 0.05)
	if err != nil {
		return nil, err
	}
	pid, err := control.NewPID(params["kp"], params["ki"], 0, 0.05)
	if err != nil {
		return nil, err
	}
	s := sim.New(p, pid)
	s.AddMetric(metrics.NewControlEffort())
	return s, nil
}

func TestGridSearch_Points(t *testing.T) {
	g := NewGridSearch([]string{"kp", "ki"}, [][]float64{{1, 2}, {0, 0.5, 1}})
	pts := g.points()
	if len(pts) != 6 {
		t.Fatalf("expected 6 points, got %d", len(pts))
	}
	if pts[0]["kp"] != 1 || pts[0]["ki"] != 0 || pts[5]["kp"] != 2 || pts[5]["ki"] != 1 {
		t.Errorf("unexpected ordering %v", pts)
	}
}

func TestGridSearch_Search(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Duration = 10

	g := NewGridSearch([]string{"kp", "ki"}, [][]float64{{0.5, 2, 8}, {0.1, 1}}).WithWorkers(3)
	best, score, err := g.Search(context.Background(), buildPID, cfg, "iae")
	if err != nil {
		t.Fatal(err)
	}

	evals, err := g.Evaluate(context.Background(), buildPID, cfg, "iae")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range evals {
		if e.Score < score {
			t.Errorf("%v scores %f, better than reported best %f", e.Params, e.Score, score)
		}
	}

	// more gain tracks a first-order lag faster
	if best["kp"] != 8 {
		t.Errorf("expected kp=8 to win on IAE, got %v (score %f)", best, score)
	}
}

func TestGridSearch_StreamingMetric(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Duration = 2
	g := NewGridSearch([]string{"kp", "ki"}, [][]float64{{1, 4}, {0}})

	best, _, err := g.Search(context.Background(), buildPID, cfg, "control_effort")
	if err != nil {
		t.Fatal(err)
	}
	if best["kp"] != 1 {
		t.Errorf("lower gain should use less effort, got %v", best)
	}
}

func TestGridSearch_Errors(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Duration = 1

	g := NewGridSearch([]string{"kp"}, [][]float64{{1}, {2}})
	if _, _, err := g.Search(context.Background(), buildPID, cfg, "iae"); err == nil {
		t.Error("expected mismatch error")
	}

	g = NewGridSearch([]string{"kp", "ki"}, [][]float64{{1}, {0}})
	if _, _, err := g.Search(context.Background(), buildPID, cfg, "energy"); err == nil {
		t.Error("expected unknown metric error")
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Linspace[%d] = %f, want %f", i, got[i], want[i])
		}
	}
	if len(Linspace(3, 9, 1)) != 1 {
		t.Error("n=1 should return the lower bound")
	}
}

package export

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/loopsim/internal/run"
)

func testRun(samples []run.DataPoint) *run.SimulationRun {
	return run.New("a<b", map[string]float64{"Kp": 1}, samples, run.PerformanceMetrics{IAE: 1.5}, run.Info{Plant: "first_order"})
}

func TestRunToSVG(t *testing.T) {
	samples := []run.DataPoint{
		{Time: 0.1, PV: 0, Setpoint: 1, Output: 2},
		{Time: 0.2, PV: 0.5, Setpoint: 1, Output: 1},
		{Time: 0.3, PV: 1, Setpoint: 1, Output: 0},
	}

	var buf bytes.Buffer
	if err := RunToSVG(&buf, testRun(samples), DefaultSVGOptions()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "<?xml") || !strings.HasSuffix(out, "</svg>\n") {
		t.Errorf("not an svg document:\n%s", out)
	}
	if n := strings.Count(out, "<path"); n != 2 {
		t.Errorf("paths = %d, want 2", n)
	}
	if !strings.Contains(out, "<title>a&lt;b</title>") {
		t.Error("title not escaped")
	}
	// first PV sample sits at the left edge
	if !strings.Contains(out, `d="M0.0,`) {
		t.Error("path does not start at x=0")
	}
}

func TestRunToSVG_Output(t *testing.T) {
	samples := []run.DataPoint{
		{Time: 0.1, PV: 0, Setpoint: 1, Output: 2},
		{Time: 0.2, PV: 1, Setpoint: 1, Output: 0},
	}
	opts := DefaultSVGOptions()
	opts.Output = true

	var buf bytes.Buffer
	if err := RunToSVG(&buf, testRun(samples), opts); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "<path"); n != 3 {
		t.Errorf("paths = %d, want 3", n)
	}
}

func TestRunToSVG_TooShort(t *testing.T) {
	var buf bytes.Buffer
	if err := RunToSVG(&buf, testRun([]run.DataPoint{{Time: 0.1}}), DefaultSVGOptions()); err == nil {
		t.Error("expected error for a single sample")
	}
}

func TestPathData_BreaksOnNaN(t *testing.T) {
	samples := []run.DataPoint{{Time: 0, PV: 0}, {Time: 1, PV: math.NaN()}, {Time: 2, PV: 1}}
	b := bounds{minX: 0, maxX: 2, minY: 0, maxY: 1}
	got := pathData(samples, func(p run.DataPoint) float64 { return p.PV }, b, 100, 10)
	if got != "M0.0,10.0M100.0,0.0" {
		t.Errorf("pathData = %q", got)
	}
}

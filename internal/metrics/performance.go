// Package metrics scores simulation runs.
//
// [Calculate] is a pure function over a finished run. The streaming
// [Metric] implementations observe samples one at a time while a run is
// in progress.
package metrics

import (
	"math"

	"github.com/san-kum/loopsim/internal/run"
)

const (
	minStepHeight = 1e-6
	riseLow       = 0.1
	riseHigh      = 0.9
	settleBand    = 0.02
)

// Calculate scores a step response from initial to final. Too few samples or
// a vanishing step height yield all-zero metrics.
func Calculate(samples []run.DataPoint, initial, final float64) run.PerformanceMetrics {
	if len(samples) < 2 {
		return run.PerformanceMetrics{}
	}

	stepHeight := final - initial
	if math.Abs(stepHeight) < minStepHeight {
		return run.PerformanceMetrics{}
	}

	return run.PerformanceMetrics{
		RiseTime:     riseTime(samples, initial, stepHeight),
		Overshoot:    overshoot(samples, final, stepHeight),
		SettlingTime: settlingTime(samples, final, stepHeight),
		IAE:          integralAbsoluteError(samples),
	}
}

func riseTime(samples []run.DataPoint, initial, stepHeight float64) float64 {
	low := initial + riseLow*stepHeight
	high := initial + riseHigh*stepHeight

	var t10, t90 float64
	found10, found90 := false, false
	for _, p := range samples {
		if !found10 && p.PV >= low {
			t10, found10 = p.Time, true
		}
		if p.PV >= high {
			t90, found90 = p.Time, true
			break
		}
	}
	if !found10 || !found90 {
		return 0
	}
	return t90 - t10
}

func overshoot(samples []run.DataPoint, final, stepHeight float64) float64 {
	maxPV := samples[0].PV
	for _, p := range samples[1:] {
		maxPV = math.Max(maxPV, p.PV)
	}
	if maxPV <= final {
		return 0
	}
	return (maxPV - final) / math.Abs(stepHeight) * 100.0
}

func settlingTime(samples []run.DataPoint, final, stepHeight float64) float64 {
	tolerance := settleBand * math.Abs(stepHeight)
	last := 0.0
	for _, p := range samples {
		if math.Abs(p.PV-final) > tolerance {
			last = p.Time
		}
	}
	return last
}

func integralAbsoluteError(samples []run.DataPoint) float64 {
	iae := 0.0
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Time - samples[i-1].Time
		iae += math.Abs(samples[i].Setpoint-samples[i].PV) * dt
	}
	return iae
}

// Package run holds the records produced by a simulation: one DataPoint per
// tick and one SimulationRun per completed run.
package run

import (
	"encoding/json"
	"fmt"
	"time"
)

// DataPoint is one simulation sample.
type DataPoint struct {
	Time     float64 `json:"time"`
	PV       float64 `json:"pv"`
	Setpoint float64 `json:"setpoint"`
	Output   float64 `json:"output"`
}

// PerformanceMetrics scores a step response.
type PerformanceMetrics struct {
	RiseTime     float64 `json:"rise_time"`
	Overshoot    float64 `json:"overshoot"`
	SettlingTime float64 `json:"settling_time"`
	IAE          float64 `json:"iae"`
}

func (m PerformanceMetrics) String() string {
	return fmt.Sprintf("Rise Time (10-90%%): %.2f s, Overshoot: %.2f %%, Settling Time (±2%%): %.2f s, IAE: %.2f",
		m.RiseTime, m.Overshoot, m.SettlingTime, m.IAE)
}

// Value returns a metric by its short name.
func (m PerformanceMetrics) Value(name string) (float64, bool) {
	switch name {
	case "rise_time":
		return m.RiseTime, true
	case "overshoot":
		return m.Overshoot, true
	case "settling_time":
		return m.SettlingTime, true
	case "iae":
		return m.IAE, true
	}
	return 0, false
}

// SimulationRun is a completed run. Only the name can change after
// construction; accessors hand out copies.
type SimulationRun struct {
	name       string
	createdAt  time.Time
	plant      string
	algorithm  string
	parameters map[string]float64
	samples    []DataPoint
	metrics    PerformanceMetrics
	extras     map[string]float64
}

// Info carries the optional labels of a run.
type Info struct {
	Plant     string
	Algorithm string
	Extras    map[string]float64
}

func New(name string, parameters map[string]float64, samples []DataPoint, metrics PerformanceMetrics, info Info) *SimulationRun {
	return &SimulationRun{
		name:       name,
		createdAt:  time.Now(),
		plant:      info.Plant,
		algorithm:  info.Algorithm,
		parameters: cloneMap(parameters),
		samples:    append([]DataPoint(nil), samples...),
		metrics:    metrics,
		extras:     cloneMap(info.Extras),
	}
}

func (r *SimulationRun) Name() string                   { return r.name }
func (r *SimulationRun) Rename(name string)             { r.name = name }
func (r *SimulationRun) CreatedAt() time.Time           { return r.createdAt }
func (r *SimulationRun) Plant() string                  { return r.plant }
func (r *SimulationRun) Algorithm() string              { return r.algorithm }
func (r *SimulationRun) Metrics() PerformanceMetrics    { return r.metrics }
func (r *SimulationRun) Parameters() map[string]float64 { return cloneMap(r.parameters) }
func (r *SimulationRun) Extras() map[string]float64     { return cloneMap(r.extras) }
func (r *SimulationRun) Len() int                       { return len(r.samples) }

func (r *SimulationRun) Samples() []DataPoint {
	return append([]DataPoint(nil), r.samples...)
}

// Series extracts one column of the samples.
func (r *SimulationRun) Series(pick func(DataPoint) float64) []float64 {
	out := make([]float64, len(r.samples))
	for i, p := range r.samples {
		out[i] = pick(p)
	}
	return out
}

func (r *SimulationRun) String() string { return r.name }

type record struct {
	Name       string             `json:"name"`
	CreatedAt  time.Time          `json:"created_at"`
	Plant      string             `json:"plant,omitempty"`
	Algorithm  string             `json:"algorithm,omitempty"`
	Parameters map[string]float64 `json:"parameters"`
	Samples    []DataPoint        `json:"samples"`
	Metrics    PerformanceMetrics `json:"metrics"`
	Extras     map[string]float64 `json:"extras,omitempty"`
}

func (r *SimulationRun) MarshalJSON() ([]byte, error) {
	return json.Marshal(record{
		Name:       r.name,
		CreatedAt:  r.createdAt,
		Plant:      r.plant,
		Algorithm:  r.algorithm,
		Parameters: r.parameters,
		Samples:    r.samples,
		Metrics:    r.metrics,
		Extras:     r.extras,
	})
}

func (r *SimulationRun) UnmarshalJSON(data []byte) error {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*r = SimulationRun{
		name:       rec.Name,
		createdAt:  rec.CreatedAt,
		plant:      rec.Plant,
		algorithm:  rec.Algorithm,
		parameters: rec.Parameters,
		samples:    rec.Samples,
		metrics:    rec.Metrics,
		extras:     rec.Extras,
	}
	return nil
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

package metrics

import "github.com/san-kum/loopsim/internal/run"

// Metric accumulates a value while a run is in progress.
type Metric interface {
	Name() string
	Observe(p run.DataPoint)
	Value() float64
	Reset()
}

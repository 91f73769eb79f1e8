package metrics

import (
	"math"

	"github.com/san-kum/loopsim/internal/run"
)

// Saturation is the fraction of samples whose output magnitude exceeds
// limit. The controller itself never clamps, so this shows how often a
// real actuator would have.
type Saturation struct {
	name       string
	limit      float64
	violations int
	samples    int
}

func NewSaturation(limit float64) *Saturation {
	return &Saturation{
		name:  "saturation",
		limit: limit,
	}
}

func (s *Saturation) Name() string {
	return s.name
}

func (s *Saturation) Observe(p run.DataPoint) {
	s.samples++
	if math.Abs(p.Output) > s.limit {
		s.violations++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.violations) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.violations = 0
	s.samples = 0
}

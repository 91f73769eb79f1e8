package plant

import (
	"fmt"
	"math"

	"github.com/san-kum/loopsim/internal/dynamo"
)

// DeadTime delays the input of an inner plant by a whole number of steps.
type DeadTime struct {
	inner Plant
	delay float64
	queue []float64
	head  int
}

func NewDeadTime(inner Plant, delay, dt float64) (*DeadTime, error) {
	if delay < 0 {
		return nil, &dynamo.ParamError{Name: "delay", Value: delay}
	}
	if dt <= 0 {
		return nil, &dynamo.ParamError{Name: "dt", Value: dt}
	}
	steps := int(math.Round(delay / dt))
	return &DeadTime{
		inner: inner,
		delay: delay,
		queue: make([]float64, steps),
	}, nil
}

func (p *DeadTime) Update(input float64) float64 {
	if len(p.queue) == 0 {
		return p.inner.Update(input)
	}
	delayed := p.queue[p.head]
	p.queue[p.head] = input
	p.head = (p.head + 1) % len(p.queue)
	return p.inner.Update(delayed)
}

func (p *DeadTime) State() float64 { return p.inner.State() }

func (p *DeadTime) Reset() {
	for i := range p.queue {
		p.queue[i] = 0
	}
	p.head = 0
	p.inner.Reset()
}

func (p *DeadTime) Name() string {
	return fmt.Sprintf("%s + Delay %.2fs", p.inner.Name(), p.delay)
}

package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one independent run in a batch. Build must return a fresh
// Simulator; plants and controllers are never shared between jobs.
type Job struct {
	Label  string
	Build  func() (*Simulator, error)
	Config Config
}

// Batch runs jobs on a bounded number of goroutines. Results are returned
// in job order. The first error cancels the remaining jobs.
type Batch struct {
	workers int
}

func NewBatch(workers int) *Batch {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Batch{workers: workers}
}

func (b *Batch) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			s, err := job.Build()
			if err != nil {
				return err
			}
			res, err := s.Run(ctx, job.Config)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

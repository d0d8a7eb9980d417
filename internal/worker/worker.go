// Package worker drives the scheduler with a pool of job executors. The
// pool owns the two boundary operations: it takes jobs from the master
// and returns results, so executors themselves never touch shared state.
package worker

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/my-mail-ru/cpm/internal/job"
	"github.com/my-mail-ru/cpm/internal/master"
)

// Executor performs one job and reports the structured result. A panic-
// free failure is expressed through Result.OK, not an error.
type Executor interface {
	Execute(ctx context.Context, j *job.Job) *job.Result
}

// Pool runs n executors until the master quiesces: no ready job and
// nothing in flight.
type Pool struct {
	master *master.Master
	exec   Executor
	n      int
}

// NewPool creates a pool of n workers around the given executor.
func NewPool(m *master.Master, exec Executor, n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{master: m, exec: exec, n: n}
}

// Run drives the pipeline to completion. It returns when the master has
// nothing left to hand out and every in-flight job has reported back, or
// when the context is canceled.
func (p *Pool) Run(ctx context.Context) error {
	jobs := make(chan *job.Job)
	results := make(chan *job.Result)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.n; i++ {
		g.Go(func() error {
			for j := range jobs {
				select {
				case results <- p.exec.Execute(ctx, j):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		var pending []*job.Job
		inflight := 0
		for {
			if len(pending) == 0 {
				pending = p.master.GetJob()
			}
			if len(pending) == 0 {
				if inflight == 0 {
					return nil
				}
				// quiescent but not done: wait for a result to unblock
				// the next advancement pass
				select {
				case res := <-results:
					inflight--
					if err := p.master.RegisterResult(res); err != nil {
						return err
					}
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			select {
			case jobs <- pending[0]:
				pending = pending[1:]
				inflight++
			case res := <-results:
				inflight--
				if err := p.master.RegisterResult(res); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	return g.Wait()
}

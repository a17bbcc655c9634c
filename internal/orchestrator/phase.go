package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OldStager01/joyce/pkg/models"
)

// task is one unit of work. Tasks of a phase write distinct files, so they
// can run concurrently.
type task struct {
	hostname string
	run      func(ctx context.Context) models.UnitResult
}

// runPhase executes tasks with at most workers in flight and returns once all
// started tasks finished. A failed unit stops scheduling of the rest.
func (o *Orchestrator) runPhase(ctx context.Context, phase *PhaseReport, tasks []task) error {
	started := time.Now()
	results := make([]*models.UnitResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for i, t := range tasks {
		i, t := i, t
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			result := t.run(gctx)
			results[i] = &result
			o.observe(phase.Name, t.hostname, result)
			if result.Failed() {
				return result.Err
			}
			return nil
		})
	}
	err := g.Wait()

	for _, r := range results {
		if r != nil {
			phase.add(*r)
		}
	}
	phase.Duration = time.Since(started)
	o.metrics.ObservePhase(phase.Name, phase.Duration)
	return err
}

func (o *Orchestrator) observe(phase, hostname string, result models.UnitResult) {
	o.metrics.ObserveUnit(phase, result)
	o.publisher.Unit(phase, hostname, result)
}

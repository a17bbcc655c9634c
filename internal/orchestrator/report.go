package orchestrator

import (
	"time"

	"github.com/OldStager01/joyce/pkg/models"
)

const (
	PhaseLoad     = "load"
	PhaseMerge    = "merge"
	PhaseForecast = "forecast"
)

type PhaseReport struct {
	Name     string
	Written  int
	Skipped  int
	Failed   int
	Duration time.Duration
	Results  []models.UnitResult
}

func (p *PhaseReport) add(result models.UnitResult) {
	p.Results = append(p.Results, result)
	switch result.Status {
	case models.UnitWritten:
		p.Written++
	case models.UnitSkipped:
		p.Skipped++
	case models.UnitFailed:
		p.Failed++
	}
}

// Report summarizes one invocation.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Hosts      int
	Phases     []*PhaseReport
}

func (r *Report) Phase(name string) *PhaseReport {
	for _, p := range r.Phases {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (r *Report) newPhase(name string) *PhaseReport {
	p := &PhaseReport{Name: name}
	r.Phases = append(r.Phases, p)
	return p
}

func (r *Report) Summary() map[string]interface{} {
	phases := make(map[string]interface{}, len(r.Phases))
	for _, p := range r.Phases {
		phases[p.Name] = map[string]int{
			"written": p.Written,
			"skipped": p.Skipped,
			"failed":  p.Failed,
		}
	}
	return map[string]interface{}{
		"run_id":   r.RunID,
		"hosts":    r.Hosts,
		"duration": r.FinishedAt.Sub(r.StartedAt).String(),
		"phases":   phases,
	}
}

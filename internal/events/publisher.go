package events

import (
	"fmt"

	"github.com/OldStager01/joyce/pkg/models"
)

type Publisher struct {
	bus   *EventBus
	runID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithRunID(runID string) *Publisher {
	return &Publisher{
		bus:   p.bus,
		runID: runID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p == nil || p.bus == nil {
		return
	}
	if p.runID != "" {
		event.WithRunID(p.runID)
	}
	p.bus.Publish(event)
}

func (p *Publisher) RunStarted(mode string) {
	event := models.NewEvent(models.EventTypeRunStarted, "", "Run started").
		WithData(map[string]interface{}{"mode": mode})
	p.publish(event)
}

// Unit reports the outcome of one unit of work in phase.
func (p *Publisher) Unit(phase, hostname string, result models.UnitResult) {
	var eventType models.EventType
	switch {
	case result.Status != models.UnitWritten:
		eventType = models.EventTypeUnitSkipped
	case phase == "load":
		eventType = models.EventTypeSeriesLoaded
	case phase == "merge":
		eventType = models.EventTypeClusterMerged
	default:
		eventType = models.EventTypeSeriesForecast
	}

	data := map[string]interface{}{
		"phase":  phase,
		"unit":   result.Unit,
		"status": string(result.Status),
	}
	if result.Path != "" {
		data["path"] = result.Path
	}
	if reason := result.Reason(); reason != "" {
		data["reason"] = reason
	}

	event := models.NewEvent(eventType, hostname, fmt.Sprintf("%s %s", result.Unit, result.Status)).
		WithData(data)
	switch result.Status {
	case models.UnitSkipped:
		event.WithSeverity(models.SeverityWarning)
	case models.UnitFailed:
		event.WithSeverity(models.SeverityCritical)
	}
	p.publish(event)
}

func (p *Publisher) RunCompleted(summary interface{}) {
	event := models.NewEvent(models.EventTypeRunCompleted, "", "Run completed").
		WithData(summary)
	p.publish(event)
}

func (p *Publisher) RunFailed(err error) {
	event := models.NewEvent(models.EventTypeRunFailed, "", "Run failed").
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}

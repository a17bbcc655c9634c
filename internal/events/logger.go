package events

import (
	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/pkg/models"
)

// EventLogger writes every event to the structured log.
type EventLogger struct {
	eventChan <-chan *models.Event
	done      chan struct{}
}

func NewEventLogger(eventChan <-chan *models.Event) *EventLogger {
	return &EventLogger{
		eventChan: eventChan,
		done:      make(chan struct{}),
	}
}

func (l *EventLogger) Start() {
	go l.run()
}

// Wait blocks until the bus is closed and every queued event is logged.
func (l *EventLogger) Wait() {
	<-l.done
}

func (l *EventLogger) run() {
	defer close(l.done)
	for event := range l.eventChan {
		l.processEvent(event)
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"hostname":   event.Hostname,
		"severity":   event.Severity,
		"run_id":     event.RunID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Debug(event.Message)
	}
}

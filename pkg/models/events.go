package models

import "time"

type EventType string

const (
	EventTypeRunStarted     EventType = "run_started"
	EventTypeSeriesLoaded   EventType = "series_loaded"
	EventTypeClusterMerged  EventType = "cluster_merged"
	EventTypeSeriesForecast EventType = "series_forecast"
	EventTypeUnitSkipped    EventType = "unit_skipped"
	EventTypeRunCompleted   EventType = "run_completed"
	EventTypeRunFailed      EventType = "run_failed"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents something that happened during a pipeline run
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	Hostname  string        `json:"hostname,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	RunID     string        `json:"run_id,omitempty"`
}

func NewEvent(eventType EventType, hostname, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		Hostname:  hostname,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithRunID(runID string) *Event {
	e.RunID = runID
	return e
}

func AllEventTypes() []EventType {
	return []EventType{
		EventTypeRunStarted,
		EventTypeSeriesLoaded,
		EventTypeClusterMerged,
		EventTypeSeriesForecast,
		EventTypeUnitSkipped,
		EventTypeRunCompleted,
		EventTypeRunFailed,
	}
}

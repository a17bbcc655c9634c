package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/pkg/models"
)

// MessagePublisher is the part of *nats.Conn the forwarder needs.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// Forwarder publishes run events as JSON on <prefix>.<event type>.
type Forwarder struct {
	conn      MessagePublisher
	prefix    string
	eventChan <-chan *models.Event
	done      chan struct{}
	closeFn   func()
}

func NewForwarder(conn MessagePublisher, prefix string, eventChan <-chan *models.Event) *Forwarder {
	if prefix == "" {
		prefix = "joyce.events"
	}
	return &Forwarder{
		conn:      conn,
		prefix:    prefix,
		eventChan: eventChan,
		done:      make(chan struct{}),
	}
}

// ConnectNATS dials url and returns a forwarder owning the connection.
func ConnectNATS(url, prefix string, eventChan <-chan *models.Event) (*Forwarder, error) {
	conn, err := nats.Connect(url,
		nats.Name("joyce"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	f := NewForwarder(conn, prefix, eventChan)
	f.closeFn = func() {
		if err := conn.Drain(); err != nil {
			conn.Close()
		}
	}
	return f, nil
}

func (f *Forwarder) Subject(eventType models.EventType) string {
	return f.prefix + "." + string(eventType)
}

func (f *Forwarder) Start() {
	go f.run()
}

// Wait blocks until the event channel is closed and drained, then releases the connection.
func (f *Forwarder) Wait() {
	<-f.done
	if f.closeFn != nil {
		f.closeFn()
	}
}

func (f *Forwarder) run() {
	defer close(f.done)
	for event := range f.eventChan {
		data, err := json.Marshal(event)
		if err != nil {
			logger.Warnf("Failed to encode event %s: %v", event.Type, err)
			continue
		}
		if err := f.conn.Publish(f.Subject(event.Type), data); err != nil {
			logger.Warnf("Failed to forward event %s: %v", event.Type, err)
		}
	}
}

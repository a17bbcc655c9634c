package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/joyce/pkg/models"
)

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestEventBus_SubscribeByType(t *testing.T) {
	bus := NewEventBus(10)
	loaded := bus.Subscribe(models.EventTypeSeriesLoaded)

	bus.Publish(models.NewEvent(models.EventTypeRunStarted, "", "start"))
	bus.Publish(models.NewEvent(models.EventTypeSeriesLoaded, "lpar01", "loaded"))
	bus.Close()

	var got []*models.Event
	for e := range loaded {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "lpar01", got[0].Hostname)
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := NewEventBus(1)
	all := bus.SubscribeAll()

	bus.Publish(models.NewEvent(models.EventTypeRunStarted, "", "one"))
	bus.Publish(models.NewEvent(models.EventTypeRunStarted, "", "two"))
	bus.Close()

	count := 0
	for range all {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestEventBus_PublishAfterClose(t *testing.T) {
	bus := NewEventBus(1)
	bus.Close()
	bus.Close()
	assert.NotPanics(t, func() {
		bus.Publish(models.NewEvent(models.EventTypeRunStarted, "", "late"))
	})
}

func TestPublisher_Unit(t *testing.T) {
	bus := NewEventBus(10)
	all := bus.SubscribeAll()
	pub := NewPublisher(bus).WithRunID("run-1")

	pub.Unit("load", "lpar01", models.Written("load lpar01/1/CPU user", "/x.csv"))
	pub.Unit("merge", "lpar01", models.Written("merge a+b/memory", "/y.csv"))
	pub.Unit("forecast", "lpar01", models.Classify("forecast lpar01", errors.New("short")))
	bus.Close()

	var got []*models.Event
	for e := range all {
		got = append(got, e)
	}
	require.Len(t, got, 3)
	assert.Equal(t, models.EventTypeSeriesLoaded, got[0].Type)
	assert.Equal(t, "run-1", got[0].RunID)
	assert.Equal(t, models.EventTypeClusterMerged, got[1].Type)
	assert.Equal(t, models.EventTypeUnitSkipped, got[2].Type)
	assert.Equal(t, models.SeverityWarning, got[2].Severity)
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var pub *Publisher
	assert.NotPanics(t, func() { pub.RunStarted("test") })
}

func TestForwarder(t *testing.T) {
	bus := NewEventBus(10)
	conn := &fakeConn{}
	fwd := NewForwarder(conn, "joyce.test", bus.SubscribeAll())
	fwd.Start()

	pub := NewPublisher(bus).WithRunID("run-2")
	pub.RunStarted("production")
	pub.RunFailed(errors.New("bad cluster table"))
	bus.Close()
	fwd.Wait()

	require.Len(t, conn.subjects, 2)
	assert.Equal(t, "joyce.test.run_started", conn.subjects[0])
	assert.Equal(t, "joyce.test.run_failed", conn.subjects[1])

	var decoded models.Event
	require.NoError(t, json.Unmarshal(conn.payloads[1], &decoded))
	assert.Equal(t, "run-2", decoded.RunID)
	assert.Equal(t, models.SeverityCritical, decoded.Severity)
}

func TestEventLogger_DrainsOnClose(t *testing.T) {
	bus := NewEventBus(10)
	l := NewEventLogger(bus.SubscribeAll())
	l.Start()

	NewPublisher(bus).RunCompleted(map[string]int{"written": 1})
	bus.Close()
	l.Wait()
}

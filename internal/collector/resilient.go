package collector

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/resilience"
	"github.com/OldStager01/joyce/pkg/models"
)

// ResilientCollector guards a Collector with a circuit breaker. Calls are not retried.
type ResilientCollector struct {
	collector      Collector
	circuitBreaker *resilience.CircuitBreaker
}

type ResilientCollectorConfig struct {
	Collector     Collector
	MaxFailures   int
	Timeout       time.Duration
	OnStateChange func(name string, from, to resilience.State)
}

func NewResilientCollector(cfg ResilientCollectorConfig) *ResilientCollector {
	onChange := cfg.OnStateChange
	if onChange == nil {
		onChange = func(name string, from, to resilience.State) {
			logger.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		}
	}

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "zabbix",
		MaxFailures: cfg.MaxFailures,
		Timeout:     cfg.Timeout,
		// API errors are answers from a reachable server
		IsFailure: func(err error) bool {
			return !errors.Is(err, ErrAPI)
		},
		OnStateChange: onChange,
	})

	return &ResilientCollector{
		collector:      cfg.Collector,
		circuitBreaker: cb,
	}
}

func (c *ResilientCollector) Hosts(ctx context.Context) ([]models.Host, error) {
	var hosts []models.Host
	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		hosts, err = c.collector.Hosts(ctx)
		return err
	})
	return hosts, err
}

func (c *ResilientCollector) Items(ctx context.Context, host models.Host, labels []string) ([]models.Item, error) {
	var items []models.Item
	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		items, err = c.collector.Items(ctx, host, labels)
		return err
	})
	return items, err
}

func (c *ResilientCollector) History(ctx context.Context, itemID string, since time.Time) ([]models.RawSample, error) {
	var samples []models.RawSample
	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		samples, err = c.collector.History(ctx, itemID, since)
		return err
	})
	return samples, err
}

func (c *ResilientCollector) Close() error {
	return c.collector.Close()
}

func (c *ResilientCollector) CircuitState() resilience.State {
	return c.circuitBreaker.State()
}

func (c *ResilientCollector) ResetCircuit() {
	c.circuitBreaker.Reset()
}

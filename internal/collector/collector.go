package collector

import (
	"context"
	"errors"
	"time"

	"github.com/OldStager01/joyce/internal/resilience"
	"github.com/OldStager01/joyce/pkg/models"
)

var (
	ErrRequestFailed   = errors.New("monitoring request failed")
	ErrAPI             = errors.New("monitoring api error")
	ErrInvalidResponse = errors.New("invalid response from monitoring source")
	ErrHostNotFound    = errors.New("host not found")
	ErrCircuitOpen     = resilience.ErrCircuitOpen
)

// Collector is the monitoring source the pipeline reads from.
type Collector interface {
	// Hosts returns enabled hosts of the configured groups
	Hosts(ctx context.Context) ([]models.Host, error)

	// Items returns the items of a host whose name is one of labels
	Items(ctx context.Context, host models.Host, labels []string) ([]models.Item, error)

	// History returns numeric samples with clock >= since, ascending
	History(ctx context.Context, itemID string, since time.Time) ([]models.RawSample, error)

	// Close releases any resources held by the collector
	Close() error
}

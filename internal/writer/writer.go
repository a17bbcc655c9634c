package writer

import (
	"context"
	"errors"
	"fmt"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/snapshot"
	"github.com/OldStager01/joyce/pkg/models"
	"github.com/OldStager01/joyce/pkg/validation"
)

// ErrInvalidKey marks a series whose tags cannot form a snapshot file name.
// Hostnames come from the monitoring source, so this is bad input data.
var ErrInvalidKey = errors.New("invalid series key")

// SeriesWriter persists a tagged series and returns its snapshot path.
type SeriesWriter interface {
	Write(ctx context.Context, series *models.Series) (string, error)
}

// Store is the durable time-series sink.
type Store interface {
	WriteSeries(ctx context.Context, series *models.Series) error
}

// NopStore is used when the store is disabled.
type NopStore struct{}

func (NopStore) WriteSeries(ctx context.Context, series *models.Series) error {
	return nil
}

type Writer struct {
	dir   string
	store Store
}

func New(dir string, store Store) *Writer {
	if store == nil {
		store = NopStore{}
	}
	return &Writer{dir: dir, store: store}
}

func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) Write(ctx context.Context, series *models.Series) (string, error) {
	if series == nil {
		return "", fmt.Errorf("%w: nil series", models.ErrContractViolation)
	}
	if !series.Source.Valid() {
		return "", fmt.Errorf("%w: invalid source %q for %s", models.ErrContractViolation, series.Source, series.Hostname)
	}
	if err := validation.ValidateSeriesKey(series.Hostname, series.ItemID, series.Metric); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	if err := w.store.WriteSeries(ctx, series); err != nil {
		return "", fmt.Errorf("failed to store %s: %w", series, err)
	}

	path := snapshot.KeyOf(series).Path(w.dir)
	if err := snapshot.Write(path, series); err != nil {
		return "", fmt.Errorf("failed to write snapshot for %s: %w", series, err)
	}

	logger.WithHost(ctx, series.Hostname).WithFields(map[string]interface{}{
		"metric":  series.Metric,
		"source":  series.Source,
		"item_id": series.ItemID,
		"points":  series.Len(),
	}).Debug("Series written")

	return path, nil
}

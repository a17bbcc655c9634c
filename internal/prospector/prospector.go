package prospector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/joyce/internal/catalog"
	"github.com/OldStager01/joyce/internal/collector"
	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/writer"
	"github.com/OldStager01/joyce/pkg/models"
)

var (
	ErrEmptyHistory = errors.New("empty history")
	ErrUnparseable  = errors.New("unparseable sample")
)

// Config holds the history window and resampling settings of a load.
type Config struct {
	History   time.Duration
	Width     time.Duration
	Precision int
	Location  *time.Location
	Now       func() time.Time
}

// Prospector loads one item's history, normalizes it and writes the original series.
type Prospector struct {
	collector collector.Collector
	writer    writer.SeriesWriter
	catalog   *catalog.Catalog
	config    Config
}

// New creates a Prospector reading from c and writing through w.
func New(c collector.Collector, w writer.SeriesWriter, cat *catalog.Catalog, cfg Config) *Prospector {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Width <= 0 {
		cfg.Width = 5 * time.Minute
	}

	return &Prospector{
		collector: c,
		writer:    w,
		catalog:   cat,
		config:    cfg,
	}
}

func (p *Prospector) Load(ctx context.Context, hostname, itemID, rawLabel string) models.UnitResult {
	unit := fmt.Sprintf("load %s/%s/%s", hostname, itemID, rawLabel)
	log := logger.WithHost(ctx, hostname).WithFields(map[string]interface{}{
		"item_id": itemID,
		"label":   rawLabel,
	})

	series, err := p.fetch(ctx, hostname, itemID, rawLabel)
	if err != nil {
		result := models.Classify(unit, err)
		log.WithError(err).Warn("Load skipped")
		return result
	}

	path, err := p.writer.Write(ctx, series)
	if err != nil {
		result := models.Classify(unit, err)
		if result.Failed() {
			log.WithError(err).Error("Load failed")
		} else {
			log.WithError(err).Warn("Load skipped")
		}
		return result
	}

	log.WithFields(map[string]interface{}{
		"metric": series.Metric,
		"points": series.Len(),
	}).Debug("Load data")
	return models.Written(unit, path)
}

func (p *Prospector) fetch(ctx context.Context, hostname, itemID, rawLabel string) (*models.Series, error) {
	since := p.config.Now().Add(-p.config.History)

	raw, err := p.collector.History(ctx, itemID, since)
	if err != nil {
		return nil, fmt.Errorf("history for item %s: %w", itemID, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: item %s since %s", ErrEmptyHistory, itemID, since.Format(time.RFC3339))
	}

	metric := p.catalog.Canonical(rawLabel)
	samples, err := Normalize(raw, p.config.Location, p.catalog.Inverted(metric), p.config.Precision)
	if err != nil {
		return nil, err
	}

	resampled := Resample(samples, p.config.Width, p.config.Precision)
	if len(resampled) == 0 {
		return nil, fmt.Errorf("%w: item %s has no values", ErrEmptyHistory, itemID)
	}

	return &models.Series{
		Hostname: hostname,
		ItemID:   itemID,
		Metric:   metric,
		Source:   models.SourceOriginal,
		Samples:  resampled,
	}, nil
}

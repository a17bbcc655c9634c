package storekeeper

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/writer"
	"github.com/OldStager01/joyce/pkg/models"
)

var ErrGridMismatch = errors.New("cluster members have different timestamp grids")

// Locator finds the original series of a host for a metric.
type Locator interface {
	Locate(ctx context.Context, hostname, metric string) (*models.Series, error)
}

// Config lists the metrics to merge and their rounding precision.
type Config struct {
	Metrics   []string
	Precision int
}

// StoreKeeper reconciles the original series of clustered lpars.
type StoreKeeper struct {
	pairs   []models.ClusterPair
	locator Locator
	writer  writer.SeriesWriter
	config  Config
}

// New creates a StoreKeeper for the cluster pairs whose hosts are active.
func New(pairs []models.ClusterPair, activeHosts map[string]bool, locator Locator, w writer.SeriesWriter, cfg Config) *StoreKeeper {
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = []string{"memory", "user", "system", "swap"}
	}
	return &StoreKeeper{
		pairs:   activePairs(pairs, activeHosts),
		locator: locator,
		writer:  w,
		config:  cfg,
	}
}

func (s *StoreKeeper) Pairs() []models.ClusterPair {
	return s.pairs
}

// Merge runs one unit per pair and metric. Units are independent.
func (s *StoreKeeper) Merge(ctx context.Context) []models.UnitResult {
	logger.InfoCtxf(ctx, "Start merge data for %d cluster pairs", len(s.pairs))

	results := make([]models.UnitResult, 0, len(s.pairs)*len(s.config.Metrics))
	for _, pair := range s.pairs {
		for _, metric := range s.config.Metrics {
			results = append(results, s.mergePair(ctx, pair, metric))
		}
	}
	return results
}

func (s *StoreKeeper) mergePair(ctx context.Context, pair models.ClusterPair, metric string) models.UnitResult {
	unit := fmt.Sprintf("merge %s/%s", pair, metric)
	log := logger.WithHost(ctx, pair.Lpar1).WithFields(map[string]interface{}{
		"peer":   pair.Lpar2,
		"metric": metric,
	})

	path, err := s.merge(ctx, pair, metric)
	if err != nil {
		result := models.Classify(unit, err)
		if result.Failed() {
			log.WithError(err).Error("Merge failed")
		} else {
			log.WithError(err).Warn("Merge skipped")
		}
		return result
	}

	log.Debug("Merge data")
	return models.Written(unit, path)
}

func (s *StoreKeeper) merge(ctx context.Context, pair models.ClusterPair, metric string) (string, error) {
	first, err := s.locator.Locate(ctx, pair.Lpar1, metric)
	if err != nil {
		return "", err
	}
	second, err := s.locator.Locate(ctx, pair.Lpar2, metric)
	if err != nil {
		return "", err
	}

	merged, err := MergeSamples(first.Samples, second.Samples)
	if err != nil {
		return "", fmt.Errorf("%s: %w", pair, err)
	}
	for i := range merged {
		merged[i].Value = models.Round(merged[i].Value, s.config.Precision)
	}

	// originals are rewritten first so a later forecast reads merged data
	for _, member := range []*models.Series{first, second} {
		rewritten := &models.Series{
			Hostname: member.Hostname,
			ItemID:   member.ItemID,
			Metric:   metric,
			Source:   models.SourceOriginal,
			Samples:  merged,
		}
		if _, err := s.writer.Write(ctx, rewritten); err != nil {
			return "", err
		}
	}

	var clusterPath string
	for _, host := range pair.Members() {
		cluster := &models.Series{
			Hostname: host,
			Metric:   metric,
			Source:   models.SourceCluster,
			Samples:  merged,
		}
		path, err := s.writer.Write(ctx, cluster)
		if err != nil {
			return "", err
		}
		if clusterPath == "" {
			clusterPath = path
		}
	}
	return clusterPath, nil
}

// MergeSamples takes the row-wise maximum of two series on the same grid. A
// missing value on one side yields the other side.
func MergeSamples(a, b []models.Sample) ([]models.Sample, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d vs %d rows", ErrGridMismatch, len(a), len(b))
	}

	out := make([]models.Sample, len(a))
	for i := range a {
		if !a[i].Time.Equal(b[i].Time) {
			return nil, fmt.Errorf("%w: row %d at %s vs %s", ErrGridMismatch, i,
				a[i].Time.Format(models.ClockLayout), b[i].Time.Format(models.ClockLayout))
		}
		out[i] = models.Sample{Time: a[i].Time, Value: maxPresent(a[i].Value, b[i].Value)}
	}
	return out, nil
}

func maxPresent(x, y float64) float64 {
	switch {
	case math.IsNaN(x):
		return y
	case math.IsNaN(y):
		return x
	default:
		return math.Max(x, y)
	}
}

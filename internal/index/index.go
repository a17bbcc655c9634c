package index

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/internal/snapshot"
	"github.com/OldStager01/joyce/internal/writer"
	"github.com/OldStager01/joyce/pkg/models"
)

type hostMetric struct {
	hostname string
	metric   string
}

type entry struct {
	series *models.Series
	path   string
}

// Index holds every original series written in this run, one per snapshot
// key. Lookups by (hostname, metric) serve the merge.
type Index struct {
	mu       sync.RWMutex
	entries  map[snapshot.Key]entry
	byMetric map[hostMetric][]snapshot.Key
}

func New() *Index {
	return &Index{
		entries:  make(map[snapshot.Key]entry),
		byMetric: make(map[hostMetric][]snapshot.Key),
	}
}

func (i *Index) Put(series *models.Series, path string) {
	k := snapshot.KeyOf(series)
	hm := hostMetric{series.Hostname, series.Metric}

	i.mu.Lock()
	_, known := i.entries[k]
	i.entries[k] = entry{series: series, path: path}
	second := false
	if !known {
		second = len(i.byMetric[hm]) > 0
		i.byMetric[hm] = append(i.byMetric[hm], k)
	}
	i.mu.Unlock()

	if second {
		logger.WithField("hostname", series.Hostname).WithField("metric", series.Metric).
			Warnf("Several items map to the same metric, %s will not be merged", series.Metric)
	}
}

// Locate returns a copy so callers cannot mutate indexed samples. More than
// one item for hostname and metric is ambiguous.
func (i *Index) Locate(ctx context.Context, hostname, metric string) (*models.Series, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	keys := i.byMetric[hostMetric{hostname, metric}]
	switch len(keys) {
	case 0:
		return nil, fmt.Errorf("%w: %s %s not loaded in this run", snapshot.ErrSnapshotMissing, hostname, metric)
	case 1:
		e := i.entries[keys[0]]
		return e.series.WithSource(e.series.Source, e.series.ItemID), nil
	default:
		return nil, fmt.Errorf("%w: %s %s has %d items", snapshot.ErrSnapshotAmbiguous, hostname, metric, len(keys))
	}
}

func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Originals lists indexed series ordered by snapshot file name.
func (i *Index) Originals() []*models.Series {
	i.mu.RLock()
	entries := make([]entry, 0, len(i.entries))
	for _, e := range i.entries {
		entries = append(entries, e)
	}
	i.mu.RUnlock()

	sort.Slice(entries, func(a, b int) bool {
		return filepath.Base(entries[a].path) < filepath.Base(entries[b].path)
	})

	out := make([]*models.Series, len(entries))
	for n, e := range entries {
		out[n] = e.series.WithSource(e.series.Source, e.series.ItemID)
	}
	return out
}

// Recorder indexes every original series that reaches the underlying writer.
type Recorder struct {
	next  writer.SeriesWriter
	index *Index
}

func NewRecorder(next writer.SeriesWriter, index *Index) *Recorder {
	return &Recorder{next: next, index: index}
}

func (r *Recorder) Write(ctx context.Context, series *models.Series) (string, error) {
	path, err := r.next.Write(ctx, series)
	if err != nil {
		return "", err
	}
	if series.Source == models.SourceOriginal {
		r.index.Put(series.WithSource(series.Source, series.ItemID), path)
	}
	return path, nil
}

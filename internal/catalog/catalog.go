package catalog

import (
	"sort"

	"github.com/OldStager01/joyce/pkg/config"
)

// Catalog maps raw monitoring labels to canonical metric names and knows
// which metrics are stored inverted (100 - value).
type Catalog struct {
	names  map[string]string
	invert map[string]bool
}

func New(entries []config.CatalogEntry, invert []string) *Catalog {
	c := &Catalog{
		names:  make(map[string]string, len(entries)),
		invert: make(map[string]bool, len(invert)),
	}
	for _, e := range entries {
		c.names[e.Label] = e.Metric
	}
	for _, m := range invert {
		c.invert[m] = true
	}
	return c
}

// FromConfig falls back to the default label mapping when none is configured.
func FromConfig(p config.PipelineConfig) *Catalog {
	entries := p.Catalog
	if len(entries) == 0 {
		entries = config.DefaultCatalog()
	}
	return New(entries, p.InvertMetrics)
}

// Canonical returns the metric name for label. Unknown labels pass through.
func (c *Catalog) Canonical(label string) string {
	if name, ok := c.names[label]; ok {
		return name
	}
	return label
}

func (c *Catalog) Inverted(metric string) bool {
	return c.invert[metric]
}

// Labels returns the raw labels known to the catalog, sorted.
func (c *Catalog) Labels() []string {
	labels := make([]string, 0, len(c.names))
	for l := range c.names {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

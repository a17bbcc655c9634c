package simulator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/OldStager01/joyce/internal/logger"
	"github.com/OldStager01/joyce/pkg/models"
)

// Typical levels of the default monitoring labels. Unknown labels use defaultBase.
var labelBase = map[string]float64{
	"svmon_pavailable":         40,
	"CPU user":                 30,
	"CPU system":               10,
	"Swap file free (percent)": 90,
}

const defaultBase = 50

type Config struct {
	Hosts    int
	Prefix   string
	Labels   []string
	Interval time.Duration
	Variance float64
	Pattern  Pattern
	Seed     int64
	Now      func() time.Time
}

// Simulator is a synthetic monitoring source. Samples are a pure function of
// seed, item and clock, so repeated runs see the same history.
type Simulator struct {
	cfg   Config
	hosts []models.Host
	mu    sync.RWMutex
	items map[string]simItem
}

type simItem struct {
	item models.Item
	base float64
}

func New(cfg Config) *Simulator {
	if cfg.Hosts <= 0 {
		cfg.Hosts = 4
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "simlpar"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Variance == 0 {
		cfg.Variance = 5
	}
	if cfg.Pattern == nil {
		cfg.Pattern = PatternDaily
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Simulator{
		cfg:   cfg,
		items: make(map[string]simItem),
	}

	for h := 1; h <= cfg.Hosts; h++ {
		host := models.Host{
			ID:   strconv.Itoa(10000 + h),
			Name: fmt.Sprintf("%s%02d", cfg.Prefix, h),
		}
		s.hosts = append(s.hosts, host)

		for n, label := range cfg.Labels {
			base, ok := labelBase[label]
			if !ok {
				base = defaultBase
			}
			id := strconv.Itoa(20000 + h*100 + n)
			s.items[id] = simItem{
				item: models.Item{ID: id, HostID: host.ID, Name: label},
				base: base,
			}
		}
	}

	logger.WithFields(map[string]interface{}{
		"hosts":   cfg.Hosts,
		"labels":  len(cfg.Labels),
		"pattern": cfg.Pattern.Name(),
	}).Info("Simulated monitoring source ready")

	return s
}

func (s *Simulator) Hosts(ctx context.Context) ([]models.Host, error) {
	out := make([]models.Host, len(s.hosts))
	copy(out, s.hosts)
	return out, nil
}

func (s *Simulator) Items(ctx context.Context, host models.Host, labels []string) ([]models.Item, error) {
	wanted := make(map[string]bool, len(labels))
	for _, l := range labels {
		wanted[l] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Item
	for _, it := range s.items {
		if it.item.HostID == host.ID && wanted[it.item.Name] {
			out = append(out, it.item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Simulator) History(ctx context.Context, itemID string, since time.Time) ([]models.RawSample, error) {
	s.mu.RLock()
	it, ok := s.items[itemID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown simulated item %s", itemID)
	}

	step := int64(s.cfg.Interval / time.Second)
	start := since.Unix()
	if rem := start % step; rem != 0 {
		start += step - rem
	}
	end := s.cfg.Now().Unix()

	var samples []models.RawSample
	for clock := start; clock <= end; clock += step {
		value := s.value(it, clock)
		samples = append(samples, models.RawSample{
			Clock: clock,
			Value: strconv.FormatFloat(value, 'f', 4, 64),
		})
	}
	return samples, nil
}

func (s *Simulator) value(it simItem, clock int64) float64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%s/%d", s.cfg.Seed, it.item.ID, clock)
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	level := s.cfg.Pattern.Apply(it.base, time.Unix(clock, 0).UTC())
	return clamp(level + (rng.Float64()*2-1)*s.cfg.Variance)
}

func (s *Simulator) Close() error {
	return nil
}

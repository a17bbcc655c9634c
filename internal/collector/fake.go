package collector

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/joyce/pkg/models"
)

// FakeCollector serves canned hosts, items and history. Used by tests.
type FakeCollector struct {
	mu          sync.Mutex
	hosts       []models.Host
	items       map[string][]models.Item
	history     map[string][]models.RawSample
	failItems   map[string]error
	failHistory map[string]error
	hostsErr    error
	calls       map[string]int
}

func NewFakeCollector() *FakeCollector {
	return &FakeCollector{
		items:       make(map[string][]models.Item),
		history:     make(map[string][]models.RawSample),
		failItems:   make(map[string]error),
		failHistory: make(map[string]error),
		calls:       make(map[string]int),
	}
}

// AddItem registers host (once) and an item on it with its history.
func (c *FakeCollector) AddItem(host models.Host, item models.Item, samples []models.RawSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	known := false
	for _, h := range c.hosts {
		if h.ID == host.ID {
			known = true
			break
		}
	}
	if !known {
		c.hosts = append(c.hosts, host)
	}

	item.HostID = host.ID
	c.items[host.ID] = append(c.items[host.ID], item)
	c.history[item.ID] = samples
}

func (c *FakeCollector) AddHost(host models.Host) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hosts = append(c.hosts, host)
}

func (c *FakeCollector) SetHostsError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostsErr = err
}

func (c *FakeCollector) FailItems(hostID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failItems[hostID] = err
}

func (c *FakeCollector) FailHistory(itemID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failHistory[itemID] = err
}

func (c *FakeCollector) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *FakeCollector) Hosts(ctx context.Context) ([]models.Host, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["host.get"]++

	if c.hostsErr != nil {
		return nil, c.hostsErr
	}
	out := make([]models.Host, len(c.hosts))
	copy(out, c.hosts)
	return out, nil
}

func (c *FakeCollector) Items(ctx context.Context, host models.Host, labels []string) ([]models.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["item.get"]++

	if err := c.failItems[host.ID]; err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(labels))
	for _, l := range labels {
		wanted[l] = true
	}

	var out []models.Item
	for _, item := range c.items[host.ID] {
		if wanted[item.Name] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *FakeCollector) History(ctx context.Context, itemID string, since time.Time) ([]models.RawSample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls["history.get"]++

	if err := c.failHistory[itemID]; err != nil {
		return nil, err
	}

	var out []models.RawSample
	for _, s := range c.history[itemID] {
		if s.Clock >= since.Unix() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *FakeCollector) Close() error {
	return nil
}

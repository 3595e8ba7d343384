// Package natal caches validated natal charts per user and chart version.
package natal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/store"
)

// entry is what the cache stores. A nil chart records that the user's chart
// at this version carries no usable signal.
type entry struct {
	chart *model.NatalChart
}

// Cache serves natal charts keyed by (user, version). A recalculated chart has
// a new version and therefore a new key, so stale entries are never read and
// simply expire with their TTL.
type Cache struct {
	src    store.ChartSource
	cache  *ristretto.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *log.Logger

	mu     sync.RWMutex
	closed bool
}

// NewCache creates a cache over src. When cfg.CacheEnabled is false every Get
// reads through to src.
func NewCache(src store.ChartSource, cfg config.Karma, logger *log.Logger) (*Cache, error) {
	c := &Cache{src: src, ttl: cfg.CacheTTL, logger: logger}
	if !cfg.CacheEnabled {
		return c, nil
	}
	maxCharts := cfg.CacheMaxCharts
	if maxCharts <= 0 {
		maxCharts = 10000
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCharts * 10,
		MaxCost:     maxCharts,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("natal cache: %w", err)
	}
	c.cache = rc
	return c, nil
}

func key(userID string, version int64) string {
	return fmt.Sprintf("%s@%d", userID, version)
}

func (c *Cache) lookup(k string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(k)
	if !ok {
		return nil, false
	}
	e, ok := v.(*entry)
	return e, ok
}

func (c *Cache) put(k string, e *entry) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.cache == nil {
		return
	}
	if c.cache.SetWithTTL(k, e, 1, c.ttl) {
		c.cache.Wait()
	}
}

// Get returns the user's validated chart, or nil when the user has no chart
// or the stored chart is malformed. Errors come only from the chart source.
func (c *Cache) Get(ctx context.Context, userID string) (*model.NatalChart, error) {
	version, ok, err := c.src.ChartVersion(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("chart version: %w", err)
	}
	if !ok {
		return nil, nil
	}

	k := key(userID, version)
	if e, ok := c.lookup(k); ok {
		c.logger.Debug("natal chart cache hit", "user", userID, "version", version)
		return e.chart, nil
	}

	v, err, _ := c.group.Do(k, func() (interface{}, error) {
		if e, ok := c.lookup(k); ok {
			return e, nil
		}
		e, err := c.load(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.put(k, e)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry).chart, nil
}

func (c *Cache) load(ctx context.Context, userID string) (*entry, error) {
	chart, err := c.src.Chart(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &entry{}, nil
	}
	if errors.Is(err, store.ErrCorrupt) {
		c.logger.Warn("ignoring unreadable natal chart", "user", userID, "err", err)
		return &entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chart: %w", err)
	}
	if err := Validate(chart); err != nil {
		c.logger.Warn("ignoring natal chart", "user", userID, "err", err)
		return &entry{}, nil
	}
	return &entry{chart: chart}, nil
}

// Close releases the cache. Later calls to Get read through to the source.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cache != nil {
		c.cache.Close()
	}
}

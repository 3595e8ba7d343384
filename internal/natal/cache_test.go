package natal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/context-digest/internal/config"
	"github.com/rcliao/context-digest/internal/logging"
	"github.com/rcliao/context-digest/internal/model"
	"github.com/rcliao/context-digest/internal/store"
)

type fakeSource struct {
	mu      sync.Mutex
	charts  map[string]*model.NatalChart
	version map[string]int64
	calls   atomic.Int32
	delay   time.Duration
	err     error
}

func newFakeSource() *fakeSource {
	return &fakeSource{charts: map[string]*model.NatalChart{}, version: map[string]int64{}}
}

func (f *fakeSource) set(c *model.NatalChart) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.version[c.UserID]++
	c.Version = f.version[c.UserID]
	f.charts[c.UserID] = c
}

func (f *fakeSource) ChartVersion(_ context.Context, userID string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.version[userID]
	return v, ok, nil
}

func (f *fakeSource) Chart(_ context.Context, userID string) (*model.NatalChart, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func newCache(t *testing.T, src store.ChartSource, enabled bool) *Cache {
	t.Helper()
	cfg := config.Default().Karma
	cfg.CacheEnabled = enabled
	c, err := NewCache(src, cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func venusChart(user string) *model.NatalChart {
	return &model.NatalChart{UserID: user, Planets: []model.Planet{
		{Name: "venus", House: 12, Sign: "pisces", Aspects: []model.Aspect{{Type: "square", OtherPlanet: "mars"}}},
	}}
}

func TestCacheNoChart(t *testing.T) {
	c := newCache(t, newFakeSource(), true)
	chart, err := c.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, chart)
}

func TestCacheHit(t *testing.T) {
	src := newFakeSource()
	src.set(venusChart("u1"))
	c := newCache(t, src, true)

	for i := 0; i < 3; i++ {
		chart, err := c.Get(context.Background(), "u1")
		require.NoError(t, err)
		require.NotNil(t, chart)
		assert.Equal(t, "venus", chart.Planets[0].Name)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCacheVersionInvalidates(t *testing.T) {
	src := newFakeSource()
	src.set(venusChart("u1"))
	c := newCache(t, src, true)
	ctx := context.Background()

	_, err := c.Get(ctx, "u1")
	require.NoError(t, err)

	src.set(&model.NatalChart{UserID: "u1", Planets: []model.Planet{{Name: "saturn", House: 12}}})
	chart, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "saturn", chart.Planets[0].Name)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCacheSinglePopulation(t *testing.T) {
	src := newFakeSource()
	src.set(venusChart("u1"))
	src.delay = 20 * time.Millisecond
	c := newCache(t, src, true)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chart, err := c.Get(context.Background(), "u1")
			assert.NoError(t, err)
			assert.NotNil(t, chart)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCacheMalformedChartIsNoSignal(t *testing.T) {
	src := newFakeSource()
	src.set(&model.NatalChart{UserID: "u1", Planets: []model.Planet{{Name: "venus", House: 13}}})
	c := newCache(t, src, true)

	chart, err := c.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, chart)

	// The negative result is cached for this version too.
	_, _ = c.Get(context.Background(), "u1")
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCacheCorruptChartIsCached(t *testing.T) {
	src := newFakeSource()
	src.set(venusChart("u1"))
	src.err = fmt.Errorf("%w: bad planets", store.ErrCorrupt)
	c := newCache(t, src, true)

	for range 2 {
		chart, err := c.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Nil(t, chart)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCacheSourceError(t *testing.T) {
	src := newFakeSource()
	src.set(venusChart("u1"))
	src.err = errors.New("db down")
	c := newCache(t, src, true)

	_, err := c.Get(context.Background(), "u1")
	assert.Error(t, err)
}

func TestCacheDisabledAndClosed(t *testing.T) {
	src := newFakeSource()
	src.set(venusChart("u1"))
	ctx := context.Background()

	c := newCache(t, src, false)
	c.Get(ctx, "u1")
	c.Get(ctx, "u1")
	assert.Equal(t, int32(2), src.calls.Load())

	src.calls.Store(0)
	c = newCache(t, src, true)
	c.Close()
	chart, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, chart)
	c.Close()
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(venusChart("u1")))
	assert.NoError(t, Validate(&model.NatalChart{}))

	bad := []*model.NatalChart{
		nil,
		{Planets: []model.Planet{{House: 1}}},
		{Planets: []model.Planet{{Name: "sun", House: 0}}},
		{Planets: []model.Planet{{Name: "sun", House: 1, Aspects: []model.Aspect{{Type: "trine"}}}}},
		{Planets: []model.Planet{{Name: "sun", House: 1, Aspects: []model.Aspect{{OtherPlanet: "moon"}}}}},
	}
	for _, c := range bad {
		assert.ErrorIs(t, Validate(c), ErrMalformedChart)
	}
}

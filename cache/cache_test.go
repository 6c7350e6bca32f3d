package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shopwalk/models"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func TestCache_MaxAge(t *testing.T) {
	clk := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := newCache(10, clk.now)
	key := Key(models.OpDetails, "laptop")

	c.Set(key, &models.OperationResponse{Success: true, Operation: models.OpDetails, Text: "x"})

	got, ok := c.Get(key, 60)
	require.True(t, ok)
	assert.Equal(t, "x", got.Text)

	_, ok = c.Get(key, 0)
	assert.False(t, ok, "max_age 0 bypasses the cache")

	clk.t = clk.t.Add(61 * time.Second)
	_, ok = c.Get(key, 60)
	assert.False(t, ok)
	_, ok = c.Get(key, 120)
	assert.True(t, ok)
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := newCache(10, time.Now)
	c.Set("k", &models.OperationResponse{Text: "orig"})

	got, ok := c.Get("k", 60)
	require.True(t, ok)
	got.CacheStatus = "hit"
	got.Text = "changed"

	again, _ := c.Get("k", 60)
	assert.Equal(t, "orig", again.Text)
	assert.Empty(t, again.CacheStatus)
}

func TestCache_Capacity(t *testing.T) {
	c := newCache(3, time.Now)
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("k%d", i), &models.OperationResponse{})
	}
	assert.Equal(t, 3, c.Len())

	c.Set("k4", &models.OperationResponse{Text: "replaced"})
	assert.Equal(t, 3, c.Len(), "overwriting does not evict")
}

func TestCache_EvictOlderThan(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	c := newCache(10, clk.now)
	c.Set("old", &models.OperationResponse{})
	clk.t = clk.t.Add(2 * time.Hour)
	c.Set("new", &models.OperationResponse{})

	c.evictOlderThan(time.Hour)
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("new", 60)
	assert.True(t, ok)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, Key(models.OpReviews, "Laptop "), Key(models.OpReviews, "laptop"))
	assert.NotEqual(t, Key(models.OpReviews, "laptop"), Key(models.OpDetails, "laptop"))

	a := SearchKey(models.SearchRequest{Query: "laptop", TargetCount: 20, MaxScrollAttempts: 10})
	b := SearchKey(models.SearchRequest{Query: "laptop", TargetCount: 30, MaxScrollAttempts: 10})
	assert.NotEqual(t, a, b)
}

func TestNewAndClose(t *testing.T) {
	c := New(5)
	c.Close()
	c.Close()
}

package controller

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/micro-nova/templog/internal/models"
)

// windowCache memoizes Window results keyed by the clamped window size.
// Every mutation of the store flushes it.
type windowCache struct {
	c *gocache.Cache
}

func newWindowCache(ttl time.Duration) *windowCache {
	return &windowCache{c: gocache.New(ttl, 2*ttl)}
}

func (w *windowCache) get(n int) ([]models.Sample, bool) {
	v, ok := w.c.Get(strconv.Itoa(n))
	if !ok {
		return nil, false
	}
	return v.([]models.Sample), true
}

// set stores a private copy; callers may keep using samples.
func (w *windowCache) set(n int, samples []models.Sample) {
	cp := make([]models.Sample, len(samples))
	copy(cp, samples)
	w.c.SetDefault(strconv.Itoa(n), cp)
}

func (w *windowCache) flush() { w.c.Flush() }

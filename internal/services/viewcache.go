package services

import (
	"sync"

	"github.com/amptracker/amp-tracker/internal/model"
)

// dayViewCache memoizes hydrated day views per (user, date). Every write
// path invalidates the affected day so readers never see a stale merge.
type dayViewCache struct {
	mu    sync.RWMutex
	views map[string]*model.MergedDayView
}

func newDayViewCache() *dayViewCache {
	return &dayViewCache{views: make(map[string]*model.MergedDayView)}
}

func cacheKey(userID, date string) string { return userID + "|" + date }

func (c *dayViewCache) get(userID, date string) (*model.MergedDayView, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.views[cacheKey(userID, date)]
	return v, ok
}

func (c *dayViewCache) put(userID, date string, v *model.MergedDayView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[cacheKey(userID, date)] = v
}

func (c *dayViewCache) invalidate(userID, date string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.views, cacheKey(userID, date))
}

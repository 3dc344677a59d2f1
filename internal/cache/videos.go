package cache

import (
	"sync"
	"time"

	"vibrato/pkg/models"
)

// VideoCache holds recently fetched channel uploads so that repeated syncs of
// the same channel stay off the network within the TTL. Keys are external
// channel ids.
type VideoCache struct {
	mutex sync.RWMutex
	items map[string]videoEntry
	ttl   time.Duration
}

type videoEntry struct {
	videos  []models.Video
	expires time.Time
}

// NewVideoCache creates a video cache with a 15 minute TTL.
func NewVideoCache() *VideoCache {
	c := &VideoCache{
		items: make(map[string]videoEntry),
		ttl:   15 * time.Minute,
	}
	go c.sweep()
	return c
}

// SetVideos caches a channel's fetched uploads.
func (c *VideoCache) SetVideos(channelID string, videos []models.Video) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items[channelID] = videoEntry{videos: videos, expires: time.Now().Add(c.ttl)}
}

// GetVideos retrieves a channel's cached uploads, ok=false once the entry has
// expired.
func (c *VideoCache) GetVideos(channelID string) ([]models.Video, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[channelID]
	if !exists || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.videos, true
}

// Invalidate drops one channel's cached uploads, forcing the next sync to
// fetch.
func (c *VideoCache) Invalidate(channelID string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, channelID)
}

// Size returns the number of cached channels.
func (c *VideoCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// sweep drops expired entries periodically so an abandoned channel does not
// pin its upload list forever.
func (c *VideoCache) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mutex.Lock()
		for key, entry := range c.items {
			if now.After(entry.expires) {
				delete(c.items, key)
			}
		}
		c.mutex.Unlock()
	}
}

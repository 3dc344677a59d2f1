package cache_test

import (
	"testing"

	"vibrato/internal/cache"
	"vibrato/pkg/models"
)

func TestVideoCache(t *testing.T) {
	c := cache.NewVideoCache()

	videos := []models.Video{
		{VideoID: "vid-1", Title: "First"},
		{VideoID: "vid-2", Title: "Second"},
	}

	t.Run("MissBeforeSet", func(t *testing.T) {
		if _, ok := c.GetVideos("UCtest"); ok {
			t.Error("Expected a miss on an empty cache")
		}
	})

	t.Run("HitAfterSet", func(t *testing.T) {
		c.SetVideos("UCtest", videos)

		got, ok := c.GetVideos("UCtest")
		if !ok {
			t.Fatal("Expected a hit after set")
		}
		if len(got) != 2 || got[0].VideoID != "vid-1" {
			t.Errorf("Expected cached uploads back, got %+v", got)
		}
		if c.Size() != 1 {
			t.Errorf("Expected size 1, got %d", c.Size())
		}
	})

	t.Run("KeysAreIndependent", func(t *testing.T) {
		if _, ok := c.GetVideos("UCother"); ok {
			t.Error("Expected a miss for a different channel")
		}
	})

	t.Run("InvalidateForcesMiss", func(t *testing.T) {
		c.Invalidate("UCtest")
		if _, ok := c.GetVideos("UCtest"); ok {
			t.Error("Expected a miss after invalidation")
		}
		if c.Size() != 0 {
			t.Errorf("Expected size 0, got %d", c.Size())
		}
	})
}

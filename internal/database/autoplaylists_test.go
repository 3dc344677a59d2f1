package database_test

import (
	"testing"
	"time"

	"vibrato/pkg/models"
)

func TestAutoPlaylists(t *testing.T) {
	db := openTestDB(t)

	mustInsertTrack(t, db, testTrack("old.mp3", "Old Song", "Artist"))
	mustInsertTrack(t, db, testTrack("fresh.mp3", "Fresh Song", "Artist"))

	channelID := mustAddChannel(t, db, "UCautotest000000000000", "Auto Channel")
	if _, err := db.UpsertVideos(channelID, []models.Video{
		{VideoID: "vid-auto", ChannelID: channelID, Title: "Auto Video"},
	}); err != nil {
		t.Fatalf("Failed to upsert video: %v", err)
	}

	t.Run("RecentlyAddedMergesAndOrders", func(t *testing.T) {
		items, err := db.RecentlyAdded(10)
		if err != nil {
			t.Fatalf("Failed to compute recently added: %v", err)
		}
		if len(items) != 3 {
			t.Fatalf("Expected 3 items, got %d", len(items))
		}

		// Newest first: tracks by added, videos by fetched.
		prev := time.Time{}
		for i, item := range items {
			var ts time.Time
			if item.Track != nil {
				ts = item.Track.Added
			} else {
				ts = item.Video.FetchedAt
			}
			if i > 0 && ts.After(prev) {
				t.Errorf("Item %d is newer than item %d", i, i-1)
			}
			prev = ts
		}
	})

	t.Run("LimitApplies", func(t *testing.T) {
		items, err := db.RecentlyAdded(2)
		if err != nil {
			t.Fatalf("Failed to compute recently added: %v", err)
		}
		if len(items) != 2 {
			t.Errorf("Expected limit of 2, got %d", len(items))
		}
	})

	t.Run("RecentlyPlayedStartsEmpty", func(t *testing.T) {
		items, err := db.RecentlyPlayed(10)
		if err != nil {
			t.Fatalf("Failed to compute recently played: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("Expected no played items, got %d", len(items))
		}
	})

	t.Run("FreshAfterRecordPlay", func(t *testing.T) {
		if err := db.RecordPlay(models.TrackRef("old.mp3")); err != nil {
			t.Fatalf("Failed to record play: %v", err)
		}

		items, err := db.RecentlyPlayed(10)
		if err != nil {
			t.Fatalf("Failed to compute recently played: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("Expected 1 played item, got %d", len(items))
		}
		if items[0].Track == nil || items[0].Track.Filename != "old.mp3" {
			t.Errorf("Expected old.mp3, got %+v", items[0])
		}

		// A video play lands in the same view.
		videos, _ := db.VideosForChannel(channelID)
		if err := db.RecordPlay(models.VideoRef(videos[0].ID)); err != nil {
			t.Fatalf("Failed to record video play: %v", err)
		}
		items, _ = db.RecentlyPlayed(10)
		if len(items) != 2 {
			t.Fatalf("Expected 2 played items, got %d", len(items))
		}
		if items[0].Video == nil {
			t.Errorf("Expected the video to be most recent, got %+v", items[0])
		}
	})
}

package database_test

import (
	"testing"

	"vibrato/pkg/models"
)

func TestQueue(t *testing.T) {
	db := openTestDB(t)
	files := seedTracks(t, db, 4)

	t.Run("EnqueueAndResolve", func(t *testing.T) {
		for _, f := range files[:3] {
			if _, err := db.Enqueue(models.TrackRef(f)); err != nil {
				t.Fatalf("Failed to enqueue %s: %v", f, err)
			}
		}

		items, err := db.QueueItems()
		if err != nil {
			t.Fatalf("Failed to resolve queue: %v", err)
		}
		assertOrder(t, itemFilenames(t, items), files[:3])

		n, err := db.QueueLen()
		if err != nil {
			t.Fatalf("Failed to count queue: %v", err)
		}
		if n != 3 {
			t.Errorf("Expected queue length 3, got %d", n)
		}
	})

	t.Run("InsertAtFront", func(t *testing.T) {
		if _, err := db.InsertIntoQueue(models.TrackRef(files[3]), 0); err != nil {
			t.Fatalf("Failed to insert at queue front: %v", err)
		}
		items, _ := db.QueueItems()
		assertOrder(t, itemFilenames(t, items), []string{files[3], files[0], files[1], files[2]})
	})

	t.Run("PopFront", func(t *testing.T) {
		item, err := db.PopQueueFront()
		if err != nil {
			t.Fatalf("Failed to pop queue front: %v", err)
		}
		if item == nil || item.Track == nil || item.Track.Filename != files[3] {
			t.Fatalf("Expected %s at the head, got %+v", files[3], item)
		}

		n, _ := db.QueueLen()
		if n != 3 {
			t.Errorf("Expected 3 entries after pop, got %d", n)
		}
	})

	t.Run("RemoveAndMove", func(t *testing.T) {
		entries, _ := db.QueueEntries()
		if err := db.RemoveQueueEntry(entries[1].ID); err != nil {
			t.Fatalf("Failed to remove queue entry: %v", err)
		}
		if err := db.MoveQueueEntry(entries[2].ID, 0); err != nil {
			t.Fatalf("Failed to move queue entry: %v", err)
		}

		items, _ := db.QueueItems()
		assertOrder(t, itemFilenames(t, items), []string{files[2], files[0]})
	})

	t.Run("ResolvedEntriesCarryIDs", func(t *testing.T) {
		resolved, err := db.QueueItemEntries()
		if err != nil {
			t.Fatalf("Failed to load resolved entries: %v", err)
		}
		entries, _ := db.QueueEntries()
		if len(resolved) != len(entries) {
			t.Fatalf("Expected %d resolved entries, got %d", len(entries), len(resolved))
		}
		for i := range resolved {
			if resolved[i].EntryID != entries[i].ID {
				t.Errorf("Entry %d: expected id %d, got %d", i, entries[i].ID, resolved[i].EntryID)
			}
		}
	})

	t.Run("ClearAndPopEmpty", func(t *testing.T) {
		if err := db.ClearQueue(); err != nil {
			t.Fatalf("Failed to clear queue: %v", err)
		}

		item, err := db.PopQueueFront()
		if err != nil {
			t.Fatalf("Pop on empty queue errored: %v", err)
		}
		if item != nil {
			t.Errorf("Expected nil from empty queue, got %+v", item)
		}
	})

	t.Run("VideoRefs", func(t *testing.T) {
		channelID := mustAddChannel(t, db, "UCqueuetest00000000000", "Queue Channel")
		db.UpsertVideos(channelID, []models.Video{
			{VideoID: "vid-q-1", ChannelID: channelID, Title: "Queued Video"},
		})
		videos, _ := db.VideosForChannel(channelID)

		if _, err := db.Enqueue(models.VideoRef(videos[0].ID)); err != nil {
			t.Fatalf("Failed to enqueue video: %v", err)
		}

		item, err := db.PopQueueFront()
		if err != nil {
			t.Fatalf("Failed to pop video: %v", err)
		}
		if item == nil || item.Video == nil || item.Video.VideoID != "vid-q-1" {
			t.Fatalf("Expected queued video, got %+v", item)
		}
	})

	t.Run("InvalidRefRejected", func(t *testing.T) {
		if _, err := db.Enqueue(models.MediaRef{}); err == nil {
			t.Fatal("Expected empty ref to be rejected")
		}
		if _, err := db.Enqueue(models.VideoRef(0)); err == nil {
			t.Fatal("Expected zero video id to be rejected")
		}
	})
}

package database_test

import (
	"errors"
	"testing"

	"vibrato/internal/database"
	"vibrato/pkg/models"
)

func TestTracks(t *testing.T) {
	db := openTestDB(t)

	t.Run("InsertAndGet", func(t *testing.T) {
		track := testTrack("song.mp3", "Test Song", "Test Artist")
		track.Album = strPtr("Test Album")
		track.TrackNumber = intPtr(3)
		track.DurationSeconds = intPtr(180)
		mustInsertTrack(t, db, track)

		got, err := db.GetTrack("song.mp3")
		if err != nil {
			t.Fatalf("Failed to get track: %v", err)
		}
		if got.Title == nil || *got.Title != "Test Song" {
			t.Errorf("Expected title Test Song, got %v", got.Title)
		}
		if got.TrackNumber == nil || *got.TrackNumber != 3 {
			t.Errorf("Expected track number 3, got %v", got.TrackNumber)
		}
		if got.PlayCount != 0 {
			t.Errorf("Expected zero play count, got %d", got.PlayCount)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := db.GetTrack("nope.mp3")
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UntaggedTrack", func(t *testing.T) {
		mustInsertTrack(t, db, models.Track{Filename: "untagged.flac"})

		got, err := db.GetTrack("untagged.flac")
		if err != nil {
			t.Fatalf("Failed to get untagged track: %v", err)
		}
		if got.Title != nil || got.Artist != nil || got.DurationSeconds != nil {
			t.Error("Expected nil tag fields for untagged track")
		}
		if got.DisplayTitle() != "untagged" {
			t.Errorf("Expected filename-stem display title, got %q", got.DisplayTitle())
		}
	})

	t.Run("Search", func(t *testing.T) {
		tracks, err := db.SearchTracks("test song")
		if err != nil {
			t.Fatalf("Failed to search tracks: %v", err)
		}
		if len(tracks) != 1 {
			t.Fatalf("Expected one match, got %d", len(tracks))
		}

		tracks, err = db.SearchTracks("untagged")
		if err != nil {
			t.Fatalf("Failed to search by filename: %v", err)
		}
		if len(tracks) != 1 {
			t.Errorf("Expected filename match, got %d results", len(tracks))
		}
	})

	t.Run("UpdateDuration", func(t *testing.T) {
		if err := db.UpdateDuration("untagged.flac", 241); err != nil {
			t.Fatalf("Failed to update duration: %v", err)
		}
		got, _ := db.GetTrack("untagged.flac")
		if got.DurationSeconds == nil || *got.DurationSeconds != 241 {
			t.Errorf("Expected duration 241, got %v", got.DurationSeconds)
		}
	})

	t.Run("TrackIndex", func(t *testing.T) {
		index, err := db.TrackIndex()
		if err != nil {
			t.Fatalf("Failed to load track index: %v", err)
		}
		if !index["song.mp3"] {
			t.Error("Expected song.mp3 to be marked complete")
		}
		if _, ok := index["untagged.flac"]; !ok {
			t.Error("Expected untagged.flac in the index")
		}
	})

	t.Run("RecordPlay", func(t *testing.T) {
		ref := models.TrackRef("song.mp3")
		if err := db.MarkStarted(ref); err != nil {
			t.Fatalf("Failed to mark started: %v", err)
		}
		if err := db.RecordPlay(ref); err != nil {
			t.Fatalf("Failed to record play: %v", err)
		}

		got, _ := db.GetTrack("song.mp3")
		if got.PlayCount != 1 {
			t.Errorf("Expected play count 1, got %d", got.PlayCount)
		}
		if got.LastPlayed == nil {
			t.Error("Expected last played to be set")
		}
	})

	t.Run("InvalidRefRejected", func(t *testing.T) {
		if err := db.RecordPlay(models.MediaRef{}); !errors.Is(err, models.ErrInvalidRef) {
			t.Errorf("Expected ErrInvalidRef for empty ref, got %v", err)
		}
		if err := db.MarkStarted(models.MediaRef{}); !errors.Is(err, models.ErrInvalidRef) {
			t.Errorf("Expected ErrInvalidRef for empty ref, got %v", err)
		}
	})

	t.Run("DeleteBatch", func(t *testing.T) {
		mustInsertTrack(t, db, testTrack("gone1.mp3", "Gone 1", "X"))
		mustInsertTrack(t, db, testTrack("gone2.mp3", "Gone 2", "X"))

		removed, err := db.DeleteTracks([]string{"gone1.mp3", "gone2.mp3", "never-existed.mp3"})
		if err != nil {
			t.Fatalf("Failed to delete tracks: %v", err)
		}
		if removed != 2 {
			t.Errorf("Expected 2 rows removed, got %d", removed)
		}

		if _, err := db.GetTrack("gone1.mp3"); !errors.Is(err, database.ErrNotFound) {
			t.Error("Expected gone1.mp3 to be deleted")
		}
	})

	t.Run("AllTracksOrdering", func(t *testing.T) {
		tracks, err := db.AllTracks()
		if err != nil {
			t.Fatalf("Failed to list tracks: %v", err)
		}
		// Tagged tracks sort before the untagged one (nulls last).
		if len(tracks) < 2 {
			t.Fatalf("Expected at least two tracks, got %d", len(tracks))
		}
		if tracks[len(tracks)-1].Artist != nil {
			t.Error("Expected the untagged track to sort last")
		}
	})
}

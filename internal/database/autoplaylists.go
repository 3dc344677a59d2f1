package database

import (
	"fmt"
	"sort"
	"time"

	"vibrato/pkg/models"
)

// Virtual playlists are computed at read time from the timestamp columns
// playback already maintains; there is no stored membership to keep in sync.

// RecentlyAdded returns the newest library items across tracks and videos,
// ordered by added/fetched timestamp descending. limit <= 0 means no limit.
func (db *Database) RecentlyAdded(limit int) ([]models.MediaItem, error) {
	tracks, err := db.AllTracks()
	if err != nil {
		return nil, err
	}
	videos, err := db.allVideos()
	if err != nil {
		return nil, err
	}

	type stamped struct {
		item models.MediaItem
		at   time.Time
	}
	items := make([]stamped, 0, len(tracks)+len(videos))
	for i := range tracks {
		items = append(items, stamped{models.MediaItem{Track: &tracks[i]}, tracks[i].Added})
	}
	for i := range videos {
		items = append(items, stamped{models.MediaItem{Video: &videos[i]}, videos[i].FetchedAt})
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].at.After(items[b].at) })

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]models.MediaItem, len(items))
	for i, s := range items {
		out[i] = s.item
	}
	return out, nil
}

// RecentlyPlayed returns items with a non-null last_played, most recent
// first. limit <= 0 means no limit.
func (db *Database) RecentlyPlayed(limit int) ([]models.MediaItem, error) {
	tracks, err := db.AllTracks()
	if err != nil {
		return nil, err
	}
	videos, err := db.allVideos()
	if err != nil {
		return nil, err
	}

	type stamped struct {
		item models.MediaItem
		at   time.Time
	}
	var items []stamped
	for i := range tracks {
		if tracks[i].LastPlayed != nil {
			items = append(items, stamped{models.MediaItem{Track: &tracks[i]}, *tracks[i].LastPlayed})
		}
	}
	for i := range videos {
		if videos[i].LastPlayed != nil {
			items = append(items, stamped{models.MediaItem{Video: &videos[i]}, *videos[i].LastPlayed})
		}
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].at.After(items[b].at) })

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]models.MediaItem, len(items))
	for i, s := range items {
		out[i] = s.item
	}
	return out, nil
}

func (db *Database) allVideos() ([]models.Video, error) {
	rows, err := db.conn.Query(`SELECT ` + videoColumns + ` FROM videos`)
	if err != nil {
		return nil, fmt.Errorf("failed to load videos: %w", err)
	}
	defer rows.Close()
	return scanVideoRows(rows)
}

package database

import (
	"database/sql"
	"fmt"

	"vibrato/pkg/models"
)

// CreatePlaylist inserts a new named playlist and returns its id.
func (db *Database) CreatePlaylist(name string) (int64, error) {
	res, err := db.conn.Exec("INSERT INTO playlists (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to create playlist: %w", err)
	}
	return res.LastInsertId()
}

// Playlists returns all playlists ordered by name.
func (db *Database) Playlists() ([]models.Playlist, error) {
	rows, err := db.conn.Query("SELECT id, name, created_at FROM playlists ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, rows.Err()
}

// RenamePlaylist updates a playlist's name.
func (db *Database) RenamePlaylist(id int64, name string) error {
	_, err := db.conn.Exec("UPDATE playlists SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to rename playlist: %w", err)
	}
	return nil
}

// DeletePlaylist removes a playlist; its entries go with it via cascade.
func (db *Database) DeletePlaylist(id int64) error {
	_, err := db.conn.Exec("DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return nil
}

// AppendToPlaylist adds an item at the end of a playlist and returns the new
// entry id.
func (db *Database) AppendToPlaylist(playlistID int64, ref models.MediaRef) (int64, error) {
	trackFilename, videoID, err := refColumns(ref)
	if err != nil {
		return 0, err
	}
	var entryID int64
	err = db.withTx(func(tx *sql.Tx) error {
		pos, err := nextAppendPosition(tx, playlistScope(playlistID))
		if err != nil {
			return err
		}
		res, err := tx.Exec(`
			INSERT INTO playlist_entries (playlist_id, track_filename, video_id, position)
			VALUES (?, ?, ?, ?)`,
			playlistID, trackFilename, videoID, pos)
		if err != nil {
			return fmt.Errorf("failed to append to playlist: %w", err)
		}
		entryID, err = res.LastInsertId()
		return err
	})
	return entryID, err
}

// InsertIntoPlaylist adds an item at the given list index, shifting nothing:
// the new entry takes a position value between its neighbors.
func (db *Database) InsertIntoPlaylist(playlistID int64, ref models.MediaRef, index int) (int64, error) {
	trackFilename, videoID, err := refColumns(ref)
	if err != nil {
		return 0, err
	}
	var entryID int64
	err = db.withTx(func(tx *sql.Tx) error {
		pos, err := positionForIndex(tx, playlistScope(playlistID), index)
		if err != nil {
			return err
		}
		res, err := tx.Exec(`
			INSERT INTO playlist_entries (playlist_id, track_filename, video_id, position)
			VALUES (?, ?, ?, ?)`,
			playlistID, trackFilename, videoID, pos)
		if err != nil {
			return fmt.Errorf("failed to insert into playlist: %w", err)
		}
		entryID, err = res.LastInsertId()
		return err
	})
	return entryID, err
}

// RemovePlaylistEntry deletes one entry by id. Surviving entries keep their
// positions; gaps are fine.
func (db *Database) RemovePlaylistEntry(entryID int64) error {
	_, err := db.conn.Exec("DELETE FROM playlist_entries WHERE id = ?", entryID)
	if err != nil {
		return fmt.Errorf("failed to remove playlist entry: %w", err)
	}
	return nil
}

// MovePlaylistEntry reorders one entry to the given index among the other
// entries of its playlist.
func (db *Database) MovePlaylistEntry(playlistID, entryID int64, index int) error {
	return db.withTx(func(tx *sql.Tx) error {
		return moveEntry(tx, playlistScope(playlistID), entryID, index)
	})
}

// moveEntry reassigns an entry's position to land at the target index,
// computed over the list without the moving entry.
func moveEntry(tx *sql.Tx, lt listTable, entryID int64, index int) error {
	ids, positions, err := orderedPositions(tx, lt)
	if err != nil {
		return err
	}

	// Drop the moving entry from the neighbor computation.
	var restIDs, restPositions []int64
	found := false
	for i, id := range ids {
		if id == entryID {
			found = true
			continue
		}
		restIDs = append(restIDs, id)
		restPositions = append(restPositions, positions[i])
	}
	if !found {
		return fmt.Errorf("entry %d: %w", entryID, ErrNotFound)
	}
	if index < 0 {
		index = 0
	}
	if index > len(restIDs) {
		index = len(restIDs)
	}

	var pos int64
	switch {
	case len(restIDs) == 0:
		pos = positionStep
	case index == 0:
		pos = restPositions[0] - positionStep
	case index >= len(restIDs):
		pos = restPositions[len(restPositions)-1] + positionStep
	default:
		prev, next := restPositions[index-1], restPositions[index]
		if next-prev > 1 {
			pos = prev + (next-prev)/2
		} else {
			// No room between neighbors: renumber the rest with fresh
			// spacing, then take the midpoint.
			if err := renumber(tx, lt, restIDs); err != nil {
				return err
			}
			pos = int64(index)*positionStep + positionStep/2
		}
	}

	if _, err := tx.Exec(
		fmt.Sprintf("UPDATE %s SET position = ? WHERE id = ?", lt.name), pos, entryID); err != nil {
		return fmt.Errorf("failed to move entry: %w", err)
	}
	return nil
}

// PlaylistEntries returns the raw positioned entries of a playlist.
func (db *Database) PlaylistEntries(playlistID int64) ([]models.PlaylistEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, playlist_id, track_filename, video_id, position, added_at
		FROM playlist_entries WHERE playlist_id = ? ORDER BY position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PlaylistEntry
	for rows.Next() {
		var e models.PlaylistEntry
		var trackFilename sql.NullString
		var videoID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.PlaylistID, &trackFilename, &videoID, &e.Position, &e.AddedAt); err != nil {
			return nil, err
		}
		e.Ref = refFromColumns(trackFilename, videoID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PlaylistItems returns a playlist's members resolved to tracks/videos, in
// position order.
func (db *Database) PlaylistItems(playlistID int64) ([]models.MediaItem, error) {
	rows, err := db.conn.Query(`
		SELECT `+itemJoinColumns+`
		FROM playlist_entries e
		LEFT JOIN tracks t ON e.track_filename = t.filename
		LEFT JOIN videos v ON e.video_id = v.id
		WHERE e.playlist_id = ?
		ORDER BY e.position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist items: %w", err)
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// ResolvedEntry pairs a playlist or queue entry id with its resolved item,
// for views that need both display data and the row to mutate.
type ResolvedEntry struct {
	EntryID int64
	Item    models.MediaItem
}

// PlaylistItemEntries returns a playlist's members resolved to tracks/videos
// together with their entry ids, in position order.
func (db *Database) PlaylistItemEntries(playlistID int64) ([]ResolvedEntry, error) {
	rows, err := db.conn.Query(`
		SELECT e.id, `+itemJoinColumns+`
		FROM playlist_entries e
		LEFT JOIN tracks t ON e.track_filename = t.filename
		LEFT JOIN videos v ON e.video_id = v.id
		WHERE e.playlist_id = ?
		ORDER BY e.position`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist items: %w", err)
	}
	defer rows.Close()
	return scanResolvedRows(rows)
}

// QueueItemEntries returns the queue resolved to tracks/videos together with
// their entry ids, in position order.
func (db *Database) QueueItemEntries() ([]ResolvedEntry, error) {
	rows, err := db.conn.Query(`
		SELECT e.id, ` + itemJoinColumns + `
		FROM queue_entries e
		LEFT JOIN tracks t ON e.track_filename = t.filename
		LEFT JOIN videos v ON e.video_id = v.id
		ORDER BY e.position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue items: %w", err)
	}
	defer rows.Close()
	return scanResolvedRows(rows)
}

func scanResolvedRows(rows *sql.Rows) ([]ResolvedEntry, error) {
	var entries []ResolvedEntry
	for rows.Next() {
		var entryID int64
		var j joinedItem
		dest := append([]any{&entryID}, j.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		item := j.item()
		if item.Track == nil && item.Video == nil {
			continue
		}
		entries = append(entries, ResolvedEntry{EntryID: entryID, Item: item})
	}
	return entries, rows.Err()
}

func scanItemRows(rows *sql.Rows) ([]models.MediaItem, error) {
	var items []models.MediaItem
	for rows.Next() {
		var j joinedItem
		if err := rows.Scan(j.dest()...); err != nil {
			return nil, err
		}
		item := j.item()
		if item.Track == nil && item.Video == nil {
			continue
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func refFromColumns(trackFilename sql.NullString, videoID sql.NullInt64) models.MediaRef {
	if trackFilename.Valid {
		return models.TrackRef(trackFilename.String)
	}
	if videoID.Valid {
		return models.VideoRef(videoID.Int64)
	}
	return models.MediaRef{}
}

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"vibrato/pkg/models"
)

// Enqueue appends an item to the playback queue and returns the entry id.
func (db *Database) Enqueue(ref models.MediaRef) (int64, error) {
	trackFilename, videoID, err := refColumns(ref)
	if err != nil {
		return 0, err
	}
	var entryID int64
	err = db.withTx(func(tx *sql.Tx) error {
		pos, err := nextAppendPosition(tx, queueScope())
		if err != nil {
			return err
		}
		res, err := tx.Exec(`
			INSERT INTO queue_entries (track_filename, video_id, position)
			VALUES (?, ?, ?)`,
			trackFilename, videoID, pos)
		if err != nil {
			return fmt.Errorf("failed to enqueue: %w", err)
		}
		entryID, err = res.LastInsertId()
		return err
	})
	return entryID, err
}

// InsertIntoQueue adds an item at the given queue index.
func (db *Database) InsertIntoQueue(ref models.MediaRef, index int) (int64, error) {
	trackFilename, videoID, err := refColumns(ref)
	if err != nil {
		return 0, err
	}
	var entryID int64
	err = db.withTx(func(tx *sql.Tx) error {
		pos, err := positionForIndex(tx, queueScope(), index)
		if err != nil {
			return err
		}
		res, err := tx.Exec(`
			INSERT INTO queue_entries (track_filename, video_id, position)
			VALUES (?, ?, ?)`,
			trackFilename, videoID, pos)
		if err != nil {
			return fmt.Errorf("failed to insert into queue: %w", err)
		}
		entryID, err = res.LastInsertId()
		return err
	})
	return entryID, err
}

// RemoveQueueEntry deletes one queue entry by id without renumbering.
func (db *Database) RemoveQueueEntry(entryID int64) error {
	_, err := db.conn.Exec("DELETE FROM queue_entries WHERE id = ?", entryID)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
	}
	return nil
}

// MoveQueueEntry reorders one queue entry to the given index.
func (db *Database) MoveQueueEntry(entryID int64, index int) error {
	return db.withTx(func(tx *sql.Tx) error {
		return moveEntry(tx, queueScope(), entryID, index)
	})
}

// QueueEntries returns the raw positioned queue rows.
func (db *Database) QueueEntries() ([]models.QueueEntry, error) {
	rows, err := db.conn.Query(`
		SELECT id, track_filename, video_id, position, added_at
		FROM queue_entries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	defer rows.Close()

	var entries []models.QueueEntry
	for rows.Next() {
		var e models.QueueEntry
		var trackFilename sql.NullString
		var videoID sql.NullInt64
		if err := rows.Scan(&e.ID, &trackFilename, &videoID, &e.Position, &e.AddedAt); err != nil {
			return nil, err
		}
		e.Ref = refFromColumns(trackFilename, videoID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// QueueItems returns the queue resolved to tracks/videos in position order.
func (db *Database) QueueItems() ([]models.MediaItem, error) {
	rows, err := db.conn.Query(`
		SELECT ` + itemJoinColumns + `
		FROM queue_entries e
		LEFT JOIN tracks t ON e.track_filename = t.filename
		LEFT JOIN videos v ON e.video_id = v.id
		ORDER BY e.position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue items: %w", err)
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// PopQueueFront removes and returns the queue head in one transaction, or
// nil when the queue is empty.
func (db *Database) PopQueueFront() (*models.MediaItem, error) {
	var item *models.MediaItem
	err := db.withTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(`
			SELECT e.id, ` + itemJoinColumns + `
			FROM queue_entries e
			LEFT JOIN tracks t ON e.track_filename = t.filename
			LEFT JOIN videos v ON e.video_id = v.id
			ORDER BY e.position LIMIT 1`)

		var entryID int64
		var j joinedItem
		dest := append([]any{&entryID}, j.dest()...)
		if err := row.Scan(dest...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if _, err := tx.Exec("DELETE FROM queue_entries WHERE id = ?", entryID); err != nil {
			return fmt.Errorf("failed to pop queue head: %w", err)
		}
		resolved := j.item()
		if resolved.Track != nil || resolved.Video != nil {
			item = &resolved
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ClearQueue empties the playback queue.
func (db *Database) ClearQueue() error {
	_, err := db.conn.Exec("DELETE FROM queue_entries")
	if err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

// QueueLen returns the number of queued entries.
func (db *Database) QueueLen() (int, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM queue_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

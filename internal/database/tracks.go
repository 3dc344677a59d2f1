package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vibrato/pkg/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const trackColumns = `filename, title, artist, album, album_artist, genre,
	track_number, duration_seconds, play_count, last_played, added`

// InsertTrack inserts a new track row. Only the scanner creates track rows;
// playback and playlist code never do.
func (db *Database) InsertTrack(track models.Track) error {
	_, err := db.conn.Exec(`
		INSERT INTO tracks (filename, title, artist, album, album_artist, genre, track_number, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		track.Filename, track.Title, track.Artist, track.Album,
		track.AlbumArtist, track.Genre, track.TrackNumber, track.DurationSeconds)
	if err != nil {
		db.logger.WithError(err).WithField("filename", track.Filename).Error("Failed to insert track")
		return fmt.Errorf("failed to insert track: %w", err)
	}
	return nil
}

// GetTrack returns a single track by filename key.
func (db *Database) GetTrack(filename string) (*models.Track, error) {
	row := db.conn.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE filename = ?`, filename)
	track, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("track %q: %w", filename, ErrNotFound)
		}
		return nil, err
	}
	return track, nil
}

// AllTracks returns every track ordered for library display, untagged rows
// sorting last.
func (db *Database) AllTracks() ([]models.Track, error) {
	rows, err := db.conn.Query(`
		SELECT ` + trackColumns + `
		FROM tracks
		ORDER BY artist IS NULL, artist, album, track_number, title, filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// SearchTracks performs a LIKE-based search over title, artist and filename.
func (db *Database) SearchTracks(query string) ([]models.Track, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT `+trackColumns+`
		FROM tracks
		WHERE title LIKE ? OR artist LIKE ? OR filename LIKE ?
		ORDER BY artist IS NULL, artist, album, track_number, title, filename`,
		pattern, pattern, pattern)
	if err != nil {
		db.logger.WithError(err).WithField("query", query).Error("Failed to search tracks")
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// TrackIndex returns every known filename mapped to whether its duration has
// been probed. The scanner uses it to partition the walk into new, unchanged
// and incomplete entries.
func (db *Database) TrackIndex() (map[string]bool, error) {
	rows, err := db.conn.Query("SELECT filename, duration_seconds IS NOT NULL FROM tracks")
	if err != nil {
		return nil, fmt.Errorf("failed to load track index: %w", err)
	}
	defer rows.Close()

	index := make(map[string]bool)
	for rows.Next() {
		var filename string
		var hasDuration bool
		if err := rows.Scan(&filename, &hasDuration); err != nil {
			return nil, err
		}
		index[filename] = hasDuration
	}
	return index, rows.Err()
}

// DeleteTracks removes the given rows in one transaction and returns how many
// were deleted. Callers are expected to have obtained explicit confirmation;
// the store itself never deletes tracks on its own.
func (db *Database) DeleteTracks(filenames []string) (int64, error) {
	if len(filenames) == 0 {
		return 0, nil
	}
	var deleted int64
	err := db.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("DELETE FROM tracks WHERE filename = ?")
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range filenames {
			res, err := stmt.Exec(f)
			if err != nil {
				return fmt.Errorf("failed to delete %q: %w", f, err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	db.logger.WithField("deleted", deleted).Info("Removed stale tracks")
	return deleted, nil
}

// UpdateDuration fills in the duration of an existing row after a re-probe.
func (db *Database) UpdateDuration(filename string, seconds int) error {
	_, err := db.conn.Exec("UPDATE tracks SET duration_seconds = ? WHERE filename = ?", seconds, filename)
	if err != nil {
		return fmt.Errorf("failed to update duration: %w", err)
	}
	return nil
}

// MarkStarted stamps last_played when playback of an item begins.
func (db *Database) MarkStarted(ref models.MediaRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if filename, ok := ref.TrackFilename(); ok {
		_, err := db.conn.Exec("UPDATE tracks SET last_played = ? WHERE filename = ?", now, filename)
		return err
	}
	id, _ := ref.VideoID()
	_, err := db.conn.Exec("UPDATE videos SET last_played = ? WHERE id = ?", now, id)
	return err
}

// RecordPlay increments the play counter and stamps last_played on playback
// completion. Views computed over these columns pick the change up on their
// next read without any membership write.
func (db *Database) RecordPlay(ref models.MediaRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if filename, ok := ref.TrackFilename(); ok {
		_, err := db.conn.Exec(
			"UPDATE tracks SET play_count = play_count + 1, last_played = ? WHERE filename = ?",
			now, filename)
		return err
	}
	id, _ := ref.VideoID()
	_, err := db.conn.Exec(
		"UPDATE videos SET play_count = play_count + 1, last_played = ? WHERE id = ?",
		now, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var t models.Track
	var title, artist, album, albumArtist, genre sql.NullString
	var trackNumber, duration sql.NullInt64
	var lastPlayed sql.NullTime

	err := row.Scan(&t.Filename, &title, &artist, &album, &albumArtist, &genre,
		&trackNumber, &duration, &t.PlayCount, &lastPlayed, &t.Added)
	if err != nil {
		return nil, err
	}
	t.Title = strPtr(title)
	t.Artist = strPtr(artist)
	t.Album = strPtr(album)
	t.AlbumArtist = strPtr(albumArtist)
	t.Genre = strPtr(genre)
	t.TrackNumber = intPtr(trackNumber)
	t.DurationSeconds = intPtr(duration)
	t.LastPlayed = timePtr(lastPlayed)
	return &t, nil
}

// scanTrackRows scans standard track result sets. Callers must have already
// deferred rows.Close().
func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

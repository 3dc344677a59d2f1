package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vibrato/pkg/models"
)

// AddChannel inserts a subscription and returns its surrogate id.
func (db *Database) AddChannel(channelID, name string, handle *string, url string, thumbnailURL *string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO channels (channel_id, name, handle, url, thumbnail_url)
		VALUES (?, ?, ?, ?, ?)`,
		channelID, name, handle, url, thumbnailURL)
	if err != nil {
		return 0, fmt.Errorf("failed to insert channel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	db.logger.WithFields(map[string]any{"channel_id": channelID, "name": name}).Info("Added channel")
	return id, nil
}

// Channels returns all subscribed channels ordered by name.
func (db *Database) Channels() ([]models.Channel, error) {
	rows, err := db.conn.Query(`
		SELECT id, channel_id, name, handle, url, thumbnail_url, last_fetched, created_at
		FROM channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		var c models.Channel
		var handle, thumbnail sql.NullString
		var lastFetched sql.NullTime
		if err := rows.Scan(&c.ID, &c.ChannelID, &c.Name, &handle, &c.URL, &thumbnail, &lastFetched, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Handle = strPtr(handle)
		c.ThumbnailURL = strPtr(thumbnail)
		c.LastFetched = timePtr(lastFetched)
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// GetChannel returns one channel by surrogate id.
func (db *Database) GetChannel(id int64) (*models.Channel, error) {
	var c models.Channel
	var handle, thumbnail sql.NullString
	var lastFetched sql.NullTime
	err := db.conn.QueryRow(`
		SELECT id, channel_id, name, handle, url, thumbnail_url, last_fetched, created_at
		FROM channels WHERE id = ?`, id).
		Scan(&c.ID, &c.ChannelID, &c.Name, &handle, &c.URL, &thumbnail, &lastFetched, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	c.Handle = strPtr(handle)
	c.ThumbnailURL = strPtr(thumbnail)
	c.LastFetched = timePtr(lastFetched)
	return &c, nil
}

// DeleteChannel removes a channel; its videos go with it via cascade.
func (db *Database) DeleteChannel(id int64) error {
	_, err := db.conn.Exec("DELETE FROM channels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}

// TouchChannelFetched stamps last_fetched after a metadata sync.
func (db *Database) TouchChannelFetched(id int64) error {
	_, err := db.conn.Exec("UPDATE channels SET last_fetched = ? WHERE id = ?", time.Now().UTC(), id)
	return err
}

// UpsertVideos inserts the fetched video records for a channel, ignoring
// external ids already present. Runs in one transaction.
func (db *Database) UpsertVideos(channelRowID int64, videos []models.Video) (int64, error) {
	var added int64
	err := db.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO videos (video_id, channel_id, title, duration_seconds, thumbnail_url, published_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(video_id) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, v := range videos {
			res, err := stmt.Exec(v.VideoID, channelRowID, v.Title, v.DurationSeconds, v.ThumbnailURL, v.PublishedAt)
			if err != nil {
				return fmt.Errorf("failed to upsert video %q: %w", v.VideoID, err)
			}
			n, _ := res.RowsAffected()
			added += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

const videoColumns = `id, video_id, channel_id, title, duration_seconds,
	thumbnail_url, published_at, fetched_at, play_count, last_played`

// VideosForChannel returns a channel's videos, newest published first.
func (db *Database) VideosForChannel(channelRowID int64) ([]models.Video, error) {
	rows, err := db.conn.Query(`
		SELECT `+videoColumns+`
		FROM videos WHERE channel_id = ?
		ORDER BY published_at DESC`, channelRowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load videos: %w", err)
	}
	defer rows.Close()
	return scanVideoRows(rows)
}

// GetVideo returns one video by surrogate id.
func (db *Database) GetVideo(id int64) (*models.Video, error) {
	row := db.conn.QueryRow(`SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("video %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return v, nil
}

// VideoIDsForChannel returns the set of external video ids already stored for
// a channel, used to bound incremental fetches.
func (db *Database) VideoIDsForChannel(channelRowID int64) (map[string]bool, error) {
	rows, err := db.conn.Query("SELECT video_id FROM videos WHERE channel_id = ?", channelRowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var v models.Video
	var duration sql.NullInt64
	var thumbnail sql.NullString
	var published, lastPlayed sql.NullTime
	err := row.Scan(&v.ID, &v.VideoID, &v.ChannelID, &v.Title, &duration,
		&thumbnail, &published, &v.FetchedAt, &v.PlayCount, &lastPlayed)
	if err != nil {
		return nil, err
	}
	v.DurationSeconds = intPtr(duration)
	v.ThumbnailURL = strPtr(thumbnail)
	v.PublishedAt = timePtr(published)
	v.LastPlayed = timePtr(lastPlayed)
	return &v, nil
}

func scanVideoRows(rows *sql.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

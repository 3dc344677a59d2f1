package database

import (
	"database/sql"
	"fmt"

	"vibrato/pkg/models"
)

// Entries carry spaced position values so an insert between two neighbors
// normally needs no renumbering; only an exhausted gap triggers a renumber
// pass. Removal leaves gaps, which the ordering contract tolerates.
const positionStep = 1024

// listTable describes one of the two ordered-membership tables so the
// position engine can serve both.
type listTable struct {
	name     string // playlist_entries or queue_entries
	scopeSQL string // extra WHERE fragment, e.g. "playlist_id = ? AND"
	scope    []any
}

func playlistScope(playlistID int64) listTable {
	return listTable{name: "playlist_entries", scopeSQL: "playlist_id = ? AND", scope: []any{playlistID}}
}

func queueScope() listTable {
	return listTable{name: "queue_entries"}
}

// orderedPositions returns entry ids and positions in list order.
func orderedPositions(tx *sql.Tx, lt listTable) ([]int64, []int64, error) {
	where := ""
	if lt.scopeSQL != "" {
		where = "WHERE " + lt.scopeSQL[:len(lt.scopeSQL)-4]
	}
	rows, err := tx.Query(
		fmt.Sprintf("SELECT id, position FROM %s %s ORDER BY position", lt.name, where),
		lt.scope...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var ids, positions []int64
	for rows.Next() {
		var id, pos int64
		if err := rows.Scan(&id, &pos); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		positions = append(positions, pos)
	}
	return ids, positions, rows.Err()
}

// nextAppendPosition returns a position strictly greater than the current
// maximum of the list.
func nextAppendPosition(tx *sql.Tx, lt listTable) (int64, error) {
	where := ""
	if lt.scopeSQL != "" {
		where = "WHERE " + lt.scopeSQL[:len(lt.scopeSQL)-4]
	}
	var max sql.NullInt64
	err := tx.QueryRow(
		fmt.Sprintf("SELECT MAX(position) FROM %s %s", lt.name, where),
		lt.scope...).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return positionStep, nil
	}
	return max.Int64 + positionStep, nil
}

// positionForIndex computes a position value that places a new entry at the
// given list index, renumbering first when the neighboring gap is exhausted.
// index is clamped to [0, len].
func positionForIndex(tx *sql.Tx, lt listTable, index int) (int64, error) {
	ids, positions, err := orderedPositions(tx, lt)
	if err != nil {
		return 0, err
	}
	if index < 0 {
		index = 0
	}
	if index >= len(positions) {
		return nextAppendPosition(tx, lt)
	}
	if index == 0 {
		return positions[0] - positionStep, nil
	}
	prev, next := positions[index-1], positions[index]
	if next-prev > 1 {
		return prev + (next-prev)/2, nil
	}
	// Gap exhausted: renumber the whole list with fresh spacing, then the
	// midpoint is guaranteed to exist.
	if err := renumber(tx, lt, ids); err != nil {
		return 0, err
	}
	prev = int64(index) * positionStep
	return prev + positionStep/2, nil
}

// renumber reassigns spaced positions preserving the current order. Positions
// are first shifted out of range so the per-list uniqueness constraint cannot
// trip mid-pass.
func renumber(tx *sql.Tx, lt listTable, orderedIDs []int64) error {
	shift := fmt.Sprintf("UPDATE %s SET position = position + ? WHERE %s id = id", lt.name, lt.scopeSQL)
	args := append([]any{int64(1) << 40}, lt.scope...)
	if _, err := tx.Exec(shift, args...); err != nil {
		return fmt.Errorf("failed to shift positions: %w", err)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("UPDATE %s SET position = ? WHERE id = ?", lt.name))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, id := range orderedIDs {
		if _, err := stmt.Exec(int64(i+1)*positionStep, id); err != nil {
			return fmt.Errorf("failed to renumber entry %d: %w", id, err)
		}
	}
	return nil
}

// refColumns splits a MediaRef into the two nullable reference columns after
// validating the mutual-exclusion invariant. The check runs before any SQL so
// an invalid ref never reaches storage.
func refColumns(ref models.MediaRef) (trackFilename *string, videoID *int64, err error) {
	if err := ref.Validate(); err != nil {
		return nil, nil, err
	}
	if filename, ok := ref.TrackFilename(); ok {
		return &filename, nil, nil
	}
	id, _ := ref.VideoID()
	return nil, &id, nil
}

const itemJoinColumns = `
	t.filename, t.title, t.artist, t.album, t.album_artist, t.genre,
	t.track_number, t.duration_seconds, t.play_count, t.last_played, t.added,
	v.id, v.video_id, v.channel_id, v.title, v.duration_seconds,
	v.thumbnail_url, v.published_at, v.fetched_at, v.play_count, v.last_played`

// joinedItem receives the track/video halves of an entry join. Entries
// whose referent was cascade-deleted come back empty; callers drop those.
type joinedItem struct {
	filename                             sql.NullString
	title, artist, album, albumArtist    sql.NullString
	genre                                sql.NullString
	trackNumber, trackDuration           sql.NullInt64
	trackPlayCount                       sql.NullInt64
	trackLastPlayed, trackAdded          sql.NullTime
	videoRowID                           sql.NullInt64
	externalID, videoTitle, thumbnailURL sql.NullString
	channelID, videoDuration             sql.NullInt64
	publishedAt, fetchedAt               sql.NullTime
	videoPlayCount                       sql.NullInt64
	videoLastPlayed                      sql.NullTime
}

// dest returns the scan destinations matching itemJoinColumns order.
func (j *joinedItem) dest() []any {
	return []any{
		&j.filename, &j.title, &j.artist, &j.album, &j.albumArtist, &j.genre,
		&j.trackNumber, &j.trackDuration, &j.trackPlayCount, &j.trackLastPlayed, &j.trackAdded,
		&j.videoRowID, &j.externalID, &j.channelID, &j.videoTitle, &j.videoDuration,
		&j.thumbnailURL, &j.publishedAt, &j.fetchedAt, &j.videoPlayCount, &j.videoLastPlayed,
	}
}

func (j *joinedItem) item() models.MediaItem {
	if j.filename.Valid {
		t := models.Track{
			Filename:        j.filename.String,
			Title:           strPtr(j.title),
			Artist:          strPtr(j.artist),
			Album:           strPtr(j.album),
			AlbumArtist:     strPtr(j.albumArtist),
			Genre:           strPtr(j.genre),
			TrackNumber:     intPtr(j.trackNumber),
			DurationSeconds: intPtr(j.trackDuration),
			PlayCount:       int(j.trackPlayCount.Int64),
			LastPlayed:      timePtr(j.trackLastPlayed),
		}
		if j.trackAdded.Valid {
			t.Added = j.trackAdded.Time
		}
		return models.MediaItem{Track: &t}
	}
	if j.videoRowID.Valid {
		v := models.Video{
			ID:              j.videoRowID.Int64,
			VideoID:         j.externalID.String,
			ChannelID:       j.channelID.Int64,
			Title:           j.videoTitle.String,
			DurationSeconds: intPtr(j.videoDuration),
			ThumbnailURL:    strPtr(j.thumbnailURL),
			PublishedAt:     timePtr(j.publishedAt),
			PlayCount:       int(j.videoPlayCount.Int64),
			LastPlayed:      timePtr(j.videoLastPlayed),
		}
		if j.fetchedAt.Valid {
			v.FetchedAt = j.fetchedAt.Time
		}
		return models.MediaItem{Video: &v}
	}
	return models.MediaItem{}
}

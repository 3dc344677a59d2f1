package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Track is a local audio file known to the library. The absolute filename is
// the primary key; tag-derived fields are nil when the file carried no usable
// metadata.
type Track struct {
	Filename        string     `json:"filename"`
	Title           *string    `json:"title,omitempty"`
	Artist          *string    `json:"artist,omitempty"`
	Album           *string    `json:"album,omitempty"`
	AlbumArtist     *string    `json:"albumArtist,omitempty"`
	Genre           *string    `json:"genre,omitempty"`
	TrackNumber     *int       `json:"trackNumber,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	PlayCount       int        `json:"playCount"`
	LastPlayed      *time.Time `json:"lastPlayed,omitempty"`
	Added           time.Time  `json:"added"`
}

// DisplayTitle returns the tag title, falling back to the filename stem for
// untagged files.
func (t *Track) DisplayTitle() string {
	if t.Title != nil && *t.Title != "" {
		return *t.Title
	}
	base := filepath.Base(t.Filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Channel is a subscribed external video channel.
type Channel struct {
	ID           int64      `json:"id"`
	ChannelID    string     `json:"channelId"`
	Name         string     `json:"name"`
	Handle       *string    `json:"handle,omitempty"`
	URL          string     `json:"url"`
	ThumbnailURL *string    `json:"thumbnailUrl,omitempty"`
	LastFetched  *time.Time `json:"lastFetched,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Video is remote video metadata owned by exactly one Channel.
type Video struct {
	ID              int64      `json:"id"`
	VideoID         string     `json:"videoId"`
	ChannelID       int64      `json:"channelId"`
	Title           string     `json:"title"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	ThumbnailURL    *string    `json:"thumbnailUrl,omitempty"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	FetchedAt       time.Time  `json:"fetchedAt"`
	PlayCount       int        `json:"playCount"`
	LastPlayed      *time.Time `json:"lastPlayed,omitempty"`
}

// WatchURL returns the playable URL for the video.
func (v *Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

// Playlist is a user-named ordered collection.
type Playlist struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlaylistEntry is one positioned member of a playlist. Exactly one of the
// two reference columns is set; Ref carries that invariant in the type.
type PlaylistEntry struct {
	ID         int64     `json:"id"`
	PlaylistID int64     `json:"playlistId"`
	Ref        MediaRef  `json:"ref"`
	Position   int64     `json:"position"`
	AddedAt    time.Time `json:"addedAt"`
}

// QueueEntry is one positioned member of the implicit playback queue.
type QueueEntry struct {
	ID       int64     `json:"id"`
	Ref      MediaRef  `json:"ref"`
	Position int64     `json:"position"`
	AddedAt  time.Time `json:"addedAt"`
}

package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRef is returned when a media reference does not point at exactly
// one of a track or a video. Hitting it means a caller bug, not a runtime
// condition to retry.
var ErrInvalidRef = errors.New("media ref must reference exactly one of track or video")

type refKind int

const (
	refNone refKind = iota
	refTrack
	refVideo
)

// MediaRef is a tagged reference to either a local track (by filename) or a
// remote video (by surrogate id). The zero value is invalid; construct with
// TrackRef or VideoRef so the both-or-neither state cannot be represented.
type MediaRef struct {
	kind     refKind
	filename string
	videoID  int64
}

// TrackRef references a local track by its filename key.
func TrackRef(filename string) MediaRef {
	return MediaRef{kind: refTrack, filename: filename}
}

// VideoRef references a video row by surrogate id.
func VideoRef(id int64) MediaRef {
	return MediaRef{kind: refVideo, videoID: id}
}

func (r MediaRef) IsTrack() bool { return r.kind == refTrack }
func (r MediaRef) IsVideo() bool { return r.kind == refVideo }

// TrackFilename returns the referenced filename, ok=false for video refs.
func (r MediaRef) TrackFilename() (string, bool) {
	return r.filename, r.kind == refTrack
}

// VideoID returns the referenced video row id, ok=false for track refs.
func (r MediaRef) VideoID() (int64, bool) {
	return r.videoID, r.kind == refVideo
}

// Validate rejects refs that do not identify exactly one item. A zero-value
// ref fails, as does a track ref with an empty filename.
func (r MediaRef) Validate() error {
	switch r.kind {
	case refTrack:
		if r.filename == "" {
			return fmt.Errorf("%w: empty track filename", ErrInvalidRef)
		}
		return nil
	case refVideo:
		if r.videoID <= 0 {
			return fmt.Errorf("%w: video id %d", ErrInvalidRef, r.videoID)
		}
		return nil
	default:
		return ErrInvalidRef
	}
}

func (r MediaRef) String() string {
	switch r.kind {
	case refTrack:
		return "track:" + r.filename
	case refVideo:
		return fmt.Sprintf("video:%d", r.videoID)
	default:
		return "invalid"
	}
}

// MediaItem resolves a MediaRef to its row. Exactly one field is non-nil.
type MediaItem struct {
	Track *Track `json:"track,omitempty"`
	Video *Video `json:"video,omitempty"`
}

// Ref returns the reference for the resolved item.
func (m MediaItem) Ref() MediaRef {
	if m.Track != nil {
		return TrackRef(m.Track.Filename)
	}
	if m.Video != nil {
		return VideoRef(m.Video.ID)
	}
	return MediaRef{}
}

// Title returns a display title for either side.
func (m MediaItem) Title() string {
	if m.Track != nil {
		return m.Track.DisplayTitle()
	}
	if m.Video != nil {
		return m.Video.Title
	}
	return ""
}

// Artist returns the tag artist for tracks and a placeholder for videos.
func (m MediaItem) Artist() string {
	if m.Track != nil {
		if m.Track.Artist != nil {
			return *m.Track.Artist
		}
		return "Unknown"
	}
	if m.Video != nil {
		return "YouTube"
	}
	return ""
}

// DurationSeconds returns the duration when known.
func (m MediaItem) DurationSeconds() *int {
	if m.Track != nil {
		return m.Track.DurationSeconds
	}
	if m.Video != nil {
		return m.Video.DurationSeconds
	}
	return nil
}

// URI returns the playable reference handed to the playback backend: the
// local path for tracks, the watch URL for videos.
func (m MediaItem) URI() string {
	if m.Track != nil {
		return m.Track.Filename
	}
	if m.Video != nil {
		return m.Video.WatchURL()
	}
	return ""
}

// SearchText returns the lowercased haystack the search filter matches
// against: title, artist and filename.
func (m MediaItem) SearchText() string {
	if m.Track != nil {
		return strings.ToLower(m.Track.DisplayTitle() + " " + m.Artist() + " " + m.Track.Filename)
	}
	if m.Video != nil {
		return strings.ToLower(m.Video.Title)
	}
	return ""
}

package youtube

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"

	"vibrato/internal/cache"
	"vibrato/internal/database"
	"vibrato/pkg/models"
)

// VideoRecord is one fetched upload, decoupled from the store's row type.
type VideoRecord struct {
	ExternalID      string
	Title           string
	DurationSeconds *int
	ThumbnailURL    *string
	PublishedAt     *time.Time
}

// Fetcher pulls channel upload metadata from YouTube. Fetched upload lists
// are cached briefly so quick repeated syncs stay off the network.
type Fetcher struct {
	client youtube.Client
	limit  int
	cache  *cache.VideoCache
	logger *logrus.Logger
}

// NewFetcher creates a fetcher. limit bounds how many uploads one fetch
// returns; zero means unbounded.
func NewFetcher(limit int, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		client: youtube.Client{},
		limit:  limit,
		cache:  cache.NewVideoCache(),
		logger: logger,
	}
}

// UploadsPlaylistID derives a channel's uploads playlist from its channel id.
// YouTube channel ids start with "UC"; the matching uploads playlist swaps
// that prefix for "UU".
func UploadsPlaylistID(channelID string) (string, error) {
	if !strings.HasPrefix(channelID, "UC") || len(channelID) < 4 {
		return "", fmt.Errorf("not a channel id: %q", channelID)
	}
	return "UU" + channelID[2:], nil
}

// ParseChannelInput accepts a raw channel id or a channel URL and returns
// the channel id.
func ParseChannelInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if idx := strings.Index(input, "/channel/"); idx >= 0 {
		input = input[idx+len("/channel/"):]
		if cut := strings.IndexAny(input, "/?"); cut >= 0 {
			input = input[:cut]
		}
	}
	if !strings.HasPrefix(input, "UC") {
		return "", fmt.Errorf("cannot derive a channel id from %q", input)
	}
	return input, nil
}

// ResolveChannel looks a channel up by id or URL and returns its identity
// for subscription. The channel name comes from its uploads playlist author.
func (f *Fetcher) ResolveChannel(ctx context.Context, input string) (channelID, name, url string, err error) {
	channelID, err = ParseChannelInput(input)
	if err != nil {
		return "", "", "", err
	}

	playlist, err := f.fetchUploads(ctx, channelID)
	if err != nil {
		return "", "", "", err
	}

	name = playlist.Author
	if name == "" {
		name = strings.TrimPrefix(playlist.Title, "Uploads from ")
	}
	if name == "" {
		name = channelID
	}
	return channelID, name, "https://www.youtube.com/channel/" + channelID, nil
}

func (f *Fetcher) fetchUploads(ctx context.Context, channelID string) (*youtube.Playlist, error) {
	playlistID, err := UploadsPlaylistID(channelID)
	if err != nil {
		return nil, err
	}

	playlist, err := f.client.GetPlaylistContext(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch uploads for channel %s: %w", channelID, err)
	}
	return playlist, nil
}

// FetchChannelVideos lists a channel's uploads, newest first, bounded by the
// configured limit.
func (f *Fetcher) FetchChannelVideos(ctx context.Context, channelID string) ([]VideoRecord, error) {
	playlist, err := f.fetchUploads(ctx, channelID)
	if err != nil {
		return nil, err
	}

	records := make([]VideoRecord, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		if f.limit > 0 && len(records) >= f.limit {
			break
		}
		records = append(records, recordFromEntry(entry))
	}

	f.logger.WithFields(logrus.Fields{
		"channel_id": channelID,
		"videos":     len(records),
	}).Debug("Fetched channel uploads")

	return records, nil
}

func recordFromEntry(entry *youtube.PlaylistEntry) VideoRecord {
	rec := VideoRecord{
		ExternalID: entry.ID,
		Title:      entry.Title,
	}
	if entry.Duration > 0 {
		secs := int(entry.Duration / time.Second)
		rec.DurationSeconds = &secs
	}
	if len(entry.Thumbnails) > 0 {
		url := entry.Thumbnails[0].URL
		rec.ThumbnailURL = &url
	}
	return rec
}

// SyncChannel fetches a subscribed channel's uploads and upserts them,
// returning how many new videos were stored.
func (f *Fetcher) SyncChannel(ctx context.Context, db *database.Database, channelRowID int64) (int64, error) {
	channel, err := db.GetChannel(channelRowID)
	if err != nil {
		return 0, err
	}

	videos, cached := f.cache.GetVideos(channel.ChannelID)
	if !cached {
		records, err := f.FetchChannelVideos(ctx, channel.ChannelID)
		if err != nil {
			return 0, err
		}

		videos = make([]models.Video, 0, len(records))
		for _, rec := range records {
			videos = append(videos, models.Video{
				VideoID:         rec.ExternalID,
				ChannelID:       channelRowID,
				Title:           rec.Title,
				DurationSeconds: rec.DurationSeconds,
				ThumbnailURL:    rec.ThumbnailURL,
				PublishedAt:     rec.PublishedAt,
			})
		}
		f.cache.SetVideos(channel.ChannelID, videos)
	}

	added, err := db.UpsertVideos(channelRowID, videos)
	if err != nil {
		return 0, err
	}
	if err := db.TouchChannelFetched(channelRowID); err != nil {
		return added, err
	}

	f.logger.WithFields(logrus.Fields{
		"channel": channel.Name,
		"added":   added,
	}).Info("Synced channel uploads")

	return added, nil
}

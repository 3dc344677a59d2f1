package controller

import (
	"vibrato/pkg/models"
)

const autoPlaylistLimit = 100

// loadSection builds the root level for a top-level section.
func (c *Controller) loadSection(s Section) (*Level, error) {
	lvl := &Level{Section: s, Title: s.String()}

	switch s {
	case SectionLibrary:
		tracks, err := c.db.AllTracks()
		if err != nil {
			return nil, err
		}
		for i := range tracks {
			lvl.Entries = append(lvl.Entries, Entry{Item: &models.MediaItem{Track: &tracks[i]}})
		}

	case SectionPlaylists:
		playlists, err := c.db.Playlists()
		if err != nil {
			return nil, err
		}
		for i := range playlists {
			lvl.Entries = append(lvl.Entries, Entry{Playlist: &playlists[i]})
		}

	case SectionQueue:
		entries, err := c.db.QueueItemEntries()
		if err != nil {
			return nil, err
		}
		for i := range entries {
			lvl.Entries = append(lvl.Entries, Entry{
				Item:         &entries[i].Item,
				QueueEntryID: entries[i].EntryID,
			})
		}

	case SectionChannels:
		channels, err := c.db.Channels()
		if err != nil {
			return nil, err
		}
		for i := range channels {
			lvl.Entries = append(lvl.Entries, Entry{Channel: &channels[i]})
		}

	case SectionRecentlyAdded:
		items, err := c.db.RecentlyAdded(autoPlaylistLimit)
		if err != nil {
			return nil, err
		}
		for i := range items {
			lvl.Entries = append(lvl.Entries, Entry{Item: &items[i]})
		}

	case SectionRecentlyPlayed:
		items, err := c.db.RecentlyPlayed(autoPlaylistLimit)
		if err != nil {
			return nil, err
		}
		for i := range items {
			lvl.Entries = append(lvl.Entries, Entry{Item: &items[i]})
		}
	}

	return lvl, nil
}

// loadPlaylist builds the level listing a playlist's members.
func (c *Controller) loadPlaylist(pl *models.Playlist) (*Level, error) {
	entries, err := c.db.PlaylistItemEntries(pl.ID)
	if err != nil {
		return nil, err
	}
	lvl := &Level{
		Section:    SectionPlaylists,
		Title:      pl.Name,
		PlaylistID: pl.ID,
	}
	for i := range entries {
		lvl.Entries = append(lvl.Entries, Entry{
			Item:            &entries[i].Item,
			PlaylistEntryID: entries[i].EntryID,
		})
	}
	return lvl, nil
}

// loadChannel builds the level listing a channel's videos, newest first.
func (c *Controller) loadChannel(ch *models.Channel) (*Level, error) {
	videos, err := c.db.VideosForChannel(ch.ID)
	if err != nil {
		return nil, err
	}
	lvl := &Level{
		Section:   SectionChannels,
		Title:     ch.Name,
		ChannelID: ch.ID,
	}
	for i := range videos {
		lvl.Entries = append(lvl.Entries, Entry{Item: &models.MediaItem{Video: &videos[i]}})
	}
	return lvl, nil
}

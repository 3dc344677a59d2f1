package controller

import (
	"vibrato/internal/player"
	"vibrato/internal/scanner"
	"vibrato/pkg/models"
)

// playFromLevel starts playback of the leaf at the given entry index and
// makes the level's leaves the playback context.
func (c *Controller) playFromLevel(lvl *Level, index int) {
	items := make([]models.MediaItem, 0, len(lvl.Entries))
	playIndex := -1
	for i, e := range lvl.Entries {
		if e.Item == nil {
			continue
		}
		if i == index {
			playIndex = len(items)
		}
		items = append(items, *e.Item)
	}
	if playIndex < 0 {
		return
	}

	c.playItems = items
	c.playIndex = playIndex
	c.playedPass = map[int]bool{playIndex: true}
	c.playItem(&items[playIndex])
}

// playItem hands an item to the backend and updates the player state.
func (c *Controller) playItem(item *models.MediaItem) {
	if err := c.backend.Play(c.ctx, item.URI()); err != nil {
		c.fail("play", err)
		return
	}
	c.state.SetCurrent(item)
	c.setStatus("Playing: %s - %s", item.Artist(), item.Title())
}

// togglePauseOrPlay pauses/resumes when something is loaded, otherwise plays
// the current selection.
func (c *Controller) togglePauseOrPlay() {
	status, ok := c.state.TogglePause()
	if !ok {
		c.selectCurrent()
		return
	}
	var err error
	if status == player.StatusPaused {
		err = c.backend.Pause()
	} else {
		err = c.backend.Resume()
	}
	if err != nil {
		c.fail("pause", err)
		return
	}
	c.setStatus("%s", status)
}

// playNext skips forward. A manual skip never replays the current item, even
// under repeat one.
func (c *Controller) playNext() {
	c.advance(false)
}

// playPrevious steps back within the playback context, clamped at the start
// unless repeat all wraps it.
func (c *Controller) playPrevious() {
	if len(c.playItems) == 0 {
		return
	}
	st := c.state.GetState()
	idx := c.playIndex - 1
	if idx < 0 {
		if st.Repeat == player.RepeatAll {
			idx = len(c.playItems) - 1
		} else {
			idx = 0
		}
	}
	c.playIndex = idx
	c.playedPass[idx] = true
	c.playItem(&c.playItems[idx])
}

// advance picks what plays next: the queue head first, then repeat-one
// replay (completion only), then the playback context per shuffle/repeat.
func (c *Controller) advance(afterCompletion bool) {
	head, err := c.db.PopQueueFront()
	if err != nil {
		c.fail("queue", err)
		return
	}
	if head != nil {
		c.playItem(head)
		if c.Current().Section == SectionQueue {
			c.Refresh()
		}
		return
	}

	st := c.state.GetState()

	// Repeat one overrides shuffle: the same item replays until the mode
	// changes or the user skips.
	if afterCompletion && st.Repeat == player.RepeatOne && st.Current != nil {
		c.playItem(st.Current)
		return
	}

	if len(c.playItems) == 0 {
		c.state.ClearCurrent()
		return
	}

	if st.Shuffle {
		c.advanceShuffle(st.Repeat)
		return
	}

	idx := c.playIndex + 1
	if idx >= len(c.playItems) {
		if st.Repeat != player.RepeatAll {
			c.state.ClearCurrent()
			c.setStatus("End of list")
			return
		}
		idx = 0
	}
	c.playIndex = idx
	c.playedPass[idx] = true
	c.playItem(&c.playItems[idx])
}

// advanceShuffle picks a random item not yet played this pass. When the pass
// is exhausted, repeat all starts a fresh pass uniform over the whole list
// and repeat off stops.
func (c *Controller) advanceShuffle(repeat player.RepeatMode) {
	var candidates []int
	for i := range c.playItems {
		if !c.playedPass[i] {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		if repeat != player.RepeatAll {
			c.state.ClearCurrent()
			c.setStatus("End of list")
			return
		}
		c.playedPass = map[int]bool{}
		for i := range c.playItems {
			candidates = append(candidates, i)
		}
	}

	idx := candidates[c.rng.Intn(len(candidates))]
	c.playIndex = idx
	c.playedPass[idx] = true
	c.playItem(&c.playItems[idx])
}

// ApplyPlayerEvent reacts to a backend lifecycle event. Called from the
// owning loop between keystrokes.
func (c *Controller) ApplyPlayerEvent(ev player.Event) {
	cur := c.state.GetState().Current

	switch ev.Kind {
	case player.EventStarted:
		if cur == nil {
			return
		}
		if err := c.db.MarkStarted(cur.Ref()); err != nil {
			c.logger.WithError(err).Warn("Failed to mark playback started")
		}
	case player.EventCompleted:
		if cur != nil {
			if err := c.db.RecordPlay(cur.Ref()); err != nil {
				c.logger.WithError(err).Warn("Failed to record play")
			}
		}
		c.advance(true)
	case player.EventFailed:
		c.state.ClearCurrent()
		c.setStatus("Playback failed: %v", ev.Err)
	}
}

// ApplyScanProgress surfaces background scan progress in the status line.
func (c *Controller) ApplyScanProgress(p scanner.Progress) {
	switch p.Kind {
	case scanner.RootStarted:
		c.setStatus("Scanning %s...", p.Root)
	case scanner.FileScanned:
		c.setStatus("Scanning: %d found, %d new", p.Found, p.Added)
	case scanner.ScanCompleted:
		c.setStatus("Scan complete: %d new, %d updated", p.Added, p.Updated)
		if c.Current().Section == SectionLibrary {
			c.Refresh()
		}
	}
}

package controller

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vibrato/internal/database"
	"vibrato/internal/player"
	"vibrato/internal/youtube"
	"vibrato/pkg/models"
)

// KeyKind classifies a decoded keystroke.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyEscape
	KeyBackspace
)

// Key is one decoded keystroke from the terminal reader.
type Key struct {
	Kind KeyKind
	Rune rune
}

// Section identifies a top-level browsing section.
type Section int

const (
	SectionLibrary Section = iota
	SectionPlaylists
	SectionQueue
	SectionChannels
	SectionRecentlyAdded
	SectionRecentlyPlayed
)

var sectionNames = map[Section]string{
	SectionLibrary:        "Library",
	SectionPlaylists:      "Playlists",
	SectionQueue:          "Queue",
	SectionChannels:       "Channels",
	SectionRecentlyAdded:  "Recently Added",
	SectionRecentlyPlayed: "Recently Played",
}

// String returns the section's display name.
func (s Section) String() string {
	return sectionNames[s]
}

// Modal identifies which modal overlay, if any, is active.
type Modal int

const (
	ModalNone Modal = iota
	ModalHelp
	ModalConfirm
	ModalInput
)

// inputPurpose says what a committed text input does.
type inputPurpose int

const (
	inputSearch inputPurpose = iota
	inputNewPlaylist
	inputRenamePlaylist
	inputAddChannel
)

// Entry is one row of a browsing level: a playable item or a container.
type Entry struct {
	Item     *models.MediaItem
	Playlist *models.Playlist
	Channel  *models.Channel

	// Set for rows backed by a queue or playlist entry, for removal.
	QueueEntryID    int64
	PlaylistEntryID int64
}

// IsContainer reports whether selecting the entry descends a level.
func (e Entry) IsContainer() bool {
	return e.Playlist != nil || e.Channel != nil
}

// Label returns the entry's display text.
func (e Entry) Label() string {
	switch {
	case e.Playlist != nil:
		return e.Playlist.Name
	case e.Channel != nil:
		return e.Channel.Name
	case e.Item != nil:
		return fmt.Sprintf("%s - %s", e.Item.Artist(), e.Item.Title())
	}
	return ""
}

// Level is one frame of the navigation stack.
type Level struct {
	Section    Section
	Title      string
	Entries    []Entry
	Index      int
	PlaylistID int64
	ChannelID  int64

	// Full entry set while a search filter narrows Entries.
	unfiltered []Entry
	query      string
}

// Controller is the navigation and playback state machine. It is not safe
// for concurrent use; the owning loop feeds it keystrokes and events one at
// a time.
type Controller struct {
	ctx     context.Context
	db      *database.Database
	backend player.Backend
	state   *player.StateManager
	fetcher *youtube.Fetcher
	logger  *logrus.Logger
	rng     *rand.Rand

	stack  []*Level
	modal  Modal
	status string
	quit   bool

	confirmPrompt string
	confirmAction func() error

	inputBuf     []rune
	inputWhat    inputPurpose
	inputPrompt  string
	renameTarget int64

	// Playback context: the flat item list the advance logic walks.
	playItems  []models.MediaItem
	playIndex  int
	playedPass map[int]bool
}

// New creates a controller rooted at the Library section. fetcher may be
// nil, which disables channel subscription and syncing.
func New(ctx context.Context, db *database.Database, backend player.Backend, state *player.StateManager, fetcher *youtube.Fetcher, logger *logrus.Logger) (*Controller, error) {
	c := &Controller{
		ctx:     ctx,
		db:      db,
		backend: backend,
		state:   state,
		fetcher: fetcher,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	root, err := c.loadSection(SectionLibrary)
	if err != nil {
		return nil, err
	}
	c.stack = []*Level{root}
	return c, nil
}

// Quitting reports whether the user asked to exit.
func (c *Controller) Quitting() bool {
	return c.quit
}

// Status returns the transient status line.
func (c *Controller) Status() string {
	return c.status
}

// ActiveModal returns the current modal overlay.
func (c *Controller) ActiveModal() Modal {
	return c.modal
}

// ConfirmPrompt returns the pending confirmation question.
func (c *Controller) ConfirmPrompt() string {
	return c.confirmPrompt
}

// InputPrompt returns the text-input prompt and current buffer.
func (c *Controller) InputPrompt() (string, string) {
	return c.inputPrompt, string(c.inputBuf)
}

// Current returns the top navigation level.
func (c *Controller) Current() *Level {
	return c.stack[len(c.stack)-1]
}

// setStatus replaces the status line.
func (c *Controller) setStatus(format string, args ...interface{}) {
	c.status = fmt.Sprintf(format, args...)
}

// fail logs an operation error and surfaces it in the status line.
func (c *Controller) fail(op string, err error) {
	c.logger.WithError(err).WithField("op", op).Warn("Operation failed")
	c.setStatus("%s failed: %v", op, err)
}

// Handle processes one keystroke.
func (c *Controller) Handle(key Key) {
	switch c.modal {
	case ModalHelp:
		c.modal = ModalNone
		return
	case ModalConfirm:
		c.handleConfirmKey(key)
		return
	case ModalInput:
		c.handleInputKey(key)
		return
	}

	switch key.Kind {
	case KeyUp:
		c.move(-1)
		return
	case KeyDown:
		c.move(1)
		return
	case KeyLeft, KeyBackspace:
		c.pop()
		return
	case KeyEnter:
		c.selectCurrent()
		return
	case KeyEscape:
		c.clearFilter()
		return
	case KeyRune:
		// Fall through to the rune map.
	default:
		return
	}

	switch key.Rune {
	case 'q':
		c.quit = true
	case '?':
		c.modal = ModalHelp
	case '/':
		c.openSearch()
	case 'j':
		c.move(1)
	case 'k':
		c.move(-1)
	case 'h':
		c.pop()
	case ' ':
		c.togglePauseOrPlay()
	case 'n':
		c.playNext()
	case 'p':
		c.playPrevious()
	case 'S':
		on := c.state.ToggleShuffle()
		c.setStatus("Shuffle: %v", on)
	case 'r':
		mode := c.state.CycleRepeat()
		c.setStatus("Repeat: %s", mode)
	case 'a':
		c.enqueueSelection()
	case 'u':
		c.removeQueueSelection()
	case 'd':
		c.deleteSelection()
	case 'c':
		c.openCreate()
	case 'R':
		c.openRenamePlaylist()
	case 's':
		c.syncChannelSelection()
	case '1', '2', '3', '4', '5', '6':
		c.jumpToSection(Section(key.Rune - '1'))
	}
}

// move shifts the selection, clamped to [0, len-1]. Empty lists stay put.
func (c *Controller) move(delta int) {
	lvl := c.Current()
	if len(lvl.Entries) == 0 {
		return
	}
	lvl.Index += delta
	if lvl.Index < 0 {
		lvl.Index = 0
	}
	if lvl.Index >= len(lvl.Entries) {
		lvl.Index = len(lvl.Entries) - 1
	}
}

// pop returns to the parent level. The root level stays.
func (c *Controller) pop() {
	if len(c.stack) > 1 {
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// jumpToSection replaces the stack with the given section's root level.
func (c *Controller) jumpToSection(s Section) {
	lvl, err := c.loadSection(s)
	if err != nil {
		c.fail("load section", err)
		return
	}
	c.stack = []*Level{lvl}
}

// selectCurrent acts on the selected entry: descend into a container or
// start playing a leaf.
func (c *Controller) selectCurrent() {
	lvl := c.Current()
	if len(lvl.Entries) == 0 {
		return
	}
	entry := lvl.Entries[lvl.Index]

	switch {
	case entry.Playlist != nil:
		child, err := c.loadPlaylist(entry.Playlist)
		if err != nil {
			c.fail("open playlist", err)
			return
		}
		c.stack = append(c.stack, child)
	case entry.Channel != nil:
		child, err := c.loadChannel(entry.Channel)
		if err != nil {
			c.fail("open channel", err)
			return
		}
		c.stack = append(c.stack, child)
	case entry.Item != nil:
		c.playFromLevel(lvl, lvl.Index)
	}
}

// Refresh reloads the top level's entries, keeping the selection clamped.
func (c *Controller) Refresh() {
	lvl := c.Current()
	var (
		fresh *Level
		err   error
	)
	switch {
	case lvl.PlaylistID != 0:
		pl := &models.Playlist{ID: lvl.PlaylistID, Name: lvl.Title}
		fresh, err = c.loadPlaylist(pl)
	case lvl.ChannelID != 0:
		ch := &models.Channel{ID: lvl.ChannelID, Name: lvl.Title}
		fresh, err = c.loadChannel(ch)
	default:
		fresh, err = c.loadSection(lvl.Section)
	}
	if err != nil {
		c.fail("refresh", err)
		return
	}
	fresh.Index = lvl.Index
	if fresh.Index >= len(fresh.Entries) {
		fresh.Index = len(fresh.Entries) - 1
	}
	if fresh.Index < 0 {
		fresh.Index = 0
	}
	c.stack[len(c.stack)-1] = fresh
}

// handleConfirmKey runs the pending action on 'y' and cancels otherwise.
func (c *Controller) handleConfirmKey(key Key) {
	action := c.confirmAction
	c.modal = ModalNone
	c.confirmAction = nil
	c.confirmPrompt = ""

	if key.Kind != KeyRune || key.Rune != 'y' {
		c.setStatus("Cancelled")
		return
	}
	if action == nil {
		return
	}
	if err := action(); err != nil {
		c.fail("confirm action", err)
		return
	}
	c.Refresh()
}

// askConfirm arms the confirmation modal.
func (c *Controller) askConfirm(prompt string, action func() error) {
	c.modal = ModalConfirm
	c.confirmPrompt = prompt
	c.confirmAction = action
}

// handleInputKey edits the text-input buffer. Search narrows live.
func (c *Controller) handleInputKey(key Key) {
	switch key.Kind {
	case KeyEscape:
		c.modal = ModalNone
		c.inputBuf = nil
		if c.inputWhat == inputSearch {
			c.clearFilter()
		}
	case KeyBackspace:
		if len(c.inputBuf) > 0 {
			c.inputBuf = c.inputBuf[:len(c.inputBuf)-1]
		}
		if c.inputWhat == inputSearch {
			c.applyFilter(string(c.inputBuf))
		}
	case KeyEnter:
		c.commitInput()
	case KeyRune:
		c.inputBuf = append(c.inputBuf, key.Rune)
		if c.inputWhat == inputSearch {
			c.applyFilter(string(c.inputBuf))
		}
	}
}

// commitInput finishes the active text input.
func (c *Controller) commitInput() {
	text := strings.TrimSpace(string(c.inputBuf))
	c.modal = ModalNone
	c.inputBuf = nil

	switch c.inputWhat {
	case inputSearch:
		// Filter stays applied until cleared with Escape.
	case inputNewPlaylist:
		if text == "" {
			c.setStatus("Playlist name cannot be empty")
			return
		}
		if _, err := c.db.CreatePlaylist(text); err != nil {
			c.fail("create playlist", err)
			return
		}
		c.setStatus("Created playlist %q", text)
		c.Refresh()
	case inputRenamePlaylist:
		if text == "" {
			c.setStatus("Playlist name cannot be empty")
			return
		}
		if err := c.db.RenamePlaylist(c.renameTarget, text); err != nil {
			c.fail("rename playlist", err)
			return
		}
		c.setStatus("Renamed playlist to %q", text)
		c.Refresh()
	case inputAddChannel:
		if text == "" {
			return
		}
		c.addChannel(text)
	}
}

// openSearch starts an incremental substring filter over the current level.
func (c *Controller) openSearch() {
	c.modal = ModalInput
	c.inputWhat = inputSearch
	c.inputPrompt = "Search"
	c.inputBuf = nil

	lvl := c.Current()
	if lvl.unfiltered == nil {
		lvl.unfiltered = lvl.Entries
	}
}

// openCreate prompts for a new playlist name or a channel to subscribe,
// depending on the section.
func (c *Controller) openCreate() {
	switch c.Current().Section {
	case SectionPlaylists:
		c.modal = ModalInput
		c.inputWhat = inputNewPlaylist
		c.inputPrompt = "New playlist name"
		c.inputBuf = nil
	case SectionChannels:
		if c.fetcher == nil {
			c.setStatus("Channel subscriptions are disabled")
			return
		}
		c.modal = ModalInput
		c.inputWhat = inputAddChannel
		c.inputPrompt = "Channel id or URL"
		c.inputBuf = nil
	}
}

// addChannel subscribes to a channel and syncs its uploads.
func (c *Controller) addChannel(input string) {
	channelID, name, url, err := c.fetcher.ResolveChannel(c.ctx, input)
	if err != nil {
		c.fail("add channel", err)
		return
	}
	rowID, err := c.db.AddChannel(channelID, name, nil, url, nil)
	if err != nil {
		c.fail("add channel", err)
		return
	}
	added, err := c.fetcher.SyncChannel(c.ctx, c.db, rowID)
	if err != nil {
		c.fail("sync channel", err)
		return
	}
	c.setStatus("Subscribed to %s (%d videos)", name, added)
	c.Refresh()
}

// syncChannelSelection refreshes the selected channel's uploads.
func (c *Controller) syncChannelSelection() {
	lvl := c.Current()
	if lvl.Section != SectionChannels || len(lvl.Entries) == 0 || c.fetcher == nil {
		return
	}
	entry := lvl.Entries[lvl.Index]
	if entry.Channel == nil {
		return
	}
	added, err := c.fetcher.SyncChannel(c.ctx, c.db, entry.Channel.ID)
	if err != nil {
		c.fail("sync channel", err)
		return
	}
	c.setStatus("Synced %s: %d new video(s)", entry.Channel.Name, added)
	c.Refresh()
}

// openRenamePlaylist prompts for the selected playlist's new name.
func (c *Controller) openRenamePlaylist() {
	lvl := c.Current()
	if lvl.Section != SectionPlaylists || len(lvl.Entries) == 0 {
		return
	}
	entry := lvl.Entries[lvl.Index]
	if entry.Playlist == nil {
		return
	}
	c.modal = ModalInput
	c.inputWhat = inputRenamePlaylist
	c.inputPrompt = fmt.Sprintf("Rename %q to", entry.Playlist.Name)
	c.inputBuf = nil
	c.renameTarget = entry.Playlist.ID
}

// applyFilter narrows the current level's entries by a case-insensitive
// substring over the entries' searchable text.
func (c *Controller) applyFilter(query string) {
	lvl := c.Current()
	if lvl.unfiltered == nil {
		lvl.unfiltered = lvl.Entries
	}
	lvl.query = query

	if query == "" {
		lvl.Entries = lvl.unfiltered
		c.clampIndex(lvl)
		return
	}

	needle := strings.ToLower(query)
	filtered := make([]Entry, 0, len(lvl.unfiltered))
	for _, e := range lvl.unfiltered {
		if strings.Contains(entrySearchText(e), needle) {
			filtered = append(filtered, e)
		}
	}
	lvl.Entries = filtered
	lvl.Index = 0
}

// clearFilter restores the full entry list.
func (c *Controller) clearFilter() {
	lvl := c.Current()
	if lvl.unfiltered == nil {
		return
	}
	lvl.Entries = lvl.unfiltered
	lvl.unfiltered = nil
	lvl.query = ""
	c.clampIndex(lvl)
}

func (c *Controller) clampIndex(lvl *Level) {
	if lvl.Index >= len(lvl.Entries) {
		lvl.Index = len(lvl.Entries) - 1
	}
	if lvl.Index < 0 {
		lvl.Index = 0
	}
}

func entrySearchText(e Entry) string {
	switch {
	case e.Item != nil:
		return e.Item.SearchText()
	case e.Playlist != nil:
		return strings.ToLower(e.Playlist.Name)
	case e.Channel != nil:
		return strings.ToLower(e.Channel.Name)
	}
	return ""
}

// enqueueSelection appends the selected leaf to the playback queue without
// touching playback state.
func (c *Controller) enqueueSelection() {
	lvl := c.Current()
	if len(lvl.Entries) == 0 {
		return
	}
	entry := lvl.Entries[lvl.Index]
	if entry.Item == nil {
		return
	}
	if _, err := c.db.Enqueue(entry.Item.Ref()); err != nil {
		c.fail("enqueue", err)
		return
	}
	c.setStatus("Queued: %s", entry.Item.Title())
	if lvl.Section == SectionQueue {
		c.Refresh()
	}
}

// removeQueueSelection removes the selected queue entry.
func (c *Controller) removeQueueSelection() {
	lvl := c.Current()
	if lvl.Section != SectionQueue || len(lvl.Entries) == 0 {
		return
	}
	entry := lvl.Entries[lvl.Index]
	if entry.QueueEntryID == 0 {
		return
	}
	if err := c.db.RemoveQueueEntry(entry.QueueEntryID); err != nil {
		c.fail("remove from queue", err)
		return
	}
	c.setStatus("Removed from queue")
	c.Refresh()
}

// deleteSelection routes destructive deletes through the confirm modal.
func (c *Controller) deleteSelection() {
	lvl := c.Current()
	if len(lvl.Entries) == 0 {
		return
	}
	entry := lvl.Entries[lvl.Index]

	switch {
	case entry.Playlist != nil:
		pl := entry.Playlist
		c.askConfirm(fmt.Sprintf("Delete playlist %q? [y/N]", pl.Name), func() error {
			return c.db.DeletePlaylist(pl.ID)
		})
	case entry.Channel != nil:
		ch := entry.Channel
		c.askConfirm(fmt.Sprintf("Delete channel %q and its videos? [y/N]", ch.Name), func() error {
			return c.db.DeleteChannel(ch.ID)
		})
	case entry.PlaylistEntryID != 0:
		id := entry.PlaylistEntryID
		c.askConfirm("Remove entry from playlist? [y/N]", func() error {
			return c.db.RemovePlaylistEntry(id)
		})
	case entry.Item != nil && entry.Item.Track != nil:
		track := entry.Item.Track
		c.askConfirm(fmt.Sprintf("Remove %q from the library? [y/N]", track.DisplayTitle()), func() error {
			_, err := c.db.DeleteTracks([]string{track.Filename})
			return err
		})
	}
}

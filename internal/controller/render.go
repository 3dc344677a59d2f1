package controller

import (
	"fmt"
	"io"
	"strings"

	"vibrato/internal/metadata"
	"vibrato/internal/player"
)

const visibleRows = 20

var helpText = `  Keys
  ----
  j/k, Up/Down     move selection
  Enter            open / play
  h, Left, Bksp    back
  Space            pause / play
  n / p            next / previous
  S                toggle shuffle
  r                cycle repeat (off, all, one)
  a                add to queue
  u                remove from queue
  d                delete (asks first)
  c / R            new / rename playlist (add channel in Channels)
  s                sync selected channel
  1-6              Library, Playlists, Queue, Channels,
                   Recently Added, Recently Played
  /                search (Esc clears)
  ?                this help
  q                quit

  press any key to close`

// Render writes the full screen state: breadcrumb, entry window, playback
// line and status line, or the active modal.
func (c *Controller) Render(w io.Writer) {
	switch c.modal {
	case ModalHelp:
		fmt.Fprintln(w, helpText)
		return
	case ModalConfirm:
		fmt.Fprintln(w, c.confirmPrompt)
		return
	case ModalInput:
		fmt.Fprintf(w, "%s: %s_\n", c.inputPrompt, string(c.inputBuf))
		if c.inputWhat != inputSearch {
			return
		}
		// Search renders the narrowed list under the prompt.
	}

	fmt.Fprintln(w, c.breadcrumb())
	fmt.Fprintln(w, strings.Repeat("-", len(c.breadcrumb())))

	lvl := c.Current()
	if len(lvl.Entries) == 0 {
		fmt.Fprintln(w, "  (empty)")
	} else {
		start, end := windowBounds(lvl.Index, len(lvl.Entries))
		for i := start; i < end; i++ {
			marker := "  "
			if i == lvl.Index {
				marker = "> "
			}
			fmt.Fprintf(w, "%s%s\n", marker, entryLine(lvl.Entries[i]))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, c.playbackLine())
	if c.status != "" {
		fmt.Fprintln(w, c.status)
	}
}

// breadcrumb joins the navigation stack titles.
func (c *Controller) breadcrumb() string {
	parts := make([]string, len(c.stack))
	for i, lvl := range c.stack {
		parts[i] = lvl.Title
	}
	return strings.Join(parts, " / ")
}

// entryLine formats one list row, with duration for playable items.
func entryLine(e Entry) string {
	if e.Item != nil {
		return fmt.Sprintf("%-50.50s %s", e.Label(), metadata.FormatDuration(e.Item.DurationSeconds()))
	}
	return e.Label()
}

// playbackLine formats the now-playing footer.
func (c *Controller) playbackLine() string {
	st := c.state.GetState()
	modes := fmt.Sprintf("[shuffle %s] [repeat %s]", onOff(st.Shuffle), st.Repeat)
	if st.Current == nil || st.Status == player.StatusStopped {
		return fmt.Sprintf("Stopped  %s", modes)
	}
	return fmt.Sprintf("%s: %s - %s  %s", st.Status, st.Current.Artist(), st.Current.Title(), modes)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// windowBounds keeps the selection inside a fixed-height viewport.
func windowBounds(index, n int) (int, int) {
	if n <= visibleRows {
		return 0, n
	}
	start := index - visibleRows/2
	if start < 0 {
		start = 0
	}
	end := start + visibleRows
	if end > n {
		end = n
		start = end - visibleRows
	}
	return start, end
}

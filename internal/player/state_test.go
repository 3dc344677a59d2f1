package player_test

import (
	"testing"

	"vibrato/internal/player"
	"vibrato/pkg/models"
)

func TestStateManager(t *testing.T) {
	sm := player.NewStateManager(false, player.RepeatOff)

	t.Run("InitialState", func(t *testing.T) {
		st := sm.GetState()
		if st.Status != player.StatusStopped || st.Current != nil {
			t.Errorf("Expected stopped empty state, got %+v", st)
		}
	})

	t.Run("TogglePauseWhileStopped", func(t *testing.T) {
		if _, ok := sm.TogglePause(); ok {
			t.Error("Expected toggle to fail with nothing loaded")
		}
	})

	t.Run("SetCurrentStartsPlaying", func(t *testing.T) {
		item := &models.MediaItem{Track: &models.Track{Filename: "x.mp3"}}
		sm.SetCurrent(item)

		st := sm.GetState()
		if st.Status != player.StatusPlaying {
			t.Errorf("Expected playing, got %s", st.Status)
		}
		if st.Current == nil || st.Current.Track.Filename != "x.mp3" {
			t.Errorf("Expected current item, got %+v", st.Current)
		}
	})

	t.Run("TogglePause", func(t *testing.T) {
		status, ok := sm.TogglePause()
		if !ok || status != player.StatusPaused {
			t.Errorf("Expected paused, got %s ok=%v", status, ok)
		}
		status, ok = sm.TogglePause()
		if !ok || status != player.StatusPlaying {
			t.Errorf("Expected playing, got %s ok=%v", status, ok)
		}
	})

	t.Run("CycleRepeat", func(t *testing.T) {
		if mode := sm.CycleRepeat(); mode != player.RepeatAll {
			t.Errorf("Expected all, got %s", mode)
		}
		if mode := sm.CycleRepeat(); mode != player.RepeatOne {
			t.Errorf("Expected one, got %s", mode)
		}
		if mode := sm.CycleRepeat(); mode != player.RepeatOff {
			t.Errorf("Expected off, got %s", mode)
		}
	})

	t.Run("ToggleShuffle", func(t *testing.T) {
		if !sm.ToggleShuffle() {
			t.Error("Expected shuffle on")
		}
		if sm.ToggleShuffle() {
			t.Error("Expected shuffle off")
		}
	})

	t.Run("SubscribeReceivesUpdates", func(t *testing.T) {
		ch := sm.Subscribe()
		defer sm.Unsubscribe(ch)

		sm.ClearCurrent()

		st := <-ch
		if st.Status != player.StatusStopped || st.Current != nil {
			t.Errorf("Expected stop notification, got %+v", st)
		}
	})
}

func TestSlowSubscribersAreDropped(t *testing.T) {
	sm := player.NewStateManager(false, player.RepeatOff)

	// Two subscribers that never drain overflow in the same update pass.
	first := sm.Subscribe()
	second := sm.Subscribe()

	item := &models.MediaItem{Track: &models.Track{Filename: "x.mp3"}}
	for i := 0; i < 12; i++ {
		sm.SetCurrent(item)
	}

	// Both channels hold a full buffer and are then closed, not blocked.
	for _, ch := range []<-chan *player.State{first, second} {
		n := 0
		for range ch {
			n++
		}
		if n == 0 {
			t.Error("Expected buffered updates before the drop")
		}
	}

	// The manager keeps serving new subscribers after dropping the slow ones.
	fresh := sm.Subscribe()
	defer sm.Unsubscribe(fresh)
	sm.ClearCurrent()
	st := <-fresh
	if st.Status != player.StatusStopped {
		t.Errorf("Expected stop notification, got %+v", st)
	}
}

func TestRepeatModeStrings(t *testing.T) {
	cases := []struct {
		mode player.RepeatMode
		cfg  string
	}{
		{player.RepeatOff, "off"},
		{player.RepeatAll, "all"},
		{player.RepeatOne, "one"},
	}
	for _, tc := range cases {
		if got := tc.mode.ConfigString(); got != tc.cfg {
			t.Errorf("ConfigString(%s) = %q, want %q", tc.mode, got, tc.cfg)
		}
		if got := player.ParseRepeatMode(tc.cfg); got != tc.mode {
			t.Errorf("ParseRepeatMode(%q) = %s, want %s", tc.cfg, got, tc.mode)
		}
	}
	if got := player.ParseRepeatMode("bogus"); got != player.RepeatOff {
		t.Errorf("Expected off for unknown mode, got %s", got)
	}
}

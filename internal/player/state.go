package player

import (
	"sync"
	"time"

	"vibrato/pkg/models"
)

// Status is the coarse playback status.
type Status int

const (
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

// String returns a display label for the status.
func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	default:
		return "Stopped"
	}
}

// RepeatMode controls what happens when the current item completes.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns a display label for the repeat mode.
func (r RepeatMode) String() string {
	switch r {
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Off"
	}
}

// ParseRepeatMode maps a config string to a repeat mode, defaulting to off.
func ParseRepeatMode(s string) RepeatMode {
	switch s {
	case "all":
		return RepeatAll
	case "one":
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ConfigString maps a repeat mode back to its config string.
func (r RepeatMode) ConfigString() string {
	switch r {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// State represents the current player state.
type State struct {
	Current   *models.MediaItem
	Status    Status
	Shuffle   bool
	Repeat    RepeatMode
	UpdatedAt time.Time
}

// StateManager manages the player state and notifies listeners
type StateManager struct {
	state     *State
	mutex     sync.RWMutex
	listeners []chan *State
}

// NewStateManager creates a new player state manager
func NewStateManager(shuffle bool, repeat RepeatMode) *StateManager {
	return &StateManager{
		state: &State{
			Status:    StatusStopped,
			Shuffle:   shuffle,
			Repeat:    repeat,
			UpdatedAt: time.Now(),
		},
		listeners: make([]chan *State, 0),
	}
}

// GetState returns the current player state (thread-safe)
func (sm *StateManager) GetState() *State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	// Create a copy to avoid race conditions
	stateCopy := *sm.state
	return &stateCopy
}

// SetCurrent updates the currently playing item and marks playback started.
func (sm *StateManager) SetCurrent(item *models.MediaItem) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Current = item
	sm.state.Status = StatusPlaying
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// SetStatus updates the playback status.
func (sm *StateManager) SetStatus(status Status) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Status = status
	if status == StatusStopped {
		sm.state.Current = nil
	}
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// TogglePause flips between playing and paused. Returns the new status and
// false when nothing is loaded.
func (sm *StateManager) TogglePause() (Status, bool) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	switch sm.state.Status {
	case StatusPlaying:
		sm.state.Status = StatusPaused
	case StatusPaused:
		sm.state.Status = StatusPlaying
	default:
		return StatusStopped, false
	}
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
	return sm.state.Status, true
}

// ToggleShuffle flips the shuffle flag and returns the new value.
func (sm *StateManager) ToggleShuffle() bool {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Shuffle = !sm.state.Shuffle
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
	return sm.state.Shuffle
}

// CycleRepeat advances Off -> All -> One -> Off and returns the new mode.
func (sm *StateManager) CycleRepeat() RepeatMode {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	switch sm.state.Repeat {
	case RepeatOff:
		sm.state.Repeat = RepeatAll
	case RepeatAll:
		sm.state.Repeat = RepeatOne
	default:
		sm.state.Repeat = RepeatOff
	}
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
	return sm.state.Repeat
}

// ClearCurrent clears the current item (when playback stops).
func (sm *StateManager) ClearCurrent() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.state.Current = nil
	sm.state.Status = StatusStopped
	sm.state.UpdatedAt = time.Now()
	sm.notifyListeners()
}

// Subscribe adds a listener for state changes
func (sm *StateManager) Subscribe() <-chan *State {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	ch := make(chan *State, 10) // Buffered channel to prevent blocking
	sm.listeners = append(sm.listeners, ch)
	return ch
}

// Unsubscribe removes a listener (call this when done to prevent memory leaks)
func (sm *StateManager) Unsubscribe(ch <-chan *State) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for i, listener := range sm.listeners {
		if listener == ch {
			close(listener)
			sm.listeners = append(sm.listeners[:i], sm.listeners[i+1:]...)
			break
		}
	}
}

// notifyListeners sends state updates to all subscribers (must be called with
// lock held). Full listeners are dropped; the surviving set is rebuilt after
// the loop so removal never shifts the slice mid-iteration.
func (sm *StateManager) notifyListeners() {
	stateCopy := *sm.state
	kept := sm.listeners[:0]
	for _, listener := range sm.listeners {
		select {
		case listener <- &stateCopy:
			kept = append(kept, listener)
		default:
			// Listener stopped draining; drop it.
			close(listener)
		}
	}
	sm.listeners = kept
}

package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventKind classifies a playback lifecycle event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventCompleted
	EventFailed
)

// Event is emitted by a backend as playback progresses.
type Event struct {
	Kind EventKind
	URI  string
	Err  error
}

// Backend abstracts an external playback engine. Play replaces whatever is
// currently loaded.
type Backend interface {
	Play(ctx context.Context, uri string) error
	Pause() error
	Resume() error
	Stop() error
	Events() <-chan Event
	Close() error
}

// MPVBackend drives a per-item mpv process over its JSON IPC socket.
type MPVBackend struct {
	mpvPath   string
	audioOnly bool
	logger    *logrus.Logger

	mutex   sync.Mutex
	cmd     *exec.Cmd
	conn    net.Conn
	socket  string
	current string
	gen     uint64

	events chan Event
}

// NewMPVBackend creates a backend using the given mpv binary. It fails when
// the binary cannot be found.
func NewMPVBackend(mpvPath string, audioOnly bool, logger *logrus.Logger) (*MPVBackend, error) {
	if mpvPath == "" {
		mpvPath = "mpv"
	}
	resolved, err := exec.LookPath(mpvPath)
	if err != nil {
		return nil, fmt.Errorf("mpv not found: %w", err)
	}

	return &MPVBackend{
		mpvPath:   resolved,
		audioOnly: audioOnly,
		logger:    logger,
		events:    make(chan Event, 16),
	}, nil
}

// Events returns the backend's event stream.
func (b *MPVBackend) Events() <-chan Event {
	return b.events
}

// Play stops any current playback and starts the given URI in a fresh mpv
// process.
func (b *MPVBackend) Play(ctx context.Context, uri string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.stopLocked()

	socket := filepath.Join(os.TempDir(), fmt.Sprintf("vibrato-mpv-%s.sock", uuid.New().String()[:8]))

	args := []string{
		"--input-ipc-server=" + socket,
		"--idle=no",
		"--really-quiet",
		"--no-terminal",
	}
	if b.audioOnly {
		args = append(args, "--no-video")
	}
	args = append(args, "--", uri)

	cmd := exec.CommandContext(ctx, b.mpvPath, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start mpv: %w", err)
	}

	b.cmd = cmd
	b.socket = socket
	b.current = uri
	b.conn = nil
	b.gen++
	gen := b.gen

	b.emit(Event{Kind: EventStarted, URI: uri})
	b.logger.WithFields(logrus.Fields{
		"uri":    uri,
		"socket": socket,
	}).Debug("Started mpv playback")

	go b.waitForExit(cmd, uri, gen)
	return nil
}

// waitForExit reports process termination as completion or failure. A stop
// or replacement bumps the generation so stale exits stay silent.
func (b *MPVBackend) waitForExit(cmd *exec.Cmd, uri string, gen uint64) {
	err := cmd.Wait()

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.gen != gen {
		return
	}
	b.cmd = nil
	b.closeConnLocked()

	if err != nil {
		b.emit(Event{Kind: EventFailed, URI: uri, Err: err})
		b.logger.WithError(err).WithField("uri", uri).Warn("mpv exited with error")
		return
	}
	b.emit(Event{Kind: EventCompleted, URI: uri})
}

// Pause pauses the current item.
func (b *MPVBackend) Pause() error {
	return b.setProperty("pause", true)
}

// Resume resumes the current item.
func (b *MPVBackend) Resume() error {
	return b.setProperty("pause", false)
}

// Stop terminates the current mpv process, if any.
func (b *MPVBackend) Stop() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.stopLocked()
	return nil
}

// Close stops playback and closes the event channel.
func (b *MPVBackend) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.stopLocked()
	close(b.events)
	return nil
}

// stopLocked kills the current process without emitting events. Must be
// called with the mutex held.
func (b *MPVBackend) stopLocked() {
	b.gen++
	if b.cmd != nil && b.cmd.Process != nil {
		_ = b.cmd.Process.Kill()
		go b.cmd.Wait()
	}
	b.cmd = nil
	b.current = ""
	b.closeConnLocked()
}

func (b *MPVBackend) closeConnLocked() {
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	if b.socket != "" {
		os.Remove(b.socket)
		b.socket = ""
	}
}

// setProperty sends a set_property command over the IPC socket.
func (b *MPVBackend) setProperty(name string, value interface{}) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.cmd == nil {
		return fmt.Errorf("no active playback")
	}

	conn, err := b.connLocked()
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		"command": []interface{}{"set_property", name, value},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mpv command: %w", err)
	}
	data = append(data, '\n')

	if _, err := conn.Write(data); err != nil {
		// Socket may have died with the process, drop it and retry once.
		b.conn = nil
		conn, err = b.connLocked()
		if err != nil {
			return err
		}
		if _, err := conn.Write(data); err != nil {
			return fmt.Errorf("failed to send mpv command: %w", err)
		}
	}
	return nil
}

// connLocked dials the IPC socket, waiting briefly for mpv to create it
// after startup. Must be called with the mutex held.
func (b *MPVBackend) connLocked() (net.Conn, error) {
	if b.conn != nil {
		return b.conn, nil
	}
	if b.socket == "" {
		return nil, fmt.Errorf("no active playback")
	}

	var lastErr error
	for i := 0; i < 20; i++ {
		conn, err := net.DialTimeout("unix", b.socket, 250*time.Millisecond)
		if err == nil {
			b.conn = conn
			return conn, nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	return nil, fmt.Errorf("failed to connect to mpv socket: %w", lastErr)
}

func (b *MPVBackend) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("Dropping player event, channel full")
	}
}

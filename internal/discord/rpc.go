package discord

import (
	"fmt"
	"time"

	"github.com/hugolgst/rich-go/client"
	"github.com/sirupsen/logrus"

	"vibrato/internal/config"
	"vibrato/internal/player"
)

// RPCService mirrors the now-playing item to Discord Rich Presence.
type RPCService struct {
	config    *config.DiscordConfig
	logger    *logrus.Logger
	enabled   bool
	connected bool
}

// NewRPCService creates a new Discord RPC service
func NewRPCService(cfg *config.DiscordConfig, logger *logrus.Logger) *RPCService {
	return &RPCService{
		config:  cfg,
		logger:  logger,
		enabled: cfg.Enabled,
	}
}

// Connect initializes the Discord RPC connection
func (d *RPCService) Connect() error {
	if !d.enabled || d.connected {
		return nil
	}

	if err := client.Login(d.config.ApplicationID); err != nil {
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}

	d.connected = true
	d.logger.Info("Connected to Discord RPC")

	d.SetIdle()
	return nil
}

// Disconnect closes the Discord RPC connection
func (d *RPCService) Disconnect() {
	if !d.enabled || !d.connected {
		return
	}

	client.Logout()
	d.connected = false
	d.logger.Info("Disconnected from Discord RPC")
}

// Run follows player state updates until the subscription closes. Meant to
// be started as a goroutine with a StateManager subscription.
func (d *RPCService) Run(updates <-chan *player.State) {
	for state := range updates {
		var err error
		if state.Current == nil || state.Status == player.StatusStopped {
			err = d.SetIdle()
		} else {
			err = d.updateNowPlaying(state)
		}
		if err != nil {
			d.logger.WithError(err).Debug("Discord presence update failed")
		}
	}
}

// updateNowPlaying shows the current item with a play/pause badge.
func (d *RPCService) updateNowPlaying(state *player.State) error {
	if !d.enabled || !d.connected {
		return nil
	}

	smallImageKey := "pause"
	smallImageText := "Paused"
	if state.Status == player.StatusPlaying {
		smallImageKey = "play"
		smallImageText = "Playing"
	}

	item := state.Current
	activity := client.Activity{
		Details:    item.Title(),
		State:      fmt.Sprintf("by %s", item.Artist()),
		LargeImage: d.config.LargeImageKey,
		LargeText:  "Vibrato",
		SmallImage: smallImageKey,
		SmallText:  smallImageText,
	}

	if state.Status == player.StatusPlaying {
		if secs := item.DurationSeconds(); secs != nil && *secs > 0 {
			start := time.Now()
			end := start.Add(time.Duration(*secs) * time.Second)
			activity.Timestamps = &client.Timestamps{
				Start: &start,
				End:   &end,
			}
		}
	}

	if err := client.SetActivity(activity); err != nil {
		return fmt.Errorf("failed to update Discord activity: %w", err)
	}
	return nil
}

// SetIdle sets Discord status to idle/not playing
func (d *RPCService) SetIdle() error {
	if !d.enabled || !d.connected {
		return nil
	}

	activity := client.Activity{
		Details:    "Browsing the library",
		State:      "Not playing",
		LargeImage: d.config.LargeImageKey,
		LargeText:  "Vibrato",
		SmallImage: "idle",
		SmallText:  "Idle",
	}

	if err := client.SetActivity(activity); err != nil {
		return fmt.Errorf("failed to set idle Discord activity: %w", err)
	}
	return nil
}

// IsEnabled returns whether Discord RPC is enabled
func (d *RPCService) IsEnabled() bool {
	return d.enabled
}

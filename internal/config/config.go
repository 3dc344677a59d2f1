package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// Config represents the application configuration shared by the player and
// the scan tool.
type Config struct {
	Library  LibraryConfig  `toml:"library"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Playback PlaybackConfig `toml:"playback"`
	YouTube  YouTubeConfig  `toml:"youtube"`
	Discord  DiscordConfig  `toml:"discord"`
}

// LibraryConfig contains the scanned roots and file-type allowlist.
type LibraryConfig struct {
	Folders          []string `toml:"folders"`
	SupportedFormats []string `toml:"supported_formats"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// DatabaseConfig contains the store location.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// PlaybackConfig contains the external player backend options and the
// persisted playback toggles.
type PlaybackConfig struct {
	MpvPath   string `toml:"mpv_path"`
	AudioOnly bool   `toml:"audio_only"`
	Shuffle   bool   `toml:"shuffle"`
	Repeat    string `toml:"repeat"` // off, all, one
}

// YouTubeConfig bounds channel metadata fetches.
type YouTubeConfig struct {
	FetchLimit int `toml:"fetch_limit"`
}

// DiscordConfig contains Discord Rich Presence settings.
type DiscordConfig struct {
	Enabled       bool   `toml:"enabled"`
	ApplicationID string `toml:"application_id"`
	LargeImageKey string `toml:"large_image_key"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./vibrato.toml"
	}
	return filepath.Join(dir, "vibrato", "config.toml")
}

// DefaultConfig returns a configuration with sensible defaults. The store
// lives next to the config file.
func DefaultConfig() *Config {
	dbPath := "./library.db"
	if dir, err := os.UserConfigDir(); err == nil {
		dbPath = filepath.Join(dir, "vibrato", "library.db")
	}
	return &Config{
		Library: LibraryConfig{
			Folders:          []string{},
			SupportedFormats: []string{".flac", ".mp3", ".wav", ".m4a"},
			WatchForChanges:  true,
			ScanOnStartup:    false,
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Playback: PlaybackConfig{
			MpvPath:   "mpv",
			AudioOnly: true,
			Shuffle:   false,
			Repeat:    "all",
		},
		YouTube: YouTubeConfig{
			FetchLimit: 100,
		},
		Discord: DiscordConfig{
			Enabled:       false,
			LargeImageKey: "vibrato",
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with defaults
// when absent.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file.
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Vibrato Media Library Configuration
# Shared by the vibrato player and the vibrato-scan tool.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if len(c.Library.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	validRepeat := map[string]bool{"off": true, "all": true, "one": true}
	if !validRepeat[c.Playback.Repeat] {
		return fmt.Errorf("invalid repeat mode: %s (must be off, all, or one)", c.Playback.Repeat)
	}

	if c.YouTube.FetchLimit < 0 {
		return fmt.Errorf("youtube fetch limit must not be negative")
	}

	return nil
}

// AddFolder adds a library root if not already configured.
func (c *Config) AddFolder(folder string) {
	for _, f := range c.Library.Folders {
		if f == folder {
			return
		}
	}
	c.Library.Folders = append(c.Library.Folders, folder)
}

// RemoveFolder removes a library root.
func (c *Config) RemoveFolder(folder string) {
	kept := c.Library.Folders[:0]
	for _, f := range c.Library.Folders {
		if f != folder {
			kept = append(kept, f)
		}
	}
	c.Library.Folders = kept
}

// NewLogger builds a logrus logger per the logging section.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	if c.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.Logging.File != "" {
		if f, err := os.OpenFile(c.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			logger.SetOutput(f)
		} else {
			logger.WithError(err).Warn("Failed to open log file, logging to stderr")
		}
	}
	return logger
}

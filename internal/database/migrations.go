package database

import (
	"database/sql"
	"fmt"
)

// A migration is one forward-only schema step with a paired reversal. New
// migrations are appended to the list; versions are never reordered or
// edited once released.
type migration struct {
	version int
	up      []string
	down    []string
}

var migrations = []migration{
	{
		version: 1,
		up: []string{
			`CREATE TABLE IF NOT EXISTS tracks (
				filename TEXT PRIMARY KEY,
				title TEXT,
				artist TEXT,
				album TEXT,
				album_artist TEXT,
				genre TEXT,
				track_number INTEGER,
				duration_seconds INTEGER,
				play_count INTEGER NOT NULL DEFAULT 0,
				last_played TIMESTAMP,
				added TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
			"CREATE INDEX IF NOT EXISTS idx_tracks_added ON tracks(added);",
			"CREATE INDEX IF NOT EXISTS idx_tracks_last_played ON tracks(last_played);",
			"CREATE INDEX IF NOT EXISTS idx_tracks_sort ON tracks(artist, album, track_number, title);",
		},
		down: []string{
			"DROP TABLE IF EXISTS tracks;",
		},
	},
	{
		version: 2,
		up: []string{
			`CREATE TABLE IF NOT EXISTS channels (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				channel_id TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				handle TEXT,
				url TEXT NOT NULL,
				thumbnail_url TEXT,
				last_fetched TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
			`CREATE TABLE IF NOT EXISTS videos (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				video_id TEXT NOT NULL UNIQUE,
				channel_id INTEGER NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
				title TEXT NOT NULL,
				duration_seconds INTEGER,
				thumbnail_url TEXT,
				published_at TIMESTAMP,
				fetched_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				play_count INTEGER NOT NULL DEFAULT 0,
				last_played TIMESTAMP
			);`,
			"CREATE INDEX IF NOT EXISTS idx_videos_channel ON videos(channel_id, published_at);",
			"CREATE INDEX IF NOT EXISTS idx_videos_last_played ON videos(last_played);",
		},
		down: []string{
			"DROP TABLE IF EXISTS videos;",
			"DROP TABLE IF EXISTS channels;",
		},
	},
	{
		version: 3,
		up: []string{
			`CREATE TABLE IF NOT EXISTS playlists (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
			`CREATE TABLE IF NOT EXISTS playlist_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
				track_filename TEXT REFERENCES tracks(filename) ON DELETE CASCADE,
				video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
				position INTEGER NOT NULL,
				added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE(playlist_id, position)
			);`,
			"CREATE INDEX IF NOT EXISTS idx_playlist_entries_playlist ON playlist_entries(playlist_id, position);",
		},
		down: []string{
			"DROP TABLE IF EXISTS playlist_entries;",
			"DROP TABLE IF EXISTS playlists;",
		},
	},
	{
		version: 4,
		up: []string{
			`CREATE TABLE IF NOT EXISTS queue_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				track_filename TEXT REFERENCES tracks(filename) ON DELETE CASCADE,
				video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
				position INTEGER NOT NULL UNIQUE,
				added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`,
		},
		down: []string{
			"DROP TABLE IF EXISTS queue_entries;",
		},
	},
}

// MigrateUp applies all pending migrations in order, recording each version
// in schema_migrations. Safe to call on every startup.
func (db *Database) MigrateUp() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.withTx(func(tx *sql.Tx) error {
			for _, stmt := range m.up {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("migration %d: %w", m.version, err)
				}
			}
			_, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version)
			return err
		})
		if err != nil {
			return err
		}
		db.logger.WithField("version", m.version).Info("Applied migration")
	}
	return nil
}

// MigrateDown rolls the schema back to (and including nothing below) the
// target version by running the paired reversals of every later migration,
// newest first.
func (db *Database) MigrateDown(target int) error {
	current, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.version > current || m.version <= target {
			continue
		}
		err := db.withTx(func(tx *sql.Tx) error {
			for _, stmt := range m.down {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("rollback %d: %w", m.version, err)
				}
			}
			_, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", m.version)
			return err
		})
		if err != nil {
			return err
		}
		db.logger.WithField("version", m.version).Info("Rolled back migration")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version, 0 for a fresh
// store.
func (db *Database) SchemaVersion() (int, error) {
	var version sql.NullInt64
	err := db.conn.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

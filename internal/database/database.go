package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Database wraps a *sql.DB providing higher-level helper methods for the
// library store. It is safe for concurrent use because the underlying *sql.DB
// is concurrency-safe; every logical mutation runs in a single transaction so
// a crash leaves either the pre- or post-state.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// Open opens (or creates) the SQLite store at the provided path, applies
// performance pragmas (WAL, foreign keys on) and runs pending migrations.
// Caller should Close() it when finished.
func Open(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// _foreign_keys goes in the DSN so every pooled connection enforces the
	// cascade rules, not just the one the pragma ran on.
	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works better with few connections
	conn.SetMaxOpenConns(5)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{conn: conn, logger: logger}

	if err := db.MigrateUp(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized")
	return db, nil
}

// Close closes the underlying connection.
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise.
func (db *Database) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

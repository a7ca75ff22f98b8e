// Package store persists engine state between runs: the user's model
// configuration and run/switch statistics snapshots. SQLite keeps it a
// single file under the workspace.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"cycled/internal/catalog"
	"cycled/internal/logging"
)

// ErrNotFound is returned when a key has never been saved.
var ErrNotFound = errors.New("not found in store")

// Store is a small SQLite-backed key-value and snapshot store.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes the database at path, creating parent directories and
// the schema as needed.
func Open(path string) (*Store, error) {
	log := logging.L(logging.CategoryStore)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Single writer; SQLite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debugw("setting busy_timeout failed", "error", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debugw("setting journal_mode failed", "error", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		log.Debugw("setting synchronous failed", "error", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	log.Infow("store opened", "path", path)
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS run_stats (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at         INTEGER NOT NULL,
			model_switch_count  INTEGER NOT NULL,
			avg_switch_ms       INTEGER NOT NULL,
			warm_agent          TEXT NOT NULL
		);
	`)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// =============================================================================
// KEY-VALUE
// =============================================================================

// Put upserts a raw value under key.
func (s *Store) Put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("loading %q: %w", key, err)
	}
	return value, nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
	return err
}

// =============================================================================
// CONFIGURATION
// =============================================================================

const configKey = "model_configuration"

// SaveConfiguration persists the user's model selections as JSON.
func (s *Store) SaveConfiguration(cfg catalog.CustomConfiguration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return s.Put(configKey, string(data))
}

// LoadConfiguration returns the persisted selections, or ErrNotFound when
// none have been saved yet.
func (s *Store) LoadConfiguration() (catalog.CustomConfiguration, error) {
	var cfg catalog.CustomConfiguration

	raw, err := s.Get(configKey)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// STATISTICS SNAPSHOTS
// =============================================================================

// StatsSnapshot is one persisted view of the orchestrator's aggregates.
type StatsSnapshot struct {
	RecordedAt        time.Time
	ModelSwitchCount  int64
	AverageSwitchTime time.Duration
	WarmAgent         string
}

// RecordStats appends a statistics snapshot.
func (s *Store) RecordStats(snap StatsSnapshot) error {
	at := snap.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO run_stats (recorded_at, model_switch_count, avg_switch_ms, warm_agent)
		VALUES (?, ?, ?, ?)`,
		at.Unix(), snap.ModelSwitchCount, snap.AverageSwitchTime.Milliseconds(), snap.WarmAgent)
	if err != nil {
		return fmt.Errorf("recording stats: %w", err)
	}
	return nil
}

// RecentStats returns up to limit snapshots, newest first.
func (s *Store) RecentStats(limit int) ([]StatsSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT recorded_at, model_switch_count, avg_switch_ms, warm_agent
		FROM run_stats ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	defer rows.Close()

	var out []StatsSnapshot
	for rows.Next() {
		var snap StatsSnapshot
		var at int64
		var avgMs int64
		if err := rows.Scan(&at, &snap.ModelSwitchCount, &avgMs, &snap.WarmAgent); err != nil {
			return nil, err
		}
		snap.RecordedAt = time.Unix(at, 0)
		snap.AverageSwitchTime = time.Duration(avgMs) * time.Millisecond
		out = append(out, snap)
	}
	return out, rows.Err()
}

package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// RoundResult is one finished round
type RoundResult struct {
	ID        int64     `json:"id"`
	Mode      string    `json:"mode"`
	Winners   []string  `json:"winners"`
	WinnerIDs []string  `json:"-"`
	Score     int       `json:"score"`
	Duration  float64   `json:"duration"` // seconds
	Players   int       `json:"players"`
	EndedAt   time.Time `json:"endedAt"`
}

// OpenDB opens (or creates) the SQLite database. ":memory:" gives a
// throwaway store that lives as long as the process.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: an in-memory database is private to its connection,
	// and SQLite serialises writers anyway.
	conn.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		winners TEXT NOT NULL DEFAULT '[]',
		score INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		players INTEGER NOT NULL DEFAULT 0,
		ended_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS analytics_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		player_id TEXT,
		data TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rounds_ended ON rounds(ended_at);
	CREATE INDEX IF NOT EXISTS idx_events_created ON analytics_events(created_at);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// GetSetting returns a stored setting, or "" when absent
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting upserts a setting
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// InsertRounds writes a batch of finished rounds in one transaction
func (db *DB) InsertRounds(rounds []RoundResult) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO rounds (mode, winners, score, duration, players, ended_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rounds {
		winners, err := json.Marshal(r.Winners)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(r.Mode, string(winners), r.Score, r.Duration, r.Players, r.EndedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentRounds returns the latest rounds, newest first
func (db *DB) RecentRounds(limit int) ([]RoundResult, error) {
	rows, err := db.conn.Query(`
		SELECT id, mode, winners, score, duration, players, ended_at
		FROM rounds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []RoundResult{}
	for rows.Next() {
		var r RoundResult
		var winners, ended string
		if err := rows.Scan(&r.ID, &r.Mode, &winners, &r.Score, &r.Duration, &r.Players, &ended); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(winners), &r.Winners); err != nil {
			r.Winners = nil
		}
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		result = append(result, r)
	}
	return result, rows.Err()
}

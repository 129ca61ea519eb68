package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event types for analytics tracking
const (
	EvtPlayerJoin       = "player_join"
	EvtPlayerLeave      = "player_leave"
	EvtRoundStart       = "round_start"
	EvtRoundEnd         = "round_end"
	EvtPowerupCollected = "powerup_collected"
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	PlayerID  string
	Data      string // JSON metadata (optional)
	Timestamp time.Time
}

// Analytics handles event tracking and round history with batched
// background writes. Track and RecordRound never block the caller.
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	rounds chan RoundResult
	stop   chan struct{}
	wg     sync.WaitGroup

	flushEvery time.Duration
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:         db,
		events:     make(chan AnalyticsEvent, 1024),
		rounds:     make(chan RoundResult, 64),
		stop:       make(chan struct{}),
		flushEvery: 2 * time.Second,
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, playerID string, data map[string]interface{}) {
	var raw string
	if len(data) > 0 {
		if b, err := json.Marshal(data); err == nil {
			raw = string(b)
		}
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		PlayerID:  playerID,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full; drop the event rather than stall the tick
	}
}

// RecordRound enqueues a finished round (non-blocking)
func (a *Analytics) RecordRound(res RoundResult) {
	select {
	case a.rounds <- res:
	default:
		log.Printf("analytics: round queue full, dropping %s round", res.Mode)
	}
}

// Stop gracefully shuts down the analytics writer
func (a *Analytics) Stop() {
	close(a.stop)
	a.wg.Wait()
}

// writer is the background goroutine that batches and writes to DB
func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	var rounds []RoundResult
	ticker := time.NewTicker(a.flushEvery)
	defer ticker.Stop()

	flushAll := func() {
		if len(rounds) > 0 {
			a.flushRounds(rounds)
			rounds = rounds[:0]
		}
		if len(batch) > 0 {
			a.flush(batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			// Flush immediately if batch is large
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case res := <-a.rounds:
			rounds = append(rounds, res)
			// Round history is small; write it straight away
			a.flushRounds(rounds)
			rounds = rounds[:0]
		case <-ticker.C:
			flushAll()
		case <-a.stop:
			// Drain whatever is still queued
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				case res := <-a.rounds:
					rounds = append(rounds, res)
				default:
					flushAll()
					return
				}
			}
		}
	}
}

func (a *Analytics) flushRounds(rounds []RoundResult) {
	if a.db == nil || len(rounds) == 0 {
		return
	}
	if err := a.db.InsertRounds(rounds); err != nil {
		log.Printf("analytics: round insert error: %v", err)
	}
}

// flush writes a batch of events to the database
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.Printf("analytics: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO analytics_events (event_type, player_id, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		log.Printf("analytics: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		pid := sql.NullString{String: evt.PlayerID, Valid: evt.PlayerID != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		_, err := stmt.Exec(evt.Type, pid, data, evt.Timestamp.Format(time.RFC3339))
		if err != nil {
			log.Printf("analytics: insert error: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Printf("analytics: commit error: %v", err)
	}
}

// --- Query methods for the API ---

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	result := make(map[string]int)
	if a.db == nil {
		return result, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM analytics_events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			continue
		}
		result[evtType] = count
	}
	return result, rows.Err()
}

// ModeStats returns finished-round counts and average length per mode
func (a *Analytics) ModeStats(days int) ([]ModeAnalytics, error) {
	result := []ModeAnalytics{}
	if a.db == nil {
		return result, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT mode, COUNT(*), AVG(duration)
		FROM rounds
		WHERE ended_at >= date('now', '-' || ? || ' days')
		GROUP BY mode ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m ModeAnalytics
		var avg sql.NullFloat64
		if err := rows.Scan(&m.Mode, &m.Count, &avg); err != nil {
			continue
		}
		m.AvgDuration = avg.Float64
		result = append(result, m)
	}
	return result, rows.Err()
}

// ModeAnalytics holds aggregated round statistics for one mode
type ModeAnalytics struct {
	Mode        string  `json:"mode"`
	Count       int     `json:"count"`
	AvgDuration float64 `json:"avg_duration"`
}

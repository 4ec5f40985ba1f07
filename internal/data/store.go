package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// openDB opens the sqlite database at dbPath and applies the schema.
func openDB(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS review_queue (
			review_id TEXT PRIMARY KEY,
			subscriber_id TEXT NOT NULL,
			ig_username TEXT,
			incoming_text TEXT NOT NULL,
			incoming_ts INTEGER NOT NULL,
			prompt_text TEXT NOT NULL,
			proposed_response TEXT NOT NULL,
			status TEXT NOT NULL,
			prompt_type TEXT,
			created_at INTEGER NOT NULL,
			scheduled_send_at INTEGER,
			sent_at INTEGER
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create review_queue table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_review_status ON review_queue(status, created_at)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_review_subscriber ON review_queue(subscriber_id)`)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS conversation_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subscriber_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			text TEXT NOT NULL,
			media_url TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create conversation_history table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_subscriber ON conversation_history(subscriber_id, ts)`)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS subscribers (
			subscriber_id TEXT PRIMARY KEY,
			ig_username TEXT,
			first_name TEXT,
			last_name TEXT,
			metrics TEXT,
			last_bot_send INTEGER,
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create subscribers table: %w", err)
	}

	return db, nil
}

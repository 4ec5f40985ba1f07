package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
	"github.com/shannonbirch/shanbot/internal/biz/repo"
)

// historyRepo implements the conversation-history repository on sqlite.
type historyRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a conversation-history repository backed by the
// shared db.
func NewHistoryRepo(db *sql.DB) repo.HistoryRepo {
	return &historyRepo{db: db}
}

// Append stores one conversation record.
func (r *historyRepo) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_history (subscriber_id, ts, type, text, media_url)
		VALUES (?, ?, ?, ?, ?)
	`, entry.SubscriberID, ts.Unix(), string(entry.Type), entry.Text, entry.MediaURL)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// Read returns the full ordered history for a subscriber.
func (r *historyRepo) Read(ctx context.Context, subscriberID string) (domain.History, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT subscriber_id, ts, type, text, COALESCE(media_url, '')
		FROM conversation_history
		WHERE subscriber_id = ?
		ORDER BY ts ASC, id ASC
	`, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var history domain.History
	for rows.Next() {
		var e domain.HistoryEntry
		var ts int64
		var entryType string
		if err := rows.Scan(&e.SubscriberID, &ts, &entryType, &e.Text, &e.MediaURL); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.Type = domain.HistoryEntryType(entryType)
		history = append(history, e)
	}
	return history, rows.Err()
}

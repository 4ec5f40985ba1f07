package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
	"github.com/shannonbirch/shanbot/internal/biz/repo"
)

// subscriberRepo implements the subscriber repository on sqlite.
type subscriberRepo struct {
	db *sql.DB
}

// NewSubscriberRepo creates a subscriber repository backed by the shared db.
func NewSubscriberRepo(db *sql.DB) repo.SubscriberRepo {
	return &subscriberRepo{db: db}
}

// Upsert creates the subscriber on first contact. Later contacts refresh
// the name fields but never downgrade a real username to the placeholder.
func (r *subscriberRepo) Upsert(ctx context.Context, sub *domain.Subscriber) error {
	if sub.IGUsername == "" {
		sub.IGUsername = domain.PlaceholderUsername(sub.SubscriberID)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (subscriber_id, ig_username, first_name, last_name, metrics, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(subscriber_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			ig_username = CASE
				WHEN subscribers.ig_username LIKE 'user\_%' ESCAPE '\' THEN excluded.ig_username
				ELSE subscribers.ig_username
			END
	`, sub.SubscriberID, sub.IGUsername, sub.FirstName, sub.LastName, sub.Metrics, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert subscriber: %w", err)
	}
	return nil
}

// Get loads a subscriber, or returns nil when unknown.
func (r *subscriberRepo) Get(ctx context.Context, subscriberID string) (*domain.Subscriber, error) {
	var s domain.Subscriber
	var lastBotSend sql.NullInt64
	var createdAt int64
	var igUsername, firstName, lastName, metrics sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT subscriber_id, ig_username, first_name, last_name, metrics, last_bot_send, created_at
		FROM subscribers WHERE subscriber_id = ?
	`, subscriberID).Scan(&s.SubscriberID, &igUsername, &firstName, &lastName, &metrics, &lastBotSend, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriber: %w", err)
	}

	s.IGUsername = igUsername.String
	s.FirstName = firstName.String
	s.LastName = lastName.String
	s.Metrics = metrics.String
	s.CreatedAt = time.Unix(createdAt, 0)
	if lastBotSend.Valid {
		s.LastBotSend = time.Unix(lastBotSend.Int64, 0)
	}
	return &s, nil
}

// SetUsername backfills the Instagram handle once known.
func (r *subscriberRepo) SetUsername(ctx context.Context, subscriberID, igUsername string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscribers SET ig_username = ? WHERE subscriber_id = ?
	`, igUsername, subscriberID)
	if err != nil {
		return fmt.Errorf("failed to set username: %w", err)
	}
	return nil
}

// TouchBotSend records the moment an outbound message was delivered.
func (r *subscriberRepo) TouchBotSend(ctx context.Context, subscriberID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscribers SET last_bot_send = ? WHERE subscriber_id = ?
	`, time.Now().Unix(), subscriberID)
	if err != nil {
		return fmt.Errorf("failed to touch bot send time: %w", err)
	}
	return nil
}

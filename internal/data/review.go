package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
	"github.com/shannonbirch/shanbot/internal/biz/repo"
)

// reviewRepo implements the review-queue repository on sqlite.
type reviewRepo struct {
	db *sql.DB
}

// NewReviewRepo creates a review-queue repository backed by the shared db.
func NewReviewRepo(db *sql.DB) repo.ReviewRepo {
	return &reviewRepo{db: db}
}

// AddEntry persists a new entry. The review id is generated here; entries
// are never deleted, the table is the audit log.
func (r *reviewRepo) AddEntry(ctx context.Context, entry *domain.ReviewEntry) (string, error) {
	if entry.ReviewID == "" {
		entry.ReviewID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var scheduledAt, sentAt any
	if !entry.ScheduledSendAt.IsZero() {
		scheduledAt = entry.ScheduledSendAt.Unix()
	}
	if !entry.SentAt.IsZero() {
		sentAt = entry.SentAt.Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO review_queue (review_id, subscriber_id, ig_username, incoming_text, incoming_ts,
			prompt_text, proposed_response, status, prompt_type, created_at, scheduled_send_at, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ReviewID, entry.SubscriberID, entry.IGUsername, entry.IncomingText, entry.IncomingTimestamp.Unix(),
		entry.PromptText, entry.ProposedResponse, string(entry.Status), entry.PromptType, entry.CreatedAt.Unix(),
		scheduledAt, sentAt)
	if err != nil {
		return "", fmt.Errorf("failed to add review entry: %w", err)
	}
	return entry.ReviewID, nil
}

// GetEntry loads one entry by review id.
func (r *reviewRepo) GetEntry(ctx context.Context, reviewID string) (*domain.ReviewEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT review_id, subscriber_id, ig_username, incoming_text, incoming_ts,
			prompt_text, proposed_response, status, prompt_type, created_at, scheduled_send_at, sent_at
		FROM review_queue WHERE review_id = ?
	`, reviewID)

	entry, err := scanReviewEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review entry %s not found", reviewID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load review entry: %w", err)
	}
	return entry, nil
}

// UpdateStatus records a status transition, stamping sent_at when the entry
// reaches sent.
func (r *reviewRepo) UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus) error {
	var err error
	if status == domain.StatusSent {
		_, err = r.db.ExecContext(ctx, `
			UPDATE review_queue SET status = ?, sent_at = ? WHERE review_id = ?
		`, string(status), time.Now().Unix(), reviewID)
	} else {
		_, err = r.db.ExecContext(ctx, `
			UPDATE review_queue SET status = ? WHERE review_id = ?
		`, string(status), reviewID)
	}
	if err != nil {
		return fmt.Errorf("failed to update review status: %w", err)
	}
	return nil
}

// ListByStatus returns entries in the given status, oldest first.
func (r *reviewRepo) ListByStatus(ctx context.Context, status domain.ReviewStatus, limit int) ([]*domain.ReviewEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT review_id, subscriber_id, ig_username, incoming_text, incoming_ts,
			prompt_text, proposed_response, status, prompt_type, created_at, scheduled_send_at, sent_at
		FROM review_queue
		WHERE status = ?
		ORDER BY created_at ASC
		LIMIT ?
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query review entries: %w", err)
	}
	defer rows.Close()

	return scanReviewEntries(rows)
}

// DueAutoScheduled returns auto_scheduled entries whose deferred send time
// has arrived.
func (r *reviewRepo) DueAutoScheduled(ctx context.Context, now time.Time) ([]*domain.ReviewEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT review_id, subscriber_id, ig_username, incoming_text, incoming_ts,
			prompt_text, proposed_response, status, prompt_type, created_at, scheduled_send_at, sent_at
		FROM review_queue
		WHERE status = ? AND scheduled_send_at IS NOT NULL AND scheduled_send_at <= ?
		ORDER BY scheduled_send_at ASC
	`, string(domain.StatusAutoScheduled), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query due entries: %w", err)
	}
	defer rows.Close()

	return scanReviewEntries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviewEntry(row rowScanner) (*domain.ReviewEntry, error) {
	var e domain.ReviewEntry
	var status string
	var incomingTS, createdAt int64
	var scheduledAt, sentAt sql.NullInt64
	var igUsername, promptType sql.NullString

	err := row.Scan(&e.ReviewID, &e.SubscriberID, &igUsername, &e.IncomingText, &incomingTS,
		&e.PromptText, &e.ProposedResponse, &status, &promptType, &createdAt, &scheduledAt, &sentAt)
	if err != nil {
		return nil, err
	}

	e.IGUsername = igUsername.String
	e.PromptType = promptType.String
	e.Status = domain.ReviewStatus(status)
	e.IncomingTimestamp = time.Unix(incomingTS, 0)
	e.CreatedAt = time.Unix(createdAt, 0)
	if scheduledAt.Valid {
		e.ScheduledSendAt = time.Unix(scheduledAt.Int64, 0)
	}
	if sentAt.Valid {
		e.SentAt = time.Unix(sentAt.Int64, 0)
	}
	return &e, nil
}

func scanReviewEntries(rows *sql.Rows) ([]*domain.ReviewEntry, error) {
	var entries []*domain.ReviewEntry
	for rows.Next() {
		entry, err := scanReviewEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the underlying database connection.
func (r *reviewRepo) Close() error {
	return r.db.Close()
}

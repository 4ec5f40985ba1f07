package repo

import (
	"context"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
)

// HistoryRepo is the conversation-history repository interface.
type HistoryRepo interface {
	// Append stores one conversation record.
	Append(ctx context.Context, entry *domain.HistoryEntry) error

	// Read returns the full ordered history for a subscriber.
	Read(ctx context.Context, subscriberID string) (domain.History, error)
}

// SubscriberRepo manages subscriber profile records.
type SubscriberRepo interface {
	// Upsert creates the subscriber on first contact or refreshes the
	// name fields on later contacts.
	Upsert(ctx context.Context, sub *domain.Subscriber) error

	// Get loads a subscriber, or returns nil when unknown.
	Get(ctx context.Context, subscriberID string) (*domain.Subscriber, error)

	// SetUsername backfills the Instagram handle once known.
	SetUsername(ctx context.Context, subscriberID, igUsername string) error

	// TouchBotSend records the moment an outbound message was delivered.
	TouchBotSend(ctx context.Context, subscriberID string) error
}

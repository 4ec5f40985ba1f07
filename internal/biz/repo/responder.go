package repo

import (
	"context"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
)

// Responder is the conversational response generator boundary. Given the
// combined message, the subscriber's profile metrics and a formatted
// transcript, it returns a non-empty response or an error. An empty string
// with a nil error is treated the same as a failure by callers.
type Responder interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FieldUpdater pushes field-name -> value pairs onto the subscriber record
// at the chat platform. Failure means "not sent"; no idempotency or retry
// is assumed on the platform's behalf.
type FieldUpdater interface {
	SetFields(ctx context.Context, subscriberID string, fields map[string]string) error
}

// MessageSender delivers an outbound message to the subscriber.
type MessageSender interface {
	SendText(ctx context.Context, subscriberID, text string) error
}

// ProfileFetcher looks up subscriber profile data at the chat platform,
// used to backfill placeholder usernames once the real handle is available.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, subscriberID string) (*domain.Profile, error)
}

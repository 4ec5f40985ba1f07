package repo

import (
	"context"
	"time"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
)

// ReviewRepo is the durable review-queue repository interface.
type ReviewRepo interface {
	// AddEntry persists a new entry and returns its generated review id.
	AddEntry(ctx context.Context, entry *domain.ReviewEntry) (string, error)

	// GetEntry loads one entry by review id.
	GetEntry(ctx context.Context, reviewID string) (*domain.ReviewEntry, error)

	// UpdateStatus records a status transition.
	UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus) error

	// ListByStatus returns entries in the given status, oldest first.
	ListByStatus(ctx context.Context, status domain.ReviewStatus, limit int) ([]*domain.ReviewEntry, error)

	// DueAutoScheduled returns auto_scheduled entries whose deferred send
	// time is at or before now.
	DueAutoScheduled(ctx context.Context, now time.Time) ([]*domain.ReviewEntry, error)

	Close() error
}

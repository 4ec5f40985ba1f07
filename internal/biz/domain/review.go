package domain

import (
	"fmt"
	"time"
)

// ReviewStatus is the lifecycle state of a proposed outbound response.
type ReviewStatus string

const (
	StatusPendingReview ReviewStatus = "pending_review"
	StatusAutoScheduled ReviewStatus = "auto_scheduled"
	StatusSent          ReviewStatus = "sent"
	StatusRejected      ReviewStatus = "rejected"
)

// ReviewEntry is a candidate outbound response awaiting automatic dispatch
// or human approval. Entries are never deleted; the table is the audit log
// of everything the bot proposed, whether or not it was sent.
type ReviewEntry struct {
	ReviewID          string
	SubscriberID      string
	IGUsername        string
	IncomingText      string
	IncomingTimestamp time.Time
	PromptText        string
	ProposedResponse  string
	Status            ReviewStatus
	PromptType        string
	CreatedAt         time.Time
	ScheduledSendAt   time.Time
	SentAt            time.Time
}

// Terminal reports whether the status permits no further transitions.
func (s ReviewStatus) Terminal() bool {
	return s == StatusSent || s == StatusRejected
}

// CanTransition reports whether moving from s to next is a legal state
// change. pending_review may be approved (sent) or rejected; auto_scheduled
// may only complete as sent; terminal states never revert.
func (s ReviewStatus) CanTransition(next ReviewStatus) bool {
	switch s {
	case StatusPendingReview:
		return next == StatusSent || next == StatusRejected
	case StatusAutoScheduled:
		return next == StatusSent
	default:
		return false
	}
}

// Transition applies a status change on the entry, rejecting illegal moves.
func (e *ReviewEntry) Transition(next ReviewStatus) error {
	if !e.Status.CanTransition(next) {
		return fmt.Errorf("illegal review transition %s -> %s", e.Status, next)
	}
	e.Status = next
	if next == StatusSent {
		e.SentAt = time.Now()
	}
	return nil
}

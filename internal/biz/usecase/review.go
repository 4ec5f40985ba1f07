package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
	"github.com/shannonbirch/shanbot/internal/biz/repo"
)

// ReviewUsecase drives the review-queue state machine: human approval and
// rejection, plus completion of deferred auto-sends. The conversation
// history gains an AI entry only once a send has actually succeeded.
type ReviewUsecase struct {
	reviewRepo     repo.ReviewRepo
	historyRepo    repo.HistoryRepo
	subscriberRepo repo.SubscriberRepo
	sender         repo.MessageSender
	log            *zap.Logger
}

// NewReviewUsecase creates a new review usecase.
func NewReviewUsecase(
	reviewRepo repo.ReviewRepo,
	historyRepo repo.HistoryRepo,
	subscriberRepo repo.SubscriberRepo,
	sender repo.MessageSender,
	log *zap.Logger,
) *ReviewUsecase {
	return &ReviewUsecase{
		reviewRepo:     reviewRepo,
		historyRepo:    historyRepo,
		subscriberRepo: subscriberRepo,
		sender:         sender,
		log:            log.Named("review"),
	}
}

// Approve sends a pending entry and marks it sent. A send failure leaves
// the entry in pending_review; nothing is appended to history.
func (uc *ReviewUsecase) Approve(ctx context.Context, reviewID string) error {
	entry, err := uc.reviewRepo.GetEntry(ctx, reviewID)
	if err != nil {
		return err
	}
	if !entry.Status.CanTransition(domain.StatusSent) {
		return fmt.Errorf("review %s cannot be approved from status %s", reviewID, entry.Status)
	}
	return uc.deliver(ctx, entry)
}

// Reject marks a pending entry rejected. No message is sent and the
// conversation history is untouched.
func (uc *ReviewUsecase) Reject(ctx context.Context, reviewID string) error {
	entry, err := uc.reviewRepo.GetEntry(ctx, reviewID)
	if err != nil {
		return err
	}
	if !entry.Status.CanTransition(domain.StatusRejected) {
		return fmt.Errorf("review %s cannot be rejected from status %s", reviewID, entry.Status)
	}
	if err := uc.reviewRepo.UpdateStatus(ctx, reviewID, domain.StatusRejected); err != nil {
		return err
	}
	uc.log.Info("review rejected",
		zap.String("review_id", reviewID),
		zap.String("subscriber_id", entry.SubscriberID))
	return nil
}

// List returns entries in the given status, oldest first.
func (uc *ReviewUsecase) List(ctx context.Context, status domain.ReviewStatus, limit int) ([]*domain.ReviewEntry, error) {
	return uc.reviewRepo.ListByStatus(ctx, status, limit)
}

// Get loads one entry.
func (uc *ReviewUsecase) Get(ctx context.Context, reviewID string) (*domain.ReviewEntry, error) {
	return uc.reviewRepo.GetEntry(ctx, reviewID)
}

// SendDue completes every auto_scheduled entry whose deferred send time has
// arrived. Failed sends stay auto_scheduled and are retried on the next
// cycle; exactly-once delivery is not guaranteed.
func (uc *ReviewUsecase) SendDue(ctx context.Context, now time.Time) (int, error) {
	due, err := uc.reviewRepo.DueAutoScheduled(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, entry := range due {
		if err := uc.deliver(ctx, entry); err != nil {
			uc.log.Warn("deferred send failed",
				zap.String("review_id", entry.ReviewID),
				zap.String("subscriber_id", entry.SubscriberID),
				zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// deliver sends the proposed response and, only on success, marks the entry
// sent, appends the AI history record and stamps the subscriber's last
// bot-send time. On failure the entry keeps its pre-send status.
func (uc *ReviewUsecase) deliver(ctx context.Context, entry *domain.ReviewEntry) error {
	if err := uc.sender.SendText(ctx, entry.SubscriberID, entry.ProposedResponse); err != nil {
		return fmt.Errorf("send to %s: %w", entry.SubscriberID, err)
	}

	if err := uc.reviewRepo.UpdateStatus(ctx, entry.ReviewID, domain.StatusSent); err != nil {
		// The message went out; the status update failing is an audit gap,
		// not a reason to resend.
		uc.log.Error("sent but status update failed",
			zap.String("review_id", entry.ReviewID), zap.Error(err))
		return err
	}

	if err := uc.historyRepo.Append(ctx, &domain.HistoryEntry{
		SubscriberID: entry.SubscriberID,
		Timestamp:    time.Now(),
		Type:         domain.HistoryAI,
		Text:         entry.ProposedResponse,
	}); err != nil {
		uc.log.Error("AI history append failed",
			zap.String("review_id", entry.ReviewID), zap.Error(err))
	}

	if err := uc.subscriberRepo.TouchBotSend(ctx, entry.SubscriberID); err != nil {
		uc.log.Warn("bot-send timestamp update failed",
			zap.String("subscriber_id", entry.SubscriberID), zap.Error(err))
	}

	uc.log.Info("response sent",
		zap.String("review_id", entry.ReviewID),
		zap.String("subscriber_id", entry.SubscriberID))
	return nil
}

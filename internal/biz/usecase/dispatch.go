package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
	"github.com/shannonbirch/shanbot/internal/biz/repo"
)

// FailedResponseSentinel is recorded through the field-update collaborator
// when generation fails, so the failure is visible downstream even though
// the subscriber receives nothing.
const FailedResponseSentinel = "[AI FAILED TO RESPOND]"

// Subscriber fields pushed to the chat platform.
const (
	fieldResponseTime = "response time"
	fieldLastResponse = "o1 Response"
)

// DispatchConfig contains dispatch-pipeline configuration.
type DispatchConfig struct {
	AutoMode        bool          // general auto mode
	VeganAutoMode   bool          // vegan-cohort auto mode
	AutoSendDelay   time.Duration // deferred send delay for auto entries
	MaxHistoryCount int           // trailing history entries fed to prompts
}

// DefaultDispatchConfig returns default dispatch configuration.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		AutoSendDelay:   3 * time.Minute,
		MaxHistoryCount: 30,
	}
}

// DispatchUsecase turns a drained batch into a review-queue entry: it
// appends the user messages to history, measures the response-time bucket,
// builds the prompt, calls the generator and routes the candidate response
// to auto-send or human review.
type DispatchUsecase struct {
	reviewRepo     repo.ReviewRepo
	historyRepo    repo.HistoryRepo
	subscriberRepo repo.SubscriberRepo
	responder      repo.Responder
	fields         repo.FieldUpdater
	profiles       repo.ProfileFetcher // optional, may be nil
	config         DispatchConfig
	log            *zap.Logger
}

// NewDispatchUsecase creates a new dispatch usecase. profiles may be nil,
// disabling username backfill.
func NewDispatchUsecase(
	reviewRepo repo.ReviewRepo,
	historyRepo repo.HistoryRepo,
	subscriberRepo repo.SubscriberRepo,
	responder repo.Responder,
	fields repo.FieldUpdater,
	profiles repo.ProfileFetcher,
	config DispatchConfig,
	log *zap.Logger,
) *DispatchUsecase {
	return &DispatchUsecase{
		reviewRepo:     reviewRepo,
		historyRepo:    historyRepo,
		subscriberRepo: subscriberRepo,
		responder:      responder,
		fields:         fields,
		profiles:       profiles,
		config:         config,
		log:            log.Named("dispatch"),
	}
}

// HandleBatch processes one drained batch. Collaborator failures are logged
// and contained here; the method never panics and never leaves partial
// review entries behind.
func (uc *DispatchUsecase) HandleBatch(ctx context.Context, batch *domain.Batch) {
	if batch.IsEmpty() {
		uc.log.Debug("empty batch, nothing to do", zap.String("subscriber_id", batch.SubscriberID))
		return
	}

	combined := batch.Combine()
	batchStart := batch.StartedAt()

	sub, err := uc.ensureSubscriber(ctx, batch.SubscriberID)
	if err != nil {
		uc.log.Error("subscriber lookup failed",
			zap.String("subscriber_id", batch.SubscriberID), zap.Error(err))
		return
	}

	history, err := uc.historyRepo.Read(ctx, batch.SubscriberID)
	if err != nil {
		uc.log.Error("history read failed",
			zap.String("subscriber_id", batch.SubscriberID), zap.Error(err))
		return
	}

	// User messages go into history before generation; the AI side is
	// appended only after a confirmed send.
	uc.appendUserMessages(ctx, batch)

	bucket, promptType := uc.responseBucket(sub, history, batch, batchStart)
	uc.pushField(ctx, batch.SubscriberID, fieldResponseTime, bucket)

	prompt := BuildPrompt(sub, history.Format(uc.config.MaxHistoryCount), combined)

	response, err := uc.responder.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(response) == "" {
		if err != nil {
			uc.log.Warn("generation failed",
				zap.String("subscriber_id", batch.SubscriberID), zap.Error(err))
		} else {
			uc.log.Warn("generation returned empty response",
				zap.String("subscriber_id", batch.SubscriberID))
		}
		uc.pushField(ctx, batch.SubscriberID, fieldLastResponse, FailedResponseSentinel)
		return
	}

	entry := &domain.ReviewEntry{
		SubscriberID:      batch.SubscriberID,
		IGUsername:        sub.IGUsername,
		IncomingText:      combined,
		IncomingTimestamp: batchStart,
		PromptText:        prompt,
		ProposedResponse:  response,
		Status:            domain.StatusPendingReview,
		PromptType:        promptType,
	}

	if uc.autoModeActive(sub) {
		entry.Status = domain.StatusAutoScheduled
		entry.ScheduledSendAt = time.Now().Add(uc.config.AutoSendDelay)
	}

	reviewID, err := uc.reviewRepo.AddEntry(ctx, entry)
	if err != nil {
		uc.log.Error("review entry insert failed",
			zap.String("subscriber_id", batch.SubscriberID), zap.Error(err))
		return
	}

	uc.log.Info("response queued",
		zap.String("subscriber_id", batch.SubscriberID),
		zap.String("review_id", reviewID),
		zap.String("status", string(entry.Status)),
		zap.String("bucket", bucket))
}

// ensureSubscriber loads the subscriber record, creating a placeholder one
// on first contact.
func (uc *DispatchUsecase) ensureSubscriber(ctx context.Context, subscriberID string) (*domain.Subscriber, error) {
	sub, err := uc.subscriberRepo.Get(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		sub = &domain.Subscriber{
			SubscriberID: subscriberID,
			IGUsername:   domain.PlaceholderUsername(subscriberID),
		}
		if err := uc.subscriberRepo.Upsert(ctx, sub); err != nil {
			return nil, err
		}
	}
	uc.backfillUsername(ctx, sub)
	return sub, nil
}

// backfillUsername replaces a placeholder handle with the real one via a
// platform profile lookup. Best effort; a lookup failure only means the
// placeholder survives another pass.
func (uc *DispatchUsecase) backfillUsername(ctx context.Context, sub *domain.Subscriber) {
	if uc.profiles == nil || sub.HasRealUsername() {
		return
	}

	profile, err := uc.profiles.FetchProfile(ctx, sub.SubscriberID)
	if err != nil {
		uc.log.Debug("profile lookup failed",
			zap.String("subscriber_id", sub.SubscriberID), zap.Error(err))
		return
	}
	if profile.IGUsername == "" {
		return
	}

	if err := uc.subscriberRepo.SetUsername(ctx, sub.SubscriberID, profile.IGUsername); err != nil {
		uc.log.Warn("username backfill failed",
			zap.String("subscriber_id", sub.SubscriberID), zap.Error(err))
		return
	}
	sub.IGUsername = profile.IGUsername
	if sub.FirstName == "" {
		sub.FirstName = profile.FirstName
	}
	if sub.LastName == "" {
		sub.LastName = profile.LastName
	}
	uc.log.Info("username backfilled",
		zap.String("subscriber_id", sub.SubscriberID),
		zap.String("ig_username", profile.IGUsername))
}

func (uc *DispatchUsecase) appendUserMessages(ctx context.Context, batch *domain.Batch) {
	for _, msg := range batch.Messages {
		if msg.IsEmpty() {
			continue
		}
		entry := &domain.HistoryEntry{
			SubscriberID: msg.SubscriberID,
			Timestamp:    msg.ArrivedAt,
			Type:         domain.HistoryUser,
			Text:         msg.Fragment(),
			MediaURL:     msg.MediaURL,
		}
		if err := uc.historyRepo.Append(ctx, entry); err != nil {
			uc.log.Error("history append failed",
				zap.String("subscriber_id", msg.SubscriberID), zap.Error(err))
		}
	}
}

// responseBucket resolves the response-time label for the batch. A batch
// consisting purely of media is handled by the deterministic analysis path
// and reports the fixed "action" label instead of a timing measurement.
func (uc *DispatchUsecase) responseBucket(sub *domain.Subscriber, history domain.History, batch *domain.Batch, batchStart time.Time) (string, string) {
	if uc.isActionBatch(batch) {
		return domain.ActionBucket, "action"
	}
	elapsed := domain.ElapsedSinceLastReply(sub.LastBotSend, history, batchStart)
	return domain.Bucket(elapsed), "general_chat"
}

func (uc *DispatchUsecase) isActionBatch(batch *domain.Batch) bool {
	for _, msg := range batch.Messages {
		if msg.IsEmpty() {
			continue
		}
		if msg.MediaURL == "" || strings.TrimSpace(msg.Text) != "" {
			return false
		}
	}
	return true
}

func (uc *DispatchUsecase) autoModeActive(sub *domain.Subscriber) bool {
	if uc.config.AutoMode {
		return true
	}
	if uc.config.VeganAutoMode && strings.Contains(strings.ToLower(sub.Metrics), "vegan") {
		return true
	}
	return false
}

// pushField updates one subscriber field, logging failures without failing
// the dispatch pass.
func (uc *DispatchUsecase) pushField(ctx context.Context, subscriberID, name, value string) {
	if err := uc.fields.SetFields(ctx, subscriberID, map[string]string{name: value}); err != nil {
		uc.log.Warn("field update failed",
			zap.String("subscriber_id", subscriberID),
			zap.String("field", name),
			zap.Error(err))
	}
}

// BuildPrompt assembles the exact prompt sent to the generator. It is
// persisted verbatim on the review entry for audit.
func BuildPrompt(sub *domain.Subscriber, historyText, combined string) string {
	var sb strings.Builder
	sb.WriteString("You are Shannon, a personal trainer chatting with a client on Instagram.\n")
	sb.WriteString("Reply casually and briefly, the way Shannon texts.\n\n")
	sb.WriteString(fmt.Sprintf("Client: %s (@%s)\n", sub.DisplayName(), sub.IGUsername))
	if sub.Metrics != "" {
		sb.WriteString(fmt.Sprintf("Client profile: %s\n", sub.Metrics))
	}
	if historyText != "" {
		sb.WriteString("\nConversation so far:\n")
		sb.WriteString(historyText)
	}
	sb.WriteString("\nNew message(s):\n")
	sb.WriteString(combined)
	sb.WriteString("\n\nShannon's reply:")
	return sb.String()
}

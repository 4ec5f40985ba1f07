package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
	"github.com/shannonbirch/shanbot/internal/biz/usecase"
	"github.com/shannonbirch/shanbot/internal/data"
)

type countingSender struct {
	mu    sync.Mutex
	count int
}

func (s *countingSender) SendText(context.Context, string, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func (s *countingSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func TestAutoSendScheduler_CompletesDueEntry(t *testing.T) {
	repos, err := data.NewRepositories(filepath.Join(t.TempDir(), "shanbot.db"))
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	require.NoError(t, repos.Subscriber.Upsert(ctx, &domain.Subscriber{SubscriberID: "123"}))

	id, err := repos.Review.AddEntry(ctx, &domain.ReviewEntry{
		SubscriberID:      "123",
		IncomingText:      "hey",
		IncomingTimestamp: time.Now(),
		ProposedResponse:  "Sounds good!",
		Status:            domain.StatusAutoScheduled,
		ScheduledSendAt:   time.Now().Add(-time.Second),
	})
	require.NoError(t, err)

	sender := &countingSender{}
	reviewUC := usecase.NewReviewUsecase(repos.Review, repos.History, repos.Subscriber, sender, zap.NewNop())

	scheduler := NewAutoSendScheduler(reviewUC, 10*time.Millisecond, zap.NewNop())
	scheduler.Start(ctx)
	defer scheduler.Stop()

	require.Eventually(t, func() bool {
		entry, err := repos.Review.GetEntry(ctx, id)
		return err == nil && entry.Status == domain.StatusSent
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, sender.calls())

	history, err := repos.History.Read(ctx, "123")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryAI, history[0].Type)
}

func TestAutoSendScheduler_IgnoresFutureEntries(t *testing.T) {
	repos, err := data.NewRepositories(filepath.Join(t.TempDir(), "shanbot.db"))
	require.NoError(t, err)
	defer repos.Close()

	ctx := context.Background()
	id, err := repos.Review.AddEntry(ctx, &domain.ReviewEntry{
		SubscriberID:      "123",
		IncomingText:      "hey",
		IncomingTimestamp: time.Now(),
		ProposedResponse:  "Sounds good!",
		Status:            domain.StatusAutoScheduled,
		ScheduledSendAt:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	sender := &countingSender{}
	reviewUC := usecase.NewReviewUsecase(repos.Review, repos.History, repos.Subscriber, sender, zap.NewNop())

	scheduler := NewAutoSendScheduler(reviewUC, 10*time.Millisecond, zap.NewNop())
	scheduler.Start(ctx)

	time.Sleep(100 * time.Millisecond)
	scheduler.Stop()

	entry, err := repos.Review.GetEntry(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAutoScheduled, entry.Status)
	assert.Equal(t, 0, sender.calls())
}

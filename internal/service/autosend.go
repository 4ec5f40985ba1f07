package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/usecase"
)

// AutoSendScheduler polls the review queue for auto_scheduled entries whose
// deferred send time has arrived and completes them.
type AutoSendScheduler struct {
	reviewUC *usecase.ReviewUsecase
	log      *zap.Logger

	pollInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewAutoSendScheduler creates a new auto-send scheduler.
func NewAutoSendScheduler(reviewUC *usecase.ReviewUsecase, pollInterval time.Duration, log *zap.Logger) *AutoSendScheduler {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	return &AutoSendScheduler{
		reviewUC:     reviewUC,
		pollInterval: pollInterval,
		log:          log.Named("autosend"),
	}
}

// Start starts the scheduler loop.
func (s *AutoSendScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop()
	s.log.Info("auto-send scheduler started", zap.Duration("poll_interval", s.pollInterval))
}

// Stop stops the scheduler and waits for the loop to exit.
func (s *AutoSendScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("auto-send scheduler stopped")
}

func (s *AutoSendScheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runDue()
		}
	}
}

func (s *AutoSendScheduler) runDue() {
	sent, err := s.reviewUC.SendDue(s.ctx, time.Now())
	if err != nil {
		s.log.Error("due-entry poll failed", zap.Error(err))
		return
	}
	if sent > 0 {
		s.log.Info("completed deferred sends", zap.Int("sent", sent))
	}
}

package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
	"github.com/shannonbirch/shanbot/internal/debounce"
)

// SubscriberState is the explicit per-subscriber processing state token.
type SubscriberState int

const (
	StateIdle SubscriberState = iota
	StateBuffering
	StateProcessing
)

// BufferConfig contains buffer configuration.
type BufferConfig struct {
	Window        time.Duration // quiescence window after the last message
	SweepInterval time.Duration // maintenance sweep cadence
	StaleAge      time.Duration // buffer age before the sweeper discards it
}

// DefaultBufferConfig returns default buffer configuration.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		Window:        60 * time.Second,
		SweepInterval: 30 * time.Minute,
		StaleAge:      2 * time.Hour,
	}
}

// BatchHandler receives a drained batch for processing.
type BatchHandler func(ctx context.Context, batch *domain.Batch)

// BufferManager coalesces rapid-fire inbound messages per subscriber into a
// single batch, emulating "wait until the user stops typing". Every
// ingestion restarts the subscriber's quiescence timer; the batch is drained
// and handed off only once the subscriber has been quiet for the full
// window. All state is owned by the manager instance, nothing is global.
type BufferManager struct {
	config  BufferConfig
	handler BatchHandler
	log     *zap.Logger

	mu      sync.Mutex
	buffers map[string][]*domain.BufferedMessage
	states  map[string]SubscriberState
	touched map[string]time.Time

	// procLocks serializes drain-and-dispatch passes per subscriber. A
	// timer firing while a pass is in flight blocks here, then drains
	// whatever arrived in the meantime (possibly nothing, which no-ops).
	procMu    sync.Mutex
	procLocks map[string]*sync.Mutex

	timers *debounce.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBufferManager creates a buffer manager that hands drained batches to
// handler.
func NewBufferManager(config BufferConfig, handler BatchHandler, log *zap.Logger) *BufferManager {
	return &BufferManager{
		config:    config,
		handler:   handler,
		log:       log.Named("buffer"),
		buffers:   make(map[string][]*domain.BufferedMessage),
		states:    make(map[string]SubscriberState),
		touched:   make(map[string]time.Time),
		procLocks: make(map[string]*sync.Mutex),
		timers:    debounce.NewGroup(),
	}
}

// Start launches the maintenance sweep loop.
func (m *BufferManager) Start(ctx context.Context) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	if m.config.SweepInterval > 0 {
		m.wg.Add(1)
		go m.sweepLoop()
	}
	m.log.Info("buffer manager started",
		zap.Duration("window", m.config.Window),
		zap.Duration("sweep_interval", m.config.SweepInterval))
}

// Shutdown cancels all pending timers and stops the sweep loop. In-flight
// dispatches finish on their own; buffered-but-undispatched messages are
// lost, which is the documented restart data-loss window.
func (m *BufferManager) Shutdown() {
	m.timers.Stop()
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.log.Info("buffer manager stopped")
}

// Ingest appends the payload to the subscriber's buffer and restarts the
// quiescence timer. It never blocks and never returns an error to the
// webhook path; a steady stream of messages under the window apart
// postpones processing until the subscriber pauses.
func (m *BufferManager) Ingest(msg *domain.BufferedMessage) {
	if msg.ArrivedAt.IsZero() {
		msg.ArrivedAt = time.Now()
	}

	m.mu.Lock()
	m.buffers[msg.SubscriberID] = append(m.buffers[msg.SubscriberID], msg)
	if m.states[msg.SubscriberID] != StateProcessing {
		m.states[msg.SubscriberID] = StateBuffering
	}
	m.touched[msg.SubscriberID] = time.Now()
	pending := len(m.buffers[msg.SubscriberID])
	m.mu.Unlock()

	subscriberID := msg.SubscriberID
	m.timers.Schedule(subscriberID, m.config.Window, func() {
		m.drainAndDispatch(subscriberID)
	})

	m.log.Debug("message buffered",
		zap.String("subscriber_id", subscriberID),
		zap.Int("pending", pending))
}

// State returns the current state token for a subscriber.
func (m *BufferManager) State(subscriberID string) SubscriberState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[subscriberID]
}

// Pending returns how many messages are currently buffered for a subscriber.
func (m *BufferManager) Pending(subscriberID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers[subscriberID])
}

// drainAndDispatch atomically removes the subscriber's buffer and hands the
// batch to the handler. At most one pass runs per subscriber at a time;
// messages arriving during a pass start a fresh buffer picked up by their
// own timer once the pass completes and releases the lock.
func (m *BufferManager) drainAndDispatch(subscriberID string) {
	lock := m.procLock(subscriberID)
	lock.Lock()
	defer lock.Unlock()

	batch := m.drain(subscriberID)
	if batch == nil {
		return
	}

	m.setState(subscriberID, StateProcessing)
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("dispatch panicked",
				zap.String("subscriber_id", subscriberID),
				zap.Any("panic", r))
		}
		m.setState(subscriberID, StateIdle)
	}()

	m.log.Info("dispatching batch",
		zap.String("subscriber_id", subscriberID),
		zap.Int("messages", len(batch.Messages)))

	ctx := m.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	m.handler(ctx, batch)
}

// drain pops the whole buffer for a subscriber, or returns nil when there is
// nothing to process (a racing drain already took it).
func (m *BufferManager) drain(subscriberID string) *domain.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := m.buffers[subscriberID]
	if len(messages) == 0 {
		return nil
	}
	delete(m.buffers, subscriberID)
	delete(m.touched, subscriberID)
	return &domain.Batch{SubscriberID: subscriberID, Messages: messages}
}

func (m *BufferManager) setState(subscriberID string, state SubscriberState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == StateIdle {
		// A message that arrived mid-pass re-enters buffering, not idle.
		if len(m.buffers[subscriberID]) > 0 {
			m.states[subscriberID] = StateBuffering
		} else {
			delete(m.states, subscriberID)
		}
		return
	}
	m.states[subscriberID] = state
}

func (m *BufferManager) procLock(subscriberID string) *sync.Mutex {
	m.procMu.Lock()
	defer m.procMu.Unlock()
	lock, ok := m.procLocks[subscriberID]
	if !ok {
		lock = &sync.Mutex{}
		m.procLocks[subscriberID] = lock
	}
	return lock
}

func (m *BufferManager) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep discards buffers untouched beyond the stale threshold. Maintenance
// only; correctness never depends on it.
func (m *BufferManager) sweep() {
	cutoff := time.Now().Add(-m.config.StaleAge)
	removed := m.timers.Sweep(m.config.StaleAge)

	m.mu.Lock()
	for subscriberID, at := range m.touched {
		if at.Before(cutoff) && !m.timers.Pending(subscriberID) {
			delete(m.buffers, subscriberID)
			delete(m.touched, subscriberID)
			delete(m.states, subscriberID)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.log.Info("swept stale buffer state", zap.Int("removed", removed))
	}
}

package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches []*domain.Batch
	block   chan struct{} // when non-nil, the handler waits on it
}

func (r *batchRecorder) handle(ctx context.Context, batch *domain.Batch) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
}

func (r *batchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *batchRecorder) last() *domain.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batches) == 0 {
		return nil
	}
	return r.batches[len(r.batches)-1]
}

func newTestManager(window time.Duration, rec *batchRecorder) *BufferManager {
	cfg := BufferConfig{Window: window}
	m := NewBufferManager(cfg, rec.handle, zap.NewNop())
	m.Start(context.Background())
	return m
}

func TestBufferManager_CoalescesBurst(t *testing.T) {
	rec := &batchRecorder{}
	m := newTestManager(50*time.Millisecond, rec)
	defer m.Shutdown()

	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "hey"})
	time.Sleep(10 * time.Millisecond)
	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "are you there"})

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	batch := rec.last()
	require.Len(t, batch.Messages, 2)
	assert.Equal(t, "hey are you there", batch.Combine())
	assert.Equal(t, 0, m.Pending("123"))
}

func TestBufferManager_IngestResetsWindow(t *testing.T) {
	rec := &batchRecorder{}
	m := newTestManager(60*time.Millisecond, rec)
	defer m.Shutdown()

	// Arrivals at t=0, 30ms, 55ms: no dispatch may happen before ~115ms.
	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "one"})
	time.Sleep(30 * time.Millisecond)
	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "two"})
	time.Sleep(25 * time.Millisecond)
	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "three"})

	time.Sleep(40 * time.Millisecond) // t ~= 95ms
	assert.Equal(t, 0, rec.count(), "dispatched before the window elapsed")

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Len(t, rec.last().Messages, 3)
}

func TestBufferManager_IndependentSubscribers(t *testing.T) {
	rec := &batchRecorder{}
	m := newTestManager(20*time.Millisecond, rec)
	defer m.Shutdown()

	m.Ingest(&domain.BufferedMessage{SubscriberID: "a", Text: "from a"})
	m.Ingest(&domain.BufferedMessage{SubscriberID: "b", Text: "from b"})

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestBufferManager_DrainIdempotent(t *testing.T) {
	rec := &batchRecorder{}
	cfg := BufferConfig{Window: time.Hour}
	m := NewBufferManager(cfg, rec.handle, zap.NewNop())
	m.Start(context.Background())
	defer m.Shutdown()

	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "hi"})

	// Simulate two timers racing for the same subscriber: the second drain
	// observes an empty buffer and no-ops.
	m.drainAndDispatch("123")
	m.drainAndDispatch("123")

	assert.Equal(t, 1, rec.count())
}

func TestBufferManager_NoConcurrentProcessing(t *testing.T) {
	rec := &batchRecorder{block: make(chan struct{})}
	cfg := BufferConfig{Window: 20 * time.Millisecond}
	m := NewBufferManager(cfg, rec.handle, zap.NewNop())
	m.Start(context.Background())
	defer m.Shutdown()

	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "first"})

	// Wait for the first dispatch to enter processing (blocked in handler).
	require.Eventually(t, func() bool {
		return m.State("123") == StateProcessing
	}, time.Second, 5*time.Millisecond)

	// A message arriving mid-processing buffers and schedules its own
	// timer; its dispatch must wait for the in-flight pass.
	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "second"})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "second pass ran while first was in flight")

	close(rec.block)

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "first", rec.batches[0].Combine())
	assert.Equal(t, "second", rec.batches[1].Combine())
}

func TestBufferManager_StateTokens(t *testing.T) {
	rec := &batchRecorder{}
	m := newTestManager(30*time.Millisecond, rec)
	defer m.Shutdown()

	assert.Equal(t, StateIdle, m.State("123"))

	m.Ingest(&domain.BufferedMessage{SubscriberID: "123", Text: "hi"})
	assert.Equal(t, StateBuffering, m.State("123"))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return m.State("123") == StateIdle }, time.Second, 5*time.Millisecond)
}

func TestBufferManager_SweepDiscardsStale(t *testing.T) {
	rec := &batchRecorder{}
	cfg := BufferConfig{Window: time.Hour, StaleAge: 10 * time.Millisecond}
	m := NewBufferManager(cfg, rec.handle, zap.NewNop())
	m.Start(context.Background())
	defer m.Shutdown()

	m.Ingest(&domain.BufferedMessage{SubscriberID: "stale", Text: "hi"})
	time.Sleep(30 * time.Millisecond)

	m.sweep()

	assert.Equal(t, 0, m.Pending("stale"))
	assert.Equal(t, 0, rec.count())
}

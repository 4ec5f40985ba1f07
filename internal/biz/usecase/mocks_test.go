package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
)

// Hand-written mocks for the repository interfaces.

type mockReviewRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.ReviewEntry
	nextID  int
	addErr  error
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{entries: make(map[string]*domain.ReviewEntry)}
}

func (m *mockReviewRepo) AddEntry(ctx context.Context, entry *domain.ReviewEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return "", m.addErr
	}
	m.nextID++
	entry.ReviewID = fmt.Sprintf("review-%d", m.nextID)
	entry.CreatedAt = time.Now()
	copied := *entry
	m.entries[entry.ReviewID] = &copied
	return entry.ReviewID, nil
}

func (m *mockReviewRepo) GetEntry(ctx context.Context, reviewID string) (*domain.ReviewEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[reviewID]
	if !ok {
		return nil, fmt.Errorf("review entry %s not found", reviewID)
	}
	copied := *e
	return &copied, nil
}

func (m *mockReviewRepo) UpdateStatus(ctx context.Context, reviewID string, status domain.ReviewStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[reviewID]
	if !ok {
		return fmt.Errorf("review entry %s not found", reviewID)
	}
	e.Status = status
	if status == domain.StatusSent {
		e.SentAt = time.Now()
	}
	return nil
}

func (m *mockReviewRepo) ListByStatus(ctx context.Context, status domain.ReviewStatus, limit int) ([]*domain.ReviewEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.ReviewEntry
	for _, e := range m.entries {
		if e.Status == status {
			copied := *e
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockReviewRepo) DueAutoScheduled(ctx context.Context, now time.Time) ([]*domain.ReviewEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.ReviewEntry
	for _, e := range m.entries {
		if e.Status == domain.StatusAutoScheduled && !e.ScheduledSendAt.IsZero() && !e.ScheduledSendAt.After(now) {
			copied := *e
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockReviewRepo) Close() error { return nil }

func (m *mockReviewRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	entries map[string]domain.History
}

func newMockHistoryRepo() *mockHistoryRepo {
	return &mockHistoryRepo{entries: make(map[string]domain.History)}
}

func (m *mockHistoryRepo) Append(ctx context.Context, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.SubscriberID] = append(m.entries[entry.SubscriberID], *entry)
	return nil
}

func (m *mockHistoryRepo) Read(ctx context.Context, subscriberID string) (domain.History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append(domain.History(nil), m.entries[subscriberID]...), nil
}

func (m *mockHistoryRepo) byType(subscriberID string, t domain.HistoryEntryType) []domain.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.HistoryEntry
	for _, e := range m.entries[subscriberID] {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

type mockSubscriberRepo struct {
	mu   sync.Mutex
	subs map[string]*domain.Subscriber
}

func newMockSubscriberRepo() *mockSubscriberRepo {
	return &mockSubscriberRepo{subs: make(map[string]*domain.Subscriber)}
}

func (m *mockSubscriberRepo) Upsert(ctx context.Context, sub *domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *sub
	m.subs[sub.SubscriberID] = &copied
	return nil
}

func (m *mockSubscriberRepo) Get(ctx context.Context, subscriberID string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[subscriberID]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *mockSubscriberRepo) SetUsername(ctx context.Context, subscriberID, igUsername string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[subscriberID]; ok {
		s.IGUsername = igUsername
	}
	return nil
}

func (m *mockSubscriberRepo) TouchBotSend(ctx context.Context, subscriberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.subs[subscriberID]; ok {
		s.LastBotSend = time.Now()
	}
	return nil
}

type mockResponder struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (m *mockResponder) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	return m.response, m.err
}

type mockFieldUpdater struct {
	mu     sync.Mutex
	fields map[string]map[string]string
	err    error
}

func newMockFieldUpdater() *mockFieldUpdater {
	return &mockFieldUpdater{fields: make(map[string]map[string]string)}
}

func (m *mockFieldUpdater) SetFields(ctx context.Context, subscriberID string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.fields[subscriberID] == nil {
		m.fields[subscriberID] = make(map[string]string)
	}
	for k, v := range fields {
		m.fields[subscriberID][k] = v
	}
	return nil
}

func (m *mockFieldUpdater) get(subscriberID, name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fields[subscriberID][name]
}

type mockProfileFetcher struct {
	mu      sync.Mutex
	profile *domain.Profile
	err     error
	calls   int
}

func (m *mockProfileFetcher) FetchProfile(ctx context.Context, subscriberID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.profile, nil
}

func (m *mockProfileFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *mockSender) SendText(ctx context.Context, subscriberID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockSender) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

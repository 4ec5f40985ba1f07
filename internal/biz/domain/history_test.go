package domain

import (
	"testing"
	"time"
)

func TestHistory_LastAITimestamp(t *testing.T) {
	now := time.Now()
	h := History{
		{Type: HistoryUser, Timestamp: now.Add(-10 * time.Minute)},
		{Type: HistoryAI, Timestamp: now.Add(-8 * time.Minute)},
		{Type: HistoryUser, Timestamp: now.Add(-2 * time.Minute)},
	}

	got := h.LastAITimestamp()
	if !got.Equal(now.Add(-8 * time.Minute)) {
		t.Errorf("Expected timestamp of latest AI entry, got %v", got)
	}

	var empty History
	if !empty.LastAITimestamp().IsZero() {
		t.Error("Expected zero time for history without AI entries")
	}
}

func TestElapsedSinceLastReply_Tiers(t *testing.T) {
	now := time.Now()
	batchStart := now.Add(-30 * time.Second)

	// Tier 1: subscriber record's last-send timestamp.
	got := ElapsedSinceLastReply(now.Add(-5*time.Minute), nil, batchStart)
	if got < 269 || got > 271 {
		t.Errorf("Expected ~270s from last bot send, got %v", got)
	}

	// Tier 2: backward history scan.
	h := History{{Type: HistoryAI, Timestamp: now.Add(-10 * time.Minute)}}
	got = ElapsedSinceLastReply(time.Time{}, h, batchStart)
	if got < 569 || got > 571 {
		t.Errorf("Expected ~570s from history scan, got %v", got)
	}

	// Tier 3: wall clock minus batch start.
	got = ElapsedSinceLastReply(time.Time{}, nil, batchStart)
	if got < 29 || got > 32 {
		t.Errorf("Expected ~30s wall-clock fallback, got %v", got)
	}
}

func TestElapsedSinceLastReply_NeverNegative(t *testing.T) {
	now := time.Now()
	// Bot send recorded after the batch start (clock skew).
	got := ElapsedSinceLastReply(now.Add(time.Minute), nil, now)
	if got != 0 {
		t.Errorf("Expected clamped 0, got %v", got)
	}
}

func TestHistory_Format(t *testing.T) {
	h := History{
		{Type: HistoryUser, Text: "hey"},
		{Type: HistoryAI, Text: "hey! how's training?"},
	}

	got := h.Format(10)
	want := "Lead: hey\nShannon: hey! how's training?\n"
	if got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestHistory_Format_Cap(t *testing.T) {
	h := History{
		{Type: HistoryUser, Text: "one"},
		{Type: HistoryUser, Text: "two"},
		{Type: HistoryUser, Text: "three"},
	}

	got := h.Format(2)
	want := "Lead: two\nLead: three\n"
	if got != want {
		t.Errorf("Format(2) = %q, want %q", got, want)
	}
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// HistoryEntryType distinguishes who authored a conversation record.
type HistoryEntryType string

const (
	HistoryUser HistoryEntryType = "user"
	HistoryAI   HistoryEntryType = "ai"
)

// HistoryEntry is one persisted conversation record. AI entries are appended
// only after a confirmed send, so the history reflects what the user
// actually saw.
type HistoryEntry struct {
	SubscriberID string
	Timestamp    time.Time
	Type         HistoryEntryType
	Text         string
	MediaURL     string
}

// History is the ordered conversation record for one subscriber.
type History []HistoryEntry

// LastAITimestamp scans backward for the most recent bot entry. The zero
// time means the bot has never replied.
func (h History) LastAITimestamp() time.Time {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Type == HistoryAI {
			return h[i].Timestamp
		}
	}
	return time.Time{}
}

// Format renders the history as the plain conversation transcript fed into
// prompts, most recent last, capped at the trailing max entries.
func (h History) Format(max int) string {
	entries := h
	if max > 0 && len(entries) > max {
		entries = entries[len(entries)-max:]
	}

	var sb strings.Builder
	for _, e := range entries {
		role := "Lead"
		if e.Type == HistoryAI {
			role = "Shannon"
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", role, e.Text))
	}
	return sb.String()
}

// ElapsedSinceLastReply resolves the elapsed seconds between the bot's last
// outbound message and the start of the current batch. Fallback tiers: the
// subscriber record's last-send timestamp, then a backward history scan,
// then wall clock minus batch start. Always finite and non-negative.
func ElapsedSinceLastReply(lastBotSend time.Time, h History, batchStart time.Time) float64 {
	ref := lastBotSend
	if ref.IsZero() {
		ref = h.LastAITimestamp()
	}
	elapsed := 0.0
	if !ref.IsZero() {
		elapsed = batchStart.Sub(ref).Seconds()
	} else {
		elapsed = time.Since(batchStart).Seconds()
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

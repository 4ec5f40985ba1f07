package domain

import (
	"fmt"
	"strings"
	"time"
)

// BufferedMessage represents one inbound webhook payload held in a
// subscriber's buffer until the quiescence window elapses.
type BufferedMessage struct {
	SubscriberID string
	Text         string
	MediaURL     string
	MediaType    string
	ArrivedAt    time.Time
}

// Fragment returns the text that this message contributes to the combined
// batch. A media-only message contributes its URL so downstream media
// handlers can act on it.
func (m *BufferedMessage) Fragment() string {
	text := strings.TrimSpace(m.Text)
	if m.MediaURL == "" {
		return text
	}
	if text == "" {
		return m.MediaURL
	}
	return text + " " + m.MediaURL
}

// IsEmpty reports whether the message carries no usable content at all.
func (m *BufferedMessage) IsEmpty() bool {
	return strings.TrimSpace(m.Text) == "" && m.MediaURL == ""
}

// Batch is the set of buffered messages drained together for one subscriber.
type Batch struct {
	SubscriberID string
	Messages     []*BufferedMessage
}

// IsEmpty reports whether the batch holds no usable content across all items.
func (b *Batch) IsEmpty() bool {
	for _, m := range b.Messages {
		if !m.IsEmpty() {
			return false
		}
	}
	return true
}

// StartedAt returns the earliest arrival timestamp in the batch. Response
// latency is measured from the first message of the batch, not the last.
func (b *Batch) StartedAt() time.Time {
	var earliest time.Time
	for _, m := range b.Messages {
		if earliest.IsZero() || m.ArrivedAt.Before(earliest) {
			earliest = m.ArrivedAt
		}
	}
	return earliest
}

// Combine concatenates the batch fragments in arrival order, collapsing
// exact-duplicate fragments into a single occurrence annotated with a repeat
// count. Three identical "hi" fragments become "[3x] hi"; distinct fragments
// keep their order and are space-joined.
func (b *Batch) Combine() string {
	counts := make(map[string]int)
	var order []string
	for _, m := range b.Messages {
		frag := m.Fragment()
		if frag == "" {
			continue
		}
		if counts[frag] == 0 {
			order = append(order, frag)
		}
		counts[frag]++
	}

	parts := make([]string, 0, len(order))
	for _, frag := range order {
		if n := counts[frag]; n > 1 {
			parts = append(parts, fmt.Sprintf("[%dx] %s", n, frag))
		} else {
			parts = append(parts, frag)
		}
	}
	return strings.Join(parts, " ")
}

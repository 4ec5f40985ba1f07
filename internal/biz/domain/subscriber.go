package domain

import (
	"fmt"
	"strings"
	"time"
)

// Subscriber is an end-user identity on the chat platform, keyed by the
// stable platform-assigned id. Created implicitly on the first webhook.
type Subscriber struct {
	SubscriberID string
	IGUsername   string
	FirstName    string
	LastName     string
	Metrics      string // profile metrics JSON blob, fed into prompts as-is
	LastBotSend  time.Time
	CreatedAt    time.Time
}

// Profile is subscriber profile data fetched from the chat platform.
type Profile struct {
	IGUsername string
	FirstName  string
	LastName   string
}

// PlaceholderUsername returns the stand-in handle used until the real
// Instagram username is backfilled by an out-of-band lookup.
func PlaceholderUsername(subscriberID string) string {
	return "user_" + subscriberID
}

// HasRealUsername reports whether the stored handle is an actual Instagram
// username rather than the placeholder form.
func (s *Subscriber) HasRealUsername() bool {
	return s.IGUsername != "" && !strings.HasPrefix(s.IGUsername, "user_")
}

// DisplayName returns the best available human-readable name.
func (s *Subscriber) DisplayName() string {
	name := strings.TrimSpace(fmt.Sprintf("%s %s", s.FirstName, s.LastName))
	if name != "" {
		return name
	}
	if s.IGUsername != "" {
		return s.IGUsername
	}
	return s.SubscriberID
}

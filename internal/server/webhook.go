package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
)

// webhookPayload is one inbound ManyChat chat event.
type webhookPayload struct {
	SubscriberID string `json:"subscriber_id"`
	Text         string `json:"text"`
	Media        *struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	} `json:"media"`
	CreatedAt  int64  `json:"created_at"` // epoch seconds, optional
	IGUsername string `json:"ig_username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// handleWebhook buffers the event and acknowledges immediately. The
// platform gets its 200 before any processing happens; the batch is
// dispatched in the background once the subscriber goes quiet.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(payload.SubscriberID) == "" {
		http.Error(w, "missing subscriber_id", http.StatusBadRequest)
		return
	}

	msg := &domain.BufferedMessage{
		SubscriberID: payload.SubscriberID,
		Text:         payload.Text,
	}
	if payload.Media != nil {
		msg.MediaURL = payload.Media.URL
		msg.MediaType = payload.Media.Type
	}
	if payload.CreatedAt > 0 {
		msg.ArrivedAt = time.Unix(payload.CreatedAt, 0)
	} else {
		msg.ArrivedAt = time.Now()
	}

	s.buffer.Ingest(msg)
	s.upsertSubscriber(r, &payload)

	s.log.Debug("webhook accepted",
		zap.String("subscriber_id", payload.SubscriberID),
		zap.Bool("has_media", payload.Media != nil))

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EXTERNAL_MESSAGE_BUFFERED"))
}

// upsertSubscriber records the profile fields the webhook happened to carry.
// Best effort: failure here never affects the ack or the buffered message.
func (s *Server) upsertSubscriber(r *http.Request, payload *webhookPayload) {
	if s.subscribers == nil {
		return
	}
	sub := &domain.Subscriber{
		SubscriberID: payload.SubscriberID,
		IGUsername:   payload.IGUsername,
		FirstName:    payload.FirstName,
		LastName:     payload.LastName,
	}
	if err := s.subscribers.Upsert(r.Context(), sub); err != nil {
		s.log.Warn("subscriber upsert failed",
			zap.String("subscriber_id", payload.SubscriberID), zap.Error(err))
	}
}

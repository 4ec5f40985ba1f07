package server

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/domain"
)

var validStatuses = map[string]domain.ReviewStatus{
	"pending_review": domain.StatusPendingReview,
	"auto_scheduled": domain.StatusAutoScheduled,
	"sent":           domain.StatusSent,
	"rejected":       domain.StatusRejected,
}

// reviewView is the JSON shape of a review entry.
type reviewView struct {
	ReviewID         string `json:"review_id"`
	SubscriberID     string `json:"subscriber_id"`
	IGUsername       string `json:"ig_username"`
	IncomingText     string `json:"incoming_text"`
	IncomingTS       int64  `json:"incoming_ts"`
	PromptText       string `json:"prompt_text"`
	ProposedResponse string `json:"proposed_response"`
	Status           string `json:"status"`
	PromptType       string `json:"prompt_type,omitempty"`
	CreatedAt        int64  `json:"created_at"`
	ScheduledSendAt  int64  `json:"scheduled_send_at,omitempty"`
	SentAt           int64  `json:"sent_at,omitempty"`
}

func toReviewView(e *domain.ReviewEntry) reviewView {
	v := reviewView{
		ReviewID:         e.ReviewID,
		SubscriberID:     e.SubscriberID,
		IGUsername:       e.IGUsername,
		IncomingText:     e.IncomingText,
		IncomingTS:       e.IncomingTimestamp.Unix(),
		PromptText:       e.PromptText,
		ProposedResponse: e.ProposedResponse,
		Status:           string(e.Status),
		PromptType:       e.PromptType,
		CreatedAt:        e.CreatedAt.Unix(),
	}
	if !e.ScheduledSendAt.IsZero() {
		v.ScheduledSendAt = e.ScheduledSendAt.Unix()
	}
	if !e.SentAt.IsZero() {
		v.SentAt = e.SentAt.Unix()
	}
	return v
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	statusParam := r.URL.Query().Get("status")
	if statusParam == "" {
		statusParam = "pending_review"
	}
	status, ok := validStatuses[statusParam]
	if !ok {
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := s.reviewUC.List(r.Context(), status, limit)
	if err != nil {
		s.log.Error("review list failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	views := make([]reviewView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toReviewView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entry, err := s.reviewUC.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toReviewView(entry))
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.reviewUC.Approve(r.Context(), id); err != nil {
		s.log.Warn("approve failed", zap.String("review_id", id), zap.Error(err))
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"review_id": id, "status": "sent"})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.reviewUC.Reject(r.Context(), id); err != nil {
		s.log.Warn("reject failed", zap.String("review_id", id), zap.Error(err))
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"review_id": id, "status": "rejected"})
}

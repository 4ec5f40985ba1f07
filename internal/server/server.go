package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shannonbirch/shanbot/internal/biz/repo"
	"github.com/shannonbirch/shanbot/internal/biz/usecase"
)

// Server exposes the webhook receiver and the review admin API.
type Server struct {
	buffer      *usecase.BufferManager
	reviewUC    *usecase.ReviewUsecase
	subscribers repo.SubscriberRepo
	log         *zap.Logger

	httpSrv *http.Server
	port    int
}

// NewServer creates a new HTTP server.
func NewServer(buffer *usecase.BufferManager, reviewUC *usecase.ReviewUsecase, subscribers repo.SubscriberRepo, port int, log *zap.Logger) *Server {
	return &Server{
		buffer:      buffer,
		reviewUC:    reviewUC,
		subscribers: subscribers,
		port:        port,
		log:         log.Named("http"),
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("http server starting", zap.Int("port", s.port))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Router builds the HTTP handler. Exposed separately so tests can drive it
// through httptest without binding a port.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/webhook/manychat", s.handleWebhook).Methods(http.MethodPost)
	r.HandleFunc("/api/reviews", s.handleListReviews).Methods(http.MethodGet)
	r.HandleFunc("/api/reviews/{id}", s.handleGetReview).Methods(http.MethodGet)
	r.HandleFunc("/api/reviews/{id}/approve", s.handleApprove).Methods(http.MethodPost)
	r.HandleFunc("/api/reviews/{id}/reject", s.handleReject).Methods(http.MethodPost)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

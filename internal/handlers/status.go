package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ahsanfayaz52/notebot/internal/middleware"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// PollState exposes the poll loop's progress. *bot.Bot satisfies it.
type PollState interface {
	Offset() int64
	LastPoll() time.Time
}

type statusResponse struct {
	Offset   int64      `json:"offset"`
	LastPoll *time.Time `json:"last_poll,omitempty"`
}

func NewRouter(db Pinger, state PollState, logger *zap.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	r.HandleFunc("/healthz", HealthHandler(db)).Methods("GET")
	r.HandleFunc("/status", StatusHandler(state)).Methods("GET")
	return r
}

func HealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}
}

func StatusHandler(state PollState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{Offset: state.Offset()}
		if last := state.LastPoll(); !last.IsZero() {
			resp.LastPoll = &last
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

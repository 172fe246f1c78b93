package busmetrics

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"caravela.dev/busmetrics/model"
)

// Server exposes the cron trigger endpoint the external scheduler
// invokes once per day, plus a health probe.
type Server struct {
	pipeline *Pipeline
	secret   string

	httpServer *http.Server
}

func NewServer(pipeline *Pipeline, secret string) *Server {
	return &Server{
		pipeline: pipeline,
		secret:   secret,
	}
}

// Handler returns the server's routes. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/cron/daily-rollup", s.handleDailyRollup)
	return mux
}

// Start begins listening on port. Aggregation runs can be slow, so
// the write timeout stays generous; the scheduler timing out does not
// stop the underlying run.
func (s *Server) Start(port int) {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", s.httpServer.Addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleDailyRollup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = model.Date(time.Now().UTC().AddDate(0, 0, -1))
	}
	if _, _, err := model.DayWindow(date); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid date"}`))
		return
	}

	began := time.Now()
	summary, err := s.pipeline.Run(date)
	if err != nil {
		log.Printf("daily rollup for %s failed after %s: %v", date, time.Since(began), err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"aggregation failed"}`))
		return
	}

	log.Printf("daily rollup for %s: %d positions, %d trips in %s",
		date, summary.Positions, summary.Trips, summary.Elapsed)

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"date":             summary.Date,
		"positions":        summary.Positions,
		"trips":            summary.Trips,
		"routePerformance": summary.RoutePerformance,
		"elapsed":          summary.Elapsed.String(),
	})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) == 1
}

package server

import (
	"context"
	"crypto-oracle-bot/internal/alert"
	"crypto-oracle-bot/internal/report"
	"encoding/json"
	"fmt"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
	"time"
)

// Status is served on /status
type Status struct {
	Engine alert.Status  `json:"engine"`
	Report report.Status `json:"report"`
}

// StatusFunc returns the current status snapshot
type StatusFunc func() Status

// NewRouter builds the ops endpoints
func NewRouter(gatherer prometheus.Gatherer, status StatusFunc) *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/health", handleHealth).Methods("GET")
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status()); err != nil {
			log.WithError(err).Error("Failed to encode status")
		}
	}).Methods("GET")

	return router
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Server serves the ops endpoints until Shutdown
type Server struct {
	http *http.Server
}

// New creates a server listening on port
func New(port int, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// ListenAndServe blocks until the server stops, a clean shutdown is not an error
func (s *Server) ListenAndServe() error {
	log.Infof("Launching metrics and health endpoint on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

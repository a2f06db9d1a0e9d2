// Package api exposes the admin HTTP surface: scan triggering, queue
// inspection and the health probes.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/solidstone/mediascan/internal/auth"
	"github.com/solidstone/mediascan/internal/httputil"
	"github.com/solidstone/mediascan/internal/models"
)

// triggerScope gates the endpoints that touch the scanner.
const triggerScope = "scanner.trigger"

// Requests is the read side of the queue the API exposes.
type Requests interface {
	List(ctx context.Context, status string) ([]models.Request, error)
}

// Pinger reports database reachability for the readiness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	requests Requests
	db       Pinger
	trigger  func()
	mux      *http.ServeMux
}

// NewServer wires the routes. trigger starts a full scan and must return
// immediately; verifier may be nil to run without authentication.
func NewServer(requests Requests, db Pinger, trigger func(), verifier *auth.Verifier) *Server {
	if verifier == nil {
		log.Printf("[api] JWKS_URL not set, admin endpoints are unauthenticated")
	}
	s := &Server{requests: requests, db: db, trigger: trigger, mux: http.NewServeMux()}
	s.mux.Handle("PUT /scan", verifier.RequireScope(triggerScope, http.HandlerFunc(s.handleScan)))
	s.mux.Handle("GET /scan", verifier.RequireScope(triggerScope, http.HandlerFunc(s.handleStatus)))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Listen serves until ctx is done, then drains with a short grace period.
func (s *Server) Listen(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("[api] listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	log.Printf("[api] full scan requested")
	s.trigger()
	w.WriteHeader(http.StatusNoContent)
}

type requestStatus struct {
	ID        int64      `json:"id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Year      *int       `json:"year"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", "pending", "running", "failed":
	default:
		httputil.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown status "+status)
		return
	}

	reqs, err := s.requests.List(r.Context(), status)
	if err != nil {
		log.Printf("[api] list requests: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "listing requests failed")
		return
	}

	out := make([]requestStatus, len(reqs))
	for i, req := range reqs {
		out[i] = requestStatus{
			ID:        req.PK,
			Kind:      string(req.Kind),
			Title:     req.Title,
			Year:      req.Year,
			Status:    string(req.Status),
			StartedAt: req.StartedAt,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"status":   "unhealthy",
			"database": err.Error(),
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "healthy",
	})
}

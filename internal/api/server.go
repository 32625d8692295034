// Package api provides the HTTP API for observing a running simulation.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/authorsim/internal/authors"
	"github.com/talgya/authorsim/internal/engine"
)

// Server serves simulation state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Clock    *engine.Clock
	Hub      *Hub // Optional; nil disables /api/v1/stream
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// CORSOrigins are extra browser origins allowed besides local dev servers.
	CORSOrigins []string

	// Ctx bounds clocks started through /api/v1/resume.
	Ctx context.Context
}

// Handler builds the API routes.
func (s *Server) Handler() http.Handler {
	resumeLimiter := NewRateLimiter(30, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/authors", s.handleAuthors)
	mux.HandleFunc("/api/v1/author/", s.handleAuthorDetail)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/resume", s.adminOnly(RateLimitMiddleware(resumeLimiter, s.handleResume)))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start serves the API in a goroutine until ctx is done.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "stream", s.Hub != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP shutdown", "error", err)
		}
	}()
}

// devOrigins are local frontend dev servers, always allowed.
var devOrigins = []string{
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:3000",
}

// corsMiddleware lets renderers on the listed origins read the API and post
// to the admin endpoints.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(devOrigins)+len(origins))
	for _, o := range append(append([]string(nil), devOrigins...), origins...) {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); allowed[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authorized reports whether r carries the admin key as a bearer token.
func (s *Server) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(token), []byte(s.AdminKey)) == 1
}

// adminOnly guards the mutating half of an endpoint: POSTs need the admin
// key, everything else passes through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next(w, r)
			return
		}
		switch {
		case s.AdminKey == "":
			http.Error(w, "admin endpoints disabled (no AUTHORSIM_ADMIN_KEY set)", http.StatusForbidden)
		case !s.authorized(r):
			w.Header().Set("WWW-Authenticate", `Bearer realm="authorsim"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		default:
			next(w, r)
		}
	}
}

// statusResponse is the body of GET /api/v1/status.
type statusResponse struct {
	engine.Status
	Running bool    `json:"running"`
	Speed   float64 `json:"speed"`
	Ticks   uint64  `json:"ticks"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.Sim.Status()}
	if s.Clock != nil {
		resp.Running = s.Clock.Running()
		resp.Speed = s.Clock.Speed()
		resp.Ticks = s.Clock.Ticks()
	}
	writeJSON(w, resp)
}

// authorView is an author plus its derived class.
type authorView struct {
	authors.Author
	Class authors.Class `json:"class"`
}

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request) {
	var filter authors.Class
	if q := r.URL.Query().Get("class"); q != "" {
		c, ok := authors.ParseClass(q)
		if !ok {
			http.Error(w, "unknown class (want gifted, critic or banal)", http.StatusBadRequest)
			return
		}
		filter = c
	}

	result := make([]authorView, 0)
	for _, a := range s.Sim.Authors() {
		if filter != "" && a.Class() != filter {
			continue
		}
		result = append(result, authorView{Author: a, Class: a.Class()})
	}
	writeJSON(w, result)
}

// handleAuthorDetail serves GET /api/v1/author/:id.
func (s *Server) handleAuthorDetail(w http.ResponseWriter, r *http.Request) {
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/author/"), "/")
	if raw == "" {
		http.Error(w, "missing author id", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid author id", http.StatusBadRequest)
		return
	}

	a, ok := s.Sim.Author(authors.AuthorID(id))
	if !ok {
		http.Error(w, "author not found", http.StatusNotFound)
		return
	}
	writeJSON(w, authorView{Author: a, Class: a.Class()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Stats())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "streaming disabled", http.StatusNotFound)
		return
	}
	s.Hub.ServeWS(w, r)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Clock.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Clock.Speed()})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := s.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	started := s.Clock.Resume(ctx)
	slog.Info("resume requested", "started", started, "finished", s.Clock.Finished())

	writeJSON(w, map[string]bool{
		"started":  started,
		"running":  s.Clock.Running(),
		"finished": s.Clock.Finished(),
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

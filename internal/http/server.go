package http

import (
	"log/slog"
	"net/http"
	"time"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

type Server struct {
	http.Server
	store      *storage.Store
	tokens     *auth.TokenService
	bcryptCost int
	corsOrigin string
}

// Options carries handler-level settings that are not part of routing.
type Options struct {
	BcryptCost int
	CORSOrigin string
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server listening on addr.
func NewServer(addr string, store *storage.Store, tokens *auth.TokenService, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:      store,
		tokens:     tokens,
		bcryptCost: opts.BcryptCost,
		corsOrigin: opts.CORSOrigin,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/categories", s.withMiddleware(s.handleCategories))
	mux.HandleFunc("/api/transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("/api/budgets", s.withMiddleware(s.handleBudgets))
	mux.HandleFunc("/api/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("/api/register", s.withMiddleware(s.handleRegister))
	mux.HandleFunc("/api/login", s.withMiddleware(s.handleLogin))

	return s
}

// withMiddleware adds CORS headers and request logging to an API handler.
// The browser client runs on a different origin, so preflight requests are
// answered here before they reach the handlers.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}
		requestID := generateRequestID()

		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.Info("Request completed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready only when the store answers queries.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Summary(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

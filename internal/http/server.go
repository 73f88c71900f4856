// Package http exposes the savings ledger over a JSON API. All account
// routes sit behind a cookie session checked server side.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stash/internal/config"
	"stash/internal/log"
	"stash/internal/services"
	"stash/internal/storage"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

type Server struct {
	http.Server

	ledger   *services.LedgerService
	users    storage.UserStore
	sessions *sessionStore
	accounts []string

	basePath     string
	frontendURL  string
	cookieName   string
	historyLimit int

	rateLimiter  *rateLimiter
	logger       *log.Logger
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(cfg *config.Config, ledger *services.LedgerService, users storage.UserStore, accounts []string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    ":" + cfg.Port,
			Handler: mux,
		},
		ledger:       ledger,
		users:        users,
		sessions:     newSessionStore(cfg.SessionSecret, cfg.SessionLifetime, cfg.SessionSweep, logger),
		accounts:     accounts,
		basePath:     strings.TrimSuffix(cfg.APIBasePath, "/"),
		frontendURL:  cfg.FrontendURL,
		cookieName:   cfg.SessionCookie,
		historyLimit: cfg.HistoryLimit,
		rateLimiter:  newRateLimiter(),
		logger:       logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc(s.basePath+"/auth/verify", s.withMiddleware(s.handleVerify))
	mux.HandleFunc(s.basePath+"/auth/logout", s.withMiddleware(s.handleLogout))
	mux.HandleFunc(s.basePath+"/auth/status", s.withMiddleware(s.handleStatus))
	mux.HandleFunc(s.basePath+"/account/update", s.withMiddleware(s.requireSession(s.handleUpdate)))
	mux.HandleFunc(s.basePath+"/account/history", s.withMiddleware(s.requireSession(s.handleHistory)))
	mux.HandleFunc(s.basePath+"/health", s.withMiddleware(handleHealth))
	mux.HandleFunc("/healthz", handleHealth)

	return s
}

// Shutdown stops the session sweeper and rate limiter before draining
// the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.sessions != nil {
			s.sessions.stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds CORS, security headers, rate limiting, and request
// logging to a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := clientAddr(r)

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		if s.frontendURL != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.frontendURL)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "rate limit exceeded",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatus, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// requireSession rejects requests without a live session cookie.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.cookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if _, ok := s.sessions.Validate(cookie.Value); !ok {
			writeError(w, http.StatusUnauthorized, "Session expired. Please log in again.")
			return
		}
		next(w, r)
	}
}

// clientAddr extracts the client IP, considering proxies.
func clientAddr(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
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

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "ok", nil)
}

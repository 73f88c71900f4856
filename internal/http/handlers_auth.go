package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"stash/internal/log"
	"stash/internal/storage"
)

type verifyRequest struct {
	Password string `json:"password"`
}

// statusResponse is not wrapped in the shared envelope: consumers read
// authenticated as a top-level field.
type statusResponse struct {
	Success       bool `json:"success"`
	Authenticated bool `json:"authenticated"`
}

// handleVerify checks the shared password and opens a session.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}

	hash, err := s.users.PasswordHash(r.Context())
	if errors.Is(err, storage.ErrNoUser) {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to load password hash", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, err := s.sessions.Create()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to create session", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, "Authentication successful", nil)
}

// handleLogout destroys the session behind the cookie, if present. The
// response is always a success so clients can clear local state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if cookie, err := r.Cookie(s.cookieName); err == nil {
		s.sessions.Destroy(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, "Logged out", nil)
}

// handleStatus reports whether the request carries a live session.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	authenticated := false
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		_, authenticated = s.sessions.Validate(cookie.Value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(statusResponse{Success: true, Authenticated: authenticated})
}

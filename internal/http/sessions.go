package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"stash/internal/log"
)

// sessionStore keeps authenticated sessions server side. The cookie only
// carries a signed token referencing the session ID, so revocation and
// idle expiry are decided here, never by the client.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionRecord

	secret   []byte
	lifetime time.Duration

	stopSweep    chan struct{}
	shutdownOnce sync.Once
	logger       *log.Logger
}

type sessionRecord struct {
	id        string
	createdAt time.Time
	lastSeen  time.Time
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func newSessionStore(secret string, lifetime, sweepInterval time.Duration, logger *log.Logger) *sessionStore {
	st := &sessionStore{
		sessions:  make(map[string]*sessionRecord),
		secret:    []byte(secret),
		lifetime:  lifetime,
		stopSweep: make(chan struct{}),
		logger:    logger.WithComponent(log.ComponentSession),
	}
	go st.startSweep(sweepInterval)
	return st
}

// Create registers a new session and returns its signed cookie token.
func (st *sessionStore) Create() (string, error) {
	id, err := newSessionID()
	if err != nil {
		return "", err
	}

	now := time.Now()
	st.mu.Lock()
	st.sessions[id] = &sessionRecord{id: id, createdAt: now, lastSeen: now}
	st.mu.Unlock()

	claims := sessionClaims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(st.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Validate checks the token and the idle deadline of the session behind
// it. A valid call refreshes the session's last-seen timestamp.
func (st *sessionStore) Validate(token string) (string, bool) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return st.secret, nil
	})
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return "", false
	}

	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()

	rec, ok := st.sessions[claims.SessionID]
	if !ok {
		return "", false
	}
	if now.Sub(rec.lastSeen) > st.lifetime {
		delete(st.sessions, rec.id)
		return "", false
	}
	rec.lastSeen = now
	return rec.id, true
}

// Destroy removes the session behind the token, if any.
func (st *sessionStore) Destroy(token string) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return st.secret, nil
	})
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return
	}

	st.mu.Lock()
	delete(st.sessions, claims.SessionID)
	st.mu.Unlock()
}

func (st *sessionStore) startSweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := st.sweepExpired(); removed > 0 {
				st.logger.Debug("swept expired sessions", "removed", removed)
			}
		case <-st.stopSweep:
			return
		}
	}
}

func (st *sessionStore) sweepExpired() int {
	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, rec := range st.sessions {
		if now.Sub(rec.lastSeen) > st.lifetime {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

func (st *sessionStore) stop() {
	st.shutdownOnce.Do(func() {
		close(st.stopSweep)
	})
}

func newSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

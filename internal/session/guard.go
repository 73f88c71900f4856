// Package session owns the client-visible authentication state: whether
// the user currently holds a valid session, the last-activity clock, and
// the inactivity timeout that forces re-authentication.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"stash/internal/log"
)

// State is the guard's position in the auth lifecycle.
type State int

const (
	// StateChecking is the initial state while an existing session is
	// being looked up.
	StateChecking State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// ErrRejected marks an authentication attempt the server refused, as
// opposed to one that never reached the server.
var ErrRejected = errors.New("authentication rejected")

// AuthService is the external collaborator that verifies passwords and
// owns server-side sessions.
type AuthService interface {
	// Verify checks the password. A nil error means a session was issued.
	// ErrRejected means the server refused the password; any other error
	// is a connection failure.
	Verify(ctx context.Context, password string) error
	// Logout invalidates the server-side session.
	Logout(ctx context.Context) error
	// Status reports whether the server still considers the client
	// authenticated.
	Status(ctx context.Context) (bool, error)
}

const (
	msgInvalidPassword = "Invalid password"
	msgConnection      = "Connection error. Please check your network and try again."
)

// Config tunes a Guard. Two inactivity timeouts have been in production
// use (5 and 30 minutes), so the value is deliberately a parameter with a
// default rather than a constant.
type Config struct {
	Auth AuthService
	// InactivityTimeout forces a logout after this much time with no
	// recorded activity. Default 5 minutes.
	InactivityTimeout time.Duration
	// CheckInterval is how often the monitor compares now against the
	// last activity. Default 10 seconds.
	CheckInterval time.Duration
	// KeepSessionOnProtectedAuthError disables the default policy of
	// expiring the session whenever a 401/403 is reported from any
	// protected endpoint, not just auth status checks. The policy is
	// applied uniformly across endpoints either way.
	KeepSessionOnProtectedAuthError bool
	// Now is the clock, injectable for tests. Default time.Now.
	Now    func() time.Time
	Logger *log.Logger
}

// Guard gates protected operations behind the shared password and
// auto-expires idle sessions. It is the single writer of session state;
// readers observe it through the accessor methods or Subscribe.
type Guard struct {
	auth          AuthService
	timeout       time.Duration
	checkInterval time.Duration
	expirePolicy  bool
	now           func() time.Time
	logger        *log.Logger

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	errMsg       string
	monitorStop  chan struct{}
	subscribers  map[int]func(State)
	nextSub      int
}

// New creates a guard in the checking state. Call CheckExistingSession to
// resolve it.
func New(cfg Config) *Guard {
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = 5 * time.Minute
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(log.Config{Component: log.ComponentSession})
	}
	return &Guard{
		auth:          cfg.Auth,
		timeout:       cfg.InactivityTimeout,
		checkInterval: cfg.CheckInterval,
		expirePolicy:  !cfg.KeepSessionOnProtectedAuthError,
		now:           cfg.Now,
		logger:        cfg.Logger,
		state:         StateChecking,
		subscribers:   make(map[int]func(State)),
	}
}

// CheckExistingSession resolves the initial state by querying the status
// endpoint. Any failure resolves to unauthenticated rather than leaving
// the guard stuck checking: access fails closed.
func (g *Guard) CheckExistingSession(ctx context.Context) bool {
	ok, err := g.auth.Status(ctx)
	if err != nil {
		g.logger.Warn("session status check failed, treating as unauthenticated", log.FieldError, err)
		ok = false
	}
	if ok {
		g.setAuthenticated()
		return true
	}
	g.expireLocally("")
	return false
}

// Login sends the password to the auth service. It never propagates an
// error: every failure resolves to false plus a user-facing message,
// with connection failures worded differently from rejections.
func (g *Guard) Login(ctx context.Context, password string) bool {
	g.setError("")
	err := g.auth.Verify(ctx, password)
	switch {
	case err == nil:
		g.setAuthenticated()
		return true
	case errors.Is(err, ErrRejected):
		g.logger.Warn("login rejected")
		g.setError(msgInvalidPassword)
		return false
	default:
		g.logger.Warn("login connection failure", log.FieldError, err)
		g.setError(msgConnection)
		return false
	}
}

// Logout ends the session. The server call is best effort: local state is
// cleared whether or not it succeeds.
func (g *Guard) Logout(ctx context.Context) {
	defer g.expireLocally("")
	if err := g.auth.Logout(ctx); err != nil {
		g.logger.Warn("server logout failed, clearing local session anyway", log.FieldError, err)
	}
}

// RecordActivity refreshes the inactivity deadline. It is a no-op while
// not authenticated; no activity is tracked for a logged-out client.
func (g *Guard) RecordActivity() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateAuthenticated {
		return
	}
	g.lastActivity = g.now()
}

// NotifyAuthRejected is called by any consumer of protected endpoints that
// observed a 401/403. Whether it forces the session down is the uniform
// policy set at construction.
func (g *Guard) NotifyAuthRejected() {
	g.mu.Lock()
	policy := g.expirePolicy
	authenticated := g.state == StateAuthenticated
	g.mu.Unlock()
	if !policy || !authenticated {
		return
	}
	g.logger.Warn("auth rejection observed on protected endpoint, expiring session")
	g.expireLocally("")
}

// Authenticated reports whether the client holds a valid session.
func (g *Guard) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == StateAuthenticated
}

// State returns the current lifecycle state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the last authentication failure message, empty after a
// success or a fresh attempt.
func (g *Guard) Err() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.errMsg
}

// LastActivity returns the last recorded activity time. Only meaningful
// while authenticated.
func (g *Guard) LastActivity() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActivity
}

// Subscribe registers a state-change listener and returns its remover.
// The remover is safe to call more than once.
func (g *Guard) Subscribe(fn func(State)) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subscribers[id] = fn
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subscribers, id)
			g.mu.Unlock()
		})
	}
}

// Close tears the guard down: the monitor stops and no periodic check can
// fire against a logged-out session afterwards.
func (g *Guard) Close() {
	g.mu.Lock()
	g.stopMonitorLocked()
	g.mu.Unlock()
}

func (g *Guard) setAuthenticated() {
	g.mu.Lock()
	changed := g.state != StateAuthenticated
	g.state = StateAuthenticated
	g.errMsg = ""
	g.lastActivity = g.now()
	g.startMonitorLocked()
	subs := g.snapshotSubscribersLocked()
	g.mu.Unlock()
	if changed {
		notify(subs, StateAuthenticated)
	}
}

func (g *Guard) expireLocally(errMsg string) {
	g.mu.Lock()
	changed := g.state != StateUnauthenticated
	g.state = StateUnauthenticated
	g.errMsg = errMsg
	g.lastActivity = time.Time{}
	g.stopMonitorLocked()
	subs := g.snapshotSubscribersLocked()
	g.mu.Unlock()
	if changed {
		notify(subs, StateUnauthenticated)
	}
}

func (g *Guard) setError(msg string) {
	g.mu.Lock()
	g.errMsg = msg
	g.mu.Unlock()
}

// startMonitorLocked is idempotent: a second start while the monitor is
// already running never double-registers a ticker.
func (g *Guard) startMonitorLocked() {
	if g.monitorStop != nil {
		return
	}
	stop := make(chan struct{})
	g.monitorStop = stop
	go g.monitor(stop)
}

func (g *Guard) stopMonitorLocked() {
	if g.monitorStop == nil {
		return
	}
	close(g.monitorStop)
	g.monitorStop = nil
}

func (g *Guard) monitor(stop chan struct{}) {
	ticker := time.NewTicker(g.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.checkInactivity()
		case <-stop:
			return
		}
	}
}

// checkInactivity triggers the automatic logout once the idle window is
// exceeded.
func (g *Guard) checkInactivity() {
	g.mu.Lock()
	expired := g.state == StateAuthenticated && g.now().Sub(g.lastActivity) >= g.timeout
	g.mu.Unlock()
	if !expired {
		return
	}
	g.logger.Info("inactivity timeout exceeded, logging out", "timeout", g.timeout.String())
	g.Logout(context.Background())
}

func (g *Guard) snapshotSubscribersLocked() []func(State) {
	subs := make([]func(State), 0, len(g.subscribers))
	for _, fn := range g.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}

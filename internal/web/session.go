package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/evcraddock/field-visits/internal/app"
)

const (
	// DefaultSessionTTL is how long an idle session keeps its state.
	DefaultSessionTTL = 12 * time.Hour
	cookieName        = "fv_session"
	sessionIDKey      = "id"
)

// session is one browser's application state.
type session struct {
	id   string
	ctrl *app.Controller
	// geo and settle are nil in host-bridge mode.
	geo    *pageGeolocator
	settle *settleListener

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// SessionStore maps session cookies to controllers.
type SessionStore struct {
	cookies *sessions.CookieStore
	build   func(s *session) *app.Controller
	ttl     time.Duration
	now     func() time.Time

	mu   sync.Mutex
	byID map[string]*session
}

// newSessionStore creates a store. build wires a new controller for a session.
func newSessionStore(secret []byte, ttl time.Duration, build func(*session) *app.Controller) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{
		cookies: cookies,
		build:   build,
		ttl:     ttl,
		now:     time.Now,
		byID:    make(map[string]*session),
	}
}

// Get returns the caller's session, creating one and setting the cookie
// when the request carries no live session. created reports a new session.
func (s *SessionStore) Get(w http.ResponseWriter, r *http.Request) (sess *session, created bool, err error) {
	cs, err := s.cookies.Get(r, cookieName)
	if err != nil {
		// Undecodable cookie (rotated secret); start over.
		slog.Debug("discarding session cookie", "error", err)
	}

	if id, ok := cs.Values[sessionIDKey].(string); ok {
		s.mu.Lock()
		sess = s.byID[id]
		s.mu.Unlock()
		if sess != nil {
			sess.touch(s.now())
			return sess, false, nil
		}
	}

	sess = &session{id: uuid.NewString(), lastSeen: s.now()}
	sess.ctrl = s.build(sess)

	cs.Values[sessionIDKey] = sess.id
	if err := cs.Save(r, w); err != nil {
		if cerr := sess.ctrl.Close(); cerr != nil {
			slog.Warn("closing session", "error", cerr)
		}
		return nil, false, fmt.Errorf("saving session cookie: %w", err)
	}

	s.mu.Lock()
	s.byID[sess.id] = sess
	s.mu.Unlock()
	slog.Info("session started", "session", sess.id)
	return sess, true, nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Cleanup tears down sessions idle for longer than the TTL.
func (s *SessionStore) Cleanup() int {
	now := s.now()

	s.mu.Lock()
	var expired []*session
	for id, sess := range s.byID {
		if sess.idleSince(now) > s.ttl {
			expired = append(expired, sess)
			delete(s.byID, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		if err := sess.ctrl.Close(); err != nil {
			slog.Warn("closing expired session", "session", sess.id, "error", err)
		}
		slog.Info("session expired", "session", sess.id)
	}
	return len(expired)
}

// Close tears down every session.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	all := s.byID
	s.byID = make(map[string]*session)
	s.mu.Unlock()

	var firstErr error
	for _, sess := range all {
		if err := sess.ctrl.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

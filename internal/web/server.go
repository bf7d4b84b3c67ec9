// Package web provides the HTTP server and handlers for the field visit
// mobile web UI.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/evcraddock/field-visits/internal/app"
	"github.com/evcraddock/field-visits/internal/location"
	"github.com/evcraddock/field-visits/internal/logging"
	"github.com/evcraddock/field-visits/internal/visit"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	// cleanupInterval is how often idle sessions are swept.
	cleanupInterval = 10 * time.Minute
	// defaultPromptGrace is how long the server waits past the page's
	// geolocation timeout, which does not count the permission prompt.
	defaultPromptGrace = 2 * time.Minute
)

// Config wires the server to its collaborators.
type Config struct {
	Repo     app.Repository
	Resolver app.AddressResolver
	// Bridge selects host-bridge location for every session. When nil,
	// each session asks its own browser for a position.
	Bridge *location.HostBridge
	// Geo configures browser position requests. Zero selects
	// location.DefaultOptions; zero Grace selects two minutes.
	Geo location.Options
	// SessionSecret signs the session cookie. Empty generates a random key,
	// so sessions do not survive a restart.
	SessionSecret []byte
	SessionTTL    time.Duration
	// ToastTTL is how long toasts stay visible. Zero selects app.DefaultToastTTL.
	ToastTTL time.Duration
	Now      func() time.Time
}

// Server is the web UI HTTP server.
type Server struct {
	cfg       Config
	templates *template.Template
	mux       *http.ServeMux
	sessions  *SessionStore
}

// NewServer creates a web server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Repo == nil {
		return nil, errors.New("entry repository is required")
	}
	if cfg.Geo == (location.Options{}) {
		cfg.Geo = location.DefaultOptions
	}
	if cfg.Geo.Grace == 0 {
		cfg.Geo.Grace = defaultPromptGrace
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.SessionSecret) == 0 {
		cfg.SessionSecret = securecookie.GenerateRandomKey(32)
		if cfg.SessionSecret == nil {
			return nil, errors.New("generating session secret")
		}
	}

	funcMap := template.FuncMap{
		"coord":      tmplCoord,
		"fieldError": tmplFieldError,
		"contactKey": tmplContactKey,
		"millis":     tmplMillis,
		"mapURL":     tmplMapURL,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		templates: tmpl,
		mux:       http.NewServeMux(),
	}
	s.sessions = newSessionStore(cfg.SessionSecret, cfg.SessionTTL, s.newController)
	s.sessions.now = cfg.Now

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}

	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.withSession(s.handleIndex))
	s.mux.HandleFunc("POST /refresh", s.withSession(s.handleRefresh))
	s.mux.HandleFunc("POST /tab", s.withSession(s.handleTab))
	s.mux.HandleFunc("POST /new", s.withSession(s.handleNew))
	s.mux.HandleFunc("POST /entries/{id}/edit", s.withSession(s.handleEdit))
	s.mux.HandleFunc("POST /entries/{id}/view", s.withSession(s.handleView))
	s.mux.HandleFunc("POST /entries/{id}/delete", s.withSession(s.handleDelete))
	s.mux.HandleFunc("POST /edit", s.withSession(s.handleEditCurrent))
	s.mux.HandleFunc("POST /back", s.withSession(s.handleBack))
	s.mux.HandleFunc("POST /form", s.withSession(s.handleForm))
	s.mux.HandleFunc("POST /location/report", s.withSession(s.handleLocationReport))

	return s, nil
}

// newController builds the controller for a new session.
func (s *Server) newController(sess *session) *app.Controller {
	var locator app.Locator
	if bridge := s.cfg.Bridge; bridge != nil {
		locator = func(l location.Listener) location.Provider {
			return bridge.Subscribe(l)
		}
	} else {
		sess.geo = &pageGeolocator{}
		locator = func(l location.Listener) location.Provider {
			sess.settle = newSettleListener(l)
			return location.NewDeviceProvider(sess.geo, s.cfg.Geo, sess.settle)
		}
	}
	return app.New(app.Config{
		Repo:     s.cfg.Repo,
		Resolver: s.cfg.Resolver,
		Locator:  locator,
		Now:      s.cfg.Now,
		ToastTTL: s.cfg.ToastTTL,
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Sessions exposes the session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves the UI until ctx is cancelled, sweeping idle
// sessions in the background.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           logging.RequestLogger(s),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					slog.Warn("shutting down web UI", "error", err)
				}
				return
			case <-ticker.C:
				s.sessions.Cleanup()
			}
		}
	}()

	slog.Info("starting web UI", "addr", "http://localhost"+srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close tears down every session.
func (s *Server) Close() error {
	return s.sessions.Close()
}

// Template helper functions

func tmplCoord(f *float64) string {
	if f == nil {
		return ""
	}
	return visit.FormatCoordinate(*f)
}

func tmplFieldError(errs visit.FieldErrors, key string) string {
	return errs[key]
}

func tmplContactKey(i int, field string) string {
	return fmt.Sprintf("contacts.%d.%s", i, field)
}

func tmplMillis(d time.Duration) int64 {
	return d.Milliseconds()
}

func tmplMapURL(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return ""
	}
	la, lo := visit.FormatCoordinate(*lat), visit.FormatCoordinate(*lon)
	return fmt.Sprintf("https://www.openstreetmap.org/?mlat=%s&mlon=%s#map=18/%s/%s", la, lo, la, lo)
}

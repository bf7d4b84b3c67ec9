package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/field-visits/internal/app"
	"github.com/evcraddock/field-visits/internal/location"
	"github.com/evcraddock/field-visits/internal/logging"
	"github.com/evcraddock/field-visits/internal/visit"
)

// settleTimeout bounds how long a location report waits for the state to update.
const settleTimeout = 5 * time.Second

var (
	draftFields    = []string{"date", "companyName", "address", "reminder", "status", "notes", "latitude", "longitude"}
	contactFields  = []string{"contactName", "phone", "email", "notes"}
	// locationFields may be filled in after the page rendered.
	locationFields = map[string]bool{"address": true, "latitude": true, "longitude": true}
)

type tabItem struct {
	Tab    visit.Tab
	Label  string
	Count  int
	Active bool
}

type geoOptions struct {
	HighAccuracy     bool
	TimeoutMillis    int64
	MaximumAgeMillis int64
}

type pageData struct {
	app.State
	Tabs           []tabItem
	Statuses       []visit.Status
	Geolocate      bool
	Geo            geoOptions
	ToastTTLMillis int64
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

// withSession resolves the caller's session. A new session loads the
// entry list before its first page.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, created, err := s.sessions.Get(w, r)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error starting session: %v", err), http.StatusInternalServerError)
			return
		}
		logging.AddAttrs(r.Context(), "session", sess.id)
		if created {
			if err := sess.ctrl.Refresh(r.Context()); err != nil {
				slog.Warn("initial entry load failed", "session", sess.id, "error", err)
			}
		}
		h(w, r, sess)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// handleIndex renders the page for the session's current mode.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, sess *session) {
	st := sess.ctrl.Snapshot()

	data := pageData{
		State:    st,
		Statuses: visit.Statuses,
		Geolocate: sess.geo != nil && st.Mode == app.ModeForm &&
			st.Locating && st.LocationMode == location.ModeBrowser,
		Geo: geoOptions{
			HighAccuracy:     s.cfg.Geo.HighAccuracy,
			TimeoutMillis:    s.cfg.Geo.Timeout.Milliseconds(),
			MaximumAgeMillis: s.cfg.Geo.MaximumAge.Milliseconds(),
		},
	}
	for _, tab := range visit.Tabs() {
		data.Tabs = append(data.Tabs, tabItem{
			Tab:    tab,
			Label:  tab.Label(),
			Count:  st.Counts[tab],
			Active: tab == st.Tab,
		})
	}
	if st.Toast != nil {
		remaining := sess.ctrl.Toasts().TTL() - s.cfg.Now().Sub(st.Toast.ShownAt)
		data.ToastTTLMillis = max(remaining.Milliseconds(), 0)
	}

	s.render(w, "layout", data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request, sess *session) {
	s.finish(w, r, sess.ctrl.Refresh(r.Context()))
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	tab, err := visit.ParseTab(r.FormValue("tab"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.finish(w, r, sess.ctrl.SetTab(tab))
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request, sess *session) {
	s.finish(w, r, sess.ctrl.NewEntry())
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, sess *session) {
	s.finish(w, r, sess.ctrl.Edit(visit.ID(r.PathValue("id"))))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, sess *session) {
	s.finish(w, r, sess.ctrl.View(visit.ID(r.PathValue("id"))))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	confirmed := r.FormValue("confirm") == "yes"
	s.finish(w, r, sess.ctrl.Delete(r.Context(), visit.ID(r.PathValue("id")), confirmed))
}

func (s *Server) handleEditCurrent(w http.ResponseWriter, r *http.Request, sess *session) {
	s.finish(w, r, sess.ctrl.EditCurrent())
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request, sess *session) {
	s.finish(w, r, sess.ctrl.Back())
}

// handleForm applies the posted draft fields, then runs the requested action.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if err := applyForm(sess.ctrl, r.PostForm); err != nil {
		if !errors.Is(err, app.ErrInvalidTransition) {
			sess.ctrl.Toasts().Show(fmt.Sprintf("Invalid value: %v", err), app.ToastError)
		}
		s.finish(w, r, err)
		return
	}

	action, arg, _ := strings.Cut(r.PostForm.Get("action"), ":")
	var err error
	switch action {
	case "", "update":
	case "save":
		err = sess.ctrl.Submit(r.Context())
	case "add-contact":
		err = sess.ctrl.AddContact()
	case "remove-contact":
		if arg == "" {
			arg = r.PostForm.Get("index")
		}
		index, convErr := strconv.Atoi(arg)
		if convErr != nil {
			http.Error(w, "Invalid contact index", http.StatusBadRequest)
			return
		}
		err = sess.ctrl.RemoveContact(index)
	case "locate":
		err = sess.ctrl.RequestLocation(r.Context())
	default:
		http.Error(w, fmt.Sprintf("Unknown action %q", action), http.StatusBadRequest)
		return
	}
	s.finish(w, r, err)
}

// handleLocationReport accepts the page's geolocation outcome and waits
// until the session state reflects it.
func (s *Server) handleLocationReport(w http.ResponseWriter, r *http.Request, sess *session) {
	if sess.geo == nil {
		http.Error(w, "Location comes from the host in this mode", http.StatusConflict)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	rep, err := parseReport(r.PostForm)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess.settle.drain()
	if err := sess.geo.Report(rep); err != nil {
		// The request already ended, usually by timing out; its toast is on the page.
		slog.Debug("dropping late location report", "session", sess.id, "error", err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	select {
	case <-sess.settle.settled:
	case <-time.After(settleTimeout):
		slog.Warn("location report not applied in time", "session", sess.id)
	case <-r.Context().Done():
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// finish maps an intent's outcome to a response. Failures the controller
// already toasted go back to the page.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErrs visit.FieldErrors
	switch {
	case err == nil:
	case errors.Is(err, app.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, app.ErrNotConfirmed):
		http.Error(w, "Delete must be confirmed", http.StatusBadRequest)
		return
	case errors.Is(err, app.ErrInvalidTransition):
		slog.Debug("ignoring intent", "path", r.URL.Path, "error", err)
	case errors.As(err, &fieldErrs):
		slog.Debug("draft invalid", "fields", err.Error())
	default:
		slog.Warn("request failed", "path", r.URL.Path, "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// applyForm copies posted draft fields into the controller's draft.
// Fields absent from the form are left alone.
func applyForm(c *app.Controller, form url.Values) error {
	rev, revErr := strconv.ParseUint(form.Get("locationRev"), 10, 64)
	for _, name := range draftFields {
		if _, ok := form[name]; !ok {
			continue
		}
		var err error
		if locationFields[name] && revErr == nil {
			err = c.SetLocationField(rev, name, form.Get(name))
		} else {
			err = c.SetField(name, form.Get(name))
		}
		if err != nil {
			return err
		}
	}

	n := len(c.Snapshot().Draft.Contacts)
	for i := 0; i < n; i++ {
		for _, field := range contactFields {
			key := tmplContactKey(i, field)
			if _, ok := form[key]; !ok {
				continue
			}
			if err := c.SetContactField(i, field, form.Get(key)); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseReport decodes the page's geolocation outcome.
func parseReport(form url.Values) (positionReport, error) {
	if form.Get("unsupported") != "" {
		return positionReport{err: location.ErrUnsupported}, nil
	}
	if code := form.Get("code"); code != "" {
		n, err := strconv.Atoi(code)
		if err != nil {
			return positionReport{}, fmt.Errorf("invalid error code %q", code)
		}
		return positionReport{err: &location.PositionError{Code: n, Message: form.Get("message")}}, nil
	}

	lat, err := strconv.ParseFloat(form.Get("latitude"), 64)
	if err != nil {
		return positionReport{}, fmt.Errorf("invalid latitude %q", form.Get("latitude"))
	}
	lon, err := strconv.ParseFloat(form.Get("longitude"), 64)
	if err != nil {
		return positionReport{}, fmt.Errorf("invalid longitude %q", form.Get("longitude"))
	}
	pos := location.Position{Latitude: lat, Longitude: lon}
	if acc := form.Get("accuracy"); acc != "" {
		if a, err := strconv.ParseFloat(acc, 64); err == nil {
			pos.Accuracy = a
		}
	}
	return positionReport{pos: pos}, nil
}

// render executes a named template.
func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, fmt.Sprintf("Error rendering template: %v", err), http.StatusInternalServerError)
	}
}

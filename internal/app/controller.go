// Package app holds the field visit application state and the view
// controller that routes user intents to the API, the form draft and the
// location provider.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evcraddock/field-visits/internal/location"
	"github.com/evcraddock/field-visits/internal/visit"
)

// Mode is the top-level presentation state.
type Mode string

const (
	ModeList Mode = "list"
	ModeForm Mode = "form"
	ModeView Mode = "view"
)

var (
	// ErrInvalidTransition is returned for an intent the current mode does not allow.
	ErrInvalidTransition = errors.New("invalid view transition")
	// ErrNotFound is returned when an entry id is not in the loaded list.
	ErrNotFound = errors.New("entry not found")
	// ErrNotConfirmed is returned when a delete was not confirmed by the user.
	ErrNotConfirmed = errors.New("delete not confirmed")
)

// resolveTimeout bounds one reverse geocoding lookup.
const resolveTimeout = 15 * time.Second

// Repository is the remote entry store.
type Repository interface {
	ListEntries(ctx context.Context) ([]visit.Entry, error)
	CreateEntry(ctx context.Context, e visit.Entry) (*visit.Entry, error)
	UpdateEntry(ctx context.Context, id visit.ID, e visit.Entry) (*visit.Entry, error)
	DeleteEntry(ctx context.Context, id visit.ID) error
}

// AddressResolver turns coordinates into an address.
type AddressResolver interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Locator builds the location provider for a controller.
type Locator func(location.Listener) location.Provider

// Config wires a Controller to its collaborators.
type Config struct {
	Repo     Repository
	Resolver AddressResolver
	Locator  Locator
	Now      func() time.Time
	ToastTTL time.Duration
}

// State is a read-only snapshot of the application state.
type State struct {
	Mode         Mode
	Tab          visit.Tab
	Entries      []visit.Entry // entries under Tab
	Counts       map[visit.Tab]int
	Draft        visit.Entry
	EditingID    visit.ID
	FieldErrors  visit.FieldErrors
	Toast        *Toast
	Locating     bool
	LocationMode location.Mode
	// LocationRev counts location writes made outside a form submission.
	LocationRev uint64
}

// Editing reports whether the form is editing an existing entry.
func (s State) Editing() bool { return s.EditingID != "" }

// Controller owns one user's application state. All methods are safe for
// concurrent use; network calls run without holding the state lock.
type Controller struct {
	repo     Repository
	resolver AddressResolver
	provider location.Provider
	now      func() time.Time
	toasts   *Toaster

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	mode      Mode
	tab       visit.Tab
	entries   []visit.Entry
	draft     *visit.Draft
	editingID visit.ID
	fieldErrs visit.FieldErrors

	// listGen identifies the latest list request; older responses are dropped.
	listGen uint64
	// draftGen changes whenever the draft is replaced. Location fixes and
	// resolved addresses for an older draft are dropped.
	draftGen uint64
	locGen   uint64
	locating bool
	// locRev bumps whenever a fix or resolved address lands in the draft.
	locRev uint64
}

// New creates a controller in list mode with a fresh draft.
func New(cfg Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		repo:     cfg.Repo,
		resolver: cfg.Resolver,
		now:      now,
		toasts:   NewToaster(cfg.ToastTTL, now),
		ctx:      ctx,
		cancel:   cancel,
		mode:     ModeList,
		tab:      visit.TabAll,
		entries:  []visit.Entry{},
		draft:    visit.NewDraft(now()),
	}
	if cfg.Locator != nil {
		c.provider = cfg.Locator(c)
	}
	return c
}

// Close tears down the location subscription and waits for background work.
func (c *Controller) Close() error {
	c.cancel()
	var err error
	if c.provider != nil {
		err = c.provider.Close()
	}
	c.wg.Wait()
	return err
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Mode:        c.mode,
		Tab:         c.tab,
		Entries:     visit.Filter(c.entries, c.tab),
		Counts:      visit.Counts(c.entries),
		Draft:       c.draft.Entry(),
		EditingID:   c.editingID,
		FieldErrors: c.fieldErrs,
		Locating:    c.locating && c.locGen == c.draftGen,
		LocationRev: c.locRev,
	}
	if c.provider != nil {
		st.LocationMode = c.provider.Mode()
	}
	if t, ok := c.toasts.Current(); ok {
		st.Toast = &t
	}
	return st
}

// Toasts exposes the toast slot.
func (c *Controller) Toasts() *Toaster {
	return c.toasts
}

// Refresh reloads the entry list. On failure the list is emptied rather
// than left stale.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.listGen++
	gen := c.listGen
	c.mu.Unlock()

	entries, err := c.repo.ListEntries(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.listGen {
		slog.Debug("discarding stale entry list", "gen", gen, "latest", c.listGen)
		return nil
	}
	if err != nil {
		c.entries = []visit.Entry{}
		c.toasts.Show("Failed to load entries", ToastError)
		return fmt.Errorf("loading entries: %w", err)
	}
	c.entries = entries
	return nil
}

// SetTab selects the status filter for the list.
func (c *Controller) SetTab(tab visit.Tab) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeList {
		return fmt.Errorf("%w: tab change in %s mode", ErrInvalidTransition, c.mode)
	}
	c.tab = tab
	return nil
}

// NewEntry opens the form with a fresh draft.
func (c *Controller) NewEntry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeList {
		return fmt.Errorf("%w: new entry from %s mode", ErrInvalidTransition, c.mode)
	}
	c.replaceDraftLocked(visit.NewDraft(c.now()), "")
	c.mode = ModeForm
	return nil
}

// Edit opens the form on an existing entry from the list.
func (c *Controller) Edit(id visit.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeList {
		return fmt.Errorf("%w: edit from %s mode", ErrInvalidTransition, c.mode)
	}
	e, ok := c.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.replaceDraftLocked(visit.DraftFrom(e), id)
	c.mode = ModeForm
	return nil
}

// View opens the detail view on an entry from the list.
func (c *Controller) View(id visit.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeList {
		return fmt.Errorf("%w: view from %s mode", ErrInvalidTransition, c.mode)
	}
	e, ok := c.findLocked(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c.replaceDraftLocked(visit.DraftFrom(e), "")
	c.mode = ModeView
	return nil
}

// EditCurrent switches from the detail view to editing the same entry.
func (c *Controller) EditCurrent() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeView {
		return fmt.Errorf("%w: edit current from %s mode", ErrInvalidTransition, c.mode)
	}
	c.editingID = c.draft.ID()
	c.fieldErrs = nil
	c.mode = ModeForm
	return nil
}

// Back returns to the list, discarding the draft.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeList {
		return fmt.Errorf("%w: back from list", ErrInvalidTransition)
	}
	c.replaceDraftLocked(visit.NewDraft(c.now()), "")
	c.mode = ModeList
	return nil
}

// SetField updates one draft field.
func (c *Controller) SetField(name, value string) error {
	return c.editDraft(func(d *visit.Draft) error { return d.SetField(name, value) })
}

// SetLocationField updates address, latitude or longitude as seen at
// revision rev. The value is ignored when a fix or resolved address has
// landed since then.
func (c *Controller) SetLocationField(rev uint64, name, value string) error {
	return c.editDraft(func(d *visit.Draft) error {
		if rev != c.locRev {
			slog.Debug("ignoring stale location field", "field", name, "rev", rev, "current", c.locRev)
			return nil
		}
		return d.SetField(name, value)
	})
}

// SetContactField updates one field of one contact.
func (c *Controller) SetContactField(index int, field, value string) error {
	return c.editDraft(func(d *visit.Draft) error { return d.SetContactField(index, field, value) })
}

// AddContact appends a blank contact to the draft.
func (c *Controller) AddContact() error {
	return c.editDraft(func(d *visit.Draft) error {
		d.AddContact()
		return nil
	})
}

// RemoveContact removes a contact unless it is the last one.
func (c *Controller) RemoveContact(index int) error {
	return c.editDraft(func(d *visit.Draft) error {
		d.RemoveContact(index)
		return nil
	})
}

func (c *Controller) editDraft(fn func(*visit.Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeForm {
		return fmt.Errorf("%w: draft edit in %s mode", ErrInvalidTransition, c.mode)
	}
	return fn(c.draft)
}

// Submit validates the draft and creates or updates it on the API.
// On success the list is reloaded and the controller returns to list mode.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeForm {
		c.mu.Unlock()
		return fmt.Errorf("%w: submit in %s mode", ErrInvalidTransition, c.mode)
	}
	if errs := c.draft.Validate(); errs != nil {
		c.fieldErrs = errs
		c.toasts.Show("Please fill in the required fields.", ToastError)
		c.mu.Unlock()
		return errs
	}
	c.fieldErrs = nil
	entry := c.draft.Entry()
	id := c.editingID
	gen := c.draftGen
	c.mu.Unlock()

	var err error
	if id == "" {
		_, err = c.repo.CreateEntry(ctx, entry)
	} else {
		_, err = c.repo.UpdateEntry(ctx, id, entry)
	}
	if err != nil {
		c.toasts.Show("Failed to save entry", ToastError)
		return fmt.Errorf("saving entry: %w", err)
	}

	if rerr := c.Refresh(ctx); rerr != nil {
		slog.Warn("refresh after save failed", "error", rerr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draftGen == gen && c.mode == ModeForm {
		c.replaceDraftLocked(visit.NewDraft(c.now()), "")
		c.mode = ModeList
	}
	if id == "" {
		c.toasts.Show("Entry saved successfully!", ToastSuccess)
	} else {
		c.toasts.Show("Entry updated successfully!", ToastSuccess)
	}
	return nil
}

// Delete removes an entry after the user confirmed it.
func (c *Controller) Delete(ctx context.Context, id visit.ID, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	c.mu.Lock()
	if c.mode == ModeForm {
		c.mu.Unlock()
		return fmt.Errorf("%w: delete in form mode", ErrInvalidTransition)
	}
	c.mu.Unlock()

	if err := c.repo.DeleteEntry(ctx, id); err != nil {
		c.toasts.Show("Failed to delete entry", ToastError)
		return fmt.Errorf("deleting entry: %w", err)
	}

	if rerr := c.Refresh(ctx); rerr != nil {
		slog.Warn("refresh after delete failed", "error", rerr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == ModeView && c.draft.ID() == id {
		c.replaceDraftLocked(visit.NewDraft(c.now()), "")
		c.mode = ModeList
	}
	c.toasts.Show("Entry deleted successfully!", ToastSuccess)
	return nil
}

// replaceDraftLocked swaps in a new draft and invalidates pending location work.
func (c *Controller) replaceDraftLocked(d *visit.Draft, editingID visit.ID) {
	c.draft = d
	c.editingID = editingID
	c.fieldErrs = nil
	c.draftGen++
}

func (c *Controller) findLocked(id visit.ID) (visit.Entry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return visit.Entry{}, false
}

package app

import (
	"errors"
	"sync"
	"time"

	"github.com/evcraddock/field-visits/internal/location"
)

// DefaultToastTTL is how long a toast stays visible.
const DefaultToastTTL = 3 * time.Second

// ToastKind styles a toast.
type ToastKind string

const (
	ToastInfo    ToastKind = "info"
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient status message.
type Toast struct {
	Message string
	Kind    ToastKind
	ShownAt time.Time
	// Help is offered after HelpDelay when set (location permission denied).
	HelpURL    string
	HelpPrompt string
	HelpDelay  time.Duration
}

// Toaster holds a single toast slot. Every Show replaces the current toast,
// and a toast disappears once its TTL has passed.
type Toaster struct {
	mu      sync.Mutex
	current *Toast
	ttl     time.Duration
	now     func() time.Time
}

// NewToaster creates a toaster. Zero ttl selects DefaultToastTTL.
func NewToaster(ttl time.Duration, now func() time.Time) *Toaster {
	if ttl <= 0 {
		ttl = DefaultToastTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Toaster{ttl: ttl, now: now}
}

// TTL is how long each toast stays visible.
func (t *Toaster) TTL() time.Duration {
	return t.ttl
}

// Show replaces the current toast.
func (t *Toaster) Show(msg string, kind ToastKind) {
	t.set(Toast{Message: msg, Kind: kind})
}

// ShowError shows err as an error toast, carrying any help link it offers.
func (t *Toaster) ShowError(err error) {
	toast := Toast{Message: err.Error(), Kind: ToastError}
	var locErr *location.Error
	if errors.As(err, &locErr) && locErr.HelpURL != "" {
		toast.HelpURL = locErr.HelpURL
		toast.HelpPrompt = location.HelpPrompt
		toast.HelpDelay = locErr.HelpDelay
	}
	t.set(toast)
}

func (t *Toaster) set(toast Toast) {
	t.mu.Lock()
	defer t.mu.Unlock()
	toast.ShownAt = t.now()
	t.current = &toast
}

// Current returns the visible toast, if any.
func (t *Toaster) Current() (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Toast{}, false
	}
	if t.now().Sub(t.current.ShownAt) >= t.ttl {
		t.current = nil
		return Toast{}, false
	}
	return *t.current, true
}

// Dismiss clears the current toast.
func (t *Toaster) Dismiss() {
	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()
}

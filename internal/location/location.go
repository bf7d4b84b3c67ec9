// Package location acquires the device position through one of two
// mutually exclusive channels: a native host shell reached over a message
// channel, or a browser-style geolocation capability.
package location

import (
	"context"
	"errors"
	"time"
)

// Mode names the acquisition channel a provider uses.
type Mode string

const (
	ModeBrowser    Mode = "browser"
	ModeHostBridge Mode = "host-bridge"
)

// HelpURL explains how to grant location permission in the browser.
const HelpURL = "https://support.google.com/chrome/answer/142065?hl=en"

// HelpPrompt is the confirmation shown before opening HelpURL.
const HelpPrompt = "To enable location:\n1. Click the lock icon in address bar\n2. Click \"Site settings\"\n3. Allow \"Location\"\n\nOpen instructions?"

// Fix is a successfully acquired position. Address is empty when the
// channel did not supply one.
type Fix struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Listener receives the outcome of location requests.
// Implementations must be safe to call from any goroutine.
type Listener interface {
	LocationUpdate(Fix)
	LocationError(error)
}

// Provider starts location requests. RequestLocation never blocks waiting
// for the position; the outcome arrives on the provider's Listener.
type Provider interface {
	Mode() Mode
	RequestLocation(ctx context.Context) error
	Close() error
}

// Reason classifies a location failure.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonPermissionDenied
	ReasonUnavailable
	ReasonTimeout
	ReasonUnsupported
	ReasonHost
)

// ErrUnsupported is returned when no geolocation capability is available.
var ErrUnsupported = errors.New("geolocation unsupported")

// Error is a location failure with the message shown to the user.
type Error struct {
	Reason  Reason
	Message string
	// HelpURL, when set, is offered to the user after HelpDelay.
	HelpURL   string
	HelpDelay time.Duration
}

func (e *Error) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrUnsupported) match unsupported failures.
func (e *Error) Is(target error) bool {
	return target == ErrUnsupported && e.Reason == ReasonUnsupported
}

// NewError builds the user-facing error for a failure reason.
func NewError(reason Reason) *Error {
	switch reason {
	case ReasonPermissionDenied:
		return &Error{
			Reason:    reason,
			Message:   "Location permission denied. Please allow location access in your browser settings.",
			HelpURL:   HelpURL,
			HelpDelay: time.Second,
		}
	case ReasonUnavailable:
		return &Error{Reason: reason, Message: "Location information is unavailable. Please check if location services are enabled on your device."}
	case ReasonTimeout:
		return &Error{Reason: reason, Message: "Location request timed out. Please try again."}
	case ReasonUnsupported:
		return &Error{Reason: reason, Message: "Geolocation is not supported by your browser."}
	default:
		return &Error{Reason: ReasonUnknown, Message: "An unknown error occurred while getting location."}
	}
}

// hostError wraps an error string reported by the host shell.
func hostError(msg string) *Error {
	if msg == "" {
		msg = "unknown error"
	}
	return &Error{Reason: ReasonHost, Message: "Location error: " + msg}
}

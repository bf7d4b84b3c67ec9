package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Options configures a single position request.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
	// Grace extends the provider's own wait past Timeout. The geolocator is
	// still asked for Timeout; Grace covers time its clock does not count,
	// such as a browser permission prompt.
	Grace time.Duration
}

// DefaultOptions asks for a fresh, high accuracy fix within 15 seconds.
var DefaultOptions = Options{
	HighAccuracy: true,
	Timeout:      15 * time.Second,
	MaximumAge:   0,
}

// Position is a raw fix from a Geolocator.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// PositionError codes, as defined by the W3C Geolocation API.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// PositionError is a failure reported by a Geolocator.
type PositionError struct {
	Code    int
	Message string
}

func (e *PositionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geolocation error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("geolocation error %d", e.Code)
}

// Geolocator is the browser-style position capability.
// CurrentPosition blocks until a fix, a failure, or ctx is done.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
}

// DeviceProvider acquires positions from a Geolocator.
type DeviceProvider struct {
	geo      Geolocator
	opts     Options
	listener Listener
}

// NewDeviceProvider creates a browser-mode provider. A nil geolocator is
// allowed; every request then fails as unsupported.
func NewDeviceProvider(geo Geolocator, opts Options, l Listener) *DeviceProvider {
	return &DeviceProvider{geo: geo, opts: opts, listener: l}
}

// Mode implements Provider.
func (p *DeviceProvider) Mode() Mode { return ModeBrowser }

// RequestLocation starts one position request. Exactly one listener
// callback follows, from a separate goroutine.
func (p *DeviceProvider) RequestLocation(ctx context.Context) error {
	if p.geo == nil {
		go p.listener.LocationError(NewError(ReasonUnsupported))
		return nil
	}

	go func() {
		reqCtx := ctx
		if p.opts.Timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout+p.opts.Grace)
			defer cancel()
		}

		pos, err := p.geo.CurrentPosition(reqCtx, p.opts)
		if err != nil {
			slog.Debug("geolocation failed", "error", err)
			p.listener.LocationError(classify(err))
			return
		}
		p.listener.LocationUpdate(Fix{Latitude: pos.Latitude, Longitude: pos.Longitude})
	}()
	return nil
}

// Close implements Provider. A device provider holds no subscription.
func (p *DeviceProvider) Close() error { return nil }

// classify maps a Geolocator failure to the user-facing error.
func classify(err error) *Error {
	var locErr *Error
	if errors.As(err, &locErr) {
		return locErr
	}

	var posErr *PositionError
	if errors.As(err, &posErr) {
		switch posErr.Code {
		case CodePermissionDenied:
			return NewError(ReasonPermissionDenied)
		case CodePositionUnavailable:
			return NewError(ReasonUnavailable)
		case CodeTimeout:
			return NewError(ReasonTimeout)
		}
		return NewError(ReasonUnknown)
	}

	switch {
	case errors.Is(err, ErrUnsupported):
		return NewError(ReasonUnsupported)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ReasonTimeout)
	}
	return NewError(ReasonUnknown)
}

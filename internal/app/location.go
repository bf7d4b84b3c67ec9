package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/evcraddock/field-visits/internal/location"
	"github.com/evcraddock/field-visits/internal/visit"
)

// RequestLocation asks the provider for the current position. The result
// arrives later through LocationUpdate or LocationError.
func (c *Controller) RequestLocation(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.mode != ModeForm {
		c.mu.Unlock()
		return fmt.Errorf("%w: location request in %s mode", ErrInvalidTransition, c.mode)
	}
	if c.provider == nil {
		c.mu.Unlock()
		c.toasts.ShowError(location.NewError(location.ReasonUnsupported))
		return location.ErrUnsupported
	}
	c.locating = true
	c.locGen = c.draftGen
	provider := c.provider
	c.mu.Unlock()

	if provider.Mode() == location.ModeHostBridge {
		c.toasts.Show("Requesting location...", ToastInfo)
	} else {
		c.toasts.Show("Requesting location permission...", ToastInfo)
	}

	// The acquisition outlives the caller's request; it is bound to the
	// controller's lifetime instead.
	if err := provider.RequestLocation(c.ctx); err != nil {
		c.mu.Lock()
		c.locating = false
		c.mu.Unlock()
		c.toasts.Show("Could not request location", ToastError)
		return fmt.Errorf("requesting location: %w", err)
	}
	return nil
}

// acceptLocationLocked reports whether a location callback applies to the
// current draft, and clears the pending request either way.
func (c *Controller) acceptLocationLocked() bool {
	stale := c.locating && c.locGen != c.draftGen
	c.locating = false
	return c.mode == ModeForm && !stale
}

// LocationUpdate implements location.Listener.
func (c *Controller) LocationUpdate(fix location.Fix) {
	c.mu.Lock()
	if !c.acceptLocationLocked() {
		c.mu.Unlock()
		slog.Debug("discarding location update", "lat", fix.Latitude, "lon", fix.Longitude)
		return
	}

	address := fix.Address
	resolve := address == ""
	if resolve {
		address = visit.PlaceholderAddress(fix.Latitude, fix.Longitude)
	}
	c.draft.SetLocation(fix.Latitude, fix.Longitude, address)
	c.locRev++
	gen := c.draftGen
	c.mu.Unlock()

	if !resolve {
		c.toasts.Show("Location captured!", ToastSuccess)
		return
	}
	c.toasts.Show("Location captured! Getting address...", ToastInfo)
	if c.resolver == nil {
		return
	}

	c.wg.Add(1)
	go c.resolveAddress(gen, fix.Latitude, fix.Longitude)
}

// LocationError implements location.Listener. The draft is left unchanged.
func (c *Controller) LocationError(err error) {
	c.mu.Lock()
	accepted := c.acceptLocationLocked()
	c.mu.Unlock()
	if !accepted {
		slog.Debug("discarding location error", "error", err)
		return
	}
	slog.Info("location request failed", "error", err)
	c.toasts.ShowError(err)
}

// resolveAddress replaces the placeholder address. Failures are silent:
// the draft keeps whatever address it had.
func (c *Controller) resolveAddress(gen uint64, lat, lon float64) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, resolveTimeout)
	defer cancel()

	address, err := c.resolver.Reverse(ctx, lat, lon)
	if err == nil && strings.TrimSpace(address) == "" {
		err = errors.New("empty address")
	}
	if err != nil {
		slog.Debug("address lookup failed", "lat", lat, "lon", lon, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.draft.Entry()
	if c.draftGen != gen || c.mode != ModeForm || !sameFix(e, lat, lon) {
		slog.Debug("discarding stale address", "address", address)
		return
	}
	c.draft.SetAddress(address)
	c.locRev++
	c.toasts.Show("Address found!", ToastSuccess)
}

func sameFix(e visit.Entry, lat, lon float64) bool {
	return e.Latitude != nil && e.Longitude != nil && *e.Latitude == lat && *e.Longitude == lon
}

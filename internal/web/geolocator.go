package web

import (
	"context"
	"errors"
	"sync"

	"github.com/evcraddock/field-visits/internal/location"
)

// errNoPendingRequest is returned when the page reports a position nobody asked for.
var errNoPendingRequest = errors.New("no location request pending")

// positionReport is the page's answer to a position request.
type positionReport struct {
	pos location.Position
	err error
}

// pageGeolocator implements location.Geolocator for one browser session.
// A request blocks until the page script runs navigator.geolocation and
// posts the outcome back, or until the request context ends.
type pageGeolocator struct {
	mu      sync.Mutex
	pending chan positionReport
	opts    location.Options
}

// CurrentPosition implements location.Geolocator.
func (g *pageGeolocator) CurrentPosition(ctx context.Context, opts location.Options) (location.Position, error) {
	ch := make(chan positionReport, 1)

	g.mu.Lock()
	g.pending = ch
	g.opts = opts
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		if g.pending == ch {
			g.pending = nil
		}
		g.mu.Unlock()
	}()

	select {
	case rep := <-ch:
		return rep.pos, rep.err
	case <-ctx.Done():
		return location.Position{}, ctx.Err()
	}
}

// Pending reports whether a request waits for the page, and its options.
func (g *pageGeolocator) Pending() (location.Options, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.opts, g.pending != nil
}

// Report delivers the page's outcome to the waiting request.
func (g *pageGeolocator) Report(rep positionReport) error {
	g.mu.Lock()
	ch := g.pending
	g.pending = nil
	g.mu.Unlock()

	if ch == nil {
		return errNoPendingRequest
	}
	ch <- rep
	return nil
}

// settleListener forwards location callbacks and signals once each is applied.
type settleListener struct {
	next    location.Listener
	settled chan struct{}
}

func newSettleListener(next location.Listener) *settleListener {
	return &settleListener{next: next, settled: make(chan struct{}, 1)}
}

func (l *settleListener) LocationUpdate(fix location.Fix) {
	l.next.LocationUpdate(fix)
	l.signal()
}

func (l *settleListener) LocationError(err error) {
	l.next.LocationError(err)
	l.signal()
}

func (l *settleListener) signal() {
	select {
	case l.settled <- struct{}{}:
	default:
	}
}

// drain discards a stale signal.
func (l *settleListener) drain() {
	select {
	case <-l.settled:
	default:
	}
}

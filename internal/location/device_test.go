package location

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubGeolocator returns a fixed result and records the options it saw.
type stubGeolocator struct {
	pos  Position
	err  error
	wait bool
	opts chan Options
}

func (g *stubGeolocator) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	if g.opts != nil {
		g.opts <- opts
	}
	if g.wait {
		<-ctx.Done()
		return Position{}, ctx.Err()
	}
	return g.pos, g.err
}

func TestDeviceProviderSuccess(t *testing.T) {
	rec := newRecorder()
	geo := &stubGeolocator{pos: Position{Latitude: 1, Longitude: 2}, opts: make(chan Options, 1)}
	p := NewDeviceProvider(geo, DefaultOptions, rec)

	if p.Mode() != ModeBrowser {
		t.Errorf("mode = %q", p.Mode())
	}
	if err := p.RequestLocation(context.Background()); err != nil {
		t.Fatalf("request: %v", err)
	}

	fix, err := rec.next(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fix.Latitude != 1 || fix.Longitude != 2 || fix.Address != "" {
		t.Errorf("fix = %+v", fix)
	}

	opts := <-geo.opts
	if !opts.HighAccuracy || opts.Timeout != 15*time.Second || opts.MaximumAge != 0 {
		t.Errorf("options = %+v", opts)
	}
	rec.quiet(t)
}

func TestDeviceProviderFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"permission denied", &PositionError{Code: CodePermissionDenied}, ReasonPermissionDenied},
		{"unavailable", &PositionError{Code: CodePositionUnavailable}, ReasonUnavailable},
		{"timeout code", &PositionError{Code: CodeTimeout}, ReasonTimeout},
		{"unknown code", &PositionError{Code: 99}, ReasonUnknown},
		{"unsupported", ErrUnsupported, ReasonUnsupported},
		{"other", errors.New("boom"), ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			p := NewDeviceProvider(&stubGeolocator{err: tt.err}, DefaultOptions, rec)
			if err := p.RequestLocation(context.Background()); err != nil {
				t.Fatalf("request: %v", err)
			}

			_, err := rec.next(t)
			var locErr *Error
			if !errors.As(err, &locErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if locErr.Reason != tt.want {
				t.Errorf("reason = %d, want %d", locErr.Reason, tt.want)
			}
		})
	}
}

func TestDeviceProviderTimeout(t *testing.T) {
	rec := newRecorder()
	opts := DefaultOptions
	opts.Timeout = 10 * time.Millisecond
	p := NewDeviceProvider(&stubGeolocator{wait: true}, opts, rec)

	if err := p.RequestLocation(context.Background()); err != nil {
		t.Fatalf("request: %v", err)
	}
	_, err := rec.next(t)
	var locErr *Error
	if !errors.As(err, &locErr) || locErr.Reason != ReasonTimeout {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestDeviceProviderNilGeolocator(t *testing.T) {
	rec := newRecorder()
	p := NewDeviceProvider(nil, DefaultOptions, rec)
	if err := p.RequestLocation(context.Background()); err != nil {
		t.Fatalf("request: %v", err)
	}
	_, err := rec.next(t)
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want unsupported", err)
	}
}

// slowGeolocator answers after a delay unless the context ends first.
type slowGeolocator struct {
	delay time.Duration
}

func (g slowGeolocator) CurrentPosition(ctx context.Context, opts Options) (Position, error) {
	select {
	case <-time.After(g.delay):
		return Position{Latitude: 7, Longitude: 8}, nil
	case <-ctx.Done():
		return Position{}, ctx.Err()
	}
}

func TestDeviceProviderGrace(t *testing.T) {
	tests := []struct {
		name    string
		grace   time.Duration
		wantFix bool
	}{
		{"late answer within grace", 500 * time.Millisecond, true},
		{"late answer without grace", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			opts := Options{Timeout: 20 * time.Millisecond, Grace: tt.grace}
			p := NewDeviceProvider(slowGeolocator{delay: 100 * time.Millisecond}, opts, rec)
			if err := p.RequestLocation(context.Background()); err != nil {
				t.Fatalf("request: %v", err)
			}

			fix, err := rec.next(t)
			if tt.wantFix {
				if err != nil || fix.Latitude != 7 {
					t.Errorf("fix = %+v, err = %v", fix, err)
				}
				return
			}
			var locErr *Error
			if !errors.As(err, &locErr) || locErr.Reason != ReasonTimeout {
				t.Errorf("err = %v, want timeout", err)
			}
		})
	}
}

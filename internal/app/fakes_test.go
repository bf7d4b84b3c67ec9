package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evcraddock/field-visits/internal/location"
	"github.com/evcraddock/field-visits/internal/visit"
)

var errNetwork = errors.New("network unreachable")

// fakeRepo records calls and returns canned results.
type fakeRepo struct {
	mu      sync.Mutex
	calls   []string
	entries []visit.Entry

	listErr   error
	saveErr   error
	deleteErr error

	// listFn, when set, replaces the canned list behaviour.
	listFn func(ctx context.Context) ([]visit.Entry, error)

	lastSaved visit.Entry
	lastID    visit.ID
}

func (r *fakeRepo) record(call string) {
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
}

func (r *fakeRepo) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRepo) ListEntries(ctx context.Context) ([]visit.Entry, error) {
	r.record("list")
	if r.listFn != nil {
		return r.listFn(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]visit.Entry(nil), r.entries...), nil
}

func (r *fakeRepo) CreateEntry(ctx context.Context, e visit.Entry) (*visit.Entry, error) {
	r.record("create")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSaved = e
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	e.ID = "new"
	r.entries = append(r.entries, e)
	return &e, nil
}

func (r *fakeRepo) UpdateEntry(ctx context.Context, id visit.ID, e visit.Entry) (*visit.Entry, error) {
	r.record("update:" + id.String())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSaved = e
	r.lastID = id
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	e.ID = id
	return &e, nil
}

func (r *fakeRepo) DeleteEntry(ctx context.Context, id visit.ID) error {
	r.record("delete:" + id.String())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID = id
	if r.deleteErr != nil {
		return r.deleteErr
	}
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	return nil
}

// fakeResolver answers once release is closed, or immediately when nil.
type fakeResolver struct {
	address string
	err     error
	release chan struct{}
}

func (f *fakeResolver) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.address, f.err
}

// fakeProvider counts requests; tests drive the listener directly.
type fakeProvider struct {
	mode       location.Mode
	listener   location.Listener
	requestErr error

	mu       sync.Mutex
	requests int
	closed   bool
}

func (p *fakeProvider) Mode() location.Mode { return p.mode }

func (p *fakeProvider) RequestLocation(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	return p.requestErr
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	c        *Controller
	repo     *fakeRepo
	resolver *fakeResolver
	provider *fakeProvider
	clock    *fakeClock
}

func newHarness(t *testing.T, entries ...visit.Entry) *harness {
	t.Helper()
	h := &harness{
		repo:     &fakeRepo{entries: entries},
		resolver: &fakeResolver{address: "1 Resolved Rd"},
		provider: &fakeProvider{mode: location.ModeBrowser},
		clock:    &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)},
	}
	h.c = New(Config{
		Repo:     h.repo,
		Resolver: h.resolver,
		Locator: func(l location.Listener) location.Provider {
			h.provider.listener = l
			return h.provider
		},
		Now: h.clock.Now,
	})
	t.Cleanup(func() {
		if err := h.c.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return h
}

func (h *harness) refresh(t *testing.T) {
	t.Helper()
	if err := h.c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
}

func (h *harness) toast(t *testing.T) string {
	t.Helper()
	st := h.c.Snapshot()
	if st.Toast == nil {
		return ""
	}
	return st.Toast.Message
}

func sampleEntries() []visit.Entry {
	return []visit.Entry{
		{ID: "1", Date: "2026-03-01", CompanyName: "Acme", Contacts: []visit.Contact{{ContactName: "Ana"}}, Status: visit.StatusPending},
		{ID: "42", Date: "2026-03-02", CompanyName: "Globex", Contacts: []visit.Contact{{ContactName: "Hank"}}, Status: visit.StatusFollowup},
		{ID: "3", Date: "2026-03-03", CompanyName: "Initech", Contacts: []visit.Contact{{ContactName: "Bill"}}, Status: visit.StatusCompleted},
	}
}

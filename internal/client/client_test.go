package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evcraddock/field-visits/internal/visit"
)

func TestListEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/field-visits" {
			t.Errorf("path = %q, want /field-visits", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer testkey" {
			t.Error("expected Bearer testkey")
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := io.WriteString(w, `[{"id":1,"companyName":"Acme","status":"pending","contacts":[{"contactName":"Ana"}]}]`); err != nil {
			t.Fatalf("write: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey")
	entries, err := c.ListEntries(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].ID != "1" {
		t.Errorf("id = %q, want 1", entries[0].ID)
	}
	if entries[0].PrimaryContact() != "Ana" {
		t.Errorf("contact = %q", entries[0].PrimaryContact())
	}
}

func TestListEntriesNullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.WriteString(w, `null`); err != nil {
			t.Fatalf("write: %v", err)
		}
	}))
	defer srv.Close()

	entries, err := New(srv.URL, "").ListEntries(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %#v, want empty slice", entries)
	}
}

func TestCreateEntryOmitsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/field-visits" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := raw["id"]; ok {
			t.Error("expected id to be omitted on create")
		}
		if string(raw["companyName"]) != `"Acme"` {
			t.Errorf("companyName = %s", raw["companyName"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if _, err := io.WriteString(w, `{"id":"abc","companyName":"Acme"}`); err != nil {
			t.Fatalf("write: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	created, err := c.CreateEntry(context.Background(), visit.Entry{ID: "stale", CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "abc" {
		t.Errorf("id = %q, want abc", created.ID)
	}
}

func TestUpdateEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/field-visits/42" {
			t.Errorf("path = %q, want /field-visits/42", r.URL.Path)
		}
		var e visit.Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if e.Status != visit.StatusCompleted {
			t.Errorf("status = %q", e.Status)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(e); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	updated, err := c.UpdateEntry(context.Background(), "42", visit.Entry{CompanyName: "Acme", Status: visit.StatusCompleted})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != "42" {
		t.Errorf("id = %q, want 42", updated.ID)
	}
}

func TestUpdateEntryRequiresID(t *testing.T) {
	if _, err := New("http://unused", "").UpdateEntry(context.Background(), "", visit.Entry{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestDeleteEntry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Path != "/field-visits/7" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL, "").DeleteEntry(context.Background(), "7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestServerError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusInternalServerError, `{"error":"db exploded"}`, "db exploded"},
		{"message field", http.StatusBadRequest, `{"message":"companyName required"}`, "companyName required"},
		{"plain text", http.StatusBadGateway, `upstream down`, "server error: Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if _, err := io.WriteString(w, tt.body); err != nil {
					t.Fatalf("write: %v", err)
				}
			}))
			defer srv.Close()

			_, err := New(srv.URL, "").ListEntries(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tt.status {
				t.Errorf("expected APIError with status %d, got %v", tt.status, err)
			}
		})
	}
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := New(url, "").ListEntries(context.Background()); err == nil {
		t.Fatal("expected error from closed server")
	}
}

func TestCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(srv.URL, "").ListEntries(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

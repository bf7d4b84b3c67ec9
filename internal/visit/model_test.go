package visit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ID
	}{
		{"string", `{"id":"abc"}`, "abc"},
		{"number", `{"id":42}`, "42"},
		{"null", `{"id":null}`, ""},
		{"missing", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Entry
			if err := json.Unmarshal([]byte(tt.input), &e); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if e.ID != tt.want {
				t.Errorf("id = %q, want %q", e.ID, tt.want)
			}
		})
	}
}

func TestIDUnmarshalRejectsObject(t *testing.T) {
	var e Entry
	if err := json.Unmarshal([]byte(`{"id":{"x":1}}`), &e); err == nil {
		t.Fatal("expected error for object id")
	}
}

func TestEntryMarshalOmitsEmptyID(t *testing.T) {
	data, err := json.Marshal(Entry{Date: "2026-01-01", CompanyName: "Acme", Contacts: []Contact{{}}, Status: StatusPending})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, `"id"`) {
		t.Errorf("expected id omitted, got %s", s)
	}
	if strings.Contains(s, `"latitude"`) {
		t.Errorf("expected latitude omitted, got %s", s)
	}
	if !strings.Contains(s, `"companyName":"Acme"`) {
		t.Errorf("expected companyName, got %s", s)
	}
}

func TestStatus(t *testing.T) {
	for _, s := range Statuses {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
		if s.Label() == "" {
			t.Errorf("%q has no label", s)
		}
	}
	if Status("archived").IsValid() {
		t.Error("archived should not be valid")
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Error("expected error for unknown status")
	}
	if s, err := ParseStatus("followup"); err != nil || s != StatusFollowup {
		t.Errorf("ParseStatus(followup) = %q, %v", s, err)
	}
}

func TestEffectiveStatus(t *testing.T) {
	if got := (Entry{}).EffectiveStatus(); got != StatusPending {
		t.Errorf("empty status = %q, want pending", got)
	}
	if got := (Entry{Status: "weird"}).EffectiveStatus(); got != StatusPending {
		t.Errorf("unknown status = %q, want pending", got)
	}
	if got := (Entry{Status: StatusCancelled}).EffectiveStatus(); got != StatusCancelled {
		t.Errorf("cancelled = %q", got)
	}
}

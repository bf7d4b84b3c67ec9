// Package visit provides the field visit domain model and the form draft.
package visit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DateLayout is the calendar date format used for visit and reminder dates.
const DateLayout = "2006-01-02"

// ID is an opaque identifier assigned by the remote API.
// The API may send it as a JSON string or number; it is always kept as a string.
type ID string

// UnmarshalJSON accepts a string, a number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as text.
func (id ID) String() string { return string(id) }

// Status is where a visit is in the follow-up workflow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFollowup  Status = "followup"
	StatusCancelled Status = "cancelled"
)

// Statuses is the set of allowed statuses, in display order.
var Statuses = []Status{StatusPending, StatusCompleted, StatusFollowup, StatusCancelled}

// IsValid checks if a status is recognized.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusCompleted:
		return "Completed"
	case StatusFollowup:
		return "Follow-up"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid status %q (use pending, completed, followup or cancelled)", s)
	}
	return st, nil
}

// Contact is one person met during a visit.
type Contact struct {
	ContactName string `json:"contactName"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
}

// Entry is a single field visit record.
type Entry struct {
	ID          ID        `json:"id,omitempty"`
	Date        string    `json:"date"` // YYYY-MM-DD
	CompanyName string    `json:"companyName"`
	Contacts    []Contact `json:"contacts"`
	Address     string    `json:"address,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Reminder    string    `json:"reminder,omitempty"` // YYYY-MM-DD
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
}

// EffectiveStatus returns the entry's status, treating empty or unknown
// values as pending.
func (e Entry) EffectiveStatus() Status {
	if e.Status.IsValid() {
		return e.Status
	}
	return StatusPending
}

// HasLocation reports whether coordinates were captured for the entry.
func (e Entry) HasLocation() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// PrimaryContact returns the first contact's name, or "" if there is none.
func (e Entry) PrimaryContact() string {
	if len(e.Contacts) == 0 {
		return ""
	}
	return e.Contacts[0].ContactName
}

// Clone returns a deep copy of the entry.
func (e Entry) Clone() Entry {
	c := e
	c.Contacts = append([]Contact(nil), e.Contacts...)
	if e.Latitude != nil {
		lat := *e.Latitude
		c.Latitude = &lat
	}
	if e.Longitude != nil {
		lon := *e.Longitude
		c.Longitude = &lon
	}
	return c
}

// FormatCoordinate renders a coordinate with six decimal places.
func FormatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// PlaceholderAddress is shown while the real address is being resolved.
func PlaceholderAddress(lat, lon float64) string {
	return fmt.Sprintf("Coordinates: %s, %s", FormatCoordinate(lat), FormatCoordinate(lon))
}

package visit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnknownField is returned when a field name is not part of an entry.
	ErrUnknownField = errors.New("unknown field")
	// ErrContactIndex is returned when a contact index is out of range.
	ErrContactIndex = errors.New("contact index out of range")
)

// Draft is the single in-progress entry being created or edited.
// The zero value is not usable; create one with NewDraft or DraftFrom.
type Draft struct {
	entry Entry
}

// NewDraft returns a blank draft dated today with one empty contact.
func NewDraft(today time.Time) *Draft {
	d := &Draft{}
	d.Reset(today)
	return d
}

// DraftFrom returns a draft holding a copy of an existing entry.
func DraftFrom(e Entry) *Draft {
	c := e.Clone()
	if len(c.Contacts) == 0 {
		c.Contacts = []Contact{{}}
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	return &Draft{entry: c}
}

// Reset replaces the draft with the default shape.
func (d *Draft) Reset(today time.Time) {
	d.entry = Entry{
		Date:     today.Format(DateLayout),
		Contacts: []Contact{{}},
		Status:   StatusPending,
	}
}

// Entry returns a copy of the draft's current contents.
func (d *Draft) Entry() Entry {
	return d.entry.Clone()
}

// ID returns the identifier of the entry the draft was loaded from.
func (d *Draft) ID() ID {
	return d.entry.ID
}

// Contacts returns a copy of the draft's contacts.
func (d *Draft) Contacts() []Contact {
	return append([]Contact(nil), d.entry.Contacts...)
}

// SetField sets one top-level field by its JSON name.
func (d *Draft) SetField(name, value string) error {
	switch name {
	case "date":
		d.entry.Date = value
	case "companyName":
		d.entry.CompanyName = value
	case "address":
		d.entry.Address = value
	case "reminder":
		d.entry.Reminder = value
	case "status":
		d.entry.Status = Status(value)
	case "notes":
		d.entry.Notes = value
	case "latitude":
		f, err := parseOptionalFloat(value)
		if err != nil {
			return fmt.Errorf("latitude: %w", err)
		}
		d.entry.Latitude = f
	case "longitude":
		f, err := parseOptionalFloat(value)
		if err != nil {
			return fmt.Errorf("longitude: %w", err)
		}
		d.entry.Longitude = f
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// SetContactField sets one field of the contact at index.
func (d *Draft) SetContactField(index int, field, value string) error {
	if index < 0 || index >= len(d.entry.Contacts) {
		return fmt.Errorf("%w: %d", ErrContactIndex, index)
	}
	c := &d.entry.Contacts[index]
	switch field {
	case "contactName":
		c.ContactName = value
	case "phone":
		c.Phone = value
	case "email":
		c.Email = value
	case "notes":
		c.Notes = value
	default:
		return fmt.Errorf("%w: contact %q", ErrUnknownField, field)
	}
	return nil
}

// AddContact appends a blank contact.
func (d *Draft) AddContact() {
	d.entry.Contacts = append(d.entry.Contacts, Contact{})
}

// RemoveContact removes the contact at index. It does nothing and returns
// false when only one contact remains or the index is out of range.
func (d *Draft) RemoveContact(index int) bool {
	if len(d.entry.Contacts) <= 1 || index < 0 || index >= len(d.entry.Contacts) {
		return false
	}
	d.entry.Contacts = append(d.entry.Contacts[:index:index], d.entry.Contacts[index+1:]...)
	return true
}

// SetLocation stores captured coordinates and the address shown for them.
func (d *Draft) SetLocation(lat, lon float64, address string) {
	d.entry.Latitude = &lat
	d.entry.Longitude = &lon
	d.entry.Address = address
}

// SetAddress overwrites the address only.
func (d *Draft) SetAddress(address string) {
	d.entry.Address = address
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return &f, nil
}

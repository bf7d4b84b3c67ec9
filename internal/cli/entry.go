package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/client"
	"github.com/evcraddock/field-visits/internal/visit"
)

// resolveTimeout bounds the reverse geocoding lookup for add/edit.
const resolveTimeout = 15 * time.Second

// entryFlags are the field flags shared by add and edit.
type entryFlags struct {
	date     string
	company  string
	address  string
	reminder string
	status   string
	notes    string
	contacts []string
	lat      float64
	lon      float64
}

func (f *entryFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.date, "date", "", "visit date (YYYY-MM-DD, default today)")
	fl.StringVar(&f.company, "company", "", "company name")
	fl.StringVar(&f.address, "address", "", "street address")
	fl.StringVar(&f.reminder, "reminder", "", "follow-up reminder date (YYYY-MM-DD)")
	fl.StringVar(&f.status, "status", "", "status (pending|completed|followup|cancelled)")
	fl.StringVar(&f.notes, "notes", "", "visit notes")
	fl.StringArrayVar(&f.contacts, "contact", nil, `contact as "name;phone;email;notes" (repeatable)`)
	fl.Float64Var(&f.lat, "lat", 0, "latitude")
	fl.Float64Var(&f.lon, "lon", 0, "longitude")
}

var entryFlagNames = []string{"date", "company", "address", "reminder", "status", "notes", "contact", "lat", "lon"}

func (f *entryFlags) anyChanged(cmd *cobra.Command) bool {
	for _, name := range entryFlagNames {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// apply copies the flags the user set into the draft. It reports whether
// the coordinates changed.
func (f *entryFlags) apply(cmd *cobra.Command, d *visit.Draft) (moved bool, err error) {
	fl := cmd.Flags()
	fields := []struct {
		flag, field, value string
	}{
		{"date", "date", f.date},
		{"company", "companyName", f.company},
		{"address", "address", f.address},
		{"reminder", "reminder", f.reminder},
		{"status", "status", f.status},
		{"notes", "notes", f.notes},
	}
	for _, fd := range fields {
		if !fl.Changed(fd.flag) {
			continue
		}
		if err := d.SetField(fd.field, fd.value); err != nil {
			return false, err
		}
	}

	if fl.Changed("contact") {
		contacts := make([]visit.Contact, 0, len(f.contacts))
		for _, raw := range f.contacts {
			contacts = append(contacts, parseContact(raw))
		}
		if err := replaceContacts(d, contacts); err != nil {
			return false, err
		}
	}

	if fl.Changed("lat") || fl.Changed("lon") {
		moved = true
		if fl.Changed("lat") {
			if err := d.SetField("latitude", strconv.FormatFloat(f.lat, 'f', -1, 64)); err != nil {
				return false, err
			}
		}
		if fl.Changed("lon") {
			if err := d.SetField("longitude", strconv.FormatFloat(f.lon, 'f', -1, 64)); err != nil {
				return false, err
			}
		}
	}
	return moved, nil
}

// parseContact splits "name;phone;email;notes". Missing parts are empty.
func parseContact(raw string) visit.Contact {
	parts := strings.SplitN(raw, ";", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return visit.Contact{
		ContactName: strings.TrimSpace(parts[0]),
		Phone:       strings.TrimSpace(parts[1]),
		Email:       strings.TrimSpace(parts[2]),
		Notes:       strings.TrimSpace(parts[3]),
	}
}

// replaceContacts makes the draft hold exactly contacts.
func replaceContacts(d *visit.Draft, contacts []visit.Contact) error {
	if len(contacts) == 0 {
		return fmt.Errorf("at least one contact is required")
	}
	for len(d.Contacts()) < len(contacts) {
		d.AddContact()
	}
	for len(d.Contacts()) > len(contacts) {
		d.RemoveContact(len(d.Contacts()) - 1)
	}
	for i, c := range contacts {
		for field, value := range map[string]string{
			"contactName": c.ContactName,
			"phone":       c.Phone,
			"email":       c.Email,
			"notes":       c.Notes,
		} {
			if err := d.SetContactField(i, field, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// fillAddress looks up the address for the draft's coordinates. On failure
// the draft gets the coordinate placeholder, as in the web UI.
func fillAddress(ctx context.Context, d *visit.Draft) {
	e := d.Entry()
	if !e.HasLocation() {
		return
	}
	lat, lon := *e.Latitude, *e.Longitude

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	address, err := newResolver().Reverse(ctx, lat, lon)
	if err != nil || strings.TrimSpace(address) == "" {
		slog.Warn("address lookup failed", "lat", lat, "lon", lon, "error", err)
		address = visit.PlaceholderAddress(lat, lon)
	}
	d.SetAddress(address)
}

// findEntry loads the list and picks one entry; the API has no single-entry read.
func findEntry(ctx context.Context, c *client.Client, id visit.ID) (visit.Entry, error) {
	entries, err := c.ListEntries(ctx)
	if err != nil {
		return visit.Entry{}, fmt.Errorf("loading entries: %w", err)
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return visit.Entry{}, fmt.Errorf("entry %s not found", id)
}
